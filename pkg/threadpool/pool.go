package threadpool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"

	gperrors "github.com/vnykmshr/gopool/pkg/common/errors"
	"github.com/vnykmshr/gopool/pkg/common/validation"
	"github.com/vnykmshr/gopool/pkg/logger"
)

// Job is a unit of work: no arguments, no result. A Job may run on any
// worker and concurrently with other jobs.
type Job func()

var (
	// ErrPoolClosed is returned by Submit once JoinAll has started.
	// It wraps errors.ErrClosed.
	ErrPoolClosed = fmt.Errorf("threadpool: pool is closed: %w", gperrors.ErrClosed)

	// ErrNilJob is returned when a nil job is submitted.
	ErrNilJob = errors.New("threadpool: job cannot be nil")
)

// PanicError describes a job that panicked. With Config.FatalPanics set,
// the worker re-panics with a *PanicError after accounting for the job.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("threadpool: job panicked: %v\n%s", e.Value, e.Stack)
}

// State is the lifecycle stage of a Pool.
type State int

const (
	// StateRunning accepts and executes jobs.
	StateRunning State = iota
	// StateDraining refuses new jobs; workers finish the queue, then exit.
	StateDraining
	// StateJoined is terminal: every worker has exited.
	StateJoined
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateJoined:
		return "joined"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats is a point-in-time snapshot of pool counters.
//
// Finished counts every job that has left a worker, including the ones
// counted again in Failed or Panicked.
type Stats struct {
	Workers   int
	Queued    int
	Pending   int
	Submitted int64
	Finished  int64
	Failed    int64
	Panicked  int64
	Rejected  int64
}

// Executor is the set of operations shared by Pool and MetricsPool.
type Executor interface {
	// Submit enqueues job. It never blocks on capacity.
	Submit(job Job) error

	// SubmitFunc enqueues fn; a non-nil error is logged and handed to
	// Config.ErrorHandler.
	SubmitFunc(fn func() error) error

	// WaitAll blocks until no job is pending.
	WaitAll()

	// WaitSubmitted blocks until every job submitted before the call has finished.
	WaitSubmitted()

	// JoinAll stops the workers. It is idempotent.
	JoinAll(waitForAll bool)

	// Close is JoinAll(true).
	Close() error

	// JobsRemaining returns the number of queued jobs.
	JobsRemaining() int

	// Pending returns the number of submitted jobs that have not finished.
	Pending() int

	// Size returns the number of workers.
	Size() int

	// Stats returns a snapshot of the pool counters.
	Stats() Stats
}

// Config holds configuration options for creating a pool.
type Config struct {
	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// Name identifies the pool in log lines and metric labels.
	// Defaults to "default".
	Name string

	// Logger receives pool lifecycle and job failure entries.
	// If nil, nothing is logged.
	Logger *logger.Logger

	// PanicHandler is called on the worker goroutine with the value a job
	// panicked with. The panic is always logged at error level.
	PanicHandler func(recovered interface{})

	// ErrorHandler is called with the error returned by a job submitted
	// through SubmitFunc.
	ErrorHandler func(err error)

	// FatalPanics re-raises job panics on the worker goroutine, which
	// terminates the process. Pending counts are settled first.
	FatalPanics bool

	// OnWorkerStart is called on each worker goroutine before it takes jobs.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called on each worker goroutine as it exits.
	OnWorkerStop func(workerID int)
}

// DefaultName is used when Config.Name is empty.
const DefaultName = "default"

type queuedJob struct {
	job   Job
	epoch uint64
}

// Pool is a fixed set of worker goroutines draining one unbounded FIFO queue.
type Pool struct {
	config Config
	log    *logger.Logger

	mu      sync.Mutex
	work    *sync.Cond // queue non-empty or draining
	done    *sync.Cond // a job finished
	queue   deque.Deque[queuedJob]
	pending int
	epoch   uint64
	inEpoch map[uint64]int
	state   State

	joinOnce sync.Once
	workerWg sync.WaitGroup

	// afterFinish runs after a job's accounting is settled, outside the lock.
	afterFinish func()

	submitted atomic.Int64
	finished  atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
	rejected  atomic.Int64
}

var _ Executor = (*Pool)(nil)

// New creates a pool with workerCount workers and default settings.
func New(workerCount int) (*Pool, error) {
	return NewWithConfig(Config{WorkerCount: workerCount})
}

// NewWithConfig creates a pool and starts all of its workers before returning.
func NewWithConfig(config Config) (*Pool, error) {
	return build(config, nil)
}

func build(config Config, afterFinish func()) (*Pool, error) {
	if err := validation.ValidatePositive("threadpool", "WorkerCount", config.WorkerCount); err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = DefaultName
	}

	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}

	p := &Pool{
		config:  config,
		log:     log.Named("threadpool." + config.Name),
		inEpoch: make(map[uint64]int),

		afterFinish: afterFinish,
	}
	p.work = sync.NewCond(&p.mu)
	p.done = sync.NewCond(&p.mu)

	p.workerWg.Add(config.WorkerCount)
	for i := 0; i < config.WorkerCount; i++ {
		go p.worker(i)
	}

	p.log.Debugf("started %d workers", config.WorkerCount)
	return p, nil
}
