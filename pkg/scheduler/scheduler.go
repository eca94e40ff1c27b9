package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	gperrors "github.com/vnykmshr/gopool/pkg/common/errors"
	"github.com/vnykmshr/gopool/pkg/common/validation"
	"github.com/vnykmshr/gopool/pkg/logger"
	"github.com/vnykmshr/gopool/pkg/metrics"
	"github.com/vnykmshr/gopool/pkg/threadpool"
)

var (
	// ErrTaskExists is returned when scheduling under an ID already in use.
	ErrTaskExists = errors.New("scheduler: task already exists")

	// ErrTooManyTasks is returned when Config.MaxTasks would be exceeded.
	ErrTooManyTasks = errors.New("scheduler: maximum number of tasks reached")

	// ErrAlreadyRunning is returned by Start on a running scheduler.
	ErrAlreadyRunning = errors.New("scheduler: already running")
)

// maxIDLength bounds task IDs so they stay usable as log fields.
const maxIDLength = 255

// Submitter accepts jobs for execution. Both threadpool.Pool and
// threadpool.MetricsPool satisfy it.
type Submitter interface {
	Submit(job threadpool.Job) error
}

// Task describes a scheduled job as returned by List.
type Task struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // zero unless repeating
	CronExpr string        // empty unless cron-driven
	Created  time.Time
	Runs     int64
}

// Scheduler hands jobs to a pool when they become due.
type Scheduler interface {
	// Basic scheduling
	Schedule(id string, job threadpool.Job, runAt time.Time) error
	ScheduleAfter(id string, job threadpool.Job, delay time.Duration) error
	ScheduleRepeating(id string, job threadpool.Job, interval time.Duration) error

	// Cron scheduling
	ScheduleCron(id string, cronExpr string, job threadpool.Job) error

	// Task management
	Cancel(id string) bool
	CancelAll()
	List() []Task

	// Lifecycle
	Start() error
	Stop() <-chan struct{}
}

// Config holds scheduler configuration.
type Config struct {
	// Pool receives due jobs. Required; the scheduler never owns it.
	Pool Submitter

	// Name labels log lines and metrics. Defaults to "default".
	Name string

	Location     *time.Location // for cron expressions, default time.Local
	TickInterval time.Duration  // how often due tasks are collected, 0 means 50ms
	MaxTasks     int            // 0 means 10000; negative values are rejected

	Logger  *logger.Logger
	Metrics *metrics.Registry
}

type scheduledTask struct {
	id           string
	job          threadpool.Job
	runAt        time.Time
	interval     time.Duration
	cronExpr     string
	cronSchedule cron.Schedule
	created      time.Time
	runs         int64
}

type scheduler struct {
	pool         Submitter
	name         string
	location     *time.Location
	tickInterval time.Duration
	maxTasks     int
	cronParser   cron.Parser
	log          *logger.Logger
	metrics      *metrics.Registry

	mu      sync.RWMutex
	tasks   map[string]*scheduledTask
	done    chan struct{}
	exited  chan struct{}
	running bool
}

// NewParser returns the cron parser used by ScheduleCron: a leading seconds
// field followed by the standard five fields, plus descriptors like "@every 5s".
func NewParser() cron.Parser {
	return cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// New creates a scheduler that feeds pool with default settings.
func New(pool Submitter) (Scheduler, error) {
	return NewWithConfig(Config{Pool: pool})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) (Scheduler, error) {
	if err := validation.ValidateNotNil("scheduler", "Pool", cfg.Pool); err != nil {
		return nil, err
	}
	if err := validation.ValidateDuration("scheduler", "TickInterval", cfg.TickInterval); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative("scheduler", "MaxTasks", float64(cfg.MaxTasks)); err != nil {
		return nil, err
	}

	name := cfg.Name
	if name == "" {
		name = threadpool.DefaultName
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	tickInterval := cfg.TickInterval
	if tickInterval == 0 {
		tickInterval = 50 * time.Millisecond
	}

	maxTasks := cfg.MaxTasks
	if maxTasks == 0 {
		maxTasks = 10000
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &scheduler{
		pool:         cfg.Pool,
		name:         name,
		location:     location,
		tickInterval: tickInterval,
		maxTasks:     maxTasks,
		cronParser:   NewParser(),
		log:          log.Named("scheduler." + name),
		metrics:      cfg.Metrics,
		tasks:        make(map[string]*scheduledTask),
	}, nil
}

func validateTask(id string, job threadpool.Job) error {
	if err := validation.ValidateNotEmpty("scheduler", "id", id); err != nil {
		return err
	}
	if len(id) > maxIDLength {
		return gperrors.NewValidationError("scheduler", "id", len(id), "too long").
			WithHint(fmt.Sprintf("use at most %d characters", maxIDLength))
	}
	if job == nil {
		return threadpool.ErrNilJob
	}
	return nil
}

// add registers t. Callers hold s.mu.
func (s *scheduler) add(t *scheduledTask) error {
	if _, exists := s.tasks[t.id]; exists {
		return fmt.Errorf("%w: %q", ErrTaskExists, t.id)
	}
	if len(s.tasks) >= s.maxTasks {
		return fmt.Errorf("%w (%d)", ErrTooManyTasks, s.maxTasks)
	}
	s.tasks[t.id] = t
	s.updateGauge()
	s.log.Detailf("scheduled %q at %s", t.id, t.runAt.Format(time.RFC3339Nano))
	return nil
}

// updateGauge publishes the task count. Callers hold s.mu.
func (s *scheduler) updateGauge() {
	if s.metrics != nil {
		s.metrics.SchedulerJobs.WithLabelValues(s.name).Set(float64(len(s.tasks)))
	}
}

func (s *scheduler) Schedule(id string, job threadpool.Job, runAt time.Time) error {
	if err := validateTask(id, job); err != nil {
		return err
	}
	if runAt.IsZero() {
		return gperrors.NewValidationError("scheduler", "runAt", runAt, "cannot be zero")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.add(&scheduledTask{
		id:      id,
		job:     job,
		runAt:   runAt,
		created: time.Now(),
	})
}

func (s *scheduler) ScheduleAfter(id string, job threadpool.Job, delay time.Duration) error {
	return s.Schedule(id, job, time.Now().Add(delay))
}

// ScheduleRepeating runs job immediately and then every interval.
func (s *scheduler) ScheduleRepeating(id string, job threadpool.Job, interval time.Duration) error {
	if err := validateTask(id, job); err != nil {
		return err
	}
	if interval <= 0 {
		return gperrors.NewValidationError("scheduler", "interval", interval, "must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	return s.add(&scheduledTask{
		id:       id,
		job:      job,
		runAt:    now,
		interval: interval,
		created:  now,
	})
}

// ScheduleCron runs job whenever cronExpr fires. Expressions carry a
// seconds field ("*/5 * * * * *") or use a descriptor ("@hourly").
func (s *scheduler) ScheduleCron(id string, cronExpr string, job threadpool.Job) error {
	if err := validateTask(id, job); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("scheduler", "cronExpr", cronExpr); err != nil {
		return err
	}

	schedule, err := s.cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("scheduler: invalid cron expression %q: %w", cronExpr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	return s.add(&scheduledTask{
		id:           id,
		job:          job,
		runAt:        schedule.Next(now.In(s.location)),
		cronExpr:     cronExpr,
		cronSchedule: schedule,
		created:      now,
	})
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; !exists {
		return false
	}
	delete(s.tasks, id)
	s.updateGauge()
	return true
}

func (s *scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*scheduledTask)
	s.updateGauge()
}

// List returns every registered task ordered by next run time.
func (s *scheduler) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, Task{
			ID:       t.id,
			RunAt:    t.runAt,
			Interval: t.interval,
			CronExpr: t.cronExpr,
			Created:  t.created,
			Runs:     t.runs,
		})
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].RunAt.Equal(tasks[j].RunAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].RunAt.Before(tasks[j].RunAt)
	})

	return tasks
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	s.running = true
	s.done = make(chan struct{})
	s.exited = make(chan struct{})

	go s.run(time.NewTicker(s.tickInterval), s.done, s.exited)
	s.log.Debugf("started with tick %v", s.tickInterval)
	return nil
}

// Stop halts the tick loop. The returned channel closes once the loop has
// exited; jobs already handed to the pool keep running there. Stopping a
// scheduler that is not running returns a closed channel.
func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		stopped := make(chan struct{})
		close(stopped)
		return stopped
	}
	s.running = false
	close(s.done)
	return s.exited
}

func (s *scheduler) run(ticker *time.Ticker, done <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			s.log.Debugf("stopped")
			return
		case now := <-ticker.C:
			s.processReadyTasks(now)
		}
	}
}

type dueJob struct {
	id  string
	job threadpool.Job
}

func (s *scheduler) processReadyTasks(now time.Time) {
	s.mu.Lock()
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return
	}

	var ready []dueJob
	for id, t := range s.tasks {
		if now.Before(t.runAt) {
			continue
		}
		ready = append(ready, dueJob{id: id, job: t.job})
		t.runs++

		switch {
		case t.interval > 0:
			t.runAt = now.Add(t.interval)
		case t.cronSchedule != nil:
			t.runAt = t.cronSchedule.Next(now.In(s.location))
		default:
			delete(s.tasks, id)
		}
	}
	s.updateGauge()
	s.mu.Unlock()

	// Submit outside the lock; the pool may log or block briefly.
	for _, d := range ready {
		if err := s.pool.Submit(d.job); err != nil {
			level := logger.LevelError
			if gperrors.IsClosed(err) {
				level = logger.LevelWarning
			}
			s.log.Logf(level, "%v", gperrors.NewOperationError("scheduler", "submit", err).
				WithContext(fmt.Sprintf("task %q", d.id)))
			if s.metrics != nil {
				s.metrics.SchedulerSubmitErrors.WithLabelValues(s.name).Inc()
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.SchedulerTriggers.WithLabelValues(s.name).Inc()
		}
	}
}
