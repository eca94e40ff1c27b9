package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name unless Config.Namespace overrides it.
const DefaultNamespace = "gopool"

// Registry holds all metric instances for gopool components.
type Registry struct {
	// Thread pool metrics, labeled by pool_name
	PoolSize      *prometheus.GaugeVec
	PoolPending   *prometheus.GaugeVec
	PoolQueued    *prometheus.GaugeVec
	JobsSubmitted *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobsRejected  *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	JobQueueWait  *prometheus.HistogramVec

	// Scheduler metrics, labeled by scheduler_name
	SchedulerTriggers     *prometheus.CounterVec
	SchedulerSubmitErrors *prometheus.CounterVec
	SchedulerJobs         *prometheus.GaugeVec
}

// lazyRegistry builds a Registry on first use and remembers the outcome,
// including a failed registration.
type lazyRegistry struct {
	once       sync.Once
	registerer prometheus.Registerer
	reg        *Registry
	err        error
}

func (l *lazyRegistry) get() (*Registry, error) {
	l.once.Do(func() {
		l.reg, l.err = tryNewRegistry(l.registerer, DefaultNamespace)
	})
	return l.reg, l.err
}

var defaultRegistry = &lazyRegistry{registerer: prometheus.DefaultRegisterer}

// DefaultRegistry returns a Registry registered with prometheus.DefaultRegisterer.
// It is created on first use. If the default registerer already holds
// conflicting collectors, every call panics with the same error; use
// TryDefaultRegistry to get it returned instead.
func DefaultRegistry() *Registry {
	r, err := defaultRegistry.get()
	if err != nil {
		panic(err)
	}
	return r
}

// TryDefaultRegistry is DefaultRegistry that returns the registration error.
func TryDefaultRegistry() (*Registry, error) {
	return defaultRegistry.get()
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
// A nil registerer yields metrics that are not registered anywhere.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg, DefaultNamespace)
}

// FromConfig creates a Registry using the registerer and namespace in cfg.
// A nil cfg.Registry falls back to DefaultRegistry.
func FromConfig(cfg Config) *Registry {
	r, err := TryFromConfig(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// TryFromConfig is FromConfig that reports registration conflicts, such as
// registering the same collectors twice on one registry, as an error.
func TryFromConfig(cfg Config) (*Registry, error) {
	if cfg.Registry == nil {
		return TryDefaultRegistry()
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	return tryNewRegistry(prometheus.WrapRegistererWith(cfg.Labels, cfg.Registry), ns)
}

// tryNewRegistry turns the promauto registration panic into an error.
func tryNewRegistry(reg prometheus.Registerer, namespace string) (r *Registry, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("metrics: register collectors: %v", rec)
		}
	}()
	return newRegistry(reg, namespace), nil
}

func newRegistry(reg prometheus.Registerer, namespace string) *Registry {
	factory := promauto.With(reg)
	pool := []string{"pool_name"}
	sched := []string{"scheduler_name"}

	return &Registry{
		PoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "threadpool",
				Name:      "size",
				Help:      "Number of worker goroutines in the pool",
			},
			pool,
		),

		PoolPending: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "threadpool",
				Name:      "pending_jobs",
				Help:      "Jobs submitted but not yet finished",
			},
			pool,
		),

		PoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "threadpool",
				Name:      "queued_jobs",
				Help:      "Jobs waiting in the queue",
			},
			pool,
		),

		JobsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "threadpool",
				Name:      "jobs_submitted_total",
				Help:      "Total number of jobs accepted by the pool",
			},
			pool,
		),

		JobsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "threadpool",
				Name:      "jobs_completed_total",
				Help:      "Total number of jobs that finished without error or panic",
			},
			pool,
		),

		JobsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "threadpool",
				Name:      "jobs_failed_total",
				Help:      "Total number of jobs that returned an error or panicked",
			},
			pool,
		),

		JobsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "threadpool",
				Name:      "jobs_rejected_total",
				Help:      "Total number of submissions refused by the pool",
			},
			pool,
		),

		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "threadpool",
				Name:      "job_duration_seconds",
				Help:      "Time spent executing jobs",
				Buckets:   prometheus.DefBuckets,
			},
			pool,
		),

		JobQueueWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "threadpool",
				Name:      "job_queue_wait_seconds",
				Help:      "Time jobs spent queued before a worker picked them up",
				Buckets:   prometheus.DefBuckets,
			},
			pool,
		),

		SchedulerTriggers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "triggers_total",
				Help:      "Total number of scheduled jobs handed to the pool",
			},
			sched,
		),

		SchedulerSubmitErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "submit_errors_total",
				Help:      "Total number of scheduled jobs the pool refused",
			},
			sched,
		),

		SchedulerJobs: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "scheduled_jobs",
				Help:      "Number of jobs currently registered with the scheduler",
			},
			sched,
		),
	}
}
