package threadpool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/gopool/pkg/metrics"
)

// MetricsPool wraps a Pool with Prometheus metrics collection.
type MetricsPool struct {
	pool     *Pool
	name     string
	registry atomic.Pointer[metrics.Registry]
	enabled  atomic.Bool

	// gaugeMu orders gauge refreshes so the last writer saw the latest counts.
	gaugeMu sync.Mutex
}

var (
	_ Executor               = (*MetricsPool)(nil)
	_ metrics.Instrumentable = (*MetricsPool)(nil)
)

// NewWithMetrics creates a pool with metrics recorded on a private registry.
func NewWithMetrics(workerCount int, name string) (*MetricsPool, error) {
	// Use a separate registry for each metrics-enabled pool to avoid conflicts
	config := metrics.Config{
		Enabled:  true,
		Registry: prometheus.NewRegistry(),
	}
	return NewWithConfigAndMetrics(Config{WorkerCount: workerCount}, name, config)
}

// NewWithConfigAndMetrics creates a pool from config and instruments it
// according to metricsConfig. The pool name doubles as the pool_name label.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) (*MetricsPool, error) {
	if config.Name == "" {
		config.Name = name
	}
	if config.Name == "" {
		config.Name = DefaultName
	}

	mp := &MetricsPool{name: config.Name}
	basePool, err := build(config, mp.updateMetrics)
	if err != nil {
		return nil, err
	}
	mp.pool = basePool

	if err := mp.EnableMetrics(metricsConfig); err != nil {
		basePool.JoinAll(false)
		return nil, err
	}
	return mp, nil
}

// Unwrap returns the instrumented pool.
func (mp *MetricsPool) Unwrap() *Pool {
	return mp.pool
}

// Registry returns the metrics registry in use, or nil if none was configured.
func (mp *MetricsPool) Registry() *metrics.Registry {
	return mp.registry.Load()
}

func (mp *MetricsPool) active() (*metrics.Registry, bool) {
	reg := mp.registry.Load()
	return reg, reg != nil && mp.enabled.Load()
}

// updateMetrics refreshes the size, pending and queued gauges. The pool
// calls it after every finished job, once the job no longer counts as pending.
func (mp *MetricsPool) updateMetrics() {
	reg, ok := mp.active()
	if !ok {
		return
	}
	mp.gaugeMu.Lock()
	defer mp.gaugeMu.Unlock()
	reg.PoolSize.WithLabelValues(mp.name).Set(float64(mp.pool.Size()))
	reg.PoolPending.WithLabelValues(mp.name).Set(float64(mp.pool.Pending()))
	reg.PoolQueued.WithLabelValues(mp.name).Set(float64(mp.pool.JobsRemaining()))
}

// observe runs fn and records queue wait, duration and outcome. A panic in
// fn is counted as a failure and then continues to the pool's recovery.
func (mp *MetricsPool) observe(submitted time.Time, fn func() error) (err error) {
	start := time.Now()
	if reg, ok := mp.active(); ok {
		reg.JobQueueWait.WithLabelValues(mp.name).Observe(start.Sub(submitted).Seconds())
	}

	succeeded := false
	defer func() {
		reg, ok := mp.active()
		if !ok {
			return
		}
		reg.JobDuration.WithLabelValues(mp.name).Observe(time.Since(start).Seconds())
		if succeeded {
			reg.JobsCompleted.WithLabelValues(mp.name).Inc()
		} else {
			reg.JobsFailed.WithLabelValues(mp.name).Inc()
		}
	}()

	err = fn()
	succeeded = err == nil
	return err
}

func (mp *MetricsPool) recordSubmit(err error) error {
	if reg, ok := mp.active(); ok {
		if err != nil {
			reg.JobsRejected.WithLabelValues(mp.name).Inc()
		} else {
			reg.JobsSubmitted.WithLabelValues(mp.name).Inc()
		}
		mp.updateMetrics()
	}
	return err
}

// Submit adds a job to the pool for execution.
func (mp *MetricsPool) Submit(job Job) error {
	if job == nil {
		return mp.recordSubmit(ErrNilJob)
	}
	submitted := time.Now()
	return mp.recordSubmit(mp.pool.Submit(func() {
		_ = mp.observe(submitted, func() error {
			job()
			return nil
		})
	}))
}

// SubmitFunc adds an error-returning job to the pool for execution.
func (mp *MetricsPool) SubmitFunc(fn func() error) error {
	if fn == nil {
		return mp.recordSubmit(ErrNilJob)
	}
	submitted := time.Now()
	return mp.recordSubmit(mp.pool.SubmitFunc(func() error {
		return mp.observe(submitted, fn)
	}))
}

// WaitAll blocks until no job is pending.
func (mp *MetricsPool) WaitAll() {
	mp.pool.WaitAll()
	mp.updateMetrics()
}

// WaitSubmitted blocks until every job submitted before the call has finished.
func (mp *MetricsPool) WaitSubmitted() {
	mp.pool.WaitSubmitted()
	mp.updateMetrics()
}

// JoinAll shuts the pool down.
func (mp *MetricsPool) JoinAll(waitForAll bool) {
	mp.pool.JoinAll(waitForAll)
	mp.updateMetrics()
}

// Close is JoinAll(true).
func (mp *MetricsPool) Close() error {
	mp.JoinAll(true)
	return nil
}

// JobsRemaining returns the number of queued jobs.
func (mp *MetricsPool) JobsRemaining() int {
	mp.updateMetrics()
	return mp.pool.JobsRemaining()
}

// Pending returns the number of submitted jobs that have not finished.
func (mp *MetricsPool) Pending() int {
	mp.updateMetrics()
	return mp.pool.Pending()
}

// Size returns the number of workers.
func (mp *MetricsPool) Size() int {
	return mp.pool.Size()
}

// Stats returns a snapshot of the pool counters.
func (mp *MetricsPool) Stats() Stats {
	return mp.pool.Stats()
}

// EnableMetrics enables metrics collection. A non-nil config.Registry
// replaces the current registry; registering on a registry that already
// holds gopool collectors returns an error.
func (mp *MetricsPool) EnableMetrics(config metrics.Config) error {
	if config.Registry != nil || mp.registry.Load() == nil {
		reg, err := metrics.TryFromConfig(config)
		if err != nil {
			return err
		}
		mp.registry.Store(reg)
	}
	mp.enabled.Store(config.Enabled)
	mp.updateMetrics()
	return nil
}

// DisableMetrics disables metrics collection.
func (mp *MetricsPool) DisableMetrics() {
	mp.enabled.Store(false)
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mp *MetricsPool) MetricsEnabled() bool {
	return mp.enabled.Load()
}
