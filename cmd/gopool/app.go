package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vnykmshr/gopool/internal/config"
	gperrors "github.com/vnykmshr/gopool/pkg/common/errors"
	"github.com/vnykmshr/gopool/pkg/logger"
	"github.com/vnykmshr/gopool/pkg/metrics"
	"github.com/vnykmshr/gopool/pkg/scheduler"
	"github.com/vnykmshr/gopool/pkg/threadpool"
)

// app owns every long-lived component. It is built once by newApp and torn
// down once by shutdown.
type app struct {
	cfg      *config.FileConfig
	out      io.Writer
	log      *logger.Logger
	registry *prometheus.Registry
	pool     *threadpool.MetricsPool
	sched    scheduler.Scheduler

	server      *http.Server
	metricsAddr net.Addr
	serveErr    chan error
}

func newApp(cfg *config.FileConfig, stdout, stderr io.Writer) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}

	log := logger.New(stderr, level, logger.WithErrorOutput(stderr)).Named("gopool")
	logger.SetDefault(log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pool, err := threadpool.NewWithConfigAndMetrics(cfg.ThreadPool(log), cfg.Pool.Name, metrics.Config{
		Enabled:  true,
		Registry: registry,
	})
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.NewWithConfig(scheduler.Config{
		Pool:    pool,
		Name:    cfg.Pool.Name,
		Logger:  log,
		Metrics: pool.Registry(),
	})
	if err != nil {
		pool.JoinAll(false)
		return nil, err
	}

	return &app{
		cfg:      cfg,
		out:      stdout,
		log:      log,
		registry: registry,
		pool:     pool,
		sched:    sched,
	}, nil
}

// runBurst submits n jobs that each sleep for work, waits for all of them
// and prints the pool counters.
func (a *app) runBurst(n int, work time.Duration) error {
	var ran atomic.Int64
	start := time.Now()

	for i := 0; i < n; i++ {
		id := i
		err := a.pool.Submit(func() {
			if work > 0 {
				time.Sleep(work)
			}
			ran.Add(1)
			a.log.Verbosef("burst job %d done", id)
		})
		if err != nil {
			return fmt.Errorf("submit burst job %d: %w", id, err)
		}
	}
	a.pool.WaitAll()
	elapsed := time.Since(start)

	s := a.pool.Stats()
	fmt.Fprintf(a.out, "burst: %d jobs on %d workers in %v\n", ran.Load(), s.Workers, elapsed.Round(time.Millisecond))
	fmt.Fprintf(a.out, "stats: submitted=%d finished=%d failed=%d panicked=%d rejected=%d\n",
		s.Submitted, s.Finished, s.Failed, s.Panicked, s.Rejected)
	return nil
}

// startService registers the configured jobs, starts the scheduler and, if
// enabled, the metrics endpoint.
func (a *app) startService() error {
	for _, jc := range a.cfg.Jobs {
		if err := a.scheduleJob(jc); err != nil {
			return fmt.Errorf("schedule %q: %w", jc.ID, err)
		}
	}
	if err := a.sched.Start(); err != nil {
		return err
	}
	a.log.Infof("scheduler started with %d jobs on %d workers", len(a.cfg.Jobs), a.pool.Size())

	if a.cfg.Metrics.Enabled {
		if err := a.serveMetrics(a.cfg.Metrics.Addr); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) scheduleJob(jc config.JobConfig) error {
	work, err := jc.Work()
	if err != nil {
		return err
	}
	message := jc.Message
	if message == "" {
		message = jc.ID
	}

	job := func() {
		a.log.Infof("%s: %s", jc.ID, message)
		if work > 0 {
			time.Sleep(work)
		}
	}

	if jc.Cron != "" {
		return a.sched.ScheduleCron(jc.ID, jc.Cron, job)
	}
	every, err := jc.Interval()
	if err != nil {
		return err
	}
	return a.sched.ScheduleRepeating(jc.ID, job, every)
}

func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return gperrors.NewOperationError("gopool", "serveMetrics", err).WithContext("addr " + addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	a.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	a.metricsAddr = ln.Addr()
	a.serveErr = make(chan error, 1)

	go func() {
		err := a.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		a.serveErr <- err
	}()

	a.log.Infof("metrics: http://%s/metrics", a.metricsAddr)
	return nil
}

// shutdown stops intake before joining the pool: metrics server, then
// scheduler, then pool.
func (a *app) shutdown(ctx context.Context) error {
	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
		if err := <-a.serveErr; err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}

	<-a.sched.Stop()
	a.pool.JoinAll(true)

	s := a.pool.Stats()
	a.log.Infof("shut down after %d jobs (%d failed, %d panicked)", s.Finished, s.Failed, s.Panicked)
	_ = a.log.Sync()

	return errors.Join(errs...)
}
