// Package metrics provides Prometheus instrumentation for gopool components.
//
// # Overview
//
// The package exposes a Registry of collectors for:
//   - Thread pools (size, pending and queued jobs, job outcomes, durations)
//   - Schedulers (triggers, refused submissions, registered jobs)
//
// # Quick Start
//
// Register pool metrics with the default Prometheus registry:
//
//	pool, err := threadpool.NewWithConfigAndMetrics(
//		threadpool.Config{WorkerCount: 8}, "ingest", metrics.DefaultConfig())
//
// and expose it over HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Custom Registry
//
// Pass a dedicated Prometheus registry for isolation, for example in tests:
//
//	reg := prometheus.NewRegistry()
//	pool, err := threadpool.NewWithConfigAndMetrics(
//		threadpool.Config{WorkerCount: 4},
//		"ingest",
//		metrics.Config{Enabled: true, Registry: reg},
//	)
//
// # Available Metrics
//
//   - gopool_threadpool_size
//   - gopool_threadpool_pending_jobs
//   - gopool_threadpool_queued_jobs
//   - gopool_threadpool_jobs_submitted_total
//   - gopool_threadpool_jobs_completed_total
//   - gopool_threadpool_jobs_failed_total
//   - gopool_threadpool_jobs_rejected_total
//   - gopool_threadpool_job_duration_seconds
//   - gopool_threadpool_job_queue_wait_seconds
//   - gopool_scheduler_triggers_total
//   - gopool_scheduler_submit_errors_total
//   - gopool_scheduler_scheduled_jobs
//
// Pool metrics carry a pool_name label, scheduler metrics a scheduler_name label.
//
// # Runtime Control
//
// Components implementing Instrumentable can be toggled at runtime:
//
//	pool.DisableMetrics()
//	pool.EnableMetrics(metrics.Config{Enabled: true, Registry: reg})
package metrics
