/*
Package gopool is a fixed-size thread pool for Go with the pieces needed to
run it in a service.

Packages:
  - pkg/threadpool: the pool itself. Submit, WaitAll, WaitSubmitted, JoinAll
    and an optional Prometheus-instrumented wrapper
  - pkg/scheduler: one-shot, repeating and cron jobs fed into a pool
  - pkg/logger: leveled logging with elapsed-time prefixes, built on zap
  - pkg/metrics: Prometheus collectors for pools and schedulers
  - cmd/gopool: command line driver for burst runs and scheduled service mode

Example usage:

	import "github.com/vnykmshr/gopool/pkg/threadpool"

	pool, err := threadpool.New(4)
	if err != nil {
		return err
	}
	defer pool.Close()

	for _, f := range files {
		f := f
		_ = pool.Submit(func() { compress(f) })
	}
	pool.WaitAll()
*/
package gopool
