/*
Package scheduler submits jobs to a thread pool when they become due.

A scheduler never runs jobs itself and never owns a pool: it is handed a
Submitter, normally a *threadpool.Pool or *threadpool.MetricsPool, and on
every tick passes each due job to it.

	pool, _ := threadpool.New(4)
	s, _ := scheduler.New(pool)
	_ = s.Start()

	_ = s.ScheduleAfter("warmup", warm, time.Second)
	_ = s.ScheduleRepeating("flush", flush, 30*time.Second)
	_ = s.ScheduleCron("report", "0 0 9 * * MON-FRI", report)

	<-s.Stop()
	pool.JoinAll(true)

Cron expressions carry a leading seconds field. Descriptors such as
"@hourly" and "@every 5m" are accepted as well.

Stop the scheduler before joining its pool. A job the pool refuses, for
example because it is already joined, is logged and counted in
gopool_scheduler_submit_errors_total; the scheduler keeps running.
*/
package scheduler
