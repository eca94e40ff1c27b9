/*
Package threadpool provides a fixed-size pool of worker goroutines that run
queued jobs, with blocking wait and join operations.

A pool starts all of its workers when it is created. Jobs are plain
functions; they are queued in FIFO order on an unbounded queue and picked up
by whichever worker is free. Submission never blocks on capacity.

Basic usage:

	pool, err := threadpool.New(4)
	if err != nil {
		return err
	}
	defer pool.Close()

	for _, f := range files {
		f := f
		pool.Submit(func() {
			process(f)
		})
	}

	pool.WaitAll()

Pending and Queued Jobs:

The pool tracks two numbers. Pending counts jobs that were submitted and
have not finished, whether queued or running. JobsRemaining counts only the
queued ones. JobsRemaining is never larger than Pending, and both are zero
when the pool is idle. Both are snapshots meant for reporting, not for
synchronization.

Waiting:

WaitAll blocks until Pending reaches zero and returns immediately when it
already is zero. It is a weak barrier: jobs submitted by other goroutines
while it waits keep it waiting, and a job submitted right after it returns
makes the observed zero stale. Callers that need a barrier must serialize
submission and waiting themselves, or use WaitSubmitted:

	pool.Submit(stepOne)
	pool.WaitSubmitted() // waits for stepOne, not for jobs submitted later

Shutdown:

JoinAll stops the pool. With waitForAll it first waits like WaitAll. It then
refuses new jobs, lets the workers drain whatever is still queued, and waits
for every worker to exit:

	pool.JoinAll(true)

JoinAll is idempotent; only the first call does any work. Close is
JoinAll(true) and is the usual way to release a pool:

	defer pool.Close()

Jobs submitted after JoinAll has started are refused with ErrPoolClosed,
which wraps errors.ErrClosed.

Lifecycle:

	running --JoinAll--> draining --workers exit--> joined

Failures:

A panicking job does not take its worker down. The panic is recovered,
logged at error level with its stack, counted in Stats.Panicked and passed
to Config.PanicHandler. Pending is settled either way. Set
Config.FatalPanics to re-raise the panic instead, which terminates the
process after the job has been accounted for.

Jobs that can fail should use SubmitFunc. A returned error is logged,
counted in Stats.Failed and passed to Config.ErrorHandler:

	pool.SubmitFunc(func() error {
		return upload(ctx, obj)
	})

Nothing is retried.

Metrics:

NewWithMetrics and NewWithConfigAndMetrics return a MetricsPool that records
Prometheus metrics for submissions, outcomes, durations and queue wait.
Both Pool and MetricsPool implement Executor.

Wiring:

A pool is meant to be constructed once by the application's startup code
and passed to the components that submit work, rather than reached through
a package-level instance.

Blocking Calls Inside Jobs:

Jobs run without any pool lock held, so they may block or run for a long
time without stopping other workers from taking jobs. A job must not call
WaitAll, WaitSubmitted, JoinAll or Close on its own pool; doing so
deadlocks.
*/
package threadpool
