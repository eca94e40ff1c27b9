package threadpool

import (
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/vnykmshr/gopool/pkg/logger"
)

// Submit appends job to the tail of the queue and wakes one idle worker.
// It never blocks waiting for capacity. Once JoinAll has started, Submit
// refuses the job with ErrPoolClosed instead of queueing work no worker
// would ever run.
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	p.mu.Lock()
	if p.state != StateRunning {
		state := p.state
		p.mu.Unlock()
		p.rejected.Add(1)
		p.log.Warningf("submit rejected while %s: %v", state, ErrPoolClosed)
		return ErrPoolClosed
	}
	p.queue.PushBack(queuedJob{job: job, epoch: p.epoch})
	p.pending++
	p.inEpoch[p.epoch]++
	p.mu.Unlock()

	p.submitted.Add(1)
	p.work.Signal()
	return nil
}

// SubmitFunc submits fn as a job. If fn returns an error it is logged,
// counted as failed and passed to Config.ErrorHandler; the pool keeps running.
func (p *Pool) SubmitFunc(fn func() error) error {
	if fn == nil {
		return ErrNilJob
	}
	return p.Submit(func() {
		if err := fn(); err != nil {
			p.failed.Add(1)
			p.log.Log(logger.LevelError, "job returned error", zap.Error(err))
			if p.config.ErrorHandler != nil {
				p.config.ErrorHandler(err)
			}
		}
	})
}

// WaitAll blocks until the pending count reaches zero, returning at once if
// it already is. It is a weak barrier: jobs submitted concurrently with the
// call keep it blocked, and a job submitted right after it returns makes the
// observed zero stale. Use WaitSubmitted to wait only for earlier jobs.
//
// WaitAll must not be called from inside a job.
func (p *Pool) WaitAll() {
	p.mu.Lock()
	for p.pending > 0 {
		p.done.Wait()
	}
	p.mu.Unlock()
}

// WaitSubmitted blocks until every job submitted before the call has
// finished. Jobs submitted after the call do not delay it.
//
// WaitSubmitted must not be called from inside a job.
func (p *Pool) WaitSubmitted() {
	p.mu.Lock()
	target := p.epoch
	p.epoch++
	for p.pendingThrough(target) {
		p.done.Wait()
	}
	p.mu.Unlock()
}

// pendingThrough reports whether any job from epoch target or earlier is
// still pending. Callers hold p.mu.
func (p *Pool) pendingThrough(target uint64) bool {
	if p.pending == 0 {
		return false
	}
	for epoch := range p.inEpoch {
		if epoch <= target {
			return true
		}
	}
	return false
}

// JoinAll shuts the pool down. With waitForAll it first waits like WaitAll.
// It then refuses further submissions, lets the workers drain whatever is
// still queued, and blocks until every worker has exited.
//
// Only the first call does anything; later and concurrent calls block until
// that first call has finished and then return. JoinAll must not be called
// from inside a job.
func (p *Pool) JoinAll(waitForAll bool) {
	p.joinOnce.Do(func() {
		if waitForAll {
			p.WaitAll()
		}

		p.mu.Lock()
		p.state = StateDraining
		queued := p.queue.Len()
		p.mu.Unlock()
		p.work.Broadcast()

		p.log.Debugf("draining %d queued jobs", queued)
		p.workerWg.Wait()

		p.mu.Lock()
		p.state = StateJoined
		p.mu.Unlock()

		s := p.Stats()
		p.log.Log(logger.LevelInfo, "joined",
			zap.Int64("finished", s.Finished),
			zap.Int64("failed", s.Failed),
			zap.Int64("panicked", s.Panicked),
			zap.Int64("rejected", s.Rejected),
		)
	})
}

// Close joins the pool after waiting for all pending jobs. It always
// returns nil and may be called more than once.
func (p *Pool) Close() error {
	p.JoinAll(true)
	return nil
}

// JobsRemaining returns the number of jobs waiting in the queue. The value
// is stale as soon as it is returned and is meant for reporting only.
func (p *Pool) JobsRemaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// Pending returns the number of submitted jobs that have not finished,
// queued or running. Like JobsRemaining it is advisory.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return p.config.WorkerCount
}

// Name returns the pool name used in logs and metrics.
func (p *Pool) Name() string {
	return p.config.Name
}

// State returns the lifecycle stage.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	queued, pending := p.queue.Len(), p.pending
	p.mu.Unlock()

	return Stats{
		Workers:   p.config.WorkerCount,
		Queued:    queued,
		Pending:   pending,
		Submitted: p.submitted.Load(),
		Finished:  p.finished.Load(),
		Failed:    p.failed.Load(),
		Panicked:  p.panicked.Load(),
		Rejected:  p.rejected.Load(),
	}
}

// worker is the loop each worker goroutine runs until the pool drains.
func (p *Pool) worker(id int) {
	defer p.workerWg.Done()
	if p.config.OnWorkerStop != nil {
		defer p.config.OnWorkerStop(id)
	}
	if p.config.OnWorkerStart != nil {
		p.config.OnWorkerStart(id)
	}
	p.log.Tracef("worker %d started", id)

	for {
		p.mu.Lock()
		for p.queue.Len() == 0 && p.state == StateRunning {
			p.work.Wait()
		}
		if p.queue.Len() == 0 {
			p.mu.Unlock()
			p.log.Tracef("worker %d stopped", id)
			return
		}
		qj := p.queue.PopFront()
		p.mu.Unlock()

		p.runJob(id, qj)
	}
}

// runJob executes one job without holding the lock and settles its
// accounting even if the job panics or calls runtime.Goexit.
func (p *Pool) runJob(workerID int, qj queuedJob) {
	defer p.finish(qj.epoch)

	if perr := p.execute(workerID, qj.job); perr != nil && p.config.FatalPanics {
		panic(perr)
	}
}

func (p *Pool) execute(workerID int, job Job) (perr *PanicError) {
	defer func() {
		if r := recover(); r != nil {
			perr = &PanicError{Value: r, Stack: debug.Stack()}
			p.panicked.Add(1)
			p.log.Log(logger.LevelError, "job panicked",
				zap.Int("worker", workerID),
				zap.Any("panic", r),
				zap.ByteString("stack", perr.Stack),
			)
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(r)
			}
		}
	}()

	job()
	return nil
}

func (p *Pool) finish(epoch uint64) {
	p.mu.Lock()
	p.pending--
	if n := p.inEpoch[epoch] - 1; n > 0 {
		p.inEpoch[epoch] = n
	} else {
		delete(p.inEpoch, epoch)
	}
	p.finished.Add(1)
	p.mu.Unlock()

	p.done.Broadcast()
	if p.afterFinish != nil {
		p.afterFinish()
	}
}
