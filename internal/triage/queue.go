package triage

import (
	"context"
	"log/slog"
	"sync"
)

const defaultEventBuffer = 64

// Queue runs commit jobs on a single background worker in strict enqueue
// order. Enqueue never blocks; outcomes come back on Events.
type Queue struct {
	run    Runner
	logger *slog.Logger

	mu        sync.Mutex
	jobs      []CommitJob
	nextID    uint64
	inflight  bool
	closed    bool
	abandoned bool
	done      int
	failed    int
	lastRun   uint64
	failedIDs map[uint64]struct{}
	wake      chan struct{}
	workerEnd chan struct{}

	outMu     sync.Mutex
	outCond   *sync.Cond
	outbox    []Event
	outClosed bool
	events    chan Event
}

type QueueOption func(*Queue)

// WithRunner replaces the filesystem executor.
func WithRunner(r Runner) QueueOption {
	return func(q *Queue) { q.run = r }
}

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(n int) QueueOption {
	return func(q *Queue) {
		if n >= 0 {
			q.events = make(chan Event, n)
		}
	}
}

// NewQueue starts the worker and returns the queue.
func NewQueue(logger *slog.Logger, opts ...QueueOption) *Queue {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	q := &Queue{
		run:       RunJob,
		logger:    logger,
		failedIDs: make(map[uint64]struct{}),
		wake:      make(chan struct{}, 1),
		workerEnd: make(chan struct{}),
		events:    make(chan Event, defaultEventBuffer),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.outCond = sync.NewCond(&q.outMu)

	go q.worker()
	go q.forward()
	return q
}

// Enqueue appends job and returns its id.
func (q *Queue) Enqueue(job CommitJob) (uint64, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, ErrQueueClosed
	}
	q.nextID++
	job.ID = q.nextID
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	q.signal()
	q.logger.Debug("job queued", slog.Uint64("job", job.ID), slog.String("op", job.Op.String()), slog.String("file", job.Name))
	return job.ID, nil
}

// Pending counts queued jobs plus the one being executed.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.jobs)
	if q.inflight {
		n++
	}
	return n
}

// Stats reports how many jobs finished and how many of those failed.
func (q *Queue) Stats() (done, failed int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done, q.failed
}

// Failed reports whether the job with the given id ran and failed.
func (q *Queue) Failed(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.failedIDs[id]
	return ok
}

// Finished reports whether the job with the given id has run or been
// skipped. Jobs run in id order, so this holds for every id up to the last
// one the worker completed.
func (q *Queue) Finished(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return id != 0 && id <= q.lastRun
}

// Events delivers one Event per executed job. It is closed after Close once
// every event has been delivered.
func (q *Queue) Events() <-chan Event {
	return q.events
}

// Close stops accepting jobs. With drain it waits for queued jobs to finish
// or for ctx to expire; without drain queued jobs are dropped. It returns
// the number of jobs that never ran.
func (q *Queue) Close(ctx context.Context, drain bool) (int, error) {
	q.mu.Lock()
	if q.closed {
		abandoned := q.abandoned
		q.mu.Unlock()
		if !abandoned {
			<-q.workerEnd
		}
		return 0, nil
	}
	q.closed = true
	dropped := 0
	if !drain {
		dropped = q.abandonLocked()
	}
	q.mu.Unlock()
	q.signal()

	var err error
	select {
	case <-q.workerEnd:
	case <-ctx.Done():
		q.mu.Lock()
		dropped += q.abandonLocked()
		q.mu.Unlock()
		err = ctx.Err()
	}

	if dropped > 0 {
		q.logger.Warn("commit queue closed with unfinished jobs; those files were not moved", slog.Int("dropped", dropped))
	}

	q.outMu.Lock()
	q.outClosed = true
	q.outMu.Unlock()
	q.outCond.Broadcast()
	return dropped, err
}

func (q *Queue) abandonLocked() int {
	n := len(q.jobs)
	for _, job := range q.jobs {
		q.logger.Warn("abandoning job", slog.Uint64("job", job.ID), slog.String("file", job.Name), slog.String("op", job.Op.String()))
	}
	q.jobs = nil
	q.abandoned = true
	return n
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) worker() {
	defer close(q.workerEnd)
	for {
		job, ok := q.next()
		if !ok {
			return
		}

		skipped := job.Reverses != 0 && q.Failed(job.Reverses)
		var err error
		if !skipped {
			err = q.run(job)
		}

		q.mu.Lock()
		q.inflight = false
		q.lastRun = job.ID
		if !skipped {
			q.done++
		}
		if err != nil {
			q.failed++
			q.failedIDs[job.ID] = struct{}{}
		}
		pending := len(q.jobs)
		q.mu.Unlock()

		switch {
		case skipped:
			q.logger.Info("undo skipped; the commit it reverses failed", slog.Uint64("job", job.ID), slog.Uint64("reverses", job.Reverses), slog.String("file", job.Name))
		case err != nil:
			q.logger.Error("job failed", slog.Uint64("job", job.ID), slog.String("file", job.Name), slog.String("op", job.Op.String()), slog.Any("error", err))
		default:
			q.logger.Debug("job done", slog.Uint64("job", job.ID), slog.String("file", job.Name), slog.String("op", job.Op.String()))
		}
		q.post(Event{Job: job, Err: err, Pending: pending, Skipped: skipped})
	}
}

func (q *Queue) next() (CommitJob, bool) {
	for {
		q.mu.Lock()
		if q.abandoned {
			q.mu.Unlock()
			return CommitJob{}, false
		}
		if len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs[0] = CommitJob{}
			q.jobs = q.jobs[1:]
			q.inflight = true
			q.mu.Unlock()
			return job, true
		}
		if q.closed {
			q.mu.Unlock()
			return CommitJob{}, false
		}
		q.mu.Unlock()
		<-q.wake
	}
}

// post hands the event to the forwarder without ever blocking the worker.
func (q *Queue) post(ev Event) {
	q.outMu.Lock()
	q.outbox = append(q.outbox, ev)
	q.outMu.Unlock()
	q.outCond.Signal()
}

func (q *Queue) forward() {
	defer close(q.events)
	for {
		q.outMu.Lock()
		for len(q.outbox) == 0 && !q.outClosed {
			q.outCond.Wait()
		}
		if len(q.outbox) == 0 {
			q.outMu.Unlock()
			return
		}
		ev := q.outbox[0]
		q.outbox[0] = Event{}
		q.outbox = q.outbox[1:]
		q.outMu.Unlock()

		q.events <- ev
	}
}
