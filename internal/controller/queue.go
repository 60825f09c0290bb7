package controller

import (
	"context"
	"sync"
	"time"
)

// workQueue is a deduplicating FIFO of sync requests keyed by application
// name. At most one request per application is queued, and at most one is
// being processed; triggers arriving mid-pass mark the application dirty so
// it runs again when the pass finishes. This is what guarantees a single
// in-flight pass per application no matter how triggers burst.
type workQueue struct {
	mu sync.Mutex

	queue []syncRequest

	// processing tracks applications currently being reconciled
	processing map[string]bool

	// dirty holds the latest request for applications that were triggered
	// while a pass was in flight
	dirty map[string]syncRequest

	cond *sync.Cond

	shuttingDown bool
}

func newWorkQueue() *workQueue {
	q := &workQueue{
		processing: make(map[string]bool),
		dirty:      make(map[string]syncRequest),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add adds or coalesces a request.
func (q *workQueue) Add(req syncRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shuttingDown {
		return
	}

	if q.processing[req.Application] {
		q.dirty[req.Application] = mergeRequests(q.dirty[req.Application], req)
		return
	}

	for i, existing := range q.queue {
		if existing.Application == req.Application {
			q.queue[i] = mergeRequests(existing, req)
			return
		}
	}

	q.queue = append(q.queue, req)
	q.cond.Signal()
}

// mergeRequests coalesces two pending triggers for the same application. A
// manual trigger must not be downgraded by a later interval tick, so the
// stronger write permission wins.
func mergeRequests(existing, incoming syncRequest) syncRequest {
	if existing.Application == "" {
		return incoming
	}
	merged := incoming
	if reasonStrength(existing.Reason) > reasonStrength(incoming.Reason) {
		merged.Reason = existing.Reason
	}
	if existing.Attempt > merged.Attempt {
		merged.Attempt = existing.Attempt
	}
	return merged
}

func reasonStrength(reason TriggerReason) int {
	switch reason {
	case TriggerManual:
		return 3
	case TriggerDrift:
		return 2
	case TriggerSource:
		return 1
	default:
		return 0
	}
}

// Get blocks until a request is available or the queue shuts down.
func (q *workQueue) Get(ctx context.Context) (syncRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.queue) == 0 && !q.shuttingDown {
		select {
		case <-ctx.Done():
			return syncRequest{}, false
		default:
		}

		// Race a context watcher against the normal wakeup so a canceled
		// context cannot leave us parked on the condition variable.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				q.mu.Lock()
				q.cond.Broadcast()
				q.mu.Unlock()
			case <-done:
			}
		}()

		q.cond.Wait()
		close(done)

		select {
		case <-ctx.Done():
			return syncRequest{}, false
		default:
		}
	}

	if q.shuttingDown && len(q.queue) == 0 {
		return syncRequest{}, false
	}

	req := q.queue[0]
	q.queue = q.queue[1:]
	q.processing[req.Application] = true
	return req, true
}

// Done marks a pass finished and requeues the application if it went dirty
// mid-pass.
func (q *workQueue) Done(req syncRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.processing, req.Application)

	if dirtyReq, ok := q.dirty[req.Application]; ok {
		delete(q.dirty, req.Application)
		q.queue = append(q.queue, dirtyReq)
		q.cond.Signal()
	}
}

func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

func (q *workQueue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shuttingDown = true
	q.cond.Broadcast()
}

// delayedQueue adds timer-based requeue on top of workQueue, used for retry
// backoff and for the per-application sync interval.
type delayedQueue struct {
	queue  *workQueue
	mu     sync.Mutex
	timers map[string]*time.Timer
	stopCh chan struct{}
}

func newDelayedQueue() *delayedQueue {
	return &delayedQueue{
		queue:  newWorkQueue(),
		timers: make(map[string]*time.Timer),
		stopCh: make(chan struct{}),
	}
}

func (d *delayedQueue) Add(req syncRequest) {
	d.queue.Add(req)
}

// AddAfter schedules a request. A newer schedule for the same application
// replaces the pending one.
func (d *delayedQueue) AddAfter(req syncRequest, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[req.Application]; ok {
		timer.Stop()
	}

	d.timers[req.Application] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, req.Application)
		d.mu.Unlock()

		select {
		case <-d.stopCh:
			return
		default:
			d.queue.Add(req)
		}
	})
}

func (d *delayedQueue) Get(ctx context.Context) (syncRequest, bool) {
	return d.queue.Get(ctx)
}

func (d *delayedQueue) Done(req syncRequest) {
	d.queue.Done(req)
}

func (d *delayedQueue) Len() int {
	return d.queue.Len()
}

func (d *delayedQueue) Shutdown() {
	close(d.stopCh)

	d.mu.Lock()
	for _, timer := range d.timers {
		timer.Stop()
	}
	d.timers = make(map[string]*time.Timer)
	d.mu.Unlock()

	d.queue.Shutdown()
}
