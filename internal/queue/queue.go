// Package queue serializes copy/move transfers on one background worker.
// Items run strictly in enqueue order with no parallelism between them:
// protocol devices support a single transfer in flight, and one worker keeps
// progress reporting predictable. A failing item is recorded and the worker
// moves on; it never aborts the rest of the queue.
package queue

import (
	"sync"
	"time"

	"github.com/twopane/twopane/internal/events"
	"github.com/twopane/twopane/internal/logging"
	"github.com/twopane/twopane/internal/models"
)

// Executor carries out one transfer against the owning backends. Resolve is
// called by the worker just before execution so the collision-free name
// reflects the destination's contents at transfer time, not enqueue time.
type Executor interface {
	// Resolve maps (destination directory/node, desired name) to the
	// concrete target locator and final name.
	Resolve(dest models.Locator, name string) (models.Locator, string, error)
	// Execute performs the transfer, reporting fractional progress in
	// [0,1] through the callback.
	Execute(kind Kind, src models.Entry, dest models.Locator, destName string, progress func(float64)) error
}

// Notifier receives terminal transfer outcomes for user-facing notification.
type Notifier interface {
	TransferComplete(name string)
	TransferFailed(name string, err error)
}

// Running progress is clamped below 1.0 so observers can rely on
// progress == 1.0 meaning Completed, never an optimistic callback.
const maxRunningProgress = 0.999

// progressEventStep is the minimum progress delta between two published
// progress events, to keep fast local copies from flooding the bus.
const progressEventStep = 0.01

// Queue is the FIFO transfer queue. One worker goroutine, started on the
// first enqueue, drains pending operations in order.
type Queue struct {
	mu       sync.Mutex
	exec     Executor
	bus      *events.EventBus
	log      *logging.Logger
	notifier Notifier

	ops     []*operation
	started bool
	closed  bool
	wake    chan struct{}
	quit    chan struct{}
	settled *sync.Cond // broadcast whenever an operation reaches rest
}

// New creates a queue executing through exec. bus and notifier may be nil.
func New(exec Executor, bus *events.EventBus, log *logging.Logger, notifier Notifier) *Queue {
	if log == nil {
		log = logging.Nop()
	}
	q := &Queue{
		exec:     exec,
		bus:      bus,
		log:      log,
		notifier: notifier,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
	q.settled = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds one operation per source entry, all targeting dest, and wakes
// the worker. Every entry yields exactly one operation; name resolution and
// failures happen later, on the worker.
func (q *Queue) Enqueue(entries []models.Entry, dest models.Locator, kind Kind) []Operation {
	q.mu.Lock()
	snapshots := make([]Operation, 0, len(entries))
	for _, entry := range entries {
		op := newOperation(kind, entry, dest)
		q.ops = append(q.ops, op)
		snapshots = append(snapshots, op.snapshot())
		q.publishLocked(events.EventTransferQueued, op)
	}
	if !q.started && !q.closed {
		q.started = true
		go q.worker()
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return snapshots
}

// Operations returns snapshots of every operation in enqueue order.
func (q *Queue) Operations() []Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Operation, 0, len(q.ops))
	for _, op := range q.ops {
		out = append(out, op.snapshot())
	}
	return out
}

// Get returns the snapshot of one operation by ID.
func (q *Queue) Get(id string) (Operation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, op := range q.ops {
		if op.id == id {
			return op.snapshot(), true
		}
	}
	return Operation{}, false
}

// CancelAll removes every Pending operation and returns how many were
// removed. An InProgress item is not interrupted; it runs to its natural
// completion or failure.
func (q *Queue) CancelAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.ops[:0]
	removed := 0
	for _, op := range q.ops {
		if op.status == StatusPending {
			removed++
			q.publishLocked(events.EventTransferCancelled, op)
			continue
		}
		kept = append(kept, op)
	}
	q.ops = kept
	if removed > 0 {
		q.log.Info().Int("removed", removed).Msg("pending transfers cancelled")
		q.settled.Broadcast()
	}
	return removed
}

// ClearCompleted removes Completed operations and returns how many were
// removed. Failed operations stay listed until the user acknowledges them.
func (q *Queue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.ops[:0]
	removed := 0
	for _, op := range q.ops {
		if op.status == StatusCompleted {
			removed++
			continue
		}
		kept = append(kept, op)
	}
	q.ops = kept
	return removed
}

// Wait blocks until no operation is Pending or InProgress. Intended for the
// CLI and tests; the bus is the interactive observation surface.
func (q *Queue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.busyLocked() {
		q.settled.Wait()
	}
}

func (q *Queue) busyLocked() bool {
	for _, op := range q.ops {
		if !op.status.Terminal() {
			return true
		}
	}
	return false
}

// Close stops the worker after the current item finishes. Pending items are
// left untouched; the queue is in-memory only and dies with the process.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.quit)
}

func (q *Queue) worker() {
	for {
		select {
		case <-q.quit:
			return
		case <-q.wake:
		}
		for {
			op := q.takePending()
			if op == nil {
				break
			}
			q.run(op)
		}
	}
}

// takePending claims the oldest Pending operation, moving it InProgress.
func (q *Queue) takePending() *operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, op := range q.ops {
		if op.status != StatusPending {
			continue
		}
		op.status = StatusInProgress
		op.startedAt = time.Now()
		q.publishLocked(events.EventTransferStarted, op)
		return op
	}
	return nil
}

// run executes one claimed operation to a terminal state.
func (q *Queue) run(op *operation) {
	dest, destName, err := q.exec.Resolve(op.destination, op.source.Name)
	if err != nil {
		q.finish(op, err)
		return
	}

	q.mu.Lock()
	op.destName = destName
	q.mu.Unlock()

	lastPublished := 0.0
	progress := func(p float64) {
		q.mu.Lock()
		defer q.mu.Unlock()
		if p > maxRunningProgress {
			p = maxRunningProgress
		}
		if p <= op.progress {
			return // progress never moves backward
		}
		op.progress = p
		if p-lastPublished >= progressEventStep {
			lastPublished = p
			q.publishLocked(events.EventTransferProgress, op)
		}
	}

	q.finish(op, q.exec.Execute(op.kind, op.source, dest, destName, progress))
}

// finish records the terminal state and fans the outcome out to the bus and
// the notifier.
func (q *Queue) finish(op *operation, err error) {
	q.mu.Lock()
	op.finishedAt = time.Now()
	if err != nil {
		op.status = StatusFailed
		op.err = err
		q.publishLocked(events.EventTransferFailed, op)
	} else {
		op.status = StatusCompleted
		op.progress = 1.0
		q.publishLocked(events.EventTransferCompleted, op)
	}
	name := op.source.Name
	q.settled.Broadcast()
	q.mu.Unlock()

	if err != nil {
		q.log.Warn().Err(err).Str("name", name).Str("id", op.id).Msg("transfer failed")
		if q.notifier != nil {
			q.notifier.TransferFailed(name, err)
		}
		return
	}
	q.log.Info().Str("name", name).Str("id", op.id).Msg("transfer completed")
	if q.notifier != nil {
		q.notifier.TransferComplete(name)
	}
}

// publishLocked emits a transfer event for op. Caller holds q.mu.
func (q *Queue) publishLocked(t events.EventType, op *operation) {
	if q.bus == nil {
		return
	}
	q.bus.Publish(&events.TransferEvent{
		BaseEvent:   events.Base(t),
		OperationID: op.id,
		Kind:        string(op.kind),
		Name:        op.source.Name,
		Progress:    op.progress,
		Error:       op.err,
	})
}
