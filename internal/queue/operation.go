package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/twopane/twopane/internal/models"
)

// Kind is the transfer operation type.
type Kind string

const (
	KindCopy Kind = "copy"
	KindMove Kind = "move"
)

// Status is the lifecycle position of one transfer operation. Transitions
// are forward-only: Pending -> InProgress -> Completed or Failed. Pending
// operations can be removed by CancelAll; nothing ever moves backward.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Operation is an immutable snapshot of one queued transfer, safe to hand to
// observers. The queue mutates only its internal record; snapshots are
// re-taken via Operations or Get.
type Operation struct {
	ID          string
	Kind        Kind
	Source      models.Entry
	Destination models.Locator // target directory/node as enqueued
	DestName    string         // final collision-free name, set when resolved
	Status      Status
	Progress    float64 // in [0,1]; exactly 1.0 only on Completed
	Err         error
	EnqueuedAt  time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// operation is the queue's mutable record. All fields are guarded by the
// queue mutex; only the worker moves status forward.
type operation struct {
	id          string
	kind        Kind
	source      models.Entry
	destination models.Locator
	destName    string
	status      Status
	progress    float64
	err         error
	enqueuedAt  time.Time
	startedAt   time.Time
	finishedAt  time.Time
}

func newOperation(kind Kind, source models.Entry, destination models.Locator) *operation {
	return &operation{
		id:          uuid.NewString(),
		kind:        kind,
		source:      source,
		destination: destination,
		status:      StatusPending,
		enqueuedAt:  time.Now(),
	}
}

func (o *operation) snapshot() Operation {
	return Operation{
		ID:          o.id,
		Kind:        o.kind,
		Source:      o.source,
		Destination: o.destination,
		DestName:    o.destName,
		Status:      o.status,
		Progress:    o.progress,
		Err:         o.err,
		EnqueuedAt:  o.enqueuedAt,
		StartedAt:   o.startedAt,
		FinishedAt:  o.finishedAt,
	}
}
