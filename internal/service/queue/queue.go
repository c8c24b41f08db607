// Package queue holds pending outgoing requests, at most one per request type.
package queue

import (
	"context"
	"sync"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
)

// Queue is an in-memory mailbox deduplicated by request type. Inserting a type
// that is already pending replaces that entry in place, so it keeps its FIFO slot.
type Queue struct {
	mu       sync.Mutex
	requests []*models.Request
	ready    chan struct{}

	log logger.Logger
}

func New(log logger.Logger) *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
		log:   log,
	}
}

// Enqueue inserts req or replaces the pending request of the same type.
// Nil or invalid requests are logged and dropped.
func (q *Queue) Enqueue(ctx context.Context, req *models.Request) {
	ctx = wrap.WithAction(ctx, types.ActionEnqueue)

	if err := req.Validate(); err != nil {
		q.log.Warn(ctx, "request not enqueued", "reason", err.Error())
		return
	}
	ctx = wrap.WithRequest(ctx, req.Type.String(), req.Sequence)

	q.mu.Lock()
	replaced := false
	for i, pending := range q.requests {
		if pending.Type == req.Type {
			q.requests[i] = req
			replaced = true
			break
		}
	}
	if !replaced {
		q.requests = append(q.requests, req)
	}
	depth := len(q.requests)
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))
	q.log.Debug(ctx, "request enqueued", "replaced", replaced, "depth", depth)

	// wake the dispatch loop without blocking
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// DequeueOldest pops the earliest inserted request. ok is false when the queue is empty.
func (q *Queue) DequeueOldest() (req *models.Request, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return nil, false
	}
	req = q.requests[0]
	q.requests[0] = nil
	q.requests = q.requests[1:]
	metrics.QueueDepth.Set(float64(len(q.requests)))

	return req, true
}

// RemoveByType drops the pending request of type t and reports whether one was removed.
func (q *Queue) RemoveByType(t types.RequestType) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, pending := range q.requests {
		if pending.Type == t {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			metrics.QueueDepth.Set(float64(len(q.requests)))
			return true
		}
	}
	return false
}

// Contains reports whether a request of type t is pending.
func (q *Queue) Contains(t types.RequestType) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, pending := range q.requests {
		if pending.Type == t {
			return true
		}
	}
	return false
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Clear drops every pending request.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.requests = nil
	metrics.QueueDepth.Set(0)
}

// Ready signals that work may be available. A receive does not guarantee a
// request is still pending when DequeueOldest runs.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}
