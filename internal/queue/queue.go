// Package queue holds the dispatcher's in-memory view of pending requests.
// The database stays authoritative; the queue can be dropped and refilled
// at any time.
package queue

import (
	"sync"

	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/emirpasic/gods/utils"

	"vendoralerts/internal/model"
)

// Queue orders requests by priority (high first), then arrival.
// It is safe for concurrent use and holds each queue id at most once.
type Queue struct {
	mu      sync.Mutex
	pq      *priorityqueue.Queue
	present map[int64]struct{}
}

func New() *Queue {
	return &Queue{
		pq:      priorityqueue.NewWith(utils.Comparator(byDispatchOrder)),
		present: make(map[int64]struct{}),
	}
}

// byDispatchOrder sorts so the next request to dispatch compares lowest.
func byDispatchOrder(a, b interface{}) int {
	x, y := a.(model.Request), b.(model.Request)
	switch {
	case x.Priority != y.Priority:
		return int(y.Priority) - int(x.Priority)
	case !x.CreatedAt.Equal(y.CreatedAt):
		if x.CreatedAt.Before(y.CreatedAt) {
			return -1
		}
		return 1
	case x.ID < y.ID:
		return -1
	case x.ID > y.ID:
		return 1
	}
	return 0
}

// Push adds req unless a request with the same id is already queued.
func (q *Queue) Push(req model.Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.present[req.ID]; ok {
		return false
	}
	q.present[req.ID] = struct{}{}
	q.pq.Enqueue(req)
	return true
}

// Pop removes and returns the next request to dispatch.
func (q *Queue) Pop() (model.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	v, ok := q.pq.Dequeue()
	if !ok {
		return model.Request{}, false
	}
	req := v.(model.Request)
	delete(q.present, req.ID)
	return req, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pq.Size()
}

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pq.Clear()
	q.present = make(map[int64]struct{})
}
