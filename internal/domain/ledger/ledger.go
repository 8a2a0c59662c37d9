// Package ledger tracks which jobs already hold a compensation settlement.
package ledger

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Ledger guarantees at most one in-flight or settled compensation per job.
type Ledger interface {
	// Claim atomically reserves jobID. It returns false when the job was
	// already claimed.
	Claim(ctx context.Context, jobID string) bool

	// Release drops a claim so the job can be submitted again. Only used
	// when a claimed event could not be queued.
	Release(ctx context.Context, jobID string)

	Claimed(ctx context.Context, jobID string) bool
	Size() int64
}

// memoryLedger keeps claims in insertion order. When bounded, the oldest
// claim is evicted once the ledger is full.
type memoryLedger struct {
	mu      sync.Mutex
	claims  map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewMemoryLedger creates an in-memory ledger.
func NewMemoryLedger(opts ...Option) Ledger {
	l := &memoryLedger{
		maxSize: 100000,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.claims = make(map[string]*list.Element)
	l.order = list.New()
	return l
}

func (l *memoryLedger) Claim(ctx context.Context, jobID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.claims[jobID]; ok {
		return false
	}
	if l.maxSize > 0 && len(l.claims) >= l.maxSize {
		l.evictOldest()
	}
	l.claims[jobID] = l.order.PushBack(jobID)
	l.size.Store(int64(len(l.claims)))
	return true
}

func (l *memoryLedger) Release(ctx context.Context, jobID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if el, ok := l.claims[jobID]; ok {
		l.order.Remove(el)
		delete(l.claims, jobID)
		l.size.Store(int64(len(l.claims)))
	}
}

func (l *memoryLedger) Claimed(ctx context.Context, jobID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.claims[jobID]
	return ok
}

// evictOldest must be called with l.mu held.
func (l *memoryLedger) evictOldest() {
	front := l.order.Front()
	if front == nil {
		return
	}
	l.order.Remove(front)
	delete(l.claims, front.Value.(string))
}

// Size returns the number of claims currently held.
func (l *memoryLedger) Size() int64 {
	return l.size.Load()
}
