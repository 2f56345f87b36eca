// Package dedupe guards per-key frame sequences against duplicate and
// regressing submissions before they reach a worker.
package dedupe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Sequencer tracks the highest admitted frame index per key.
type Sequencer interface {
	// Admit records index for key if it is strictly greater than the last
	// admitted index. It returns the previous index (0 when none) so a failed
	// hand-off can be undone with Rollback.
	Admit(ctx context.Context, key string, index int) (int, error)

	// Rollback restores key to prev after an admitted frame could not be
	// delivered (e.g., queue backpressure). A prev of 0 forgets the key.
	Rollback(ctx context.Context, key string, prev int)

	// Forget drops key entirely.
	Forget(ctx context.Context, key string)

	Size() int64
}

// node represents a single key in the insertion-ordered list.
type node struct {
	key   string
	index int
	next  *node
}

// reset clears the node state for reuse
func (n *node) reset() {
	n.key = ""
	n.index = 0
	n.next = nil
}

// inMemorySequencer implements Sequencer with a map and a linked list of keys,
// newest first. For bounded mode (maxSize > 0) the tail is evicted when full
// and nodes are pooled.
type inMemorySequencer struct {
	mu       sync.Mutex
	keys     map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemorySequencer creates a new in-memory sequencer with configuration options.
func NewInMemorySequencer(opts ...Option) Sequencer {
	s := &inMemorySequencer{
		maxSize: 10000,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.keys = make(map[string]*node)
	s.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}

	return s
}

// Admit implements Sequencer.
func (s *inMemorySequencer) Admit(_ context.Context, key string, index int) (int, error) {
	if index <= 0 {
		return 0, fmt.Errorf("frame %d: %w", index, ErrOutOfOrder)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.keys[key]; ok {
		switch {
		case index == n.index:
			return n.index, fmt.Errorf("frame %d: %w", index, ErrDuplicate)
		case index < n.index:
			return n.index, fmt.Errorf("frame %d after %d: %w", index, n.index, ErrOutOfOrder)
		}
		prev := n.index
		n.index = index
		return prev, nil
	}

	if s.maxSize > 0 && len(s.keys) >= s.maxSize {
		s.evictOldest()
	}

	n := s.nodePool.Get().(*node)
	n.key = key
	n.index = index
	n.next = s.head
	s.head = n
	s.keys[key] = n
	s.size.Add(1)
	return 0, nil
}

// Rollback implements Sequencer.
func (s *inMemorySequencer) Rollback(_ context.Context, key string, prev int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.keys[key]
	if !ok {
		return
	}
	if prev <= 0 {
		s.remove(n)
		return
	}
	n.index = prev
}

// Forget implements Sequencer.
func (s *inMemorySequencer) Forget(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.keys[key]; ok {
		s.remove(n)
	}
}

// remove unlinks n. Must be called with s.mu held.
func (s *inMemorySequencer) remove(n *node) {
	delete(s.keys, n.key)

	if s.head == n {
		s.head = n.next
	} else {
		current := s.head
		for current != nil && current.next != n {
			current = current.next
		}
		if current != nil {
			current.next = n.next
		}
	}

	n.reset()
	s.nodePool.Put(n)
	s.size.Add(-1)
}

// evictOldest removes the least recently added key (tail of list).
// Must be called with s.mu held.
func (s *inMemorySequencer) evictOldest() {
	if s.head == nil {
		return
	}
	tail := s.head
	for tail.next != nil {
		tail = tail.next
	}
	s.remove(tail)
}

// Size returns the number of tracked keys.
func (s *inMemorySequencer) Size() int64 {
	return s.size.Load()
}
