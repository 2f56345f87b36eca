// Package worker runs frame jobs on sharded workers so that every job of a
// bout is processed in submission order.
package worker

import (
	"github.com/okian/varbox/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// PoolOption applies a configuration option to the ShardedPool.
type PoolOption func(*ShardedPool)

// WithShardCapacity sets the queue capacity of every shard.
func WithShardCapacity(capacity int) PoolOption {
	return func(p *ShardedPool) {
		if capacity > 0 {
			p.capacity = capacity
		}
	}
}

// WithPoolLogger sets the logger for the pool and its workers.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(p *ShardedPool) {
		if l != nil {
			p.logger = l
		}
	}
}
