package service

import (
	"github.com/okian/varbox/internal/adapters/repository"
	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker shards.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the frame queue capacity of each shard.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSequencerSize caps how many bouts have their frame order tracked.
func WithSequencerSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.sequencerSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the scorecard store. An in-memory store is used otherwise.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithBoutConfig sets the defaults every new bout starts from.
func WithBoutConfig(cfg bout.Config) Option {
	return func(s *Service) { s.boutCfg = cfg }
}
