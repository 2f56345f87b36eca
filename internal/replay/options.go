package replay

import (
	"io"

	"github.com/okian/varbox/internal/adapters/repository"
	"github.com/okian/varbox/pkg/logger"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithStdout sets where the scorecard goes when no output path is configured.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.stdout = w
		}
	}
}

// WithStore persists the finished scorecard to store instead of opening
// Config.SQLitePath.
func WithStore(store repository.Store) Option {
	return func(r *Runner) { r.store = store }
}
