// Package bootstrap accumulates appearance observations over an opening
// window and assigns RED, BLUE and REFEREE roles once by dominant colour.
package bootstrap

import (
	"sort"

	"github.com/okian/varbox/internal/domain/appearance"
	"github.com/okian/varbox/internal/domain/identity"
	"github.com/okian/varbox/internal/domain/model"
)

// Defaults for the bootstrap window.
const (
	DefaultWindowFrames = 30
	DefaultMinSamples   = 5
	DefaultAlpha        = 0.2
)

type sample struct {
	signature appearance.Signature
	samples   int
	red       float64
	blue      float64
	white     float64
}

// Bootstrapper is the one-shot role assigner.
type Bootstrapper struct {
	window     int
	minSamples int
	alpha      float64

	firstFrame int
	started    bool
	stats      map[identity.ID]*sample

	finalized bool
	roles     map[identity.ID]model.Role
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithWindow sets the number of frames observed before roles may be assigned.
func WithWindow(frames int) Option {
	return func(b *Bootstrapper) {
		if frames >= 0 {
			b.window = frames
		}
	}
}

// WithMinSamples sets the minimum observations an identity needs to be eligible.
func WithMinSamples(n int) Option {
	return func(b *Bootstrapper) {
		if n > 0 {
			b.minSamples = n
		}
	}
}

// WithAlpha sets the signature smoothing factor.
func WithAlpha(alpha float64) Option {
	return func(b *Bootstrapper) {
		if alpha > 0 && alpha <= 1 {
			b.alpha = alpha
		}
	}
}

// New creates a Bootstrapper.
func New(opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		window:     DefaultWindowFrames,
		minSamples: DefaultMinSamples,
		alpha:      DefaultAlpha,
		stats:      make(map[identity.ID]*sample),
		roles:      make(map[identity.ID]model.Role),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddObservation records one observation. Ignored once finalized.
func (b *Bootstrapper) AddObservation(frame int, id identity.ID, sig appearance.Signature, cov appearance.Coverage) {
	if b.finalized {
		return
	}
	if !b.started {
		b.firstFrame = frame
		b.started = true
	}
	s, ok := b.stats[id]
	if !ok {
		s = &sample{}
		b.stats[id] = s
	}
	s.signature = appearance.Blend(s.signature, sig, b.alpha)
	s.samples++
	s.red += cov.Red
	s.blue += cov.Blue
	s.white += cov.White
}

// Ready reports whether the observation window has elapsed.
func (b *Bootstrapper) Ready(frame int) bool {
	return b.started && frame-b.firstFrame >= b.window
}

// Finalize assigns roles. Later calls return the same assignment.
func (b *Bootstrapper) Finalize() map[identity.ID]model.Role {
	if b.finalized {
		return b.copyRoles()
	}
	b.finalized = true

	ids := make([]identity.ID, 0, len(b.stats))
	for id, s := range b.stats {
		if s.samples >= b.minSamples {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	taken := make(map[identity.ID]bool, 3)
	pick := func(role model.Role, score func(*sample) float64) {
		best, found := identity.ID(0), false
		var bestScore float64
		for _, id := range ids {
			if taken[id] {
				continue
			}
			v := score(b.stats[id])
			if !found || v > bestScore {
				best, bestScore, found = id, v, true
			}
		}
		if found {
			taken[best] = true
			b.roles[best] = role
		}
	}

	pick(model.RoleBlue, func(s *sample) float64 { return s.blue / float64(s.samples) })
	pick(model.RoleRed, func(s *sample) float64 { return s.red / float64(s.samples) })
	pick(model.RoleReferee, func(s *sample) float64 { return s.white / float64(s.samples) })

	return b.copyRoles()
}

// Finalized reports whether roles have been assigned.
func (b *Bootstrapper) Finalized() bool {
	return b.finalized
}

// Role returns the role assigned to id, if any.
func (b *Bootstrapper) Role(id identity.ID) (model.Role, bool) {
	r, ok := b.roles[id]
	return r, ok
}

// Signature returns the smoothed signature accumulated for id.
func (b *Bootstrapper) Signature(id identity.ID) (appearance.Signature, bool) {
	s, ok := b.stats[id]
	if !ok || len(s.signature) == 0 {
		return nil, false
	}
	return s.signature.Clone(), true
}

// Samples returns how many observations were recorded for id.
func (b *Bootstrapper) Samples(id identity.ID) int {
	if s, ok := b.stats[id]; ok {
		return s.samples
	}
	return 0
}

func (b *Bootstrapper) copyRoles() map[identity.ID]model.Role {
	out := make(map[identity.ID]model.Role, len(b.roles))
	for id, r := range b.roles {
		out[id] = r
	}
	return out
}
