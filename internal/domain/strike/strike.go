// Package strike decides whether a corner's wrist reached the opponent's head.
package strike

import (
	"math"

	"github.com/okian/varbox/internal/domain/model"
)

// DefaultDistanceThreshold is the wrist-to-nose distance, in pixels, under
// which a strike counts as landed.
const DefaultDistanceThreshold = 50.0

// Result is the outcome of one strike evaluation.
type Result struct {
	Landed bool
	Hand   model.Hand
}

type wrists struct {
	left, right model.Point
}

// Detector evaluates strikes. It remembers the previous wrist positions of
// each corner for the optional speed fallback; one Detector per bout.
type Detector struct {
	threshold   float64
	minSpeed    float64
	reachFactor float64

	last map[model.Role]wrists
}

// Option configures a Detector.
type Option func(*Detector)

// WithDistanceThreshold sets the landing distance in pixels.
func WithDistanceThreshold(px float64) Option {
	return func(d *Detector) {
		if px > 0 {
			d.threshold = px
		}
	}
}

// WithSpeedFallback also counts a wrist moving at least minSpeed pixels per
// frame that ends within threshold·reachFactor of the nose.
func WithSpeedFallback(minSpeed, reachFactor float64) Option {
	return func(d *Detector) {
		if minSpeed > 0 && reachFactor >= 1 {
			d.minSpeed = minSpeed
			d.reachFactor = reachFactor
		}
	}
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		threshold: DefaultDistanceThreshold,
		last:      make(map[model.Role]wrists, len(model.ScoredRoles)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Evaluate checks whether role's attacker pose lands on the target's nose.
// Both attacker wrists and the target nose are required; otherwise nothing lands.
func (d *Detector) Evaluate(role model.Role, attacker, target model.Keypoints) Result {
	lw, okL := attacker[model.LeftWrist]
	rw, okR := attacker[model.RightWrist]
	if !okL || !okR {
		d.Forget(role)
		return Result{Hand: model.HandUnspecified}
	}
	prev, hadPrev := d.last[role]
	d.last[role] = wrists{left: lw, right: rw}

	nose, ok := target[model.Nose]
	if !ok {
		return Result{Hand: model.HandUnspecified}
	}

	dl := distance(lw, nose)
	dr := distance(rw, nose)
	switch {
	case dl < d.threshold && dl <= dr:
		return Result{Landed: true, Hand: model.HandLeft}
	case dr < d.threshold:
		return Result{Landed: true, Hand: model.HandRight}
	}

	if d.minSpeed == 0 || !hadPrev {
		return Result{Hand: model.HandUnspecified}
	}
	reach := d.threshold * d.reachFactor
	fastL := dl < reach && distance(prev.left, lw) >= d.minSpeed
	fastR := dr < reach && distance(prev.right, rw) >= d.minSpeed
	switch {
	case fastL && (!fastR || dl <= dr):
		return Result{Landed: true, Hand: model.HandLeft}
	case fastR:
		return Result{Landed: true, Hand: model.HandRight}
	}
	return Result{Hand: model.HandUnspecified}
}

// Forget drops the remembered wrist positions for role.
func (d *Detector) Forget(role model.Role) {
	delete(d.last, role)
}

func distance(a, b model.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
