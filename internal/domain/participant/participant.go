// Package participant binds tracked identities to the RED and BLUE corners
// using appearance anchors, with short-term stickiness across occlusions.
package participant

import (
	"sort"

	"github.com/okian/varbox/internal/domain/appearance"
	"github.com/okian/varbox/internal/domain/identity"
	"github.com/okian/varbox/internal/domain/model"
)

// Defaults for the participant manager.
const (
	DefaultMinCoverage      = 0.03
	DefaultMinSimilarity    = 0.30
	DefaultSmoothing        = 0.15
	DefaultMaxMissingFrames = 45
)

// Candidate is one tracked detection offered for corner assignment.
type Candidate struct {
	ID        identity.ID
	Box       model.BoundingBox
	Signature appearance.Signature
	Coverage  appearance.Coverage
}

// RoleSource provides roles decided elsewhere, typically by the bootstrap window.
type RoleSource interface {
	Finalized() bool
	Role(id identity.ID) (model.Role, bool)
	Signature(id identity.ID) (appearance.Signature, bool)
}

// Bindings maps each bound corner to the identity holding it this frame.
type Bindings map[model.Role]identity.ID

type anchor struct {
	signature appearance.Signature
	updates   int
}

type corner struct {
	anchor  *anchor
	lastID  identity.ID
	hasLast bool
	missing int
}

// Manager keeps per-corner anchors and the current bindings.
type Manager struct {
	minCoverage   float64
	minSimilarity float64
	smoothing     float64
	maxMissing    int
	freezeOnSeed  bool
	roles         RoleSource

	frozen  bool
	corners map[model.Role]*corner
	bound   Bindings
}

// Option configures a Manager.
type Option func(*Manager)

// WithMinCoverage sets the colour fraction a candidate needs to seed a corner.
func WithMinCoverage(v float64) Option {
	return func(m *Manager) { m.minCoverage = v }
}

// WithMinSimilarity sets the anchor similarity needed to accept a match.
func WithMinSimilarity(v float64) Option {
	return func(m *Manager) { m.minSimilarity = v }
}

// WithSmoothing sets the anchor update rate.
func WithSmoothing(v float64) Option {
	return func(m *Manager) {
		if v >= 0 && v <= 1 {
			m.smoothing = v
		}
	}
}

// WithMaxMissingFrames sets how long a corner remembers its last identity.
func WithMaxMissingFrames(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.maxMissing = n
		}
	}
}

// WithFreezeAfterSeed stops anchor updates once both corners are seeded.
func WithFreezeAfterSeed(freeze bool) Option {
	return func(m *Manager) { m.freezeOnSeed = freeze }
}

// WithRoleSource seeds anchors from an external role assignment.
func WithRoleSource(src RoleSource) Option {
	return func(m *Manager) { m.roles = src }
}

// New creates a Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		minCoverage:   DefaultMinCoverage,
		minSimilarity: DefaultMinSimilarity,
		smoothing:     DefaultSmoothing,
		maxMissing:    DefaultMaxMissingFrames,
		freezeOnSeed:  true,
		corners:       make(map[model.Role]*corner, len(model.ScoredRoles)),
		bound:         make(Bindings),
	}
	for _, role := range model.ScoredRoles {
		m.corners[role] = &corner{}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Update seeds anchors when possible, assigns candidates to corners and
// refreshes anchors. It returns a copy of the bindings for this frame.
func (m *Manager) Update(candidates []Candidate) Bindings {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	m.seed(sorted)

	bound := make(Bindings, len(model.ScoredRoles))
	used := make(map[identity.ID]bool, len(model.ScoredRoles))
	picked := make(map[model.Role]Candidate, len(model.ScoredRoles))

	for _, role := range m.assignmentOrder() {
		c := m.corners[role]
		if c.anchor == nil {
			continue
		}
		if cand, ok := m.bestMatch(c.anchor, sorted, used); ok {
			bound[role] = cand.ID
			used[cand.ID] = true
			picked[role] = cand
			c.lastID, c.hasLast, c.missing = cand.ID, true, 0
			continue
		}

		c.missing++
		if c.missing > m.maxMissing {
			c.hasLast = false
			continue
		}
		if !c.hasLast || used[c.lastID] {
			continue
		}
		for _, cand := range sorted {
			if cand.ID == c.lastID {
				bound[role] = cand.ID
				used[cand.ID] = true
				picked[role] = cand
				break
			}
		}
	}

	if !m.frozen {
		for role, cand := range picked {
			if cand.Signature.IsZero() {
				continue
			}
			a := m.corners[role].anchor
			a.signature = appearance.Blend(a.signature, cand.Signature, m.smoothing)
			a.updates++
		}
	}

	m.bound = bound
	return m.Bindings()
}

func (m *Manager) seed(candidates []Candidate) {
	if m.AnchorsReady() {
		return
	}
	claimed := make(map[identity.ID]bool, len(model.ScoredRoles))
	for _, id := range m.bound {
		claimed[id] = true
	}

	if m.roles != nil && m.roles.Finalized() {
		for _, role := range model.ScoredRoles {
			c := m.corners[role]
			if c.anchor != nil {
				continue
			}
			for _, cand := range candidates {
				r, ok := m.roles.Role(cand.ID)
				if !ok || r != role || claimed[cand.ID] {
					continue
				}
				sig, ok := m.roles.Signature(cand.ID)
				if !ok || sig.IsZero() {
					sig = cand.Signature
				}
				if sig.IsZero() {
					continue
				}
				c.anchor = &anchor{signature: sig.Clone(), updates: 1}
				claimed[cand.ID] = true
				break
			}
		}
	}

	for _, role := range model.ScoredRoles {
		c := m.corners[role]
		if c.anchor != nil {
			continue
		}
		var (
			best     Candidate
			bestFrac float64
			found    bool
		)
		for _, cand := range candidates {
			if claimed[cand.ID] || cand.Signature.IsZero() {
				continue
			}
			frac := colourFraction(role, cand.Coverage)
			if frac < m.minCoverage {
				continue
			}
			if !found || frac > bestFrac {
				best, bestFrac, found = cand, frac, true
			}
		}
		if found {
			c.anchor = &anchor{signature: best.Signature.Clone(), updates: 1}
			claimed[best.ID] = true
		}
	}

	if m.freezeOnSeed && m.AnchorsReady() {
		m.frozen = true
	}
}

func (m *Manager) bestMatch(a *anchor, candidates []Candidate, used map[identity.ID]bool) (Candidate, bool) {
	var (
		best    Candidate
		bestSim float64
		found   bool
	)
	for _, cand := range candidates {
		if used[cand.ID] {
			continue
		}
		sim := appearance.Similarity(a.signature, cand.Signature)
		if sim < m.minSimilarity {
			continue
		}
		if !found || sim > bestSim {
			best, bestSim, found = cand, sim, true
		}
	}
	return best, found
}

// assignmentOrder lets the corner with the more established anchor choose first.
func (m *Manager) assignmentOrder() []model.Role {
	order := []model.Role{model.RoleRed, model.RoleBlue}
	sort.SliceStable(order, func(i, j int) bool {
		return m.updates(order[i]) > m.updates(order[j])
	})
	return order
}

func (m *Manager) updates(role model.Role) int {
	if a := m.corners[role].anchor; a != nil {
		return a.updates
	}
	return 0
}

func colourFraction(role model.Role, cov appearance.Coverage) float64 {
	switch role {
	case model.RoleRed:
		return cov.Red
	case model.RoleBlue:
		return cov.Blue
	default:
		return 0
	}
}

// Bindings returns the assignment from the latest Update.
func (m *Manager) Bindings() Bindings {
	out := make(Bindings, len(m.bound))
	for r, id := range m.bound {
		out[r] = id
	}
	return out
}

// RoleForIdentity returns the corner id is bound to in the latest frame.
func (m *Manager) RoleForIdentity(id identity.ID) (model.Role, bool) {
	for r, bid := range m.bound {
		if bid == id {
			return r, true
		}
	}
	return "", false
}

// IdentityForRole returns the identity bound to role in the latest frame.
func (m *Manager) IdentityForRole(role model.Role) (identity.ID, bool) {
	id, ok := m.bound[role]
	return id, ok
}

// AnchorsReady reports whether both corners have an anchor.
func (m *Manager) AnchorsReady() bool {
	for _, role := range model.ScoredRoles {
		if m.corners[role].anchor == nil {
			return false
		}
	}
	return true
}

// Anchor returns a copy of the anchor signature for role.
func (m *Manager) Anchor(role model.Role) (appearance.Signature, bool) {
	c, ok := m.corners[role]
	if !ok || c.anchor == nil {
		return nil, false
	}
	return c.anchor.signature.Clone(), true
}

// Frozen reports whether anchor updates have stopped.
func (m *Manager) Frozen() bool {
	return m.frozen
}
