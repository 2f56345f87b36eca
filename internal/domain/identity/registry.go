// Package identity re-identifies per-frame detections into persistent
// numeric identities using pose signature similarity.
package identity

import (
	"sort"

	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/internal/domain/pose"
)

// Default registry configuration constants.
const (
	DefaultMatchThreshold = 0.3
)

// ID is a process-lifetime identity handle.
type ID int

type entry struct {
	signature pose.Signature
	lastSeen  int
}

// Registry maps detections to identities. It is not safe for concurrent use;
// a single frame loop owns it.
type Registry struct {
	entries   map[ID]*entry
	nextID    ID
	threshold float64
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithMatchThreshold sets the cosine distance a match must stay strictly below.
func WithMatchThreshold(threshold float64) Option {
	return func(r *Registry) {
		if threshold > 0 {
			r.threshold = threshold
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:   make(map[ID]*entry),
		threshold: DefaultMatchThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MatchOrRegister assigns an identity to the detection described by kp.
// It returns false when the pose signature is invalid; the detection is
// then dropped from tracking for this frame.
//
// Existing identities are scanned in ascending ID order and only a strictly
// smaller distance replaces the current best, so ties go to the lowest ID.
// An identity already claimed during frame is skipped.
func (r *Registry) MatchOrRegister(kp model.Keypoints, frame int, required []model.Keypoint) (ID, bool) {
	sig := pose.Extract(kp, required)
	if !sig.Valid() {
		return 0, false
	}

	bestID := ID(-1)
	bestDist := r.threshold
	for _, id := range r.sortedIDs() {
		e := r.entries[id]
		if e.lastSeen == frame || !e.signature.Valid() {
			continue
		}
		if d := pose.CosineDistance(sig, e.signature); d < bestDist {
			bestDist = d
			bestID = id
		}
	}

	if bestID >= 0 {
		e := r.entries[bestID]
		e.signature = sig
		e.lastSeen = frame
		return bestID, true
	}

	id := r.nextID
	r.nextID++
	r.entries[id] = &entry{signature: sig, lastSeen: frame}
	return id, true
}

// CleanOld evicts identities unseen for more than maxAge frames and returns
// how many were removed.
func (r *Registry) CleanOld(frame, maxAge int) int {
	removed := 0
	for id, e := range r.entries {
		if frame-e.lastSeen > maxAge {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live identities.
func (r *Registry) Len() int {
	return len(r.entries)
}

// LastSeen returns the frame an identity was last matched in.
func (r *Registry) LastSeen(id ID) (int, bool) {
	e, ok := r.entries[id]
	if !ok {
		return 0, false
	}
	return e.lastSeen, true
}

func (r *Registry) sortedIDs() []ID {
	ids := make([]ID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
