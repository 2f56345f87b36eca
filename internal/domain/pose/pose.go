// Package pose builds scale and translation invariant pose signatures from
// keypoint maps and compares them.
package pose

import (
	"math"

	"github.com/okian/varbox/internal/domain/model"
)

// clipBound bounds signature components before the cosine is computed.
const clipBound = 1e6

// Signature is a flattened list of (dx, dy) offsets from the nose,
// normalized by shoulder width. Its length is 2 × len(required).
type Signature []float64

// Extract builds the signature for kp over the ordered required landmarks.
// Without a nose the zero vector is returned, which Valid reports as invalid.
func Extract(kp model.Keypoints, required []model.Keypoint) Signature {
	sig := make(Signature, 2*len(required))
	center, ok := kp[model.Nose]
	if !ok {
		return sig
	}

	scale := 1.0
	ls, okL := kp[model.LeftShoulder]
	rs, okR := kp[model.RightShoulder]
	if okL && okR {
		scale = math.Hypot(ls.X-rs.X, ls.Y-rs.Y)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = 1.0
	}

	for i, idx := range required {
		pt, ok := kp[idx]
		if !ok {
			continue
		}
		sig[2*i] = (pt.X - center.X) / scale
		sig[2*i+1] = (pt.Y - center.Y) / scale
	}
	return sig
}

// Valid reports whether s can be compared: non-empty, finite and non-zero.
func (s Signature) Valid() bool {
	if len(s) == 0 {
		return false
	}
	nonZero := false
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		if v != 0 {
			nonZero = true
		}
	}
	return nonZero
}

// CosineDistance returns 1 - cos(a, b) on components clipped to ±1e6.
// It is 1.0 whenever either side is invalid or the lengths differ.
func CosineDistance(a, b Signature) float64 {
	if len(a) != len(b) || !a.Valid() || !b.Valid() {
		return 1.0
	}
	var dot, na, nb float64
	for i := range a {
		x := clip(a[i])
		y := clip(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func clip(v float64) float64 {
	return math.Max(-clipBound, math.Min(clipBound, v))
}
