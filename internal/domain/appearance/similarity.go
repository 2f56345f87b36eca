package appearance

import "math"

// Similarity maps the Pearson correlation of two signatures from [-1,1]
// onto [0,1]. Mismatched, empty or all-zero signatures score 0.
func Similarity(a, b Signature) float64 {
	if len(a) == 0 || len(a) != len(b) || a.IsZero() || b.IsZero() {
		return 0
	}
	n := float64(len(a))
	var ma, mb float64
	for i := range a {
		ma += a[i]
		mb += b[i]
	}
	ma /= n
	mb /= n

	var num, da, db float64
	for i := range a {
		x := a[i] - ma
		y := b[i] - mb
		num += x * y
		da += x * x
		db += y * y
	}
	corr := 1.0
	if denom := da * db; denom > 1e-12 {
		corr = num / math.Sqrt(denom)
	}
	return math.Max(0, math.Min(1, (corr+1)*0.5))
}

// Blend returns (1-alpha)·prev + alpha·next. A missing or differently sized
// prev is replaced by a copy of next.
func Blend(prev, next Signature, alpha float64) Signature {
	if len(prev) == 0 || len(prev) != len(next) {
		return next.Clone()
	}
	out := make(Signature, len(next))
	for i := range next {
		out[i] = (1-alpha)*prev[i] + alpha*next[i]
	}
	return out
}

// IsZero reports whether every bin is zero.
func (s Signature) IsZero() bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s Signature) Clone() Signature {
	if s == nil {
		return nil
	}
	out := make(Signature, len(s))
	copy(out, s)
	return out
}
