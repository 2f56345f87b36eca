// Package appearance computes colour-based appearance signatures and corner
// colour coverage from body crops.
package appearance

import (
	"image"
	"math"

	"github.com/okian/varbox/internal/domain/model"
	xdraw "golang.org/x/image/draw"
)

// Default analyzer configuration constants.
const (
	DefaultBins      = 16
	DefaultPatchSize = 64
	hueLimit         = 180
	satLimit         = 256
)

// HSVRange is an inclusive range in 8-bit HSV space (H in [0,180), S and V in [0,255]).
type HSVRange struct {
	Low  [3]uint8
	High [3]uint8
}

func (r HSVRange) contains(h, s, v uint8) bool {
	return h >= r.Low[0] && h <= r.High[0] &&
		s >= r.Low[1] && s <= r.High[1] &&
		v >= r.Low[2] && v <= r.High[2]
}

// Palette holds the colour ranges for corner coverage. Red wraps around the
// hue circle, hence two ranges.
type Palette struct {
	Red   []HSVRange
	Blue  []HSVRange
	White []HSVRange
}

// DefaultPalette is tuned for typical arena lighting.
var DefaultPalette = Palette{
	Red: []HSVRange{
		{Low: [3]uint8{0, 80, 60}, High: [3]uint8{10, 255, 255}},
		{Low: [3]uint8{170, 80, 60}, High: [3]uint8{180, 255, 255}},
	},
	Blue:  []HSVRange{{Low: [3]uint8{95, 80, 60}, High: [3]uint8{135, 255, 255}}},
	White: []HSVRange{{Low: [3]uint8{0, 0, 200}, High: [3]uint8{180, 50, 255}}},
}

// Signature is an L1-normalized hue×saturation histogram.
type Signature []float64

// Coverage is the fraction of crop pixels matching each palette colour.
type Coverage struct {
	Red   float64 `json:"red"`
	Blue  float64 `json:"blue"`
	White float64 `json:"white"`
}

// Observation bundles what the analyzer extracts from one detection.
type Observation struct {
	Signature Signature
	Coverage  Coverage
}

// Analyzer extracts observations from frames.
type Analyzer struct {
	bins    int
	patch   int
	palette Palette
}

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithBins sets the number of histogram bins per axis.
func WithBins(bins int) Option {
	return func(a *Analyzer) {
		if bins > 0 {
			a.bins = bins
		}
	}
}

// WithPatchSize sets the side of the square patch crops are resized to.
func WithPatchSize(size int) Option {
	return func(a *Analyzer) {
		if size > 0 {
			a.patch = size
		}
	}
}

// WithPalette overrides the coverage colour ranges.
func WithPalette(p Palette) Option {
	return func(a *Analyzer) {
		a.palette = p
	}
}

// NewAnalyzer creates an analyzer with default bins, patch size and palette.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		bins:    DefaultBins,
		patch:   DefaultPatchSize,
		palette: DefaultPalette,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SignatureLen is the length of signatures produced by a.
func (a *Analyzer) SignatureLen() int {
	return a.bins * a.bins
}

// Observe crops box out of img and computes its signature and coverage.
// A nil image or an empty crop yields a zero signature and zero coverage.
func (a *Analyzer) Observe(img image.Image, box model.BoundingBox) Observation {
	crop := Crop(img, box)
	if crop.Empty() {
		return Observation{Signature: make(Signature, a.SignatureLen())}
	}
	return Observation{
		Signature: a.signature(img, crop),
		Coverage:  a.coverage(img, crop),
	}
}

// Crop clamps box to img bounds. The result is empty when nothing remains.
func Crop(img image.Image, box model.BoundingBox) image.Rectangle {
	if img == nil {
		return image.Rectangle{}
	}
	b := img.Bounds()
	if b.Empty() {
		return image.Rectangle{}
	}
	x1 := clampInt(b.Min.X+box.X1, b.Min.X, b.Max.X-1)
	x2 := clampInt(b.Min.X+box.X2, b.Min.X, b.Max.X-1)
	y1 := clampInt(b.Min.Y+box.Y1, b.Min.Y, b.Max.Y-1)
	y2 := clampInt(b.Min.Y+box.Y2, b.Min.Y, b.Max.Y-1)
	if x2 <= x1 || y2 <= y1 {
		return image.Rectangle{}
	}
	return image.Rect(x1, y1, x2, y2)
}

func (a *Analyzer) signature(img image.Image, crop image.Rectangle) Signature {
	patch := image.NewRGBA(image.Rect(0, 0, a.patch, a.patch))
	xdraw.BiLinear.Scale(patch, patch.Bounds(), img, crop, xdraw.Src, nil)

	hist := make(Signature, a.SignatureLen())
	for y := 0; y < a.patch; y++ {
		for x := 0; x < a.patch; x++ {
			off := patch.PixOffset(x, y)
			h, s, _ := toHSV(patch.Pix[off], patch.Pix[off+1], patch.Pix[off+2])
			hb := int(h) * a.bins / hueLimit
			sb := int(s) * a.bins / satLimit
			hist[hb*a.bins+sb]++
		}
	}

	var total float64
	for _, v := range hist {
		total += v
	}
	if total > 0 {
		for i := range hist {
			hist[i] /= total
		}
	}
	return hist
}

func (a *Analyzer) coverage(img image.Image, crop image.Rectangle) Coverage {
	pix, rect := rgbaView(img, crop)

	var red, blue, white int
	var last [3]uint8
	var lastClass uint8
	cached := false
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := pix.Pix[pix.PixOffset(rect.Min.X, y):pix.PixOffset(rect.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			px := [3]uint8{row[i], row[i+1], row[i+2]}
			if !cached || px != last {
				last, lastClass, cached = px, a.classify(px), true
			}
			if lastClass&classRed != 0 {
				red++
			}
			if lastClass&classBlue != 0 {
				blue++
			}
			if lastClass&classWhite != 0 {
				white++
			}
		}
	}
	area := float64(max(rect.Dx()*rect.Dy(), 1))
	return Coverage{
		Red:   float64(red) / area,
		Blue:  float64(blue) / area,
		White: float64(white) / area,
	}
}

const (
	classRed uint8 = 1 << iota
	classBlue
	classWhite
)

func (a *Analyzer) classify(px [3]uint8) uint8 {
	h, s, v := toHSV(px[0], px[1], px[2])
	var c uint8
	if anyContains(a.palette.Red, h, s, v) {
		c |= classRed
	}
	if anyContains(a.palette.Blue, h, s, v) {
		c |= classBlue
	}
	if anyContains(a.palette.White, h, s, v) {
		c |= classWhite
	}
	return c
}

// rgbaView returns crop as RGBA pixels. *image.RGBA frames are read in place;
// other image types are converted once.
func rgbaView(img image.Image, crop image.Rectangle) (*image.RGBA, image.Rectangle) {
	if m, ok := img.(*image.RGBA); ok {
		return m, crop
	}
	dst := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	xdraw.Copy(dst, image.Point{}, img, crop, xdraw.Src, nil)
	return dst, dst.Bounds()
}

func anyContains(ranges []HSVRange, h, s, v uint8) bool {
	for _, r := range ranges {
		if r.contains(h, s, v) {
			return true
		}
	}
	return false
}

// toHSV converts an RGB pixel to 8-bit HSV with hue halved into [0,180).
func toHSV(r, g, b uint8) (h, s, v uint8) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	hi := math.Max(rf, math.Max(gf, bf))
	lo := math.Min(rf, math.Min(gf, bf))
	diff := hi - lo

	var sat float64
	if hi > 0 {
		sat = diff * 255 / hi
	}

	var hue float64
	if diff > 0 {
		switch hi {
		case rf:
			hue = 60 * (gf - bf) / diff
		case gf:
			hue = 120 + 60*(bf-rf)/diff
		default:
			hue = 240 + 60*(rf-gf)/diff
		}
		if hue < 0 {
			hue += 360
		}
	}
	hq := math.Round(hue / 2)
	if hq >= hueLimit {
		hq = 0
	}
	return uint8(hq), uint8(math.Round(sat)), uint8(hi)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
