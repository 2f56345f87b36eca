// Package framecodec converts detector output records to and from frames.
//
// A record is one JSON object per frame:
//
//	{"index":1,"image":"<base64 png|jpeg>","detections":[{"box":[x1,y1,x2,y2],"keypoints":{"0":[x,y]}}]}
//
// Instead of an inline image a record may name a file with "image_path".
package framecodec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/varbox/internal/domain/model"
)

// Record is the wire form of a frame.
type Record struct {
	Index      int               `json:"index"`
	Image      string            `json:"image,omitempty"`
	ImagePath  string            `json:"image_path,omitempty"`
	Detections []DetectionRecord `json:"detections"`
}

// DetectionRecord is the wire form of one detection. Keypoint keys are
// landmark indices.
type DetectionRecord struct {
	Box       [4]int                `json:"box"`
	Keypoints map[string][2]float64 `json:"keypoints"`
}

// Frame converts r to a model frame. Relative image paths resolve against baseDir.
func (r Record) Frame(baseDir string) (*model.Frame, error) {
	if r.Index < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidIndex, r.Index)
	}
	img, err := r.decodeImage(baseDir)
	if err != nil {
		return nil, err
	}

	f := &model.Frame{Index: r.Index, Image: img, Detections: make([]model.Detection, 0, len(r.Detections))}
	for i, d := range r.Detections {
		kp := make(model.Keypoints, len(d.Keypoints))
		for key, xy := range d.Keypoints {
			n, err := strconv.Atoi(strings.TrimSpace(key))
			if err != nil || n < 0 || n >= model.KeypointCount {
				return nil, fmt.Errorf("%w: detection %d key %q", ErrInvalidKeypoint, i, key)
			}
			kp[model.Keypoint(n)] = model.Point{X: xy[0], Y: xy[1]}
		}
		f.Detections = append(f.Detections, model.Detection{
			Box:       model.BoundingBox{X1: d.Box[0], Y1: d.Box[1], X2: d.Box[2], Y2: d.Box[3]},
			Keypoints: kp,
		})
	}
	return f, nil
}

func (r Record) decodeImage(baseDir string) (image.Image, error) {
	var raw []byte
	switch {
	case r.Image != "":
		data := r.Image
		if i := strings.Index(data, ","); strings.HasPrefix(data, "data:") && i > 0 {
			data = data[i+1:]
		}
		b, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", ErrInvalidImage, r.Index, err)
		}
		raw = b
	case r.ImagePath != "":
		p := r.ImagePath
		if !filepath.IsAbs(p) && baseDir != "" {
			p = filepath.Join(baseDir, p)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", ErrInvalidImage, r.Index, err)
		}
		raw = b
	default:
		return nil, nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: frame %d: %v", ErrInvalidImage, r.Index, err)
	}
	return img, nil
}

// FromFrame builds a record from f, embedding the image as base64 PNG.
func FromFrame(f *model.Frame) (Record, error) {
	if f == nil {
		return Record{}, ErrInvalidRecord
	}
	r := Record{Index: f.Index, Detections: make([]DetectionRecord, 0, len(f.Detections))}
	if f.Image != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, f.Image); err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		r.Image = base64.StdEncoding.EncodeToString(buf.Bytes())
	}
	for _, d := range f.Detections {
		keys := make([]int, 0, len(d.Keypoints))
		for k := range d.Keypoints {
			keys = append(keys, int(k))
		}
		sort.Ints(keys)
		kp := make(map[string][2]float64, len(keys))
		for _, k := range keys {
			p := d.Keypoints[model.Keypoint(k)]
			kp[strconv.Itoa(k)] = [2]float64{p.X, p.Y}
		}
		r.Detections = append(r.Detections, DetectionRecord{
			Box:       [4]int{d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2},
			Keypoints: kp,
		})
	}
	return r, nil
}
