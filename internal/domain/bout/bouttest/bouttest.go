// Package bouttest builds a synthetic two-boxer scene for tests: a boxer in
// red trunks on the left, one in blue on the right, both facing each other.
package bouttest

import (
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/okian/varbox/internal/domain/model"
)

// Boxes of the two boxers in the 640x360 arena.
var (
	RedBox  = model.BoundingBox{X1: 100, Y1: 50, X2: 220, Y2: 350}
	BlueBox = model.BoundingBox{X1: 300, Y1: 50, X2: 420, Y2: 350}
)

// Arena paints both boxers on a grey background.
func Arena() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 640, 360))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 128, G: 128, B: 128, A: 255}}, image.Point{}, draw.Src)
	draw.Draw(img, RedBox.Rect(), &image.Uniform{C: color.RGBA{R: 220, G: 20, B: 20, A: 255}}, image.Point{}, draw.Src)
	draw.Draw(img, BlueBox.Rect(), &image.Uniform{C: color.RGBA{R: 20, G: 40, B: 200, A: 255}}, image.Point{}, draw.Src)
	return img
}

// Guard is a high guard with the nose at noseX.
func Guard(noseX float64) model.Keypoints {
	return model.Keypoints{
		model.Nose:          {X: noseX, Y: 80},
		model.LeftShoulder:  {X: noseX - 30, Y: 120},
		model.RightShoulder: {X: noseX + 30, Y: 120},
		model.LeftWrist:     {X: noseX - 10, Y: 110},
		model.RightWrist:    {X: noseX + 10, Y: 110},
	}
}

// RedPose is RED's guard, or a right hand on BLUE's nose.
func RedPose(punch bool) model.Keypoints {
	kp := Guard(160)
	if punch {
		kp[model.RightWrist] = model.Point{X: 350, Y: 80}
	}
	return kp
}

// BluePose is BLUE's guard, or a left hand on RED's nose.
func BluePose(punch bool) model.Keypoints {
	kp := Guard(360)
	if punch {
		kp[model.LeftWrist] = model.Point{X: 170, Y: 80}
	}
	return kp
}

// Scene renders frames over a fixed image.
type Scene struct {
	Image image.Image
}

// NewScene returns a scene over Arena.
func NewScene() Scene {
	return Scene{Image: Arena()}
}

// Frame builds frame index; a nil pose leaves that boxer undetected.
func (s Scene) Frame(index int, red, blue model.Keypoints) *model.Frame {
	f := &model.Frame{Index: index, Image: s.Image}
	if red != nil {
		f.Detections = append(f.Detections, model.Detection{Box: RedBox, Keypoints: red})
	}
	if blue != nil {
		f.Detections = append(f.Detections, model.Detection{Box: BlueBox, Keypoints: blue})
	}
	return f
}

// Script renders frames 1..n; redPunch and bluePunch choose the punching frames.
func (s Scene) Script(n int, redPunch, bluePunch func(int) bool) []*model.Frame {
	frames := make([]*model.Frame, 0, n)
	for i := 1; i <= n; i++ {
		frames = append(frames, s.Frame(i, RedPose(redPunch(i)), BluePose(bluePunch(i))))
	}
	return frames
}

// SliceSource replays frames and then returns io.EOF.
type SliceSource struct {
	frames []*model.Frame
	next   int
}

// NewSliceSource replays frames in order.
func NewSliceSource(frames []*model.Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

func (s *SliceSource) Next() (*model.Frame, error) {
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}
