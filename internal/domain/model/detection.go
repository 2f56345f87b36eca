// Package model contains domain models passed between layers.
package model

import "image"

// Keypoint indexes a body landmark in the 33-point BlazePose topology
// emitted by the upstream pose model.
type Keypoint int

// Landmarks of the BlazePose topology.
const (
	Nose Keypoint = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
)

// KeypointCount is the size of the landmark enumeration.
const KeypointCount = int(RightFootIndex) + 1

// ReIDKeypoints are the landmarks used to build pose signatures for
// re-identification.
var ReIDKeypoints = []Keypoint{Nose, LeftWrist, RightWrist, LeftShoulder, RightShoulder}

// Point is a pixel coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is an axis-aligned pixel box (x1,y1) top-left, (x2,y2) bottom-right.
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect converts the box to an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Keypoints maps landmark index to pixel coordinate. Missing landmarks are absent.
type Keypoints map[Keypoint]Point

// Detection is one frame's observation of one body.
type Detection struct {
	Box       BoundingBox
	Keypoints Keypoints
}

// Frame carries the detector output for a single video frame. Image is the
// decoded frame used for appearance signatures; it may be nil, in which case
// every detection has an empty appearance.
type Frame struct {
	Index      int
	Image      image.Image
	Detections []Detection
}
