package pose_test

import (
	"math"
	"testing"

	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/internal/domain/pose"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExtract(t *testing.T) {
	Convey("Given a keypoint map with nose and shoulders", t, func() {
		kp := model.Keypoints{
			model.Nose:          {X: 100, Y: 100},
			model.LeftShoulder:  {X: 80, Y: 140},
			model.RightShoulder: {X: 120, Y: 140},
			model.LeftWrist:     {X: 60, Y: 120},
		}

		Convey("When extracting over the re-id landmarks", func() {
			sig := pose.Extract(kp, model.ReIDKeypoints)

			Convey("Then offsets are nose-centred and divided by shoulder width", func() {
				So(len(sig), ShouldEqual, 2*len(model.ReIDKeypoints))
				// nose
				So(sig[0], ShouldEqual, 0)
				So(sig[1], ShouldEqual, 0)
				// left wrist: (-40, 20) / 40
				So(sig[2], ShouldAlmostEqual, -1.0)
				So(sig[3], ShouldAlmostEqual, 0.5)
				// right wrist missing
				So(sig[4], ShouldEqual, 0)
				So(sig[5], ShouldEqual, 0)
				// left shoulder: (-20, 40) / 40
				So(sig[6], ShouldAlmostEqual, -0.5)
				So(sig[7], ShouldAlmostEqual, 1.0)
				So(sig.Valid(), ShouldBeTrue)
			})
		})

		Convey("When the body is translated and scaled", func() {
			moved := model.Keypoints{}
			for k, p := range kp {
				moved[k] = model.Point{X: p.X*2 + 300, Y: p.Y*2 - 50}
			}

			Convey("Then the signature is unchanged", func() {
				a := pose.Extract(kp, model.ReIDKeypoints)
				b := pose.Extract(moved, model.ReIDKeypoints)
				for i := range a {
					So(b[i], ShouldAlmostEqual, a[i], 1e-9)
				}
			})
		})
	})

	Convey("Given a keypoint map without a nose", t, func() {
		kp := model.Keypoints{model.LeftWrist: {X: 1, Y: 2}}
		sig := pose.Extract(kp, model.ReIDKeypoints)

		Convey("Then the zero vector of the expected length is returned and is invalid", func() {
			So(len(sig), ShouldEqual, 10)
			So(sig.Valid(), ShouldBeFalse)
		})
	})

	Convey("Given coincident shoulders", t, func() {
		kp := model.Keypoints{
			model.Nose:          {X: 0, Y: 0},
			model.LeftShoulder:  {X: 5, Y: 5},
			model.RightShoulder: {X: 5, Y: 5},
		}
		sig := pose.Extract(kp, []model.Keypoint{model.LeftShoulder})

		Convey("Then the scale falls back to 1", func() {
			So(sig[0], ShouldEqual, 5)
			So(sig[1], ShouldEqual, 5)
		})
	})
}

func TestCosineDistance(t *testing.T) {
	Convey("Given signatures", t, func() {
		a := pose.Signature{1, 0, 0, 1}

		Convey("Identical vectors are at distance zero", func() {
			So(pose.CosineDistance(a, pose.Signature{2, 0, 0, 2}), ShouldAlmostEqual, 0, 1e-12)
		})

		Convey("Orthogonal vectors are at distance one", func() {
			So(pose.CosineDistance(pose.Signature{1, 0}, pose.Signature{0, 1}), ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("Zero, non-finite or mismatched vectors are at distance one", func() {
			So(pose.CosineDistance(a, pose.Signature{0, 0, 0, 0}), ShouldEqual, 1.0)
			So(pose.CosineDistance(a, pose.Signature{math.NaN(), 0, 0, 1}), ShouldEqual, 1.0)
			So(pose.CosineDistance(a, pose.Signature{math.Inf(1), 0, 0, 1}), ShouldEqual, 1.0)
			So(pose.CosineDistance(a, pose.Signature{1, 0}), ShouldEqual, 1.0)
		})
	})
}
