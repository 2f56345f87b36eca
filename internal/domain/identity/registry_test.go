package identity_test

import (
	"testing"

	"github.com/okian/varbox/internal/domain/identity"
	"github.com/okian/varbox/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// guard is an orthodox stance: hands up near the face.
func guard(dx, dy float64) model.Keypoints {
	return model.Keypoints{
		model.Nose:          {X: 100 + dx, Y: 100 + dy},
		model.LeftShoulder:  {X: 80 + dx, Y: 140 + dy},
		model.RightShoulder: {X: 120 + dx, Y: 140 + dy},
		model.LeftWrist:     {X: 85 + dx, Y: 110 + dy},
		model.RightWrist:    {X: 115 + dx, Y: 110 + dy},
	}
}

// reach has the left arm fully extended sideways and the right hand low.
func reach() model.Keypoints {
	return model.Keypoints{
		model.Nose:          {X: 100, Y: 100},
		model.LeftShoulder:  {X: 80, Y: 140},
		model.RightShoulder: {X: 120, Y: 140},
		model.LeftWrist:     {X: 0, Y: 140},
		model.RightWrist:    {X: 130, Y: 220},
	}
}

func TestRegistry_MatchOrRegister(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		reg := identity.NewRegistry()

		Convey("When the same pose is seen on consecutive frames", func() {
			first, ok1 := reg.MatchOrRegister(guard(0, 0), 1, model.ReIDKeypoints)
			second, ok2 := reg.MatchOrRegister(guard(40, -10), 2, model.ReIDKeypoints)

			Convey("Then both calls return the same identity", func() {
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(second, ShouldEqual, first)
				So(reg.Len(), ShouldEqual, 1)
				seen, _ := reg.LastSeen(first)
				So(seen, ShouldEqual, 2)
			})
		})

		Convey("When a dissimilar pose is seen", func() {
			first, _ := reg.MatchOrRegister(guard(0, 0), 1, model.ReIDKeypoints)
			second, ok := reg.MatchOrRegister(reach(), 2, model.ReIDKeypoints)

			Convey("Then a new identity is allocated", func() {
				So(ok, ShouldBeTrue)
				So(second, ShouldNotEqual, first)
				So(second, ShouldEqual, first+1)
			})
		})

		Convey("When a pose has no nose", func() {
			kp := guard(0, 0)
			delete(kp, model.Nose)
			_, ok := reg.MatchOrRegister(kp, 1, model.ReIDKeypoints)

			Convey("Then no identity is assigned", func() {
				So(ok, ShouldBeFalse)
				So(reg.Len(), ShouldEqual, 0)
			})
		})

		Convey("When two matching detections arrive in one frame", func() {
			a, _ := reg.MatchOrRegister(guard(0, 0), 1, model.ReIDKeypoints)
			b, _ := reg.MatchOrRegister(guard(5, 0), 1, model.ReIDKeypoints)

			Convey("Then the identity is not split across them", func() {
				So(b, ShouldNotEqual, a)
			})
		})

		Convey("When two stored identities are equally close", func() {
			a, _ := reg.MatchOrRegister(guard(0, 0), 1, model.ReIDKeypoints)
			b, _ := reg.MatchOrRegister(guard(0, 0), 1, model.ReIDKeypoints)
			got, _ := reg.MatchOrRegister(guard(0, 0), 2, model.ReIDKeypoints)

			Convey("Then the lowest identity wins", func() {
				So(a, ShouldBeLessThan, b)
				So(got, ShouldEqual, a)
			})
		})
	})

	Convey("Given a registry with a strict threshold", t, func() {
		reg := identity.NewRegistry(identity.WithMatchThreshold(1e-9))
		first, _ := reg.MatchOrRegister(guard(0, 0), 1, model.ReIDKeypoints)
		bent := guard(0, 0)
		bent[model.LeftWrist] = model.Point{X: 86, Y: 111}
		second, _ := reg.MatchOrRegister(bent, 2, model.ReIDKeypoints)

		Convey("Then any distance at or above it allocates", func() {
			So(second, ShouldNotEqual, first)
		})
	})
}

func TestRegistry_CleanOld(t *testing.T) {
	Convey("Given identities last seen at different frames", t, func() {
		reg := identity.NewRegistry()
		old, _ := reg.MatchOrRegister(guard(0, 0), 1, model.ReIDKeypoints)
		fresh, _ := reg.MatchOrRegister(reach(), 50, model.ReIDKeypoints)

		Convey("When cleaning with max age 60 at frame 61", func() {
			removed := reg.CleanOld(61, 60)

			Convey("Then nothing is older than the limit", func() {
				So(removed, ShouldEqual, 0)
				So(reg.Len(), ShouldEqual, 2)
			})
		})

		Convey("When cleaning with max age 60 at frame 62", func() {
			removed := reg.CleanOld(62, 60)

			Convey("Then only the stale identity is evicted", func() {
				So(removed, ShouldEqual, 1)
				_, okOld := reg.LastSeen(old)
				_, okFresh := reg.LastSeen(fresh)
				So(okOld, ShouldBeFalse)
				So(okFresh, ShouldBeTrue)
			})
		})
	})
}
