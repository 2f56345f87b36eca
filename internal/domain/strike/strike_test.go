package strike_test

import (
	"testing"

	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/internal/domain/strike"
	. "github.com/smartystreets/goconvey/convey"
)

func hands(lx, ly, rx, ry float64) model.Keypoints {
	return model.Keypoints{
		model.LeftWrist:  {X: lx, Y: ly},
		model.RightWrist: {X: rx, Y: ry},
	}
}

func head(x, y float64) model.Keypoints {
	return model.Keypoints{model.Nose: {X: x, Y: y}}
}

func TestEvaluate(t *testing.T) {
	Convey("Given a default detector", t, func() {
		d := strike.New()
		target := head(500, 200)

		Convey("A wrist inside the threshold lands", func() {
			res := d.Evaluate(model.RoleRed, hands(100, 100, 480, 200), target)
			So(res, ShouldResemble, strike.Result{Landed: true, Hand: model.HandRight})
		})

		Convey("The closer wrist is credited", func() {
			res := d.Evaluate(model.RoleRed, hands(490, 200, 470, 200), target)
			So(res.Hand, ShouldEqual, model.HandLeft)
		})

		Convey("Exactly at the threshold does not land", func() {
			res := d.Evaluate(model.RoleRed, hands(450, 200, 100, 100), target)
			So(res.Landed, ShouldBeFalse)
			So(res.Hand, ShouldEqual, model.HandUnspecified)
		})

		Convey("Missing keypoints never land", func() {
			kp := hands(500, 200, 500, 200)
			delete(kp, model.RightWrist)
			So(d.Evaluate(model.RoleRed, kp, target).Landed, ShouldBeFalse)
			So(d.Evaluate(model.RoleRed, hands(500, 200, 500, 200), model.Keypoints{}).Landed, ShouldBeFalse)
		})
	})
}

func TestSpeedFallback(t *testing.T) {
	Convey("Given a detector with the speed fallback", t, func() {
		d := strike.New(strike.WithSpeedFallback(25, 1.5))
		target := head(500, 200)

		Convey("A fast wrist within extended reach lands", func() {
			So(d.Evaluate(model.RoleBlue, hands(380, 200, 100, 100), target).Landed, ShouldBeFalse)
			res := d.Evaluate(model.RoleBlue, hands(440, 200, 100, 100), target)
			So(res, ShouldResemble, strike.Result{Landed: true, Hand: model.HandLeft})
		})

		Convey("A slow wrist within extended reach does not", func() {
			d.Evaluate(model.RoleBlue, hands(430, 200, 100, 100), target)
			So(d.Evaluate(model.RoleBlue, hands(440, 200, 100, 100), target).Landed, ShouldBeFalse)
		})

		Convey("State is kept per corner", func() {
			d.Evaluate(model.RoleRed, hands(380, 200, 100, 100), target)
			So(d.Evaluate(model.RoleBlue, hands(440, 200, 100, 100), target).Landed, ShouldBeFalse)
		})

		Convey("Forget clears the previous position", func() {
			d.Evaluate(model.RoleBlue, hands(380, 200, 100, 100), target)
			d.Forget(model.RoleBlue)
			So(d.Evaluate(model.RoleBlue, hands(440, 200, 100, 100), target).Landed, ShouldBeFalse)
		})
	})
}
