package bout_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/internal/domain/bout/bouttest"
	"github.com/okian/varbox/internal/domain/identity"
	"github.com/okian/varbox/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func shortBout() bout.Config {
	cfg := bout.DefaultConfig()
	cfg.FPS = 30
	cfg.RoundSeconds = 15
	cfg.RestSeconds = 1
	cfg.TotalRounds = 1
	return cfg
}

func TestEngineBout(t *testing.T) {
	Convey("Given a one round bout where RED outworks BLUE", t, func() {
		ctx := context.Background()
		sc := bouttest.NewScene()
		e := bout.New(shortBout())

		var frames []*model.Frame
		for i := 1; i <= 480; i++ {
			redPunch := i%30 == 0 && i <= 360
			bluePunch := i == 45 || i == 145 || i == 245 || i == 345
			frames = append(frames, sc.Frame(i, bouttest.RedPose(redPunch), bouttest.BluePose(bluePunch)))
		}

		So(e.Run(ctx, bouttest.NewSliceSource(frames)), ShouldBeNil)
		card := e.Scorecard()

		Convey("Then every landed strike outside the cooldown is scored", func() {
			So(card.Scores, ShouldResemble, model.Tally{Red: 12, Blue: 4})
			So(len(card.Events), ShouldEqual, 16)
			So(card.Events[0], ShouldResemble, model.StrikeEvent{
				Frame: 30, Timestamp: "00:01", Role: model.RoleRed, Hand: model.HandRight, Score: 1,
			})
			So(card.Events[1], ShouldResemble, model.StrikeEvent{
				Frame: 45, Timestamp: "00:01", Role: model.RoleBlue, Hand: model.HandLeft, Score: 1,
			})
		})

		Convey("Then the round is judged once", func() {
			So(card.Decisions, ShouldResemble, []model.RoundDecision{
				{Round: 1, RedPoints: 10, BluePoints: 9, Rationale: "RED 10-9 (more effective)"},
			})
			So(card.Totals, ShouldResemble, model.Tally{Red: 10, Blue: 9})
			So(card.Rounds[0].Landed, ShouldResemble, model.Tally{Red: 12, Blue: 4})
			So(card.Leader(), ShouldEqual, model.RoleRed)
		})

		Convey("Then the bout is over and later frames are ignored", func() {
			So(card.BoutOver, ShouldBeTrue)
			So(card.Frames, ShouldEqual, 480)
			res, err := e.ProcessFrame(ctx, sc.Frame(481, bouttest.RedPose(true), bouttest.BluePose(false)))
			So(err, ShouldBeNil)
			So(res.Tick.BoutOver, ShouldBeTrue)
			So(e.Scorecard().Scores, ShouldResemble, card.Scores)
		})
	})
}

func TestEngineFrames(t *testing.T) {
	Convey("Given a fresh engine", t, func() {
		ctx := context.Background()
		sc := bouttest.NewScene()
		e := bout.New(bout.DefaultConfig())

		Convey("Frames must move forward", func() {
			_, err := e.ProcessFrame(ctx, sc.Frame(5, bouttest.RedPose(false), bouttest.BluePose(false)))
			So(err, ShouldBeNil)
			_, err = e.ProcessFrame(ctx, sc.Frame(5, bouttest.RedPose(false), bouttest.BluePose(false)))
			So(errors.Is(err, bout.ErrOutOfOrder), ShouldBeTrue)
			_, err = e.ProcessFrame(ctx, sc.Frame(3, bouttest.RedPose(false), bouttest.BluePose(false)))
			So(errors.Is(err, bout.ErrOutOfOrder), ShouldBeTrue)
		})

		Convey("Both corners are bound from the first frame", func() {
			res, err := e.ProcessFrame(ctx, sc.Frame(1, bouttest.RedPose(false), bouttest.BluePose(false)))
			So(err, ShouldBeNil)
			So(res.Identities, ShouldEqual, 2)
			So(res.Bindings, ShouldHaveLength, 2)
			So(res.Bindings[model.RoleRed], ShouldNotEqual, res.Bindings[model.RoleBlue])
		})

		Convey("Detections without a nose are dropped", func() {
			noNose := bouttest.RedPose(false)
			delete(noNose, model.Nose)
			res, err := e.ProcessFrame(ctx, sc.Frame(1, noNose, nil))
			So(err, ShouldBeNil)
			So(res.Identities, ShouldEqual, 0)
			So(res.Bindings, ShouldBeEmpty)
		})

		Convey("Strikes need both corners bound", func() {
			res, err := e.ProcessFrame(ctx, sc.Frame(1, bouttest.RedPose(true), nil))
			So(err, ShouldBeNil)
			So(res.Accepted, ShouldBeEmpty)
		})

		Convey("A corner hidden for a short gap keeps its identity", func() {
			var blueBefore identity.ID
			for i := 1; i <= 40; i++ {
				var blue model.Keypoints
				if i <= 10 || i > 30 {
					blue = bouttest.BluePose(false)
				}
				res, err := e.ProcessFrame(ctx, sc.Frame(i, bouttest.RedPose(false), blue))
				So(err, ShouldBeNil)
				switch {
				case i == 10:
					blueBefore = res.Bindings[model.RoleBlue]
				case i == 20:
					_, bound := res.Bindings[model.RoleBlue]
					So(bound, ShouldBeFalse)
				case i == 31:
					So(res.Bindings[model.RoleBlue], ShouldEqual, blueBefore)
				}
			}
		})
	})
}

func TestEngineOfficials(t *testing.T) {
	Convey("Given a short even round", t, func() {
		ctx := context.Background()
		sc := bouttest.NewScene()
		cfg := bout.DefaultConfig()
		cfg.FPS = 10
		cfg.RoundSeconds = 2
		cfg.RestSeconds = 1
		cfg.TotalRounds = 2
		e := bout.New(cfg)

		_, err := e.ProcessFrame(ctx, sc.Frame(1, bouttest.RedPose(false), bouttest.BluePose(false)))
		So(err, ShouldBeNil)

		Convey("Knockdowns and deductions apply to the current round", func() {
			So(e.AddKnockdown(model.RoleBlue, 1), ShouldBeNil)
			So(e.AddDeduction(model.Role("red"), 1), ShouldBeNil)

			var decision *model.RoundDecision
			for i := 2; i <= 20; i++ {
				res, err := e.ProcessFrame(ctx, sc.Frame(i, bouttest.RedPose(false), bouttest.BluePose(false)))
				So(err, ShouldBeNil)
				if res.Decision != nil {
					decision = res.Decision
				}
			}
			So(decision, ShouldNotBeNil)
			So(*decision, ShouldResemble, model.RoundDecision{
				Round:      1,
				RedPoints:  9,
				BluePoints: 9,
				Rationale:  "even 10-10 | BLUE knocked down x1 | RED deduction -1",
			})

			Convey("and are refused between rounds", func() {
				So(errors.Is(e.AddKnockdown(model.RoleRed, 1), bout.ErrNotInRound), ShouldBeTrue)
			})
		})

		Convey("Unknown corners are refused", func() {
			So(errors.Is(e.AddKnockdown(model.RoleReferee, 1), bout.ErrUnknownRole), ShouldBeTrue)
		})
	})
}

func TestEngineRun(t *testing.T) {
	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sc := bouttest.NewScene()
		e := bout.New(bout.DefaultConfig())
		src := bouttest.NewSliceSource([]*model.Frame{sc.Frame(1, bouttest.RedPose(false), bouttest.BluePose(false))})

		Convey("Run stops before the next frame", func() {
			err := e.Run(ctx, src)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(e.Scorecard().Frames, ShouldEqual, 0)
		})
	})

	Convey("Given a source that fails", t, func() {
		e := bout.New(bout.DefaultConfig())
		err := e.Run(context.Background(), failingSource{})
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "read frame")
	})
}

type failingSource struct{}

func (failingSource) Next() (*model.Frame, error) {
	return nil, errors.New("corrupt record")
}

func TestEngineFinish(t *testing.T) {
	Convey("Given a bout stopped in the middle of round one", t, func() {
		ctx := context.Background()
		sc := bouttest.NewScene()
		e := bout.New(shortBout())
		for i := 1; i <= 31; i++ {
			_, err := e.ProcessFrame(ctx, sc.Frame(i, bouttest.RedPose(i == 30), bouttest.BluePose(false)))
			So(err, ShouldBeNil)
		}

		Convey("Finish judges the open round and ends the bout", func() {
			d := e.Finish(ctx)
			So(d, ShouldNotBeNil)
			So(*d, ShouldResemble, model.RoundDecision{Round: 1, RedPoints: 10, BluePoints: 9, Rationale: "RED 10-9 (more effective)"})
			So(e.Over(), ShouldBeTrue)
			So(e.Scorecard().Totals, ShouldResemble, model.Tally{Red: 10, Blue: 9})

			Convey("and a second Finish changes nothing", func() {
				So(e.Finish(ctx), ShouldBeNil)
				So(e.Scorecard().Decisions, ShouldHaveLength, 1)
			})
		})
	})
}
