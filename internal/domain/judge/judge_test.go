package judge_test

import (
	"testing"

	"github.com/okian/varbox/internal/domain/judge"
	"github.com/okian/varbox/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestJudgeRound(t *testing.T) {
	none := model.Tally{}

	Convey("Given landed counts only", t, func() {
		Convey("Equal counts are even", func() {
			r, b, why := judge.JudgeRound(model.Tally{Red: 7, Blue: 7}, none, none)
			So([]int{r, b}, ShouldResemble, []int{10, 10})
			So(why, ShouldEqual, "even 10-10")
		})

		Convey("The busier corner wins 10-9", func() {
			r, b, why := judge.JudgeRound(model.Tally{Red: 3, Blue: 8}, none, none)
			So([]int{r, b}, ShouldResemble, []int{9, 10})
			So(why, ShouldEqual, "BLUE 10-9 (more effective)")
		})

		Convey("Clear dominance is 10-8", func() {
			r, b, why := judge.JudgeRound(model.Tally{Red: 25, Blue: 10}, none, none)
			So([]int{r, b}, ShouldResemble, []int{10, 8})
			So(why, ShouldEqual, "RED 10-9 (more effective) | 10-8 dominance (RED)")

			r, b, _ = judge.JudgeRound(model.Tally{Red: 15, Blue: 5}, none, none)
			So([]int{r, b}, ShouldResemble, []int{10, 8})
		})

		Convey("Below the dominance ratio stays 10-9", func() {
			r, b, why := judge.JudgeRound(model.Tally{Red: 24, Blue: 10}, none, none)
			So([]int{r, b}, ShouldResemble, []int{10, 9})
			So(why, ShouldEqual, "RED 10-9 (more effective)")
		})

		Convey("Below the dominance difference stays 10-9", func() {
			r, b, _ := judge.JudgeRound(model.Tally{Red: 9, Blue: 0}, none, none)
			So([]int{r, b}, ShouldResemble, []int{10, 9})
		})

		Convey("Extreme dominance is 10-7", func() {
			r, b, why := judge.JudgeRound(model.Tally{Red: 2, Blue: 20}, none, none)
			So([]int{r, b}, ShouldResemble, []int{7, 10})
			So(why, ShouldEqual, "BLUE 10-9 (more effective) | 10-7 extreme dominance (BLUE)")
		})
	})

	Convey("Given knockdowns", t, func() {
		Convey("Each knockdown costs a point", func() {
			r, b, why := judge.JudgeRound(model.Tally{Red: 5, Blue: 3}, model.Tally{Blue: 1}, none)
			So([]int{r, b}, ShouldResemble, []int{10, 8})
			So(why, ShouldEqual, "RED 10-9 (more effective) | BLUE knocked down x1")
		})

		Convey("Dominance is not applied on top", func() {
			r, b, why := judge.JudgeRound(model.Tally{Red: 30, Blue: 2}, model.Tally{Red: 1}, none)
			So([]int{r, b}, ShouldResemble, []int{9, 9})
			So(why, ShouldEqual, "RED 10-9 (more effective) | RED knocked down x1")
		})
	})

	Convey("Given deductions", t, func() {
		Convey("They apply after everything else", func() {
			r, b, why := judge.JudgeRound(model.Tally{Red: 4, Blue: 4}, none, model.Tally{Red: 1, Blue: 2})
			So([]int{r, b}, ShouldResemble, []int{9, 8})
			So(why, ShouldEqual, "even 10-10 | RED deduction -1 | BLUE deduction -2")
		})

		Convey("Awards never drop below six", func() {
			r, b, _ := judge.JudgeRound(model.Tally{Red: 0, Blue: 30}, none, model.Tally{Red: 3})
			So([]int{r, b}, ShouldResemble, []int{6, 10})
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given stats for three rounds", t, func() {
		s := judge.NewStats(3)

		s.AddStrike(model.RoleRed, 1)
		s.AddStrike(model.RoleRed, 1)
		s.AddStrike(model.RoleBlue, 2)
		s.AddKnockdown(model.RoleBlue, 1, 0)
		s.AddDeduction(model.RoleRed, 2, 2)

		Convey("Counts land in their round", func() {
			So(s.Round(1), ShouldResemble, model.RoundStats{
				Round:      1,
				Landed:     model.Tally{Red: 2},
				Knockdowns: model.Tally{Blue: 1},
			})
			So(s.Round(2).Deductions, ShouldResemble, model.Tally{Red: 2})
			So(len(s.Rounds()), ShouldEqual, 3)
		})

		Convey("Out of range rounds and unscored roles are ignored", func() {
			s.AddStrike(model.RoleRed, 0)
			s.AddStrike(model.RoleRed, 4)
			s.AddStrike(model.RoleReferee, 3)
			So(s.Round(3).Landed, ShouldResemble, model.Tally{})
			So(s.Round(9), ShouldResemble, model.RoundStats{Round: 9})
		})

		Convey("Judge uses a round's stats", func() {
			d := judge.Judge(s.Round(1))
			So(d, ShouldResemble, model.RoundDecision{
				Round:      1,
				RedPoints:  10,
				BluePoints: 8,
				Rationale:  "RED 10-9 (more effective) | BLUE knocked down x1",
			})
		})
	})
}
