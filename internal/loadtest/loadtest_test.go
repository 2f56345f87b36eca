package loadtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/varbox/internal/adapters/http/api"
	service "github.com/okian/varbox/internal/app"
	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRunAgainstService(t *testing.T) {
	Convey("Given a running varbox service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithWorkerCount(2),
			service.WithQueueSize(64),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(api.NewServer(svc, svc, api.WithLogger(logger.Nop())).Routes())
		defer srv.Close()

		Convey("When three bouts are played", func() {
			stats, err := Run(ctx, &Config{
				BaseURL:   srv.URL,
				Bouts:     3,
				Frames:    480,
				BatchSize: 60,
				Workers:   2,
			})

			Convey("Then every scorecard matches the local engine", func() {
				So(err, ShouldBeNil)
				So(stats.BoutsPlanned, ShouldEqual, 3)
				So(stats.BoutsMatched, ShouldEqual, 3)
				So(stats.BoutsFailed, ShouldEqual, 0)
				So(stats.FramesSent, ShouldEqual, 3*480)
			})

			Convey("Then the service holds the finished bouts", func() {
				So(svc.GetStats()["activeBouts"], ShouldEqual, 0)
				So(svc.GetStats()["savedBouts"], ShouldEqual, 3)
			})
		})
	})
}

func TestRunUnhealthyService(t *testing.T) {
	Convey("Given a service that is not healthy", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := Run(context.Background(), &Config{BaseURL: srv.URL, Bouts: 1})

		Convey("Then the run stops before generating bouts", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})
}

func TestVerifyScorecard(t *testing.T) {
	Convey("Given an expected scorecard", t, func() {
		want := model.Scorecard{
			Scores:    model.Tally{Red: 5, Blue: 2},
			Totals:    model.Tally{Red: 10, Blue: 9},
			Decisions: []model.RoundDecision{{Round: 1, RedPoints: 10, BluePoints: 9, Rationale: "RED 10-9 (more effective)"}},
			BoutOver:  true,
			Frames:    450,
		}

		Convey("An identical scorecard verifies", func() {
			got := want
			got.BoutID = "x"
			So(verifyScorecard(want, got), ShouldBeNil)
		})

		Convey("Different scores are a mismatch", func() {
			got := want
			got.Scores = model.Tally{Red: 4, Blue: 2}
			So(verifyScorecard(want, got), ShouldWrap, ErrMismatch)
		})

		Convey("A different decision is a mismatch", func() {
			got := want
			got.Decisions = []model.RoundDecision{{Round: 1, RedPoints: 10, BluePoints: 10, Rationale: "even 10-10"}}
			So(verifyScorecard(want, got), ShouldWrap, ErrMismatch)
		})

		Convey("An open bout is a mismatch", func() {
			got := want
			got.BoutOver = false
			So(verifyScorecard(want, got), ShouldWrap, ErrMismatch)
		})
	})
}

func TestWithDefaults(t *testing.T) {
	Convey("Zero configuration gets defaults", t, func() {
		cfg := &Config{}
		withDefaults(cfg)
		So(cfg.Bouts, ShouldEqual, DefaultBouts)
		So(cfg.Frames, ShouldEqual, DefaultFrames)
		So(cfg.BatchSize, ShouldEqual, DefaultBatchSize)
		So(cfg.Workers, ShouldBeGreaterThan, 0)
		So(cfg.Clock, ShouldResemble, DefaultClock)
	})
}
