package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/varbox/internal/adapters/repository"
	service "github.com/okian/varbox/internal/app"
	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/internal/domain/bout/bouttest"
	"github.com/okian/varbox/internal/domain/dedupe"
	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/pkg/logger"
	"github.com/okian/varbox/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(500),
			service.WithSequencerSize(100),
		)

		Convey("Then it is created but not started", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Then bout operations are refused until Start", func() {
			_, err := svc.CreateBout(context.Background(), bout.Settings{})
			So(err, ShouldEqual, service.ErrNotStarted)
			_, err = svc.ListScorecards(context.Background(), 0)
			So(err, ShouldEqual, service.ErrNotStarted)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then stats report the running pool", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["activeBouts"], ShouldEqual, 0)
			So(stats["queueCapacity"], ShouldEqual, 2*1024)
			svc.Stop()
		})

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("Then stopping again is harmless", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Bouts(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(1000))
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() {
			svc.Stop()
			cancel()
		})

		id, err := svc.CreateBout(ctx, bout.Settings{FPS: 30, RoundSeconds: 15, RestSeconds: 1, TotalRounds: 1})
		So(err, ShouldBeNil)
		So(id, ShouldNotBeEmpty)

		Convey("When a whole bout is streamed and finished", func() {
			frames := bouttest.NewScene().Script(480,
				func(i int) bool { return i%30 == 0 && i <= 360 },
				func(i int) bool { return i == 45 || i == 145 || i == 245 || i == 345 },
			)
			for _, f := range frames {
				So(svc.SubmitFrame(ctx, id, f), ShouldBeNil)
			}
			card, err := svc.FinishBout(ctx, id)
			So(err, ShouldBeNil)

			Convey("Then the scorecard matches the frame-by-frame engine", func() {
				So(card.BoutID, ShouldEqual, id)
				So(card.Scores, ShouldResemble, model.Tally{Red: 12, Blue: 4})
				So(card.Totals, ShouldResemble, model.Tally{Red: 10, Blue: 9})
				So(card.Decisions, ShouldHaveLength, 1)
				So(card.BoutOver, ShouldBeTrue)
				So(card.Frames, ShouldEqual, 480)
			})

			Convey("Then the bout is released and readable from the store", func() {
				So(svc.GetStats()["activeBouts"], ShouldEqual, 0)
				saved, err := svc.Scorecard(ctx, id)
				So(err, ShouldBeNil)
				So(saved.Totals, ShouldResemble, model.Tally{Red: 10, Blue: 9})

				list, err := svc.ListScorecards(ctx, 10)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
				So(list[0].Winner, ShouldEqual, model.RoleRed)
			})

			Convey("Then further frames are refused", func() {
				err := svc.SubmitFrame(ctx, id, frames[0])
				So(errors.Is(err, service.ErrBoutNotFound), ShouldBeTrue)
			})
		})

		Convey("When frames repeat or go backwards", func() {
			scene := bouttest.NewScene()
			sc := func(i int) *model.Frame { return scene.Frame(i, bouttest.RedPose(false), bouttest.BluePose(false)) }
			So(svc.SubmitFrame(ctx, id, sc(5)), ShouldBeNil)
			So(errors.Is(svc.SubmitFrame(ctx, id, sc(5)), dedupe.ErrDuplicate), ShouldBeTrue)
			So(errors.Is(svc.SubmitFrame(ctx, id, sc(3)), dedupe.ErrOutOfOrder), ShouldBeTrue)
			So(svc.SubmitFrame(ctx, id, sc(6)), ShouldBeNil)
		})

		Convey("When officials score the current round", func() {
			So(svc.AddKnockdown(ctx, id, model.RoleBlue, 1), ShouldBeNil)
			So(svc.AddDeduction(ctx, id, model.RoleRed, 2), ShouldBeNil)
			err := svc.AddKnockdown(ctx, id, model.RoleReferee, 1)
			So(errors.Is(err, bout.ErrUnknownRole), ShouldBeTrue)

			card, err := svc.Scorecard(ctx, id)
			So(err, ShouldBeNil)
			So(card.Rounds[0].Knockdowns, ShouldResemble, model.Tally{Blue: 1})
			So(card.Rounds[0].Deductions, ShouldResemble, model.Tally{Red: 2})
		})

		Convey("When the bout is unknown", func() {
			_, err := svc.Scorecard(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			err = svc.SubmitFrame(ctx, "nope", bouttest.NewScene().Frame(1, bouttest.RedPose(false), bouttest.BluePose(false)))
			So(errors.Is(err, service.ErrBoutNotFound), ShouldBeTrue)
		})
	})
}

// counterValue reads an unlabelled counter from the metrics registry.
func counterValue(name string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestService_FinishWhileSubmitting(t *testing.T) {
	Convey("Given bouts receiving frames while they are finished", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(4096))
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		workerErrors := counterValue("varbox_scoring_worker_errors_total")
		scene := bouttest.NewScene()

		for round := 0; round < 20; round++ {
			id, err := svc.CreateBout(ctx, bout.Settings{FPS: 30, RoundSeconds: 15, RestSeconds: 1, TotalRounds: 1})
			So(err, ShouldBeNil)

			var (
				wg         sync.WaitGroup
				unexpected error
			)
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 1; i <= 200; i++ {
					err := svc.SubmitFrame(ctx, id, scene.Frame(i, bouttest.RedPose(false), bouttest.BluePose(false)))
					switch {
					case err == nil, errors.Is(err, service.ErrBackpressure):
					case errors.Is(err, service.ErrBoutFinished), errors.Is(err, service.ErrBoutNotFound):
						return
					default:
						unexpected = err
						return
					}
				}
			}()
			time.Sleep(time.Duration(round%4) * time.Millisecond)
			_, err = svc.FinishBout(ctx, id)
			wg.Wait()

			So(err, ShouldBeNil)
			So(unexpected, ShouldBeNil)
		}

		Convey("Then no frame outlives its bout", func() {
			So(svc.GetStats()["trackedSequences"], ShouldEqual, int64(0))
			So(svc.GetStats()["activeBouts"], ShouldEqual, 0)
			So(counterValue("varbox_scoring_worker_errors_total"), ShouldEqual, workerErrors)
		})
	})
}
