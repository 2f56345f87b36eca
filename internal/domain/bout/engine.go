// Package bout drives the per-frame pipeline of one bout: identity matching,
// role bootstrap, corner binding, strike scoring, the round clock and judging.
package bout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/okian/varbox/internal/domain/appearance"
	"github.com/okian/varbox/internal/domain/bootstrap"
	"github.com/okian/varbox/internal/domain/identity"
	"github.com/okian/varbox/internal/domain/judge"
	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/internal/domain/participant"
	"github.com/okian/varbox/internal/domain/rounds"
	"github.com/okian/varbox/internal/domain/scoring"
	"github.com/okian/varbox/internal/domain/strike"
	"github.com/okian/varbox/pkg/logger"
	"github.com/okian/varbox/pkg/metrics"
)

// FrameSource yields frames in order and returns io.EOF when exhausted.
type FrameSource interface {
	Next() (*model.Frame, error)
}

// FrameResult describes what one frame changed.
type FrameResult struct {
	Index      int
	Identities int
	Bindings   participant.Bindings
	Accepted   []model.StrikeEvent
	Decision   *model.RoundDecision
	Tick       rounds.Tick
}

// Engine owns every piece of per-bout state. It is not safe for concurrent
// use; callers serialize frames of one bout.
type Engine struct {
	cfg Config
	log logger.Logger

	analyzer     *appearance.Analyzer
	registry     *identity.Registry
	bootstrapper *bootstrap.Bootstrapper
	participants *participant.Manager
	strikes      *strike.Detector
	tracker      *scoring.Tracker
	timer        *rounds.Timer
	stats        *judge.Stats

	lastIndex int
	frames    int
	over      bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithAnalyzer overrides the appearance analyzer.
func WithAnalyzer(a *appearance.Analyzer) Option {
	return func(e *Engine) {
		if a != nil {
			e.analyzer = a
		}
	}
}

// New builds an engine for one bout.
func New(cfg Config, opts ...Option) *Engine {
	if len(cfg.Required) == 0 {
		cfg.Required = append([]model.Keypoint(nil), model.ReIDKeypoints...)
	}
	boot := bootstrap.New(
		bootstrap.WithWindow(cfg.BootstrapWindow),
		bootstrap.WithMinSamples(cfg.BootstrapMinSamples),
		bootstrap.WithAlpha(cfg.BootstrapAlpha),
	)
	e := &Engine{
		cfg:          cfg,
		log:          logger.Nop(),
		analyzer:     appearance.NewAnalyzer(),
		registry:     identity.NewRegistry(identity.WithMatchThreshold(cfg.MatchThreshold)),
		bootstrapper: boot,
		participants: participant.New(
			participant.WithMinCoverage(cfg.MinCoverage),
			participant.WithMinSimilarity(cfg.MinSimilarity),
			participant.WithSmoothing(cfg.AnchorSmoothing),
			participant.WithMaxMissingFrames(cfg.MaxMissingFrames),
			participant.WithFreezeAfterSeed(cfg.FreezeAfterSeed),
			participant.WithRoleSource(boot),
		),
		strikes: strike.New(
			strike.WithDistanceThreshold(cfg.StrikeDistance),
			strike.WithSpeedFallback(cfg.StrikeMinSpeed, cfg.StrikeReachFactor),
		),
		tracker: scoring.NewTracker(scoring.WithCooldown(cfg.Cooldown)),
		timer:   rounds.NewTimer(cfg.FPS, cfg.RoundSeconds, cfg.RestSeconds, cfg.TotalRounds),
		stats:   judge.NewStats(cfg.TotalRounds),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessFrame advances every component by one frame. Frames must arrive
// with strictly increasing indices. Once the bout is over frames are ignored.
func (e *Engine) ProcessFrame(ctx context.Context, frame *model.Frame) (FrameResult, error) {
	if frame == nil {
		return FrameResult{}, fmt.Errorf("nil frame: %w", ErrOutOfOrder)
	}
	if e.over {
		return FrameResult{Index: frame.Index, Tick: rounds.Tick{Round: e.timer.Round(), BoutOver: true}}, nil
	}
	if frame.Index <= e.lastIndex {
		metrics.RecordFrameRejected("out_of_order")
		return FrameResult{}, fmt.Errorf("frame %d after %d: %w", frame.Index, e.lastIndex, ErrOutOfOrder)
	}
	start := time.Now()
	e.lastIndex = frame.Index
	e.frames++

	candidates, poses := e.track(ctx, frame)
	e.observe(ctx, frame.Index, candidates)

	res := FrameResult{
		Index:      frame.Index,
		Identities: e.registry.Len(),
		Bindings:   e.participants.Update(candidates),
	}

	if e.timer.InRound() {
		res.Accepted = e.scoreStrikes(ctx, frame.Index, res.Bindings, poses)
	}

	res.Tick = e.timer.Step()
	if res.Tick.JustEndedRound {
		d := judge.Judge(e.stats.Round(res.Tick.Round))
		e.tracker.AddRoundPoints(d.Round, d.RedPoints, d.BluePoints, d.Rationale)
		res.Decision = &d
		metrics.RecordRoundJudged()
		e.log.Info(ctx, "round judged",
			logger.Int("round", d.Round),
			logger.Int("red", d.RedPoints),
			logger.Int("blue", d.BluePoints),
			logger.String("rationale", d.Rationale))
	}
	if res.Tick.BoutOver {
		e.over = true
		e.log.Info(ctx, "bout over", logger.Int("frame", frame.Index))
	}

	metrics.RecordFrameProcessed(float64(time.Since(start).Microseconds()) / 1000)
	metrics.UpdateActiveIdentities(res.Identities)
	return res, nil
}

// track matches detections to identities and computes their appearance.
func (e *Engine) track(ctx context.Context, frame *model.Frame) ([]participant.Candidate, map[identity.ID]model.Keypoints) {
	candidates := make([]participant.Candidate, 0, len(frame.Detections))
	poses := make(map[identity.ID]model.Keypoints, len(frame.Detections))

	for i, det := range frame.Detections {
		n := e.registry.Len()
		id, ok := e.registry.MatchOrRegister(det.Keypoints, frame.Index, e.cfg.Required)
		if !ok {
			metrics.RecordDetectionDropped()
			e.log.Debug(ctx, "detection dropped: invalid pose signature",
				logger.Int("frame", frame.Index), logger.Int("detection", i))
			continue
		}
		if e.registry.Len() > n {
			metrics.RecordIdentityCreated()
		}
		obs := e.analyzer.Observe(frame.Image, det.Box)
		candidates = append(candidates, participant.Candidate{
			ID:        id,
			Box:       det.Box,
			Signature: obs.Signature,
			Coverage:  obs.Coverage,
		})
		poses[id] = det.Keypoints
	}

	if evicted := e.registry.CleanOld(frame.Index, e.cfg.maxAge()); evicted > 0 {
		metrics.RecordIdentitiesEvicted(evicted)
		e.log.Debug(ctx, "identities evicted",
			logger.Int("frame", frame.Index), logger.Int("evicted", evicted))
	}
	return candidates, poses
}

// observe feeds the bootstrap window and finalizes it once it has elapsed.
func (e *Engine) observe(ctx context.Context, index int, candidates []participant.Candidate) {
	if e.bootstrapper.Finalized() {
		return
	}
	for _, c := range candidates {
		e.bootstrapper.AddObservation(index, c.ID, c.Signature, c.Coverage)
	}
	if e.bootstrapper.Ready(index) {
		roles := e.bootstrapper.Finalize()
		metrics.RecordRolesBootstrapped()
		e.log.Info(ctx, "roles bootstrapped",
			logger.Int("frame", index), logger.Any("roles", roles))
	}
}

func (e *Engine) scoreStrikes(ctx context.Context, index int, b participant.Bindings, poses map[identity.ID]model.Keypoints) []model.StrikeEvent {
	redID, okR := b[model.RoleRed]
	blueID, okB := b[model.RoleBlue]
	if !okR || !okB {
		return nil
	}
	kp := map[model.Role]model.Keypoints{
		model.RoleRed:  poses[redID],
		model.RoleBlue: poses[blueID],
	}

	var accepted []model.StrikeEvent
	for _, role := range model.ScoredRoles {
		res := e.strikes.Evaluate(role, kp[role], kp[role.Opponent()])
		if !res.Landed {
			continue
		}
		metrics.RecordStrikeDetected(string(role))
		ts := model.FormatTimestamp(index, e.cfg.fps())
		if !e.tracker.Update(index, role, ts, res.Hand) {
			metrics.RecordStrikeRejected(string(role))
			continue
		}
		metrics.RecordStrikeAccepted(string(role))
		e.stats.AddStrike(role, e.timer.Round())
		events := e.tracker.Events()
		ev := events[len(events)-1]
		accepted = append(accepted, ev)
		e.log.Debug(ctx, "strike landed",
			logger.Int("frame", index),
			logger.String("role", string(role)),
			logger.String("hand", string(res.Hand)),
			logger.Int("score", ev.Score))
	}
	return accepted
}

// Run processes frames from src until it is exhausted, the bout ends or ctx
// is cancelled. Cancellation is checked between frames only.
func (e *Engine) Run(ctx context.Context, src FrameSource) error {
	for !e.over {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("bout run cancelled: %w", err)
		}
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		if _, err := e.ProcessFrame(ctx, frame); err != nil {
			return err
		}
	}
	return nil
}

// AddKnockdown records that role was knocked down in the current round.
func (e *Engine) AddKnockdown(role model.Role, count int) error {
	r, round, err := e.scoringTarget(role)
	if err != nil {
		return err
	}
	e.stats.AddKnockdown(r, round, count)
	return nil
}

// AddDeduction deducts points from role in the current round.
func (e *Engine) AddDeduction(role model.Role, points int) error {
	r, round, err := e.scoringTarget(role)
	if err != nil {
		return err
	}
	e.stats.AddDeduction(r, round, points)
	return nil
}

func (e *Engine) scoringTarget(role model.Role) (model.Role, int, error) {
	r, ok := model.ParseRole(string(role))
	if !ok {
		return "", 0, fmt.Errorf("%q: %w", role, ErrUnknownRole)
	}
	if !e.timer.InRound() {
		return "", 0, ErrNotInRound
	}
	return r, e.timer.Round(), nil
}

// Finish ends the bout early. A round still in progress is judged on what
// was recorded so far; a bout already over is left untouched.
func (e *Engine) Finish(ctx context.Context) *model.RoundDecision {
	if e.over {
		return nil
	}
	e.over = true
	if !e.timer.InRound() {
		e.log.Info(ctx, "bout stopped between rounds", logger.Int("round", e.timer.Round()))
		return nil
	}
	d := judge.Judge(e.stats.Round(e.timer.Round()))
	e.tracker.AddRoundPoints(d.Round, d.RedPoints, d.BluePoints, d.Rationale)
	metrics.RecordRoundJudged()
	e.log.Info(ctx, "bout stopped mid-round",
		logger.Int("round", d.Round),
		logger.Int("red", d.RedPoints),
		logger.Int("blue", d.BluePoints))
	return &d
}

// Over reports whether the bout has finished.
func (e *Engine) Over() bool {
	return e.over
}

// Scorecard returns a snapshot of the bout.
func (e *Engine) Scorecard() model.Scorecard {
	return model.Scorecard{
		Scores:       e.tracker.Scores(),
		Events:       e.tracker.Events(),
		Decisions:    e.tracker.Decisions(),
		Totals:       e.tracker.Totals(),
		Rounds:       e.stats.Rounds(),
		CurrentRound: e.timer.Round(),
		InRound:      e.timer.InRound(),
		BoutOver:     e.over,
		Frames:       e.frames,
		UpdatedAt:    time.Now().UTC(),
	}
}
