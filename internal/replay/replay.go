// Package replay scores a recorded bout offline: it reads a JSON Lines file
// of per-frame detections, runs one engine over it and writes the scorecard.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/varbox/internal/adapters/framecodec"
	"github.com/okian/varbox/internal/adapters/repository"
	"github.com/okian/varbox/internal/domain/bout"
	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/pkg/logger"
)

// Config describes one replay.
type Config struct {
	// Input is the JSON Lines detection file. Relative image paths inside it
	// resolve against its directory.
	Input string
	// Output is the scorecard path; empty or "-" writes to stdout.
	Output string
	// SQLitePath persists the scorecard when set.
	SQLitePath string
	// BoutID names the bout; a random one is generated when empty.
	BoutID string
	// Bout configures the engine.
	Bout bout.Config
	// Stoppage judges a round still running when the input ends.
	Stoppage bool
}

// Result summarises a replay.
type Result struct {
	Scorecard model.Scorecard
	Skipped   int
	Elapsed   time.Duration
}

// Runner executes a replay.
type Runner struct {
	cfg    Config
	log    logger.Logger
	stdout io.Writer
	store  repository.Store
}

// New creates a Runner for cfg.
func New(cfg Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, log: logger.Nop(), stdout: os.Stdout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run scores the input file. The context is checked between frames.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	if r.cfg.Input == "" {
		return Result{}, ErrMissingInput
	}
	in, err := os.Open(r.cfg.Input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrMissingInput, r.cfg.Input)
		}
		return Result{}, fmt.Errorf("open %s: %w", r.cfg.Input, err)
	}
	defer in.Close()

	id := r.cfg.BoutID
	if id == "" {
		id = uuid.NewString()
	}
	log := r.log.With(logger.String("bout_id", id))

	src := &lenientSource{
		dec: framecodec.NewDecoder(in, framecodec.WithBaseDir(filepath.Dir(r.cfg.Input))),
		log: log,
		ctx: ctx,
	}
	engine := bout.New(r.cfg.Bout, bout.WithLogger(log))

	log.Info(ctx, "replay started", logger.String("input", r.cfg.Input))
	if err := engine.Run(ctx, src); err != nil {
		return Result{}, fmt.Errorf("replay %s: %w", r.cfg.Input, err)
	}
	if !engine.Over() && r.cfg.Stoppage {
		engine.Finish(ctx)
	}

	sc := engine.Scorecard()
	sc.BoutID = id

	if err := r.persist(ctx, sc); err != nil {
		return Result{}, err
	}
	if err := r.write(sc); err != nil {
		return Result{}, err
	}

	res := Result{Scorecard: sc, Skipped: src.skipped, Elapsed: time.Since(start)}
	log.Info(ctx, "replay finished",
		logger.Int("frames", sc.Frames),
		logger.Int("skipped", res.Skipped),
		logger.Int("red", sc.Totals.Red),
		logger.Int("blue", sc.Totals.Blue),
		logger.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func (r *Runner) persist(ctx context.Context, sc model.Scorecard) error {
	store := r.store
	if store == nil {
		if r.cfg.SQLitePath == "" {
			return nil
		}
		s, err := repository.NewSQLiteStore(r.cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open scorecard store: %w", err)
		}
		defer s.Close()
		store = s
	}
	if err := store.SaveScorecard(ctx, sc); err != nil {
		return fmt.Errorf("persist scorecard: %w", err)
	}
	return nil
}

func (r *Runner) write(sc model.Scorecard) error {
	out := r.stdout
	if r.cfg.Output != "" && r.cfg.Output != "-" {
		if err := os.MkdirAll(filepath.Dir(r.cfg.Output), 0o750); err != nil {
			return fmt.Errorf("%w: %v", ErrOutput, err)
		}
		f, err := os.Create(r.cfg.Output)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOutput, err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sc); err != nil {
		return fmt.Errorf("%w: %v", ErrOutput, err)
	}
	return nil
}

// lenientSource skips frames whose image or keypoints cannot be decoded and
// frames whose index does not follow the last one read. Malformed JSON ends
// the replay.
type lenientSource struct {
	dec     *framecodec.Decoder
	log     logger.Logger
	ctx     context.Context
	last    int
	skipped int
}

func (s *lenientSource) Next() (*model.Frame, error) {
	for {
		f, err := s.dec.Next()
		if errors.Is(err, framecodec.ErrInvalidImage) ||
			errors.Is(err, framecodec.ErrInvalidKeypoint) ||
			errors.Is(err, framecodec.ErrInvalidIndex) {
			s.skip(err)
			continue
		}
		if err != nil {
			return nil, err
		}
		if f.Index <= s.last {
			s.skip(fmt.Errorf("frame %d after %d: %w", f.Index, s.last, bout.ErrOutOfOrder))
			continue
		}
		s.last = f.Index
		return f, nil
	}
}

func (s *lenientSource) skip(err error) {
	s.skipped++
	s.log.Warn(s.ctx, "skipping frame", logger.Int("record", s.dec.Read()), logger.Error(err))
}
