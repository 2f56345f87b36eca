package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/okian/varbox/internal/domain/model"
	"github.com/okian/varbox/pkg/metrics"
)

type boutRecord struct {
	ID           string `gorm:"primaryKey;type:varchar(64)"`
	RedScore     int
	BlueScore    int
	RedTotal     int
	BlueTotal    int
	CurrentRound int
	InRound      bool
	BoutOver     bool
	Frames       int
	LastUpdate   time.Time `gorm:"column:last_update;index:idx_bout_last_update"`
}

func (boutRecord) TableName() string { return "bouts" }

type strikeRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	BoutID    string `gorm:"type:varchar(64);index:idx_strike_bout"`
	Seq       int
	Frame     int
	Timestamp string `gorm:"type:varchar(16)"`
	Role      string `gorm:"type:varchar(8)"`
	Hand      string `gorm:"type:varchar(16)"`
	Score     int
}

func (strikeRecord) TableName() string { return "strikes" }

type decisionRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	BoutID     string `gorm:"type:varchar(64);index:idx_decision_bout"`
	Round      int
	RedPoints  int
	BluePoints int
	Rationale  string
}

func (decisionRecord) TableName() string { return "decisions" }

type roundRecord struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	BoutID         string `gorm:"type:varchar(64);index:idx_round_bout"`
	Round          int
	LandedRed      int
	LandedBlue     int
	KnockdownsRed  int
	KnockdownsBlue int
	DeductionsRed  int
	DeductionsBlue int
}

func (roundRecord) TableName() string { return "round_stats" }

// SQLiteStore persists scorecards with gorm on a pure-Go SQLite driver.
type SQLiteStore struct {
	db    *gorm.DB
	sqlDB *sql.DB

	maxOpenConns int
	batchSize    int
	logLevel     logger.LogLevel
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path and
// migrates the schema.
func NewSQLiteStore(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultDBFile
	}
	s := &SQLiteStore{
		maxOpenConns: defaultMaxOpenConns,
		batchSize:    defaultBatchSize,
		logLevel:     logger.Silent,
	}
	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(s.logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(s.maxOpenConns)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&boutRecord{}, &strikeRecord{}, &decisionRecord{}, &roundRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	s.db, s.sqlDB = db, sqlDB
	return s, nil
}

// SaveScorecard replaces the bout row and all of its child rows in one
// transaction.
func (s *SQLiteStore) SaveScorecard(ctx context.Context, sc model.Scorecard) error {
	if err := validate(sc); err != nil {
		metrics.RecordScorecardSaveError()
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toBoutRecord(sc)
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return fmt.Errorf("upsert bout: %w", err)
		}
		for _, table := range []any{&strikeRecord{}, &decisionRecord{}, &roundRecord{}} {
			if err := tx.Where("bout_id = ?", sc.BoutID).Delete(table).Error; err != nil {
				return fmt.Errorf("clear children: %w", err)
			}
		}

		if strikes := toStrikeRecords(sc); len(strikes) > 0 {
			if err := tx.CreateInBatches(strikes, s.batchSize).Error; err != nil {
				return fmt.Errorf("insert strikes: %w", err)
			}
		}
		if decisions := toDecisionRecords(sc); len(decisions) > 0 {
			if err := tx.CreateInBatches(decisions, s.batchSize).Error; err != nil {
				return fmt.Errorf("insert decisions: %w", err)
			}
		}
		if rounds := toRoundRecords(sc); len(rounds) > 0 {
			if err := tx.CreateInBatches(rounds, s.batchSize).Error; err != nil {
				return fmt.Errorf("insert round stats: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordScorecardSaveError()
		return err
	}
	metrics.RecordScorecardSaved()
	return nil
}

func (s *SQLiteStore) Scorecard(ctx context.Context, boutID string) (model.Scorecard, error) {
	db := s.db.WithContext(ctx)

	var rec boutRecord
	if err := db.Where("id = ?", boutID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Scorecard{}, ErrNotFound
		}
		return model.Scorecard{}, fmt.Errorf("query bout: %w", err)
	}

	var (
		strikes   []strikeRecord
		decisions []decisionRecord
		rounds    []roundRecord
	)
	if err := db.Where("bout_id = ?", boutID).Order("seq").Find(&strikes).Error; err != nil {
		return model.Scorecard{}, fmt.Errorf("query strikes: %w", err)
	}
	if err := db.Where("bout_id = ?", boutID).Order("round").Find(&decisions).Error; err != nil {
		return model.Scorecard{}, fmt.Errorf("query decisions: %w", err)
	}
	if err := db.Where("bout_id = ?", boutID).Order("round").Find(&rounds).Error; err != nil {
		return model.Scorecard{}, fmt.Errorf("query round stats: %w", err)
	}
	return fromRecords(rec, strikes, decisions, rounds), nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	q := s.db.WithContext(ctx).Order("last_update DESC").Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []boutRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list bouts: %w", err)
	}

	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	judged := make(map[string]int, len(recs))
	if len(ids) > 0 {
		var rows []struct {
			BoutID string
			N      int
		}
		if err := s.db.WithContext(ctx).Model(&decisionRecord{}).
			Select("bout_id, count(*) as n").
			Where("bout_id IN ?", ids).
			Group("bout_id").
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("count decisions: %w", err)
		}
		for _, r := range rows {
			judged[r.BoutID] = r.N
		}
	}

	out := make([]Summary, 0, len(recs))
	for _, r := range recs {
		sc := fromRecords(r, nil, nil, nil)
		sum := summarize(sc)
		sum.Rounds = judged[r.ID]
		out = append(out, sum)
	}
	return out, nil
}

func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int64
	if err := s.db.WithContext(ctx).Model(&boutRecord{}).Count(&n).Error; err != nil {
		return 0
	}
	return int(n)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toBoutRecord(sc model.Scorecard) boutRecord {
	updated := sc.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return boutRecord{
		ID:           sc.BoutID,
		RedScore:     sc.Scores.Red,
		BlueScore:    sc.Scores.Blue,
		RedTotal:     sc.Totals.Red,
		BlueTotal:    sc.Totals.Blue,
		CurrentRound: sc.CurrentRound,
		InRound:      sc.InRound,
		BoutOver:     sc.BoutOver,
		Frames:       sc.Frames,
		LastUpdate:   updated.UTC(),
	}
}

func toStrikeRecords(sc model.Scorecard) []strikeRecord {
	out := make([]strikeRecord, len(sc.Events))
	for i, e := range sc.Events {
		out[i] = strikeRecord{
			BoutID:    sc.BoutID,
			Seq:       i,
			Frame:     e.Frame,
			Timestamp: e.Timestamp,
			Role:      string(e.Role),
			Hand:      string(e.Hand),
			Score:     e.Score,
		}
	}
	return out
}

func toDecisionRecords(sc model.Scorecard) []decisionRecord {
	out := make([]decisionRecord, len(sc.Decisions))
	for i, d := range sc.Decisions {
		out[i] = decisionRecord{
			BoutID:     sc.BoutID,
			Round:      d.Round,
			RedPoints:  d.RedPoints,
			BluePoints: d.BluePoints,
			Rationale:  d.Rationale,
		}
	}
	return out
}

func toRoundRecords(sc model.Scorecard) []roundRecord {
	out := make([]roundRecord, len(sc.Rounds))
	for i, r := range sc.Rounds {
		out[i] = roundRecord{
			BoutID:         sc.BoutID,
			Round:          r.Round,
			LandedRed:      r.Landed.Red,
			LandedBlue:     r.Landed.Blue,
			KnockdownsRed:  r.Knockdowns.Red,
			KnockdownsBlue: r.Knockdowns.Blue,
			DeductionsRed:  r.Deductions.Red,
			DeductionsBlue: r.Deductions.Blue,
		}
	}
	return out
}

func fromRecords(b boutRecord, strikes []strikeRecord, decisions []decisionRecord, rounds []roundRecord) model.Scorecard {
	sc := model.Scorecard{
		BoutID:       b.ID,
		Scores:       model.Tally{Red: b.RedScore, Blue: b.BlueScore},
		Totals:       model.Tally{Red: b.RedTotal, Blue: b.BlueTotal},
		CurrentRound: b.CurrentRound,
		InRound:      b.InRound,
		BoutOver:     b.BoutOver,
		Frames:       b.Frames,
		UpdatedAt:    b.LastUpdate,
		Events:       make([]model.StrikeEvent, len(strikes)),
		Decisions:    make([]model.RoundDecision, len(decisions)),
		Rounds:       make([]model.RoundStats, len(rounds)),
	}
	for i, s := range strikes {
		sc.Events[i] = model.StrikeEvent{
			Frame:     s.Frame,
			Timestamp: s.Timestamp,
			Role:      model.Role(s.Role),
			Hand:      model.Hand(s.Hand),
			Score:     s.Score,
		}
	}
	for i, d := range decisions {
		sc.Decisions[i] = model.RoundDecision{
			Round:      d.Round,
			RedPoints:  d.RedPoints,
			BluePoints: d.BluePoints,
			Rationale:  d.Rationale,
		}
	}
	for i, r := range rounds {
		sc.Rounds[i] = model.RoundStats{
			Round:      r.Round,
			Landed:     model.Tally{Red: r.LandedRed, Blue: r.LandedBlue},
			Knockdowns: model.Tally{Red: r.KnockdownsRed, Blue: r.KnockdownsBlue},
			Deductions: model.Tally{Red: r.DeductionsRed, Blue: r.DeductionsBlue},
		}
	}
	return sc
}
