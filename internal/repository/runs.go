package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// RunRepository stores the extraction run ledger.
type RunRepository interface {
	Start(ctx context.Context, run *entity.ExtractionRun) error
	Finish(ctx context.Context, run *entity.ExtractionRun) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ExtractionRun, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.ExtractionRun, error)
	LatestByContentHash(ctx context.Context, hash string) (*entity.ExtractionRun, error)
}

type runRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{db: db, log: log}
}

const runColumns = `id, source_file_name, content_hash, status, provider, model, confidence,
	needs_review, warnings, measurement_count, test_date, error_message, started_at, finished_at`

func (r *runRepo) Start(ctx context.Context, run *entity.ExtractionRun) error {
	q := r.db.rebind(`INSERT INTO extraction_runs (id, source_file_name, content_hash, status, started_at)
		VALUES (?, ?, ?, ?, ?)`)
	_, err := r.db.SQL.ExecContext(ctx, q,
		run.ID.String(), run.SourceFileName, run.ContentHash, run.Status, r.db.timeArg(run.StartedAt))
	if err != nil {
		r.log.Error("extraction_run start failed", "run_id", run.ID, "err", err)
		return fmt.Errorf("insert run: %w: %w", common.ErrDatabase, err)
	}
	r.log.Debug("extraction_run started", "run_id", run.ID, "file", run.SourceFileName)
	return nil
}

func (r *runRepo) Finish(ctx context.Context, run *entity.ExtractionRun) error {
	warnings, err := json.Marshal(nonNil(run.Warnings))
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}
	var finished any
	if run.FinishedAt != nil {
		finished = r.db.timeArg(*run.FinishedAt)
	}
	q := r.db.rebind(`UPDATE extraction_runs SET
		status = ?, provider = ?, model = ?, confidence = ?, needs_review = ?, warnings = ?,
		measurement_count = ?, test_date = ?, error_message = ?, finished_at = ?
		WHERE id = ?`)
	res, err := r.db.SQL.ExecContext(ctx, q,
		run.Status, nullable(run.Provider), nullable(run.Model), nullable(run.Confidence), run.NeedsReview, string(warnings),
		run.MeasurementCount, nullable(run.TestDate), nullable(run.ErrorMessage), finished,
		run.ID.String())
	if err != nil {
		r.log.Error("extraction_run finish failed", "run_id", run.ID, "err", err)
		return fmt.Errorf("update run: %w: %w", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("NOT_FOUND", "extraction run "+run.ID.String(), common.ErrNotFound)
	}
	r.log.Info("extraction_run finished", "run_id", run.ID, "status", run.Status)
	return nil
}

func (r *runRepo) Get(ctx context.Context, id uuid.UUID) (*entity.ExtractionRun, error) {
	q := r.db.rebind(`SELECT ` + runColumns + ` FROM extraction_runs WHERE id = ?`)
	run, err := scanRun(r.db.SQL.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "extraction run "+id.String(), common.ErrNotFound)
	}
	return run, err
}

func (r *runRepo) LatestByContentHash(ctx context.Context, hash string) (*entity.ExtractionRun, error) {
	q := r.db.rebind(`SELECT ` + runColumns + ` FROM extraction_runs
		WHERE content_hash = ? AND finished_at IS NOT NULL
		ORDER BY started_at DESC LIMIT 1`)
	run, err := scanRun(r.db.SQL.QueryRowContext(ctx, q, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "no run for content hash", common.ErrNotFound)
	}
	return run, err
}

func (r *runRepo) ListRecent(ctx context.Context, limit int) ([]*entity.ExtractionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.db.rebind(`SELECT ` + runColumns + ` FROM extraction_runs ORDER BY started_at DESC LIMIT ?`)
	rows, err := r.db.SQL.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.ExtractionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*entity.ExtractionRun, error) {
	var (
		id                string
		provider, model   sql.NullString
		testDate, errMsg  sql.NullString
		confidence        sql.NullFloat64
		warnings          string
		started, finished dbTime
		run               entity.ExtractionRun
	)
	err := s.Scan(&id, &run.SourceFileName, &run.ContentHash, &run.Status, &provider, &model, &confidence,
		&run.NeedsReview, &warnings, &run.MeasurementCount, &testDate, &errMsg, &started, &finished)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	if warnings != "" {
		if err := json.Unmarshal([]byte(warnings), &run.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings: %w", err)
		}
	}
	run.Provider = nullString(provider)
	run.Model = nullString(model)
	run.TestDate = nullString(testDate)
	run.ErrorMessage = nullString(errMsg)
	if confidence.Valid {
		run.Confidence = &confidence.Float64
	}
	run.StartedAt = started.Time
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

// dbTime scans TIMESTAMPTZ values and RFC 3339 text columns alike.
type dbTime struct {
	Time  time.Time
	Valid bool
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = dbTime{}
		return nil
	case time.Time:
		*t = dbTime{Time: v.UTC(), Valid: true}
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	}
	return fmt.Errorf("unsupported time value %T", src)
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse time %q: %w", s, err)
	}
	*t = dbTime{Time: parsed.UTC(), Valid: true}
	return nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nonNil(ws []string) []string {
	if ws == nil {
		return []string{}
	}
	return ws
}
