package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/labs-tracker/internal/dates"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/parse"
	"github.com/joseph-ayodele/labs-tracker/internal/scoring"
)

// ParseOutcome carries local measurements and the evidence behind them.
type ParseOutcome struct {
	Measurements []entity.Measurement
	Diagnostics  scoring.Diagnostics
	Stats        parse.Stats
	Date         dates.Inference
}

// ParseStage runs every strategy, scores the candidates and infers the date.
type ParseStage struct {
	Runner *parse.Runner
	Dates  *dates.Engine
	Logger *slog.Logger
}

func NewParseStage(runner *parse.Runner, dateEngine *dates.Engine, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = parse.NewRunner(nil, logger)
	}
	if dateEngine == nil {
		dateEngine = dates.NewEngine(nil)
	}
	return &ParseStage{Runner: runner, Dates: dateEngine, Logger: logger}
}

func (s *ParseStage) Run(ctx context.Context, doc entity.Document) ParseOutcome {
	start := time.Now()
	rows, stats := s.Runner.RunAll(ctx, parse.NewInput(doc))
	ms, diag := scoring.Score(rows)
	date := s.Dates.Infer(doc.Lines())

	s.Logger.Info("pipeline.parse.done",
		"candidates", diag.Considered,
		"kept", diag.Kept,
		"rejected", diag.Rejected,
		"loose_used", stats.LooseUsed,
		"test_date", date.ISO,
		"date_found", date.Found,
		"elapsed_ms", time.Since(start).Milliseconds())
	return ParseOutcome{Measurements: ms, Diagnostics: diag, Stats: stats, Date: date}
}
