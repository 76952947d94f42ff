// Package parse turns reconstructed report lines into candidate measurement
// rows. Every strategy is a pure function of its input; overlapping output is
// resolved later by the scorer.
package parse

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// Input is what every strategy sees.
type Input struct {
	Lines []string
	Pages []entity.Page
}

// NewInput derives strategy input from a document.
func NewInput(doc entity.Document) Input {
	return Input{Lines: doc.Lines(), Pages: doc.Pages}
}

// Strategy proposes candidate rows from the input.
type Strategy interface {
	Name() string
	Parse(in Input) []entity.CandidateRow
}

const (
	confidenceCap = 0.95
	unitBonus     = 0.1
	rangeBonus    = 0.1

	// MinRowsBeforeLoose is the row count under which the loose strategy runs.
	MinRowsBeforeLoose = 5
)

func confidence(base float64, hasUnit, hasRange bool) float64 {
	c := base
	if hasUnit {
		c += unitBonus
	}
	if hasRange {
		c += rangeBonus
	}
	if c > confidenceCap {
		c = confidenceCap
	}
	return c
}

func row(strategy string, base float64, label string, t tail) entity.CandidateRow {
	return entity.CandidateRow{
		Label:      label,
		Value:      t.value,
		Unit:       t.unit,
		RefMin:     t.min,
		RefMax:     t.max,
		Confidence: confidence(base, t.unit != "", t.hasRange()),
		Strategy:   strategy,
		Origin:     entity.OriginLocal,
	}
}

// DefaultStrategies returns the standard strategies in registration order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		LineStrategy{},
		RightAnchoredStrategy{},
		MultilineStrategy{},
		ColumnStrategy{},
		IndexedStrategy{},
		KeywordRangeStrategy{},
		FixedTableStrategy{},
		SpatialStrategy{},
	}
}

// Stats counts rows produced per strategy.
type Stats struct {
	PerStrategy map[string]int
	LooseUsed   bool
	Total       int
}

// Runner executes strategies concurrently and concatenates their output in
// registration order, so results do not depend on scheduling.
type Runner struct {
	strategies []Strategy
	loose      Strategy
	minRows    int
	logger     *slog.Logger
}

// NewRunner creates a runner. A nil strategies slice uses DefaultStrategies.
func NewRunner(strategies []Strategy, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if strategies == nil {
		strategies = DefaultStrategies()
	}
	return &Runner{strategies: strategies, loose: LooseStrategy{}, minRows: MinRowsBeforeLoose, logger: logger}
}

// RunAll runs every strategy, then the loose strategy when too few rows were found.
func (r *Runner) RunAll(ctx context.Context, in Input) ([]entity.CandidateRow, Stats) {
	start := time.Now()
	results := make([][]entity.CandidateRow, len(r.strategies))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range r.strategies {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.Parse(in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Warn("parse.run_all.cancelled", "error", err)
	}

	stats := Stats{PerStrategy: make(map[string]int, len(r.strategies)+1)}
	var rows []entity.CandidateRow
	for i, s := range r.strategies {
		stats.PerStrategy[s.Name()] = len(results[i])
		rows = append(rows, results[i]...)
	}
	if len(rows) < r.minRows && r.loose != nil {
		extra := r.loose.Parse(in)
		stats.PerStrategy[r.loose.Name()] = len(extra)
		stats.LooseUsed = true
		rows = append(rows, extra...)
	}
	stats.Total = len(rows)

	r.logger.Debug("parse.run_all.done",
		"lines", len(in.Lines),
		"rows", stats.Total,
		"loose_used", stats.LooseUsed,
		"elapsed_ms", time.Since(start).Milliseconds())
	return rows, stats
}
