// Package pipeline sequences one extraction run: text layer, OCR fallback,
// parsing, scoring, the quality gate and optional remote assistance.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/markers"
	"github.com/joseph-ayodele/labs-tracker/internal/scoring"
	"github.com/joseph-ayodele/labs-tracker/internal/textlayer"
)

// LocalModel identifies the built-in parser in extraction metadata.
const LocalModel = "labs-tracker-local/1"

var reISODate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Config holds thresholds and behavior flags for the processor.
type Config struct {
	Gate         scoring.GateConfig
	IncludeDebug bool
}

// Processor coordinates the stages of one extraction run.
type Processor struct {
	cfg      Config
	text     *TextStage
	parse    *ParseStage
	remote   *RemoteStage
	recorder RunRecorder
	logger   *slog.Logger
}

// NewProcessor wires the stages. remote and recorder may be nil.
func NewProcessor(cfg Config, text *TextStage, parse *ParseStage, remote *RemoteStage, recorder RunRecorder, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Gate == (scoring.GateConfig{}) {
		cfg.Gate = scoring.DefaultGateConfig()
	}
	if text == nil {
		text = NewTextStage(textlayer.NewReader(textlayer.DefaultConfig(), logger), nil, textlayer.DefaultSparseThresholds(), logger)
	}
	if parse == nil {
		parse = NewParseStage(nil, nil, logger)
	}
	return &Processor{cfg: cfg, text: text, parse: parse, remote: remote, recorder: recorder, logger: logger}
}

// Extract runs the full state sequence for one upload and always returns a
// draft. The only error is a remote rate limit, which wraps
// common.ErrRemoteRateLimited and carries a retry hint.
func (p *Processor) Extract(ctx context.Context, fileName string, data []byte) (draft entity.ExtractionDraft, err error) {
	start := time.Now()
	run := p.startRun(ctx, fileName, data)
	ctx = common.WithRunID(ctx, run.ID.String())
	logger := p.logger.With("run_id", run.ID.String(), "file", fileName)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline.panic", "panic", r, "stack", string(debug.Stack()))
			draft = p.internalErrorDraft(fileName)
			err = nil
			run.ErrorMessage = strPtr(fmt.Sprint(r))
		}
		p.finishRun(ctx, run, draft, err)
		logger.Info("pipeline.extract.done",
			"markers", len(draft.Markers),
			"provider", draft.Extraction.Provider,
			"needs_review", draft.Extraction.NeedsReview,
			"warning", draft.Extraction.WarningCode,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
	}()

	text := p.text.Run(ctx, data)
	warnings := append([]constants.Warning(nil), text.Warnings...)

	local := p.parse.Run(ctx, text.Document)
	today := p.parse.Dates.Today()
	gate := p.cfg.Gate.Evaluate(local.Measurements, local.Date, today)
	logger.Info("pipeline.gate",
		"accepted", gate.Accepted,
		"measurements", gate.Measurements,
		"mean_confidence", gate.MeanConfidence,
		"important", gate.ImportantMarkers,
		"date_valid", gate.DateValid)

	final := local.Measurements
	provider, model := constants.ProviderLocal, LocalModel
	testDate, dateFound := local.Date.ISO, local.Date.Found
	diag := local.Diagnostics

	switch {
	case gate.Accepted:
	case p.remote == nil || p.remote.Extractor == nil:
		warnings = append(warnings, constants.WarningLowConfidenceLocal)
	default:
		rem, rerr := p.remote.Run(ctx, fileName, text.Document, data)
		if errors.Is(rerr, common.ErrRemoteRateLimited) {
			return entity.ExtractionDraft{}, rerr
		}
		if rerr != nil {
			warnings = append(warnings, constants.WarningLowConfidenceLocal, constants.WarningRemoteUnavailable)
			break
		}
		final = scoring.Merge(local.Measurements, rem.Measurements)
		provider, model = constants.ProviderMerged, rem.Model
		diag = mergeDiagnostics(local.Diagnostics, rem.Diagnostics)
		if !dateFound && reISODate.MatchString(rem.TestDate) && rem.TestDate != today {
			testDate, dateFound = rem.TestDate, true
		}
	}

	if !dateFound {
		warnings = append(warnings, constants.WarningDateNotFound)
	}
	warnings = uniqueWarnings(warnings)

	conf := markers.Round(entity.MeanConfidence(final))
	meta := entity.ExtractionMeta{
		Provider:    provider,
		Model:       model,
		Confidence:  conf,
		NeedsReview: len(warnings) > 0 || conf < p.cfg.Gate.MinConfidence || len(final) == 0,
		Warnings:    warnings,
	}
	if w, ok := constants.PrimaryWarning(warnings); ok {
		meta.WarningCode = w
	}
	if p.cfg.IncludeDebug {
		meta.Debug = &entity.ExtractionDebug{
			TextItems:        text.TextItems,
			OCRUsed:          text.OCRUsed,
			OCRPages:         text.OCRPages,
			KeptRows:         len(final),
			RejectedRows:     diag.Rejected,
			TopRejectReasons: diag.TopReasons(),
		}
	}

	return entity.ExtractionDraft{
		SourceFileName: fileName,
		TestDate:       testDate,
		Markers:        final,
		Extraction:     meta,
	}, nil
}

func (p *Processor) internalErrorDraft(fileName string) entity.ExtractionDraft {
	return entity.ExtractionDraft{
		SourceFileName: fileName,
		TestDate:       p.parse.Dates.Today(),
		Markers:        []entity.Measurement{},
		Extraction: entity.ExtractionMeta{
			Provider:    constants.ProviderLocal,
			Model:       LocalModel,
			NeedsReview: true,
			WarningCode: constants.WarningInternalError,
			Warnings:    []constants.Warning{constants.WarningInternalError},
		},
	}
}

func mergeDiagnostics(a, b scoring.Diagnostics) scoring.Diagnostics {
	out := scoring.Diagnostics{
		Considered: a.Considered + b.Considered,
		Kept:       a.Kept + b.Kept,
		Rejected:   a.Rejected + b.Rejected,
		Reasons:    make(map[scoring.Reason]int, len(a.Reasons)+len(b.Reasons)),
	}
	for r, n := range a.Reasons {
		out.Reasons[r] += n
	}
	for r, n := range b.Reasons {
		out.Reasons[r] += n
	}
	return out
}

func uniqueWarnings(ws []constants.Warning) []constants.Warning {
	seen := make(map[constants.Warning]struct{}, len(ws))
	out := make([]constants.Warning, 0, len(ws))
	for _, w := range ws {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func strPtr(s string) *string { return &s }
