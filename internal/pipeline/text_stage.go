package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/ocr"
	"github.com/joseph-ayodele/labs-tracker/internal/textlayer"
)

// TextReader reads the embedded text layer of a document.
type TextReader interface {
	Read(ctx context.Context, data []byte) (entity.Document, error)
}

// OCRRunner recognizes page images when the text layer is too thin.
type OCRRunner interface {
	Run(ctx context.Context, data []byte) ocr.Result
}

// TextOutcome summarizes the READ_TEXT and OCR_FALLBACK states.
type TextOutcome struct {
	Document  entity.Document
	TextItems int
	OCRUsed   bool
	OCRPages  int
	Warnings  []constants.Warning
	// Err is common.ErrNoExtractableText when neither the text layer nor OCR
	// produced any characters.
	Err error
}

// TextStage reads the text layer and falls back to OCR for sparse documents.
// OCR pages are appended to the text layer, never substituted for it.
type TextStage struct {
	Reader TextReader
	OCR    OCRRunner
	Sparse textlayer.SparseThresholds
	Logger *slog.Logger
}

func NewTextStage(reader TextReader, ocrRunner OCRRunner, sparse textlayer.SparseThresholds, logger *slog.Logger) *TextStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextStage{Reader: reader, OCR: ocrRunner, Sparse: sparse, Logger: logger}
}

func (s *TextStage) Run(ctx context.Context, data []byte) TextOutcome {
	out := s.run(ctx, data)
	if out.Document.CharCount() == 0 {
		out.Err = common.ErrNoExtractableText
		s.Logger.Warn("pipeline.text.empty", "warnings", out.Warnings, "error", out.Err)
	}
	return out
}

func (s *TextStage) run(ctx context.Context, data []byte) TextOutcome {
	start := time.Now()
	var out TextOutcome

	doc, err := s.Reader.Read(ctx, data)
	switch {
	case err != nil:
		s.Logger.Warn("pipeline.text.failed", "error", err)
		out.Warnings = append(out.Warnings, constants.WarningTextExtractionFailed)
		doc = entity.Document{}
	case doc.FragmentCount() == 0:
		out.Warnings = append(out.Warnings, constants.WarningEmptyTextLayer)
	}
	out.TextItems = doc.FragmentCount()
	out.Document = doc

	if !textlayer.NeedsOCR(doc, s.Sparse) {
		s.Logger.Debug("pipeline.text.ok", "items", out.TextItems, "elapsed_ms", time.Since(start).Milliseconds())
		return out
	}

	if s.OCR == nil {
		s.Logger.Warn("pipeline.ocr.disabled")
		out.Warnings = append(out.Warnings, constants.WarningOCRInitFailed)
		return out
	}

	s.Logger.Info("pipeline.ocr.start", "text_items", out.TextItems)
	res := s.OCR.Run(ctx, data)
	switch {
	case res.InitFailed:
		out.Warnings = append(out.Warnings, constants.WarningOCRInitFailed)
	case res.TimedOut:
		out.Warnings = append(out.Warnings, constants.WarningOCRTimedOut)
	case res.Failed > 0:
		out.Warnings = append(out.Warnings, constants.WarningOCRPartial)
	}
	if len(res.Pages) > 0 {
		out.Document = doc.Append(res.Pages...)
		out.OCRUsed = true
		out.OCRPages = len(res.Pages)
	}

	s.Logger.Info("pipeline.ocr.done",
		"engine", res.Engine,
		"pages", out.OCRPages,
		"failed", res.Failed,
		"init_failed", res.InitFailed,
		"timed_out", res.TimedOut,
		"elapsed_ms", time.Since(start).Milliseconds())
	return out
}
