package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/remote"
	"github.com/joseph-ayodele/labs-tracker/internal/scoring"
)

// RemoteOutcome is the canonicalized remote result.
type RemoteOutcome struct {
	Measurements []entity.Measurement
	Diagnostics  scoring.Diagnostics
	Model        string
	TestDate     string
}

// RemoteStage calls the remote service and pushes its markers through the
// same canonicalization and scoring as local candidates.
type RemoteStage struct {
	Extractor    remote.Extractor
	SendDocument bool
	Logger       *slog.Logger
}

func NewRemoteStage(extractor remote.Extractor, sendDocument bool, logger *slog.Logger) *RemoteStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteStage{Extractor: extractor, SendDocument: sendDocument, Logger: logger}
}

// Run returns an error wrapping common.ErrRemoteRateLimited on rate limits;
// any other failure is returned as-is for the caller to downgrade.
func (s *RemoteStage) Run(ctx context.Context, fileName string, doc entity.Document, data []byte) (RemoteOutcome, error) {
	start := time.Now()
	req := remote.Request{FileName: fileName, Text: doc.Text()}
	if s.SendDocument {
		req.Document = data
	}

	resp, err := s.Extractor.Extract(ctx, req)
	if err != nil {
		if errors.Is(err, common.ErrRemoteRateLimited) {
			s.Logger.Warn("pipeline.remote.rate_limited", "error", err)
		} else {
			s.Logger.Warn("pipeline.remote.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		}
		return RemoteOutcome{}, err
	}

	ms, diag := scoring.Score(resp.Candidates())
	s.Logger.Info("pipeline.remote.done",
		"model", resp.ModelIdentifier,
		"variant", resp.Variant,
		"cached", resp.Cached,
		"markers", len(resp.Markers),
		"kept", diag.Kept,
		"elapsed_ms", time.Since(start).Milliseconds())
	return RemoteOutcome{Measurements: ms, Diagnostics: diag, Model: resp.ModelIdentifier, TestDate: resp.TestDate}, nil
}
