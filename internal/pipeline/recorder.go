package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// RunRecorder persists the lifecycle of extraction runs. Recording failures
// never affect the extraction result.
type RunRecorder interface {
	Start(ctx context.Context, run *entity.ExtractionRun) error
	Finish(ctx context.Context, run *entity.ExtractionRun) error
}

func (p *Processor) startRun(ctx context.Context, fileName string, data []byte) *entity.ExtractionRun {
	run := &entity.ExtractionRun{
		ID:             uuid.New(),
		SourceFileName: fileName,
		ContentHash:    contentHash(data),
		Status:         string(constants.RunStatusRunning),
		StartedAt:      time.Now().UTC(),
	}
	if p.recorder == nil {
		return run
	}
	if err := p.recorder.Start(ctx, run); err != nil {
		p.logger.Warn("pipeline.run.start_failed", "run_id", run.ID, "error", err)
	}
	return run
}

func (p *Processor) finishRun(ctx context.Context, run *entity.ExtractionRun, draft entity.ExtractionDraft, err error) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = string(runStatus(draft, err, run.ErrorMessage != nil))
	if err != nil {
		run.ErrorMessage = strPtr(err.Error())
	}
	if err == nil {
		meta := draft.Extraction
		run.Provider = strPtr(meta.Provider)
		run.Model = strPtr(meta.Model)
		run.Confidence = &meta.Confidence
		run.NeedsReview = meta.NeedsReview
		run.MeasurementCount = len(draft.Markers)
		run.TestDate = strPtr(draft.TestDate)
		run.Warnings = make([]string, len(meta.Warnings))
		for i, w := range meta.Warnings {
			run.Warnings[i] = string(w)
		}
	}
	if p.recorder == nil {
		return
	}
	// Recorded even when ctx is already cancelled.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if ferr := p.recorder.Finish(writeCtx, run); ferr != nil {
		p.logger.Warn("pipeline.run.finish_failed", "run_id", run.ID, "error", ferr)
	}
}

func runStatus(draft entity.ExtractionDraft, err error, panicked bool) constants.RunStatus {
	switch {
	case errors.Is(err, common.ErrRemoteRateLimited):
		return constants.RunStatusRateLimited
	case err != nil || panicked:
		return constants.RunStatusFailed
	case draft.Extraction.Provider == constants.ProviderMerged:
		return constants.RunStatusMerged
	case draft.Extraction.NeedsReview:
		return constants.RunStatusNeedsReview
	}
	return constants.RunStatusAccepted
}
