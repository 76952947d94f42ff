package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/dates"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/ocr"
	"github.com/joseph-ayodele/labs-tracker/internal/remote"
	"github.com/joseph-ayodele/labs-tracker/internal/textlayer"
)

type fakeReader struct {
	doc   entity.Document
	err   error
	panic bool
}

func (f fakeReader) Read(context.Context, []byte) (entity.Document, error) {
	if f.panic {
		panic("boom")
	}
	return f.doc, f.err
}

type fakeOCR struct {
	res   ocr.Result
	calls int
}

func (f *fakeOCR) Run(context.Context, []byte) ocr.Result {
	f.calls++
	return f.res
}

type fakeRemote struct {
	resp  remote.Response
	err   error
	calls int
}

func (f *fakeRemote) Extract(context.Context, remote.Request) (remote.Response, error) {
	f.calls++
	return f.resp, f.err
}

type memRecorder struct {
	mu       sync.Mutex
	started  []entity.ExtractionRun
	finished []entity.ExtractionRun
}

func (m *memRecorder) Start(_ context.Context, run *entity.ExtractionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, *run)
	return nil
}

func (m *memRecorder) Finish(_ context.Context, run *entity.ExtractionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, *run)
	return nil
}

const today = "2024-06-01"

func docFromLines(lines ...string) entity.Document {
	page := entity.Page{Number: 1, Width: 600, Height: 800}
	for i, l := range lines {
		y := float64(i * 14)
		f := entity.Fragment{X: 40, Y: y, W: float64(len(l)) * 5, H: 10, Text: l}
		page.Fragments = append(page.Fragments, f)
		page.Lines = append(page.Lines, entity.Line{Y: y, Text: l, Fragments: []entity.Fragment{f}})
	}
	return entity.Document{Pages: []entity.Page{page}}
}

func newTestProcessor(reader TextReader, o OCRRunner, ext remote.Extractor, rec RunRecorder) *Processor {
	clock := func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	text := NewTextStage(reader, o, textlayer.SparseThresholds{MinCharsPerPage: 1, MinFragmentsPerPage: 1}, nil)
	parse := NewParseStage(nil, dates.NewEngine(clock), nil)
	var rs *RemoteStage
	if ext != nil {
		rs = NewRemoteStage(ext, false, nil)
	}
	return NewProcessor(Config{IncludeDebug: true}, text, parse, rs, rec, nil)
}

var goodReport = []string{
	"Sample collection date: 12-03-2024",
	"Testosterone 18.5 nmol/L 8.6 - 29.0",
	"SHBG 30 nmol/L 18 - 54",
	"Estradiol 90 pmol/L 40 - 160",
	"Hematocrit 0.45 L/L 0.40 - 0.50",
	"TSH 2.1 mIU/L 0.4 - 4.0",
	"Glucose 5.2 mmol/L 3.9 - 6.1",
}

func TestExtractCleanSingleLine(t *testing.T) {
	p := newTestProcessor(fakeReader{doc: docFromLines("Testosterone 22.4 nmol/L 8.0 - 29.0")}, nil, nil, nil)

	draft, err := p.Extract(context.Background(), "report.pdf", []byte("%PDF"))
	require.NoError(t, err)

	require.Len(t, draft.Markers, 1)
	m := draft.Markers[0]
	assert.Equal(t, "Testosterone", m.CanonicalMarker)
	assert.Equal(t, 22.4, m.Value)
	assert.Equal(t, "nmol/L", m.Unit)
	assert.Equal(t, 8.0, *m.ReferenceMin)
	assert.Equal(t, 29.0, *m.ReferenceMax)
	assert.Equal(t, entity.AbnormalNormal, m.Abnormal)

	assert.Equal(t, "report.pdf", draft.SourceFileName)
	assert.Equal(t, today, draft.TestDate)
	assert.Equal(t, constants.ProviderLocal, draft.Extraction.Provider)
	assert.True(t, draft.Extraction.NeedsReview)
	assert.Contains(t, draft.Extraction.Warnings, constants.WarningLowConfidenceLocal)
	assert.Contains(t, draft.Extraction.Warnings, constants.WarningDateNotFound)
}

func TestExtractKeywordRangeHematocrit(t *testing.T) {
	line := "Hematocrit Uw waarde: 0.52 Normale waarde: Hoger dan 0.40 - Lager dan 0.52"
	p := newTestProcessor(fakeReader{doc: docFromLines(line)}, nil, nil, nil)

	draft, err := p.Extract(context.Background(), "hct.pdf", nil)
	require.NoError(t, err)

	require.Len(t, draft.Markers, 1)
	m := draft.Markers[0]
	assert.Equal(t, "Hematocrit", m.CanonicalMarker)
	assert.Equal(t, "%", m.Unit)
	assert.Equal(t, 52.0, m.Value)
	assert.Equal(t, 40.0, *m.ReferenceMin)
	assert.Equal(t, 52.0, *m.ReferenceMax)
	assert.Equal(t, entity.AbnormalNormal, m.Abnormal)
}

func TestExtractEmptyTextLayerAndOCRFailure(t *testing.T) {
	o := &fakeOCR{res: ocr.Result{InitFailed: true, Engine: "fake"}}
	p := newTestProcessor(fakeReader{doc: entity.Document{}}, o, nil, nil)

	draft, err := p.Extract(context.Background(), "scan.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, 1, o.calls)
	assert.Empty(t, draft.Markers)
	assert.NotNil(t, draft.Markers)
	assert.True(t, draft.Extraction.NeedsReview)
	assert.Contains(t, draft.Extraction.Warnings, constants.WarningEmptyTextLayer)
	assert.Contains(t, draft.Extraction.Warnings, constants.WarningOCRInitFailed)
	assert.Equal(t, constants.WarningOCRInitFailed, draft.Extraction.WarningCode)
	require.NotNil(t, draft.Extraction.Debug)
	assert.False(t, draft.Extraction.Debug.OCRUsed)
}

func TestExtractAppendsPartialOCR(t *testing.T) {
	ocrPage := docFromLines("SHBG 30 nmol/L 18 - 54").Pages[0]
	ocrPage.FromOCR = true
	o := &fakeOCR{res: ocr.Result{Pages: []entity.Page{ocrPage}, Attempted: 2, Succeeded: 1, Failed: 1}}
	p := newTestProcessor(fakeReader{doc: entity.Document{}}, o, nil, nil)

	draft, err := p.Extract(context.Background(), "scan.pdf", nil)
	require.NoError(t, err)

	require.Len(t, draft.Markers, 1)
	assert.Equal(t, "SHBG", draft.Markers[0].CanonicalMarker)
	assert.Contains(t, draft.Extraction.Warnings, constants.WarningEmptyTextLayer)
	assert.Contains(t, draft.Extraction.Warnings, constants.WarningOCRPartial)
	assert.True(t, draft.Extraction.Debug.OCRUsed)
	assert.Equal(t, 1, draft.Extraction.Debug.OCRPages)
}

func TestExtractReportsOCRPageTimeout(t *testing.T) {
	ocrPage := docFromLines("SHBG 30 nmol/L 18 - 54").Pages[0]
	ocrPage.FromOCR = true
	o := &fakeOCR{res: ocr.Result{Pages: []entity.Page{ocrPage}, Attempted: 2, Succeeded: 1, Failed: 1, TimedOut: true}}
	p := newTestProcessor(fakeReader{doc: entity.Document{}}, o, nil, nil)

	draft, err := p.Extract(context.Background(), "scan.pdf", nil)
	require.NoError(t, err)

	require.Len(t, draft.Markers, 1)
	assert.Contains(t, draft.Extraction.Warnings, constants.WarningOCRTimedOut)
	assert.NotContains(t, draft.Extraction.Warnings, constants.WarningOCRPartial)
}

func TestTextStageReportsNoExtractableText(t *testing.T) {
	stage := NewTextStage(fakeReader{doc: entity.Document{}}, &fakeOCR{res: ocr.Result{InitFailed: true}},
		textlayer.SparseThresholds{MinCharsPerPage: 1, MinFragmentsPerPage: 1}, nil)

	out := stage.Run(context.Background(), nil)
	assert.ErrorIs(t, out.Err, common.ErrNoExtractableText)
	assert.Contains(t, out.Warnings, constants.WarningOCRInitFailed)

	stage = NewTextStage(fakeReader{doc: docFromLines("TSH 2.1 mIU/L")}, nil, textlayer.SparseThresholds{}, nil)
	assert.NoError(t, stage.Run(context.Background(), nil).Err)
}

func TestExtractTextFailureIsWarning(t *testing.T) {
	o := &fakeOCR{res: ocr.Result{InitFailed: true}}
	p := newTestProcessor(fakeReader{err: errors.New("malformed xref")}, o, nil, nil)

	draft, err := p.Extract(context.Background(), "bad.pdf", nil)
	require.NoError(t, err)
	assert.Contains(t, draft.Extraction.Warnings, constants.WarningTextExtractionFailed)
	assert.Equal(t, constants.WarningTextExtractionFailed, draft.Extraction.WarningCode)
}

func TestExtractGateAcceptsWithoutRemote(t *testing.T) {
	ext := &fakeRemote{}
	rec := &memRecorder{}
	p := newTestProcessor(fakeReader{doc: docFromLines(goodReport...)}, nil, ext, rec)

	draft, err := p.Extract(context.Background(), "full.pdf", []byte("%PDF-full"))
	require.NoError(t, err)

	assert.Equal(t, 0, ext.calls)
	assert.Len(t, draft.Markers, 6)
	assert.Equal(t, "2024-03-12", draft.TestDate)
	assert.Equal(t, constants.ProviderLocal, draft.Extraction.Provider)
	assert.Equal(t, LocalModel, draft.Extraction.Model)
	assert.Empty(t, draft.Extraction.Warnings)
	assert.Empty(t, draft.Extraction.WarningCode)
	assert.False(t, draft.Extraction.NeedsReview)
	assert.Greater(t, draft.Extraction.Confidence, 0.65)

	require.Len(t, rec.started, 1)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, string(constants.RunStatusRunning), rec.started[0].Status)
	assert.Equal(t, string(constants.RunStatusAccepted), rec.finished[0].Status)
	assert.Equal(t, 6, rec.finished[0].MeasurementCount)
	assert.Equal(t, contentHash([]byte("%PDF-full")), rec.finished[0].ContentHash)
	assert.NotNil(t, rec.finished[0].FinishedAt)
}

func TestExtractMergesRemoteWhenGateFails(t *testing.T) {
	ext := &fakeRemote{resp: remote.Response{
		ModelIdentifier: "remote-model",
		Variant:         "v2",
		Markers: []remote.Marker{
			{Marker: "Testosterone", Value: 18.5, Unit: "nmol/L", ReferenceMin: entity.Float(8.6), ReferenceMax: entity.Float(29), Confidence: entity.Float(0.95)},
			{Marker: "Estradiol", Value: 90, Unit: "pmol/L"},
			{Marker: "TSH", Value: 2.1, Unit: "mIU/L"},
			{Marker: "Glucose", Value: 5.2, Unit: "mmol/L"},
			{Marker: "Something odd", Value: 5},
		},
	}}
	rec := &memRecorder{}
	p := newTestProcessor(fakeReader{doc: docFromLines(goodReport[:3]...)}, nil, ext, rec)

	draft, err := p.Extract(context.Background(), "partial.pdf", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, ext.calls)
	assert.Equal(t, constants.ProviderMerged, draft.Extraction.Provider)
	assert.Equal(t, "remote-model", draft.Extraction.Model)
	require.Len(t, draft.Markers, 5)
	assert.Equal(t, "Testosterone", draft.Markers[0].CanonicalMarker)
	assert.Equal(t, 1.0, draft.Markers[0].Confidence)
	assert.Empty(t, draft.Extraction.Warnings)
	assert.False(t, draft.Extraction.NeedsReview)
	assert.GreaterOrEqual(t, draft.Extraction.Debug.RejectedRows, 1)
	assert.Equal(t, string(constants.RunStatusMerged), rec.finished[0].Status)
}

func TestExtractUsesRemoteDateWhenLocalMissing(t *testing.T) {
	ext := &fakeRemote{resp: remote.Response{ModelIdentifier: "m", TestDate: "2024-02-20"}}
	p := newTestProcessor(fakeReader{doc: docFromLines("SHBG 30 nmol/L 18 - 54")}, nil, ext, nil)

	draft, err := p.Extract(context.Background(), "x.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-20", draft.TestDate)
	assert.NotContains(t, draft.Extraction.Warnings, constants.WarningDateNotFound)
}

func TestExtractRemoteFailureFallsBackToLocal(t *testing.T) {
	ext := &fakeRemote{err: errors.New("connection refused")}
	p := newTestProcessor(fakeReader{doc: docFromLines(goodReport[:3]...)}, nil, ext, nil)

	draft, err := p.Extract(context.Background(), "x.pdf", nil)
	require.NoError(t, err)

	assert.Equal(t, constants.ProviderLocal, draft.Extraction.Provider)
	assert.Len(t, draft.Markers, 2)
	assert.Contains(t, draft.Extraction.Warnings, constants.WarningRemoteUnavailable)
	assert.Contains(t, draft.Extraction.Warnings, constants.WarningLowConfidenceLocal)
	assert.True(t, draft.Extraction.NeedsReview)
}

func TestExtractRateLimitIsAnError(t *testing.T) {
	ext := &fakeRemote{err: &common.RateLimitedError{RetryAfter: 30 * time.Second, Variant: "v2"}}
	rec := &memRecorder{}
	p := newTestProcessor(fakeReader{doc: docFromLines(goodReport[:3]...)}, nil, ext, rec)

	draft, err := p.Extract(context.Background(), "x.pdf", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRemoteRateLimited)
	wait, ok := common.RetryAfterFrom(err)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, wait)
	assert.Empty(t, draft.Markers)

	require.Len(t, rec.finished, 1)
	assert.Equal(t, string(constants.RunStatusRateLimited), rec.finished[0].Status)
	require.NotNil(t, rec.finished[0].ErrorMessage)
}

func TestExtractRecoversFromPanic(t *testing.T) {
	rec := &memRecorder{}
	p := newTestProcessor(fakeReader{panic: true}, nil, nil, rec)

	draft, err := p.Extract(context.Background(), "x.pdf", nil)
	require.NoError(t, err)

	assert.Empty(t, draft.Markers)
	assert.NotNil(t, draft.Markers)
	assert.True(t, draft.Extraction.NeedsReview)
	assert.Equal(t, constants.WarningInternalError, draft.Extraction.WarningCode)
	assert.Equal(t, today, draft.TestDate)

	require.Len(t, rec.finished, 1)
	assert.Equal(t, string(constants.RunStatusFailed), rec.finished[0].Status)
	require.NotNil(t, rec.finished[0].ErrorMessage)
	assert.Equal(t, "boom", *rec.finished[0].ErrorMessage)
}
