package ocr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

type fakeRenderer struct {
	pages    int
	countErr error
}

func (f *fakeRenderer) PageCount(ctx context.Context, path string) (int, error) {
	return f.pages, f.countErr
}

func (f *fakeRenderer) Render(ctx context.Context, path string, page, dpi int) ([]byte, error) {
	return []byte("page-" + strconv.Itoa(page)), nil
}

type fakeRecognizer struct {
	mu      sync.Mutex
	initErr error
	// behave decides the outcome for a page at a dpi
	behave func(ctx context.Context, page, dpi int) (Recognition, error)
	calls  []string
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Init(ctx context.Context) error { return f.initErr }

func (f *fakeRecognizer) Recognize(ctx context.Context, img []byte, dpi int) (Recognition, error) {
	page, _ := strconv.Atoi(strings.TrimPrefix(string(img), "page-"))
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("%d@%d", page, dpi))
	f.mu.Unlock()
	return f.behave(ctx, page, dpi)
}

func textPage(page int) Recognition {
	return Recognition{Text: fmt.Sprintf("Testosterone 1%d.5 nmol/L", page)}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxPages = 3
	cfg.PageTimeout = time.Second
	cfg.TotalTimeout = 5 * time.Second
	return cfg
}

func TestEngineInitFailure(t *testing.T) {
	rec := &fakeRecognizer{initErr: errors.New("no eng.traineddata")}
	e := NewEngine(testConfig(), &fakeRenderer{pages: 2}, rec, nil)

	res := e.Run(context.Background(), []byte("%PDF"))
	assert.True(t, res.InitFailed)
	assert.Empty(t, res.Text)
	assert.Zero(t, res.Attempted)
	assert.Empty(t, rec.calls)
}

func TestEnginePageCountFailureIsInitFailure(t *testing.T) {
	rec := &fakeRecognizer{behave: func(ctx context.Context, page, dpi int) (Recognition, error) { return textPage(page), nil }}
	e := NewEngine(testConfig(), &fakeRenderer{countErr: errors.New("pdfinfo missing")}, rec, nil)

	res := e.Run(context.Background(), []byte("%PDF"))
	assert.True(t, res.InitFailed)
	assert.Empty(t, res.Text)
}

func TestEngineCapsPages(t *testing.T) {
	rec := &fakeRecognizer{behave: func(ctx context.Context, page, dpi int) (Recognition, error) { return textPage(page), nil }}
	e := NewEngine(testConfig(), &fakeRenderer{pages: 10}, rec, nil)

	res := e.Run(context.Background(), []byte("%PDF"))
	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 3, res.Succeeded)
	assert.Zero(t, res.Failed)
	require.Len(t, res.Pages, 3)
	assert.True(t, res.Pages[0].FromOCR)
	assert.Equal(t, "Testosterone 11.5 nmol/L", res.Pages[0].Lines[0].Text)
	assert.Contains(t, res.Text, "Testosterone 13.5 nmol/L")
	assert.Greater(t, res.Confidence, 0.0)
}

func TestEngineRetriesAtFallbackDPI(t *testing.T) {
	rec := &fakeRecognizer{behave: func(ctx context.Context, page, dpi int) (Recognition, error) {
		if dpi == 300 {
			return Recognition{Text: "   "}, nil
		}
		return textPage(page), nil
	}}
	cfg := testConfig()
	cfg.MaxPages = 1
	e := NewEngine(cfg, &fakeRenderer{pages: 1}, rec, nil)

	res := e.Run(context.Background(), []byte("%PDF"))
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, []string{"1@300", "1@200"}, rec.calls)
}

func TestEnginePageTimeoutFailsOnlyThatPage(t *testing.T) {
	rec := &fakeRecognizer{behave: func(ctx context.Context, page, dpi int) (Recognition, error) {
		if page == 1 {
			<-ctx.Done()
			return Recognition{}, ctx.Err()
		}
		return textPage(page), nil
	}}
	cfg := testConfig()
	cfg.MaxPages = 2
	cfg.PageTimeout = 20 * time.Millisecond
	e := NewEngine(cfg, &fakeRenderer{pages: 2}, rec, nil)

	res := e.Run(context.Background(), []byte("%PDF"))
	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, res.Partial())
	assert.True(t, res.TimedOut)
	assert.Contains(t, res.Text, "Testosterone 12.5")
}

func TestEngineTotalTimeoutFailsRemainingPages(t *testing.T) {
	rec := &fakeRecognizer{behave: func(ctx context.Context, page, dpi int) (Recognition, error) {
		if page == 1 {
			return textPage(page), nil
		}
		<-ctx.Done()
		return Recognition{}, ctx.Err()
	}}
	cfg := testConfig()
	cfg.MaxPages = 5
	cfg.PageTimeout = 0
	cfg.TotalTimeout = 50 * time.Millisecond
	e := NewEngine(cfg, &fakeRenderer{pages: 5}, rec, nil)

	res := e.Run(context.Background(), []byte("%PDF"))
	assert.True(t, res.TimedOut)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, 4, res.Failed)
	assert.Contains(t, res.Text, "Testosterone 11.5")
}

func TestEngineBuildsLinesFromWordBoxes(t *testing.T) {
	rec := &fakeRecognizer{behave: func(ctx context.Context, page, dpi int) (Recognition, error) {
		return Recognition{
			Text: "SHBG 35 nmol/L",
			Words: []entity.Fragment{
				{X: 200, Y: 100, W: 15, H: 10, Text: "3O"},
				{X: 10, Y: 100, W: 30, H: 10, Text: "SHBG"},
				{X: 220, Y: 101, W: 30, H: 10, Text: "nmol/L"},
			},
			Confidence: 0.9,
		}, nil
	}}
	cfg := testConfig()
	cfg.MaxPages = 1
	e := NewEngine(cfg, &fakeRenderer{pages: 1}, rec, nil)

	res := e.Run(context.Background(), []byte("%PDF"))
	require.Len(t, res.Pages, 1)
	require.Len(t, res.Pages[0].Lines, 1)
	assert.Equal(t, "SHBG   30 nmol/L", res.Pages[0].Lines[0].Text)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
}
