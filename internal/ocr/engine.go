package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/textlayer"
)

// Config bounds the OCR fallback.
type Config struct {
	MaxPages     int           // pages beyond this are ignored
	PrimaryDPI   int           // default 300
	FallbackDPI  int           // used for the single retry, default 200
	PageTimeout  time.Duration // per page, per attempt
	TotalTimeout time.Duration // whole document
	Layout       textlayer.Config
}

// DefaultConfig returns the production OCR budget.
func DefaultConfig() Config {
	return Config{
		MaxPages:     6,
		PrimaryDPI:   300,
		FallbackDPI:  200,
		PageTimeout:  25 * time.Second,
		TotalTimeout: 90 * time.Second,
		Layout:       textlayer.DefaultConfig(),
	}
}

// Result summarizes an OCR run. It is always returned, even when nothing
// could be recognized.
type Result struct {
	Text       string
	Pages      []entity.Page
	Attempted  int
	Succeeded  int
	Failed     int
	InitFailed bool
	TimedOut   bool
	Confidence float64
	Engine     string
}

// Partial reports whether some but not all attempted pages failed.
func (r Result) Partial() bool {
	return r.Succeeded > 0 && r.Failed > 0
}

// Engine rasterizes pages and recognizes them sequentially within a budget.
type Engine struct {
	cfg        Config
	renderer   Renderer
	recognizer Recognizer
	logger     *slog.Logger
}

// NewEngine creates an OCR engine.
func NewEngine(cfg Config, renderer Renderer, recognizer Recognizer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.PrimaryDPI <= 0 {
		cfg.PrimaryDPI = def.PrimaryDPI
	}
	if cfg.FallbackDPI <= 0 {
		cfg.FallbackDPI = def.FallbackDPI
	}
	if cfg.Layout.RowTolerance <= 0 {
		cfg.Layout = def.Layout
	}
	return &Engine{cfg: cfg, renderer: renderer, recognizer: recognizer, logger: logger}
}

// Run recognizes up to MaxPages pages of the PDF in data. Engine or
// rasterizer initialization failures set InitFailed and return no text.
func (e *Engine) Run(ctx context.Context, data []byte) Result {
	start := time.Now()
	res := Result{Engine: e.recognizer.Name()}

	if err := e.recognizer.Init(ctx); err != nil {
		e.logger.Warn("ocr.init.failed", "engine", res.Engine, "error", err)
		res.InitFailed = true
		return res
	}

	path, cleanup, err := writeTemp(data)
	if err != nil {
		e.logger.Warn("ocr.init.failed", "engine", res.Engine, "error", err)
		res.InitFailed = true
		return res
	}
	defer cleanup()

	totalCtx, cancel := withBudget(ctx, e.cfg.TotalTimeout)
	defer cancel()

	count, err := e.renderer.PageCount(totalCtx, path)
	if err != nil {
		e.logger.Warn("ocr.init.failed", "engine", res.Engine, "stage", "page_count", "error", err)
		res.InitFailed = true
		return res
	}
	limit := min(count, e.cfg.MaxPages)
	e.logger.Info("ocr.start", "engine", res.Engine, "pages", count, "limit", limit)

	var texts []string
	var confSum float64
	for p := 1; p <= limit; p++ {
		if totalCtx.Err() != nil {
			res.TimedOut = true
			res.Failed += limit - p + 1
			e.logger.Warn("ocr.budget.exhausted", "remaining_pages", limit-p+1)
			break
		}
		res.Attempted++
		page, rec, ok, timedOut := e.runPage(totalCtx, path, p)
		if !ok {
			res.Failed++
			if timedOut || totalCtx.Err() != nil {
				res.TimedOut = true
			}
			continue
		}
		res.Succeeded++
		res.Pages = append(res.Pages, page)
		texts = append(texts, rec.Text)
		conf := rec.Confidence
		if conf == 0 {
			conf = heuristicConfidence(rec.Text)
		}
		confSum += conf
	}

	res.Text = Normalize(strings.Join(texts, "\n\n"))
	if res.Succeeded > 0 {
		res.Confidence = confSum / float64(res.Succeeded)
	}
	e.logger.Info("ocr.done",
		"engine", res.Engine,
		"attempted", res.Attempted,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"timed_out", res.TimedOut,
		"confidence", res.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds())
	return res
}

// runPage tries the primary DPI, then retries once at the fallback DPI.
// timedOut reports whether any attempt ran out of its page budget.
func (e *Engine) runPage(ctx context.Context, path string, page int) (_ entity.Page, _ Recognition, ok, timedOut bool) {
	for attempt, dpi := range []int{e.cfg.PrimaryDPI, e.cfg.FallbackDPI} {
		if ctx.Err() != nil {
			break
		}
		pageCtx, cancel := withBudget(ctx, e.cfg.PageTimeout)
		rec, err := e.recognizePage(pageCtx, path, page, dpi)
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			timedOut = true
		}
		cancel()
		if err == nil && strings.TrimSpace(rec.Text) != "" {
			return e.toPage(page, rec), rec, true, timedOut
		}
		e.logger.Warn("ocr.page.failed",
			"page", page,
			"dpi", dpi,
			"attempt", attempt+1,
			"error", err,
			"empty", err == nil)
	}
	return entity.Page{}, Recognition{}, false, timedOut
}

func (e *Engine) recognizePage(ctx context.Context, path string, page, dpi int) (Recognition, error) {
	type outcome struct {
		rec Recognition
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		img, err := e.renderer.Render(ctx, path, page, dpi)
		if err != nil {
			ch <- outcome{err: err}
			return
		}
		rec, err := e.recognizer.Recognize(ctx, img, dpi)
		ch <- outcome{rec: rec, err: err}
	}()
	select {
	case <-ctx.Done():
		return Recognition{}, fmt.Errorf("page %d at %d dpi: %w", page, dpi, ctx.Err())
	case o := <-ch:
		return o.rec, o.err
	}
}

func (e *Engine) toPage(number int, rec Recognition) entity.Page {
	page := entity.Page{Number: number, FromOCR: true}
	if len(rec.Words) > 0 {
		frags := make([]entity.Fragment, len(rec.Words))
		for i, w := range rec.Words {
			w.Text = FixNumberArtifacts(w.Text)
			frags[i] = w
		}
		page.Fragments = frags
		page.Lines = textlayer.Lines(e.cfg.Layout, frags)
		return page
	}
	for i, ln := range strings.Split(Normalize(rec.Text), "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		page.Lines = append(page.Lines, entity.Line{Y: float64(i), Text: ln})
	}
	return page
}

func withBudget(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func writeTemp(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "lt-ocr-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("create temp pdf: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp pdf: %w", err)
	}
	return f.Name(), cleanup, nil
}
