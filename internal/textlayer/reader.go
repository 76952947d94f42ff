package textlayer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// Config tunes fragment merging and row reconstruction. Distances are in points.
type Config struct {
	RowTolerance  float64 // vertical distance within which fragments share a row
	WordGapFactor float64 // glyph gap, as a fraction of font size, that still joins a word
	WideGap       float64 // horizontal gap rendered as a wide separator
}

// DefaultConfig returns tolerances that work for typical lab report PDFs.
func DefaultConfig() Config {
	return Config{
		RowTolerance:  3.0,
		WordGapFactor: 0.3,
		WideGap:       12.0,
	}
}

// WideSeparator joins fragments separated by more than Config.WideGap.
const WideSeparator = "   "

// Reader extracts the positioned text layer of a PDF.
type Reader struct {
	cfg    Config
	logger *slog.Logger
}

// NewReader creates a text layer reader.
func NewReader(cfg Config, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RowTolerance <= 0 {
		cfg = DefaultConfig()
	}
	return &Reader{cfg: cfg, logger: logger}
}

// Read parses data and returns its text layer. Malformed input yields an
// empty document together with an error; it never panics.
func (r *Reader) Read(ctx context.Context, data []byte) (doc entity.Document, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			doc = entity.Document{}
			err = fmt.Errorf("pdf parser panic: %v", rec)
		}
		if err != nil {
			r.logger.Warn("textlayer.read.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		}
	}()

	if len(data) == 0 {
		return entity.Document{}, fmt.Errorf("empty document")
	}
	pr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return entity.Document{}, fmt.Errorf("open pdf: %w", err)
	}

	n := pr.NumPage()
	pages := make([]entity.Page, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return entity.Document{}, err
		}
		p := pr.Page(i)
		if p.V.IsNull() {
			continue
		}
		width, height := mediaBox(p)
		texts := p.Content().Text
		glyphs := make([]Glyph, 0, len(texts))
		for _, t := range texts {
			glyphs = append(glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
		}
		if height <= 0 {
			height = maxGlyphTop(glyphs)
		}
		pages = append(pages, Layout(r.cfg, i, width, height, glyphs))
	}

	doc = entity.Document{Pages: pages}
	r.logger.Info("textlayer.read.done",
		"pages", doc.PageCount(),
		"fragments", doc.FragmentCount(),
		"elapsed_ms", time.Since(start).Milliseconds())
	return doc, nil
}

func mediaBox(p pdf.Page) (width, height float64) {
	box := p.V.Key("MediaBox")
	if box.Kind() != pdf.Array || box.Len() < 4 {
		return 0, 0
	}
	x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
	x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
	return x1 - x0, y1 - y0
}

func maxGlyphTop(glyphs []Glyph) float64 {
	top := 0.0
	for _, g := range glyphs {
		if y := g.Y + g.FontSize; y > top {
			top = y
		}
	}
	return top
}

// sanitize drops control characters some PDF encoders leave in text runs.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, s)
}
