package textlayer

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// Glyph is a text run as reported by the PDF content stream. Y is the
// baseline measured from the bottom of the page.
type Glyph struct {
	X, Y, W  float64
	FontSize float64
	S        string
}

type rowBucket struct {
	yMin, yMax float64
	frags      []entity.Fragment
}

// Layout converts glyphs into word fragments (top-down coordinates) and
// reconstructs lines: rows top to bottom, fragments left to right.
func Layout(cfg Config, number int, width, height float64, glyphs []Glyph) entity.Page {
	page := entity.Page{Number: number, Width: width, Height: height}
	frags := mergeWords(cfg, height, glyphs)
	if len(frags) == 0 {
		return page
	}
	page.Fragments = frags
	page.Lines = buildLines(cfg, frags)
	return page
}

// mergeWords flips coordinates and joins adjacent glyphs into words.
func mergeWords(cfg Config, height float64, glyphs []Glyph) []entity.Fragment {
	type run struct {
		g   Glyph
		top float64
	}
	type runRow struct {
		yMin, yMax float64
		runs       []run
	}
	var rows []runRow
	for _, g := range glyphs {
		g.S = sanitize(g.S)
		if g.S == "" {
			continue
		}
		if g.FontSize <= 0 {
			g.FontSize = 10
		}
		r := run{g: g, top: height - g.Y - g.FontSize}
		placed := false
		for i := range rows {
			if r.top >= rows[i].yMin-cfg.RowTolerance && r.top <= rows[i].yMax+cfg.RowTolerance {
				rows[i].runs = append(rows[i].runs, r)
				rows[i].yMin = min(rows[i].yMin, r.top)
				rows[i].yMax = max(rows[i].yMax, r.top)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, runRow{yMin: r.top, yMax: r.top, runs: []run{r}})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].yMin < rows[j].yMin })

	var out []entity.Fragment
	for _, row := range rows {
		sort.SliceStable(row.runs, func(i, j int) bool { return row.runs[i].g.X < row.runs[j].g.X })
		var cur *entity.Fragment
		flush := func() {
			if cur != nil {
				cur.Text = strings.TrimSpace(cur.Text)
				if cur.Text != "" {
					out = append(out, *cur)
				}
				cur = nil
			}
		}
		for _, r := range row.runs {
			if strings.TrimSpace(r.g.S) == "" {
				flush()
				continue
			}
			if cur != nil {
				gap := r.g.X - cur.Right()
				if gap <= cfg.WordGapFactor*r.g.FontSize && gap > -r.g.FontSize {
					cur.Text += r.g.S
					if right := r.g.X + r.g.W; right > cur.Right() {
						cur.W = right - cur.X
					}
					continue
				}
				flush()
			}
			cur = &entity.Fragment{X: r.g.X, Y: r.top, W: r.g.W, H: r.g.FontSize, Text: r.g.S}
		}
		flush()
	}
	return out
}

// Lines groups already-positioned fragments (for example OCR word boxes)
// into ordered lines.
func Lines(cfg Config, frags []entity.Fragment) []entity.Line {
	if len(frags) == 0 {
		return nil
	}
	return buildLines(cfg, frags)
}

// buildLines groups fragments into rows by vertical proximity.
func buildLines(cfg Config, frags []entity.Fragment) []entity.Line {
	var buckets []rowBucket
	for _, f := range frags {
		placed := false
		for i := range buckets {
			if f.Y >= buckets[i].yMin-cfg.RowTolerance && f.Y <= buckets[i].yMax+cfg.RowTolerance {
				buckets[i].frags = append(buckets[i].frags, f)
				if f.Y < buckets[i].yMin {
					buckets[i].yMin = f.Y
				}
				if f.Y > buckets[i].yMax {
					buckets[i].yMax = f.Y
				}
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, rowBucket{yMin: f.Y, yMax: f.Y, frags: []entity.Fragment{f}})
		}
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].yMin < buckets[j].yMin })

	lines := make([]entity.Line, 0, len(buckets))
	for _, b := range buckets {
		sort.SliceStable(b.frags, func(i, j int) bool { return b.frags[i].X < b.frags[j].X })
		lines = append(lines, entity.Line{Y: b.yMin, Text: JoinFragments(b.frags, cfg.WideGap), Fragments: b.frags})
	}
	return lines
}

// JoinFragments renders ordered fragments, using WideSeparator for gaps
// wider than wideGap.
func JoinFragments(frags []entity.Fragment, wideGap float64) string {
	var b strings.Builder
	for i, f := range frags {
		if i > 0 {
			if f.X-frags[i-1].Right() > wideGap {
				b.WriteString(WideSeparator)
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(f.Text)
	}
	return b.String()
}
