package parse

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/markers"
	"github.com/joseph-ayodele/labs-tracker/internal/textlayer"
)

const (
	bandFactor   = 0.6
	minBandSlack = 2.0
)

// SpatialStrategy works from fragment geometry rather than reconstructed
// lines. It groups fragments into horizontal bands and reads label-value
// pairs left to right. A label left without a value in its band is paired
// with the nearest orphan value to its right in an adjacent band. Only
// important markers with plausible values are emitted, since geometry alone
// is a weak signal.
type SpatialStrategy struct{}

func (SpatialStrategy) Name() string { return "spatial" }

func (s SpatialStrategy) Parse(in Input) []entity.CandidateRow {
	var out []entity.CandidateRow
	for _, p := range in.Pages {
		if len(p.Fragments) == 0 {
			continue
		}
		grid := textlayer.NewGrid(p, 0)
		slack := bandFactor * grid.MedianHeight()
		if slack < minBandSlack {
			slack = minBandSlack
		}
		for _, band := range bands(p.Fragments, slack) {
			rows, dangling := s.readBand(band)
			out = append(out, rows...)
			if r, ok := s.adjacent(grid, dangling, slack); ok {
				out = append(out, r)
			}
		}
	}
	return out
}

// bands groups fragments whose vertical centers are within slack of the
// band's first member, each band ordered left to right.
func bands(frags []entity.Fragment, slack float64) [][]entity.Fragment {
	sorted := make([]entity.Fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CenterY() < sorted[j].CenterY() })

	var out [][]entity.Fragment
	var cur []entity.Fragment
	anchor := 0.0
	for _, f := range sorted {
		if len(cur) > 0 && f.CenterY()-anchor > slack {
			out = append(out, cur)
			cur = nil
		}
		if len(cur) == 0 {
			anchor = f.CenterY()
		}
		cur = append(cur, f)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	for _, b := range out {
		sort.SliceStable(b, func(i, j int) bool { return b[i].X < b[j].X })
	}
	return out
}

// readBand returns the rows found in one band plus the trailing fragments
// that never reached a value.
func (s SpatialStrategy) readBand(band []entity.Fragment) ([]entity.CandidateRow, []entity.Fragment) {
	var out []entity.CandidateRow
	start := 0
	for start < len(band) {
		v := -1
		for k := start; k < len(band); k++ {
			if reNumericToken.MatchString(firstToken(band[k].Text)) {
				v = k
				break
			}
		}
		if v < 0 {
			return out, band[start:]
		}
		if v == start {
			start++
			continue
		}

		end := v + 1
		for end < len(band) && !isLabelCell(band[end].Text) {
			end++
		}

		label := joinTexts(band[start:v])
		res := markers.Resolve(label)
		if res.Known && constants.IsImportant(res.Marker) {
			if t, ok := parseTail(joinTexts(band[v:end])); ok && plausible(res.Marker, t) {
				out = append(out, row(s.Name(), 0.55, label, t))
			}
		}
		start = end
	}
	return out, nil
}

// adjacent pairs a value-less label with the vertically nearest numeric
// fragment to its right within two band heights. The value must not have a
// label of its own on its left.
func (s SpatialStrategy) adjacent(grid *textlayer.Grid, label []entity.Fragment, slack float64) (entity.CandidateRow, bool) {
	if len(label) == 0 {
		return entity.CandidateRow{}, false
	}
	text := joinTexts(label)
	res := markers.Resolve(text)
	if !res.Known || !constants.IsImportant(res.Marker) {
		return entity.CandidateRow{}, false
	}

	last := label[len(label)-1]
	cy := last.CenterY()
	best, found := entity.Fragment{}, false
	for _, f := range grid.RightOf(last, 2*slack) {
		if !reNumericToken.MatchString(firstToken(f.Text)) || labelledLeft(grid, f, label, slack) {
			continue
		}
		if !found || math.Abs(f.CenterY()-cy) < math.Abs(best.CenterY()-cy) {
			best, found = f, true
		}
	}
	if !found {
		return entity.CandidateRow{}, false
	}

	cells := []entity.Fragment{best}
	for _, f := range grid.RightOf(best, slack) {
		if isLabelCell(f.Text) {
			break
		}
		cells = append(cells, f)
	}
	t, ok := parseTail(joinTexts(cells))
	if !ok || !plausible(res.Marker, t) {
		return entity.CandidateRow{}, false
	}
	return row(s.Name(), 0.5, text, t), true
}

func labelledLeft(grid *textlayer.Grid, f entity.Fragment, own []entity.Fragment, slack float64) bool {
	for _, c := range grid.Band(f.CenterY()-slack, f.CenterY()+slack) {
		if c.Right() > f.X || slices.Contains(own, c) {
			continue
		}
		if isLabelCell(c.Text) {
			return true
		}
	}
	return false
}

func plausible(m constants.Marker, t tail) bool {
	if t.unit != "" {
		if _, ok := markers.Factor(m, t.unit); !ok {
			return false
		}
	}
	info, ok := constants.Lookup(m)
	if !ok {
		return false
	}
	n := markers.NormalizeUnit(m, t.value, t.unit, t.min, t.max)
	return n.Value >= info.MinValue && n.Value <= info.MaxValue
}

func firstToken(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

func joinTexts(frags []entity.Fragment) string {
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
