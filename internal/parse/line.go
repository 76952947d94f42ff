package parse

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// LineStrategy reads "label value [unit] [range] [unit]" from a single line.
type LineStrategy struct{}

func (LineStrategy) Name() string { return "line" }

func (s LineStrategy) Parse(in Input) []entity.CandidateRow {
	var out []entity.CandidateRow
	for _, line := range in.Lines {
		label, rest, ok := splitLabel(line)
		if !ok {
			continue
		}
		t, ok := parseTail(rest)
		if !ok {
			continue
		}
		out = append(out, row(s.Name(), 0.6, label, t))
	}
	return out
}

var reRightAnchored = regexp.MustCompile(`^(?P<label>.*?[A-Za-zÀ-ÿ].*?)[\s:]+(?P<value>` + valueAtom + `)\*?\s*` +
	`(?:` + flagAtom + `\s+)?` +
	`(?P<unit>` + unitAtom + `)\s*` +
	`(?P<range>` + rangeAtom + `)?\s*$`)

// RightAnchoredStrategy anchors on a trailing unit (and optional range) and
// takes the value immediately before it, so labels may contain numbers.
type RightAnchoredStrategy struct{}

func (RightAnchoredStrategy) Name() string { return "line-right" }

func (s RightAnchoredStrategy) Parse(in Input) []entity.CandidateRow {
	var out []entity.CandidateRow
	names := reRightAnchored.SubexpNames()
	for _, line := range in.Lines {
		m := reRightAnchored.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		g := map[string]string{}
		for i, n := range names {
			if n != "" {
				g[n] = strings.TrimSpace(m[i])
			}
		}
		v, ok := ParseNumber(g["value"])
		if !ok || !hasLetters(g["label"], 2) {
			continue
		}
		t := tail{value: v, unit: g["unit"]}
		t.min, t.max = ParseRange(g["range"])
		out = append(out, row(s.Name(), 0.55, g["label"], t))
	}
	return out
}
