package parse

import (
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

const maxLabelLineLen = 48

// MultilineStrategy handles labels printed on their own line, followed by the
// value (and unit/range) on the next one or two lines.
type MultilineStrategy struct{}

func (MultilineStrategy) Name() string { return "multiline" }

func (s MultilineStrategy) Parse(in Input) []entity.CandidateRow {
	var out []entity.CandidateRow
	lines := in.Lines
	for i := 0; i < len(lines); i++ {
		label := strings.TrimSpace(lines[i])
		if !isLabelLine(label) {
			continue
		}
		if i+2 < len(lines) && reNumericToken.MatchString(strings.TrimSpace(lines[i+1])) &&
			!reNumericToken.MatchString(firstToken(lines[i+2])) {
			combined := strings.TrimSpace(lines[i+1]) + " " + strings.TrimSpace(lines[i+2])
			if t, ok := parseTail(combined); ok && (t.unit != "" || t.hasRange()) {
				out = append(out, row(s.Name(), 0.5, label, t))
				i += 2
				continue
			}
		}
		if i+1 < len(lines) {
			if t, ok := parseTail(lines[i+1]); ok {
				out = append(out, row(s.Name(), 0.5, label, t))
				i++
			}
		}
	}
	return out
}

// isLabelLine accepts short, number-free lines that could name a marker.
func isLabelLine(s string) bool {
	if s == "" || len(s) > maxLabelLineLen || !hasLetters(s, 2) {
		return false
	}
	tokens := strings.Fields(s)
	if len(tokens) > 6 {
		return false
	}
	for _, t := range tokens {
		if reNumericToken.MatchString(t) {
			return false
		}
	}
	return !reUnitOnly.MatchString(s) && !reRangeOnly.MatchString(s)
}
