package parse

import (
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// ColumnStrategy splits lines on wide gaps and recombines the cells into one
// or more records per row.
type ColumnStrategy struct{}

func (ColumnStrategy) Name() string { return "columns" }

func (s ColumnStrategy) Parse(in Input) []entity.CandidateRow {
	var out []entity.CandidateRow
	for _, line := range in.Lines {
		cs := cells(line)
		if len(cs) < 3 {
			continue
		}
		i := 0
		for i < len(cs) {
			if !isLabelCell(cs[i]) {
				i++
				continue
			}
			label := cs[i]
			var parts []string
			if l, rest, ok := splitLabel(cs[i]); ok {
				label, parts = l, []string{rest}
			}
			j := i + 1
			for j < len(cs) && !isLabelCell(cs[j]) {
				parts = append(parts, cs[j])
				j++
			}
			if len(parts) > 0 {
				if t, ok := parseTail(strings.Join(parts, " ")); ok {
					out = append(out, row(s.Name(), 0.6, label, t))
				}
			}
			i = j
		}
	}
	return out
}

func isLabelCell(c string) bool {
	if !hasLetters(c, 2) || reUnitOnly.MatchString(c) || reRangeOnly.MatchString(c) {
		return false
	}
	first := strings.Fields(c)[0]
	return !reNumericToken.MatchString(first)
}
