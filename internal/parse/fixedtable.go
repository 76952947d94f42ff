package parse

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

var (
	reTableHeader = regexp.MustCompile(`(?i)\btest(?:\s+name)?\s+flag\s+results?\s+reference\s+range(?:\s*[-–/]?\s*units?)?\b`)
	reTableEnd    = regexp.MustCompile(`(?i)(?:end of report|einde (?:van het )?(?:rapport|verslag)|ende des befundes|fin du rapport|^\s*comments?\s*:|^\s*footnotes?\b|^\s*performing (?:site|laboratory))`)
	reFlagToken   = regexp.MustCompile(`(?i)^(?:` + flagAtom + `|A|abn|abnormal)$`)
)

// FixedTableStrategy handles the "Test Flag Result Reference Range - Units"
// table layout. Rows are read only between the header and a terminator.
type FixedTableStrategy struct{}

func (FixedTableStrategy) Name() string { return "fixed-table" }

func (s FixedTableStrategy) Parse(in Input) []entity.CandidateRow {
	var out []entity.CandidateRow
	inTable := false
	for _, line := range in.Lines {
		switch {
		case reTableHeader.MatchString(line):
			inTable = true
			continue
		case !inTable:
			continue
		case reTableEnd.MatchString(line):
			inTable = false
			continue
		}

		label, rest, ok := splitLabel(line)
		if !ok {
			continue
		}
		tokens := strings.Fields(label)
		if n := len(tokens); n > 1 && reFlagToken.MatchString(tokens[n-1]) {
			label = strings.Join(tokens[:n-1], " ")
		}
		t, ok := parseTail(rest)
		if !ok {
			continue
		}
		out = append(out, row(s.Name(), 0.7, label, t))
	}
	return out
}
