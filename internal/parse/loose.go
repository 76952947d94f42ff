package parse

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

var reLoose = regexp.MustCompile(`([A-Za-zÀ-ÿ][A-Za-zÀ-ÿ0-9 ()\-,./]{1,40}?)\s*[:=]?\s+(` + valueAtom + `)(?:\s*(` + unitAtom + `))?`)

// LooseStrategy is a last resort that scans for any "label value [unit]"
// pair. It only runs when the other strategies found too little.
type LooseStrategy struct{}

func (LooseStrategy) Name() string { return "loose" }

func (s LooseStrategy) Parse(in Input) []entity.CandidateRow {
	var out []entity.CandidateRow
	for _, line := range in.Lines {
		for _, m := range reLoose.FindAllStringSubmatch(line, -1) {
			label := strings.TrimSpace(m[1])
			if !hasLetters(label, 2) {
				continue
			}
			v, ok := ParseNumber(m[2])
			if !ok {
				continue
			}
			out = append(out, row(s.Name(), 0.35, label, tail{value: v, unit: strings.TrimSpace(m[3])}))
		}
	}
	return out
}
