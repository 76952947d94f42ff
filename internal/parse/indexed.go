package parse

import (
	"regexp"
	"strconv"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

var reCounter = regexp.MustCompile(`(?:^|\s)(\d{1,3})\s?/\s?(\d{1,3})(?:\s|$)`)

const minIndexedRows = 3

// IndexedStrategy handles reports that number each test with a running
// "n/N" counter. The most frequent denominator identifies real rows.
type IndexedStrategy struct{}

func (IndexedStrategy) Name() string { return "indexed" }

func (s IndexedStrategy) Parse(in Input) []entity.CandidateRow {
	type hit struct {
		line       int
		start, end int
		denom      int
	}
	var hits []hit
	counts := map[int]int{}
	for i, line := range in.Lines {
		for _, m := range reCounter.FindAllStringSubmatchIndex(line, -1) {
			n, _ := strconv.Atoi(line[m[2]:m[3]])
			d, _ := strconv.Atoi(line[m[4]:m[5]])
			if d < 2 || n < 1 || n > d {
				continue
			}
			hits = append(hits, hit{line: i, start: m[0], end: m[1], denom: d})
			counts[d]++
			break
		}
	}

	dominant, best := 0, 0
	for d, c := range counts {
		if c > best || (c == best && d < dominant) {
			dominant, best = d, c
		}
	}
	if best < minIndexedRows {
		return nil
	}

	var out []entity.CandidateRow
	for _, h := range hits {
		if h.denom != dominant {
			continue
		}
		line := in.Lines[h.line]
		stripped := line[:h.start] + " " + line[h.end:]
		label, rest, ok := splitLabel(stripped)
		if !ok {
			continue
		}
		t, ok := parseTail(rest)
		if !ok {
			continue
		}
		out = append(out, row(s.Name(), 0.65, label, t))
	}
	return out
}
