package parse

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

var (
	reYourValue = regexp.MustCompile(`(?i)(?:your value|your result|uw waarde|uw uitslag|jouw waarde|ihr wert|ihr ergebnis|votre valeur|votre résultat)\s*:?\s*(` + valueAtom + `)\s*(` + unitAtom + `)?`)
	reLowerKW   = regexp.MustCompile(`(?i)(?:higher than|greater than|more than|above|hoger dan|groter dan|meer dan|boven|höher als|hoeher als|größer als|groesser als|über|supérieure? à|superieure? a)\s*:?\s*(` + numAtom + `)`)
	reUpperKW   = regexp.MustCompile(`(?i)(?:lower than|less than|below|lager dan|kleiner dan|minder dan|onder|niedriger als|kleiner als|unter|inférieure? à|inferieure? a)\s*:?\s*(` + numAtom + `)`)
	reBetweenKW = regexp.MustCompile(`(?i)(?:between|tussen|zwischen|entre)\s+(` + numAtom + `)\s+(?:and|en|und|et)\s+(` + numAtom + `)`)
	reNormalKW  = regexp.MustCompile(`(?i)(?:normal value|normal range|reference|normaalwaarde|normale waarde|referentie|streefwaarde|normalwert|referenz|valeur normale)`)
)

const keywordWindow = 3

// KeywordRangeStrategy handles "Your value: x ... Normal value: higher than a
// - lower than b" phrasing in English, Dutch, German and French.
type KeywordRangeStrategy struct{}

func (KeywordRangeStrategy) Name() string { return "keyword-range" }

func (s KeywordRangeStrategy) Parse(in Input) []entity.CandidateRow {
	var out []entity.CandidateRow
	lines := in.Lines
	for i, line := range lines {
		loc := reYourValue.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		v, ok := ParseNumber(line[loc[2]:loc[3]])
		if !ok {
			continue
		}
		unit := ""
		if loc[4] >= 0 {
			unit = line[loc[4]:loc[5]]
		}

		label := strings.Trim(strings.TrimSpace(line[:loc[0]]), ":-–|")
		if !hasLetters(label, 2) {
			label = precedingLabel(lines, i)
		}
		if label == "" {
			continue
		}

		t := tail{value: v, unit: unit}
		t.min, t.max = keywordBounds(lines, i, line[loc[1]:])
		out = append(out, row(s.Name(), 0.7, strings.TrimSpace(label), t))
	}
	return out
}

// precedingLabel returns the nearest earlier line, within the window, that
// looks like a bare marker name.
func precedingLabel(lines []string, i int) string {
	for j := i - 1; j >= 0 && j >= i-keywordWindow; j-- {
		l := strings.TrimSpace(lines[j])
		if l == "" || reNormalKW.MatchString(l) {
			continue
		}
		if isLabelLine(l) {
			return l
		}
		return ""
	}
	return ""
}

// keywordBounds searches the remainder of the value line and the following
// lines for bound phrases, stopping at the next value.
func keywordBounds(lines []string, i int, rest string) (min, max *float64) {
	window := []string{rest}
	for j := i + 1; j < len(lines) && j <= i+keywordWindow; j++ {
		if reYourValue.MatchString(lines[j]) {
			break
		}
		window = append(window, lines[j])
	}
	text := strings.Join(window, " ")
	if m := reBetweenKW.FindStringSubmatch(text); m != nil {
		lo, ok1 := ParseNumber(m[1])
		hi, ok2 := ParseNumber(m[2])
		if ok1 && ok2 {
			return &lo, &hi
		}
	}
	if m := reLowerKW.FindStringSubmatch(text); m != nil {
		if lo, ok := ParseNumber(m[1]); ok {
			min = &lo
		}
	}
	if m := reUpperKW.FindStringSubmatch(text); m != nil {
		if hi, ok := ParseNumber(m[1]); ok {
			max = &hi
		}
	}
	if min == nil && max == nil {
		if loc := reNormalKW.FindStringIndex(text); loc != nil {
			return ParseRange(text[loc[1]:])
		}
	}
	return min, max
}
