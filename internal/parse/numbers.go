package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Regexp atoms shared by strategies.
const (
	numAtom   = `\d+(?:[.,]\d+)*`
	valueAtom = `(?:[<>≤≥]=?\s?)?` + numAtom
	unitAtom  = `(?:%|‰|[xX]?\s?10\s?(?:\^|\*\*?|[eE])\s?\d{1,2}\s?/\s?[A-Za-zµμ]+|[A-Za-zµμ]{1,6}\s?/\s?[A-Za-zµμ0-9.,²³]{1,12}(?:/[A-Za-z0-9.,²³]{1,10})?|fL|fl|ratio)`
	rangeAtom = `[(\[]?\s*(?:` + numAtom + `\s*(?:-|–|—|to|tot|bis)\s*` + numAtom + `|(?:<=?|≤|>=?|≥)\s?` + numAtom + `)\s*[)\]]?`
	flagAtom  = `(?:[HL]{1,2}|\*+|↑+|↓+|\((?:H|L|hoog|laag)\)|hoog|laag|high|low)`
)

var (
	reNumericToken = regexp.MustCompile(`^(?:[<>≤≥]=?)?` + numAtom + `\*?$`)
	reUnitOnly     = regexp.MustCompile(`^` + unitAtom + `$`)
	reRangeOnly    = regexp.MustCompile(`^` + rangeAtom + `$`)
	reTail         = regexp.MustCompile(`^(?P<value>` + valueAtom + `)\*?\s*` +
		`(?:(?P<flag>` + flagAtom + `)(?:\s+|$))?` +
		`(?P<unit1>` + unitAtom + `)?\s*` +
		`(?P<range>` + rangeAtom + `)?\s*` +
		`(?P<unit2>` + unitAtom + `)?\s*` +
		`(?:` + flagAtom + `)?` +
		`(?:\s+[^\d]*)?$`)
	reRangeBoth  = regexp.MustCompile(`(` + numAtom + `)\s*(?:-|–|—|to|tot|bis)\s*(` + numAtom + `)`)
	reRangeUpper = regexp.MustCompile(`(?:<=?|≤)\s?(` + numAtom + `)`)
	reRangeLower = regexp.MustCompile(`(?:>=?|≥)\s?(` + numAtom + `)`)
	reWideSep    = regexp.MustCompile(`\s{2,}`)
)

// ParseNumber parses a lab value, accepting decimal commas, thousands
// separators and comparison prefixes ("<0.1" parses as 0.1).
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "<>≤≥= ")
	s = strings.TrimRight(s, "*")
	if s == "" {
		return 0, false
	}
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas == 1:
		s = strings.Replace(s, ",", ".", 1)
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseRange parses "a - b", "< b" or "> a" reference notations.
func ParseRange(s string) (min, max *float64) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if m := reRangeBoth.FindStringSubmatch(s); m != nil {
		lo, ok1 := ParseNumber(m[1])
		hi, ok2 := ParseNumber(m[2])
		if ok1 && ok2 {
			if lo > hi {
				lo, hi = hi, lo
			}
			return &lo, &hi
		}
	}
	if m := reRangeUpper.FindStringSubmatch(s); m != nil {
		if hi, ok := ParseNumber(m[1]); ok {
			return nil, &hi
		}
	}
	if m := reRangeLower.FindStringSubmatch(s); m != nil {
		if lo, ok := ParseNumber(m[1]); ok {
			return &lo, nil
		}
	}
	return nil, nil
}

// tail is the parsed right-hand side of a measurement row.
type tail struct {
	value    float64
	unit     string
	min, max *float64
}

func (t tail) hasRange() bool { return t.min != nil || t.max != nil }

var tailNames = reTail.SubexpNames()

// parseTail parses "<value> [flag] [unit] [range] [unit]".
func parseTail(s string) (tail, bool) {
	m := reTail.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return tail{}, false
	}
	groups := make(map[string]string, len(tailNames))
	for i, name := range tailNames {
		if name != "" {
			groups[name] = strings.TrimSpace(m[i])
		}
	}
	v, ok := ParseNumber(groups["value"])
	if !ok {
		return tail{}, false
	}
	t := tail{value: v, unit: groups["unit1"]}
	if t.unit == "" {
		t.unit = groups["unit2"]
	}
	t.min, t.max = ParseRange(groups["range"])
	return t, true
}

// hasLetters reports whether s contains at least n letters.
func hasLetters(s string, n int) bool {
	c := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			c++
			if c >= n {
				return true
			}
		}
	}
	return false
}

// splitLabel finds the first numeric token preceded by a plausible label and
// returns the label and the remainder starting at that token.
func splitLabel(line string) (label, rest string, ok bool) {
	tokens := strings.Fields(line)
	for i := 1; i < len(tokens); i++ {
		if !reNumericToken.MatchString(tokens[i]) {
			continue
		}
		label = strings.Join(tokens[:i], " ")
		if !hasLetters(label, 2) {
			return "", "", false
		}
		return label, strings.Join(tokens[i:], " "), true
	}
	return "", "", false
}

// cells splits a line on runs of two or more spaces.
func cells(line string) []string {
	var out []string
	for _, c := range reWideSep.Split(strings.TrimSpace(line), -1) {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
