package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=|]{3,}\s*$`)
	// letter O or l read inside a number: "1O.5" -> "10.5", "2l" stays
	reDigitO    = regexp.MustCompile(`(\d)[Oo](\d|[.,]\d)`)
	reOComma    = regexp.MustCompile(`\b[Oo]([.,]\d)`)
	reDigitOEnd = regexp.MustCompile(`(\d)[Oo]\b`)
)

// Normalize collapses noisy whitespace and fixes common OCR artifacts in
// numbers. It keeps line breaks and collapses >2 newlines into one blank line.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = FixNumberArtifacts(strings.TrimRight(lines[i], " "))
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// FixNumberArtifacts repairs letter/digit confusions inside numeric tokens.
func FixNumberArtifacts(s string) string {
	s = reDigitO.ReplaceAllString(s, "${1}0${2}")
	s = reOComma.ReplaceAllString(s, "0$1")
	s = reDigitOEnd.ReplaceAllString(s, "${1}0")
	return s
}
