package markers

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reLeadingIndex   = regexp.MustCompile(`^\s*(?:#\d{1,3}|\d{1,3}\s*/\s*\d{1,3}|\d{1,3}[.)\]:]|[*•·\-–>]+)\s+`)
	reDotLeaders     = regexp.MustCompile(`(?:\s*[._]){2,}\s*`)
	reMethodParen    = regexp.MustCompile(`(?i)\s*\((?:s|p|b|se|serum|plasma|bloed|blut|blood|lc[- ]?ms(?:/ms)?|eclia|clia|ecl|elisa|ria|hplc|immunoassay|berekend|calc)\)\s*$`)
	reMethodTrailing = regexp.MustCompile(`(?i)\s+(?:lc[- ]?ms(?:/ms)?|eclia|clia|ecl|elisa|hplc|immunoassay)\s*$`)
	reSpaces         = regexp.MustCompile(`\s+`)
	reNonAlnum       = regexp.MustCompile(`[^a-z0-9]+`)
	reSectionPrefix  = regexp.MustCompile(`(?i)^(?:hormones?|hormonen|hormone|endocrinolog(?:y|ie)|chemistry|chemie|klinische chemie|h(?:a)?ematolog(?:y|ie)|lipids?|lipiden|lipide|thyroid|schildklier|schilddr\S*|liver|lever|leber|kidney|nier(?:en)?|niere|blood count|bloedbeeld|blutbild|vitamins?|vitamines|serology|serologie)\s*[:\-–|]\s*`)
)

const narrativeMaxLen = 48

// CleanLabel strips index tokens, section prefixes, method codes and dot
// leaders from a raw label and trims overly long narrative to its tail.
func CleanLabel(raw string) string {
	s := strings.TrimSpace(raw)
	s = reDotLeaders.ReplaceAllString(s, " ")
	s = reLeadingIndex.ReplaceAllString(s, "")
	s = reSectionPrefix.ReplaceAllString(s, "")
	for {
		next := reMethodParen.ReplaceAllString(s, "")
		next = reMethodTrailing.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	s = strings.TrimRight(s, " :;,-=|")
	s = reSpaces.ReplaceAllString(strings.TrimSpace(s), " ")
	if len(s) > narrativeMaxLen {
		words := strings.Fields(s)
		if len(words) > 4 {
			s = strings.Join(words[len(words)-4:], " ")
		}
	}
	return s
}

// Fold lowercases s, removes diacritics and collapses punctuation to single
// spaces. It is used for alias lookups and must stay deterministic.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, "ß", "ss")
	folded = reNonAlnum.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}
