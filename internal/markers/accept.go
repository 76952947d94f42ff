package markers

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// Acceptance thresholds. Remote candidates for unknown labels must clear a
// higher bar because the remote service is untrusted.
const (
	LocalAcceptThreshold  = 1
	RemoteAcceptThreshold = 3
	maxLabelLen           = 60
)

var stopwords = map[string]struct{}{
	"page": {}, "pagina": {}, "seite": {}, "date": {}, "datum": {},
	"result": {}, "results": {}, "uitslag": {}, "ergebnis": {},
	"reference": {}, "referentie": {}, "referenz": {}, "ref": {},
	"unit": {}, "units": {}, "eenheid": {}, "einheit": {},
	"patient": {}, "name": {}, "naam": {}, "test": {}, "total": {}, "totaal": {},
	"value": {}, "waarde": {}, "wert": {}, "flag": {}, "range": {}, "normal": {},
	"age": {}, "leeftijd": {}, "alter": {}, "tel": {}, "fax": {}, "phone": {},
	"telefoon": {}, "address": {}, "adres": {}, "order": {}, "sample": {},
	"monster": {}, "probe": {}, "lab": {}, "laboratory": {}, "laboratorium": {},
	"report": {}, "rapport": {}, "befund": {}, "dob": {}, "born": {}, "geboren": {},
	"geb": {}, "nr": {}, "no": {}, "id": {}, "time": {}, "tijd": {}, "zeit": {},
	"weight": {}, "height": {}, "gewicht": {}, "lengte": {},
}

var reGuidance = regexp.MustCompile(`(?i)\b(please|should|recommend\w*|advice|advies|advise|consult|interpret\w*|note|opmerking|hinweis|if you|indien|wenn|see also|zie ook|bitte|for more|contact|in case|optimal for|desirable|target)\b`)

// AcceptanceScore rates how likely a label is a real marker row rather than
// page furniture or narrative.
func AcceptanceScore(label string, known, hasUnit, hasRange bool) int {
	score := 0
	if known {
		score += 3
	}
	if hasUnit {
		score++
	}
	if hasRange {
		score++
	}

	folded := Fold(label)
	tokens := strings.Fields(folded)
	if !known {
		if _, stop := stopwords[folded]; stop || folded == "" {
			score -= 4
		} else if len(tokens) == 1 && len(folded) <= 2 {
			score -= 4
		}
	}
	if reGuidance.MatchString(label) {
		score -= 5
	}
	if digitDominated(label) || len(label) > maxLabelLen {
		score -= 2
	}
	return score
}

// Accept applies the origin-specific threshold. Remote candidates that
// resolve to a known marker use the local threshold.
func Accept(score int, origin entity.Origin, known bool) bool {
	threshold := LocalAcceptThreshold
	if origin == entity.OriginRemote && !known {
		threshold = RemoteAcceptThreshold
	}
	return score >= threshold
}

func digitDominated(s string) bool {
	digits, letters := 0, 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		}
	}
	return digits > letters
}
