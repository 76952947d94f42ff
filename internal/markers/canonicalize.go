package markers

import (
	"strings"

	"github.com/joseph-ayodele/labs-tracker/constants"
)

// Resolution is the outcome of resolving a raw label.
type Resolution struct {
	Label  string
	Marker constants.Marker
	Known  bool
}

// Resolve cleans a raw label and maps it to a canonical marker. Unknown
// labels resolve to themselves with Known=false.
func Resolve(raw string) Resolution {
	label := CleanLabel(raw)
	m, ok := ResolveMarker(label)
	return Resolution{Label: label, Marker: m, Known: ok}
}

// ResolveMarker maps an already-cleaned label via the alias table, then the
// ordered anchor patterns. Labels naming a derived or related measurement
// (ratios, non-HDL, free PSA, glycated hemoglobin) stay unknown.
func ResolveMarker(label string) (constants.Marker, bool) {
	if m, ok := constants.Canonicalize(label); ok {
		return m, true
	}
	folded := Fold(label)
	if folded == "" {
		return constants.Marker(strings.TrimSpace(label)), false
	}
	if m, ok := aliases[folded]; ok {
		return m, true
	}
	if excluded(label, folded) {
		return constants.Marker(strings.TrimSpace(label)), false
	}
	for _, a := range anchors {
		if a.re.MatchString(folded) {
			return a.marker, true
		}
	}
	return constants.Marker(strings.TrimSpace(label)), false
}
