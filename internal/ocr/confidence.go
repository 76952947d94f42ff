package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate  = regexp.MustCompile(`\b\d{1,4}[./-]\d{1,2}[./-]\d{2,4}\b`)
	reUnit  = regexp.MustCompile(`(?i)\b(nmol|pmol|mmol|umol|µmol|mg|µg|ug|ng|pg|iu|miu|u)/(l|dl|ml)\b|%`)
	reRange = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*[-–]\s*\d+(?:[.,]\d+)?`)
)

// heuristicConfidence scores recognized text by how much it looks like a lab
// report (dates, units, reference ranges). Used when the engine reports none.
func heuristicConfidence(txt string) float64 {
	txtL := strings.ToLower(txt)
	score := 0.2 // base
	if reDate.MatchString(txtL) {
		score += 0.15
	}
	if reUnit.MatchString(txtL) {
		score += 0.2
	}
	if reRange.MatchString(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
