package textlayer

import "github.com/joseph-ayodele/labs-tracker/internal/entity"

// SparseThresholds decides when a text layer is too thin to parse.
type SparseThresholds struct {
	MinCharsPerPage     int
	MinFragmentsPerPage int
}

// DefaultSparseThresholds returns the thresholds used by the pipeline.
func DefaultSparseThresholds() SparseThresholds {
	return SparseThresholds{MinCharsPerPage: 120, MinFragmentsPerPage: 8}
}

// NeedsOCR reports whether doc's text layer is empty or sparse enough that
// OCR should be attempted.
func NeedsOCR(doc entity.Document, th SparseThresholds) bool {
	pages := doc.PageCount()
	frags := doc.FragmentCount()
	if pages == 0 || frags == 0 {
		return true
	}
	if doc.CharCount()/pages < th.MinCharsPerPage {
		return true
	}
	return frags/pages < th.MinFragmentsPerPage
}
