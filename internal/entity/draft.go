package entity

import (
	"github.com/joseph-ayodele/labs-tracker/constants"
)

// ExtractionDraft is the sole output of an extraction run.
type ExtractionDraft struct {
	SourceFileName string         `json:"sourceFileName"`
	TestDate       string         `json:"testDate"`
	Markers        []Measurement  `json:"markers"`
	Extraction     ExtractionMeta `json:"extraction"`
}

// ExtractionMeta describes how a draft was produced.
type ExtractionMeta struct {
	Provider    string              `json:"provider"`
	Model       string              `json:"model"`
	Confidence  float64             `json:"confidence"`
	NeedsReview bool                `json:"needsReview"`
	WarningCode constants.Warning   `json:"warningCode,omitempty"`
	Warnings    []constants.Warning `json:"warnings,omitempty"`
	Debug       *ExtractionDebug    `json:"debug,omitempty"`
}

// ExtractionDebug carries counters for diagnosing a run.
type ExtractionDebug struct {
	TextItems        int      `json:"textItems"`
	OCRUsed          bool     `json:"ocrUsed"`
	OCRPages         int      `json:"ocrPages"`
	KeptRows         int      `json:"keptRows"`
	RejectedRows     int      `json:"rejectedRows"`
	TopRejectReasons []string `json:"topRejectReasons,omitempty"`
}

// MeanConfidence returns the average confidence of ms, or 0 when empty.
func MeanConfidence(ms []Measurement) float64 {
	if len(ms) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range ms {
		sum += m.Confidence
	}
	return sum / float64(len(ms))
}
