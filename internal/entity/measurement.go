package entity

import (
	"fmt"
	"strconv"
)

// Abnormal classifies a value against its reference range.
type Abnormal string

const (
	AbnormalLow     Abnormal = "low"
	AbnormalHigh    Abnormal = "high"
	AbnormalNormal  Abnormal = "normal"
	AbnormalUnknown Abnormal = "unknown"
)

// Measurement is a canonical, normalized measurement.
type Measurement struct {
	Marker          string   `json:"marker"`
	CanonicalMarker string   `json:"canonicalMarker"`
	Value           float64  `json:"value"`
	Unit            string   `json:"unit"`
	ReferenceMin    *float64 `json:"referenceMin"`
	ReferenceMax    *float64 `json:"referenceMax"`
	Abnormal        Abnormal `json:"abnormal"`
	Confidence      float64  `json:"confidence"`
}

// ClassifyAbnormal derives the abnormal flag from a value and its bounds.
func ClassifyAbnormal(value float64, min, max *float64) Abnormal {
	if min == nil && max == nil {
		return AbnormalUnknown
	}
	if min != nil && value < *min {
		return AbnormalLow
	}
	if max != nil && value > *max {
		return AbnormalHigh
	}
	return AbnormalNormal
}

// Key returns the identity key (marker, value, unit, min, max) used for
// deduplication and merge.
func (m Measurement) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		m.CanonicalMarker, fmtKeyFloat(&m.Value), m.Unit,
		fmtKeyFloat(m.ReferenceMin), fmtKeyFloat(m.ReferenceMax))
}

func fmtKeyFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
