package scoring

import (
	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/dates"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// GateConfig holds the quality gate thresholds.
type GateConfig struct {
	MinMeasurements int
	MinConfidence   float64
	MinImportant    int
}

// DefaultGateConfig returns the standard thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{MinMeasurements: 5, MinConfidence: 0.65, MinImportant: 2}
}

// GateResult records the inputs to a gate decision.
type GateResult struct {
	Accepted         bool
	Measurements     int
	MeanConfidence   float64
	ImportantMarkers int
	DateValid        bool
}

// Evaluate decides whether a local result can be accepted without remote
// help. today is the ISO date the run treats as the current day.
func (g GateConfig) Evaluate(ms []entity.Measurement, date dates.Inference, today string) GateResult {
	important := map[string]struct{}{}
	for _, m := range ms {
		if constants.IsImportant(constants.Marker(m.CanonicalMarker)) {
			important[m.CanonicalMarker] = struct{}{}
		}
	}
	r := GateResult{
		Measurements:     len(ms),
		MeanConfidence:   entity.MeanConfidence(ms),
		ImportantMarkers: len(important),
		DateValid:        date.Found && date.ISO != "" && date.ISO != today,
	}
	r.Accepted = r.Measurements >= g.MinMeasurements &&
		r.MeanConfidence >= g.MinConfidence &&
		r.ImportantMarkers >= g.MinImportant &&
		r.DateValid
	return r
}
