// Package remote calls the optional remote-assisted extraction service.
// Its responses are untrusted: they are sanitized, schema-validated and
// then re-scored like any local candidate.
package remote

import (
	"context"
	"math"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// Request is the body sent to the remote service.
type Request struct {
	FileName string `json:"fileName"`
	Text     string `json:"text"`
	Document []byte `json:"document,omitempty"`
}

// Marker is one measurement as reported by the remote service.
type Marker struct {
	Marker       string   `json:"marker"`
	Value        float64  `json:"value"`
	Unit         string   `json:"unit,omitempty"`
	ReferenceMin *float64 `json:"referenceMin,omitempty"`
	ReferenceMax *float64 `json:"referenceMax,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// Response is the validated remote result.
type Response struct {
	ModelIdentifier string   `json:"modelIdentifier"`
	TestDate        string   `json:"testDate,omitempty"`
	Markers         []Marker `json:"markers,omitempty"`
	Variant         string   `json:"-"`
	Cached          bool     `json:"-"`
}

// Extractor is the interface the pipeline depends on.
type Extractor interface {
	Extract(ctx context.Context, req Request) (Response, error)
}

// DefaultMarkerConfidence is used when the service omits a confidence.
const DefaultMarkerConfidence = 0.7

// Candidates converts a response into remote-origin candidate rows.
func (r Response) Candidates() []entity.CandidateRow {
	out := make([]entity.CandidateRow, 0, len(r.Markers))
	for _, m := range r.Markers {
		conf := DefaultMarkerConfidence
		if m.Confidence != nil && !math.IsNaN(*m.Confidence) {
			conf = math.Max(0, math.Min(1, *m.Confidence))
		}
		out = append(out, entity.CandidateRow{
			Label:      m.Marker,
			Value:      m.Value,
			Unit:       m.Unit,
			RefMin:     m.ReferenceMin,
			RefMax:     m.ReferenceMax,
			Confidence: conf,
			Strategy:   "remote:" + r.Variant,
			Origin:     entity.OriginRemote,
		})
	}
	return out
}
