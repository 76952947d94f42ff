package entity

// Origin records where a candidate row came from.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// CandidateRow is an unnormalized measurement proposed by a parsing strategy
// or by the remote service.
type CandidateRow struct {
	Label      string   `json:"label"`
	Value      float64  `json:"value"`
	Unit       string   `json:"unit,omitempty"`
	RefMin     *float64 `json:"refMin,omitempty"`
	RefMax     *float64 `json:"refMax,omitempty"`
	Confidence float64  `json:"confidence"`
	Strategy   string   `json:"strategy"`
	Origin     Origin   `json:"origin"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
