// Package scoring canonicalizes candidate rows into measurements, removes
// duplicates, and decides whether a local result is good enough to keep.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/markers"
)

// Reason explains why a candidate was rejected.
type Reason string

const (
	ReasonLowAcceptance Reason = "low_acceptance"
	ReasonNonFinite     Reason = "non_finite"
	ReasonImplausible   Reason = "implausible"
	ReasonNegative      Reason = "negative_value"
)

// ImportantBoost is added to the confidence of clinically important markers.
const ImportantBoost = 0.05

const topReasons = 3

// Diagnostics summarizes a scoring pass. It never drives control flow.
type Diagnostics struct {
	Considered int
	Kept       int
	Rejected   int
	Reasons    map[Reason]int
}

// TopReasons returns up to three "reason:count" entries, most frequent first.
func (d Diagnostics) TopReasons() []string {
	type rc struct {
		r Reason
		n int
	}
	list := make([]rc, 0, len(d.Reasons))
	for r, n := range d.Reasons {
		list = append(list, rc{r, n})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].n != list[j].n {
			return list[i].n > list[j].n
		}
		return list[i].r < list[j].r
	})
	if len(list) > topReasons {
		list = list[:topReasons]
	}
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = fmt.Sprintf("%s:%d", e.r, e.n)
	}
	return out
}

// Canonicalize turns one candidate into a measurement, or reports why it
// was rejected.
func Canonicalize(c entity.CandidateRow) (entity.Measurement, Reason, bool) {
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return entity.Measurement{}, ReasonNonFinite, false
	}
	if c.Value < 0 {
		return entity.Measurement{}, ReasonNegative, false
	}
	refMin, refMax := finite(c.RefMin), finite(c.RefMax)

	res := markers.Resolve(c.Label)
	if strings.TrimSpace(res.Label) == "" {
		return entity.Measurement{}, ReasonLowAcceptance, false
	}
	unit := strings.TrimSpace(c.Unit)
	score := markers.AcceptanceScore(res.Label, res.Known, unit != "", refMin != nil || refMax != nil)
	if !markers.Accept(score, c.Origin, res.Known) {
		return entity.Measurement{}, ReasonLowAcceptance, false
	}

	n := markers.NormalizeUnit(res.Marker, c.Value, unit, refMin, refMax)
	if res.Known && n.Converted {
		if info, ok := constants.Lookup(res.Marker); ok && (n.Value < info.MinValue || n.Value > info.MaxValue) {
			return entity.Measurement{}, ReasonImplausible, false
		}
	}

	conf := clamp(c.Confidence)
	if res.Known && constants.IsImportant(res.Marker) {
		conf = math.Min(1, conf+ImportantBoost)
	}

	return entity.Measurement{
		Marker:          res.Label,
		CanonicalMarker: string(res.Marker),
		Value:           n.Value,
		Unit:            n.Unit,
		ReferenceMin:    n.Min,
		ReferenceMax:    n.Max,
		Abnormal:        entity.ClassifyAbnormal(n.Value, n.Min, n.Max),
		Confidence:      markers.Round(conf),
	}, "", true
}

// Score canonicalizes every candidate and deduplicates the survivors.
func Score(rows []entity.CandidateRow) ([]entity.Measurement, Diagnostics) {
	d := Diagnostics{Considered: len(rows), Reasons: map[Reason]int{}}
	kept := make([]entity.Measurement, 0, len(rows))
	for _, r := range rows {
		m, reason, ok := Canonicalize(r)
		if !ok {
			d.Rejected++
			d.Reasons[reason]++
			continue
		}
		kept = append(kept, m)
	}
	out := Dedup(kept)
	d.Kept = len(out)
	return out, d
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

func clamp(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
