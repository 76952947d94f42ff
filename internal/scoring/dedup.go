package scoring

import (
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// Dedup keeps one measurement per identity key, preferring the higher
// confidence; the earlier one wins ties. A measurement without reference
// bounds is dropped when another with the same marker, value and unit
// carries bounds. Output keeps first-appearance order.
func Dedup(ms []entity.Measurement) []entity.Measurement {
	index := make(map[string]int, len(ms))
	out := make([]entity.Measurement, 0, len(ms))
	for _, m := range ms {
		k := m.Key()
		if i, ok := index[k]; ok {
			if m.Confidence > out[i].Confidence {
				out[i] = m
			}
			continue
		}
		index[k] = len(out)
		out = append(out, m)
	}

	ranged := make(map[string]bool, len(out))
	for _, m := range out {
		if hasBounds(m) {
			ranged[valueKey(m)] = true
		}
	}
	kept := out[:0]
	for _, m := range out {
		if !hasBounds(m) && ranged[valueKey(m)] {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// Merge unions local and remote measurements at the identity-key level.
// Local copies come first, so they win confidence ties.
func Merge(local, remote []entity.Measurement) []entity.Measurement {
	all := make([]entity.Measurement, 0, len(local)+len(remote))
	all = append(all, local...)
	all = append(all, remote...)
	return Dedup(all)
}

func hasBounds(m entity.Measurement) bool {
	return m.ReferenceMin != nil || m.ReferenceMax != nil
}

func valueKey(m entity.Measurement) string {
	return entity.Measurement{CanonicalMarker: m.CanonicalMarker, Value: m.Value, Unit: m.Unit}.Key()
}
