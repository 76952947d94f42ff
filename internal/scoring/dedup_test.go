package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

func measurement(marker string, value float64, unit string, min, max *float64, conf float64) entity.Measurement {
	return entity.Measurement{
		Marker: marker, CanonicalMarker: marker, Value: value, Unit: unit,
		ReferenceMin: min, ReferenceMax: max,
		Abnormal:   entity.ClassifyAbnormal(value, min, max),
		Confidence: conf,
	}
}

func TestDedupPrefersHigherConfidence(t *testing.T) {
	ms := []entity.Measurement{
		measurement("TSH", 2.1, "mIU/L", nil, nil, 0.6),
		measurement("SHBG", 30, "nmol/L", nil, nil, 0.7),
		measurement("TSH", 2.1, "mIU/L", nil, nil, 0.78),
	}

	out := Dedup(ms)
	require.Len(t, out, 2)
	assert.Equal(t, "TSH", out[0].CanonicalMarker)
	assert.Equal(t, 0.78, out[0].Confidence)
	assert.Equal(t, "SHBG", out[1].CanonicalMarker)
}

func TestDedupKeepsFirstOnTie(t *testing.T) {
	a := measurement("TSH", 2.1, "mIU/L", nil, nil, 0.7)
	a.Marker = "TSH (first)"
	b := measurement("TSH", 2.1, "mIU/L", nil, nil, 0.7)

	out := Dedup([]entity.Measurement{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, "TSH (first)", out[0].Marker)
}

func TestDedupIsIdempotent(t *testing.T) {
	ms := []entity.Measurement{
		measurement("Testosterone", 18.5, "nmol/L", entity.Float(8.6), entity.Float(29), 0.8),
		measurement("Testosterone", 18.5, "nmol/L", nil, nil, 0.9),
		measurement("Testosterone", 18.5, "nmol/L", entity.Float(8.6), entity.Float(29), 0.6),
		measurement("Testosterone", 18.5, "nmol/L", entity.Float(10), entity.Float(29), 0.6),
		measurement("SHBG", 30, "nmol/L", nil, nil, 0.7),
	}

	once := Dedup(ms)
	twice := Dedup(once)
	assert.Equal(t, once, twice)
	assert.Len(t, once, 3)
}

func TestDedupDropsUnrangedCopyOfRangedRow(t *testing.T) {
	out := Dedup([]entity.Measurement{
		measurement("Hematocrit", 52, "%", nil, nil, 0.5),
		measurement("Hematocrit", 52, "%", entity.Float(40), entity.Float(52), 0.85),
	})

	require.Len(t, out, 1)
	assert.Equal(t, 40.0, *out[0].ReferenceMin)
}

func TestDedupKeepsDifferentRanges(t *testing.T) {
	out := Dedup([]entity.Measurement{
		measurement("Testosterone", 18.5, "nmol/L", entity.Float(8.6), entity.Float(29), 0.8),
		measurement("Testosterone", 18.5, "nmol/L", entity.Float(10), entity.Float(29), 0.7),
	})
	assert.Len(t, out, 2)
}

func TestMergePrefersHigherConfidenceAcrossSources(t *testing.T) {
	local := []entity.Measurement{
		measurement("Testosterone", 18.5, "nmol/L", nil, nil, 0.6),
		measurement("SHBG", 30, "nmol/L", nil, nil, 0.7),
	}
	remote := []entity.Measurement{
		measurement("Testosterone", 18.5, "nmol/L", nil, nil, 0.9),
		measurement("Estradiol", 90, "pmol/L", nil, nil, 0.8),
		measurement("SHBG", 30, "nmol/L", nil, nil, 0.7),
	}

	out := Merge(local, remote)
	require.Len(t, out, 3)
	assert.Equal(t, 0.9, out[0].Confidence)
	assert.Equal(t, "SHBG", out[1].CanonicalMarker)
	assert.Equal(t, "Estradiol", out[2].CanonicalMarker)
	assert.Equal(t, 0.6, local[0].Confidence)
}
