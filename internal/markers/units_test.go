package markers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

func TestUnitKey(t *testing.T) {
	tests := map[string]string{
		"nmol/L":        "nmol/l",
		"µg/L":          "ug/l",
		"μg/l":          "ug/l",
		"mcg/L":         "ug/l",
		"x10^9/L":       "10^9/l",
		"10*9/l":        "10^9/l",
		"10E9/L":        "10^9/l",
		"mL/min/1,73m²": "ml/min/1.73m2",
		"IE/L":          "iu/l",
		"procent":       "%",
		" ng / dL ":     "ng/dl",
	}
	for in, want := range tests {
		assert.Equal(t, want, UnitKey(in), in)
	}
}

func TestNormalizeUnitConverts(t *testing.T) {
	n := NormalizeUnit(constants.Testosterone, 500, "ng/dL", entity.Float(264), entity.Float(916))
	require.True(t, n.Converted)
	assert.Equal(t, "nmol/L", n.Unit)
	assert.InDelta(t, 17.35, n.Value, 0.001)
	assert.InDelta(t, 9.161, *n.Min, 0.001)
	assert.InDelta(t, 31.785, *n.Max, 0.001)
}

func TestNormalizeUnitHematocritRatio(t *testing.T) {
	n := NormalizeUnit(constants.Hematocrit, 0.45, "L/L", entity.Float(0.40), entity.Float(0.50))
	assert.Equal(t, "%", n.Unit)
	assert.InDelta(t, 45.0, n.Value, 1e-9)
	assert.InDelta(t, 40.0, *n.Min, 1e-9)
	assert.InDelta(t, 50.0, *n.Max, 1e-9)

	n = NormalizeUnit(constants.Hematocrit, 0.52, "", nil, nil)
	assert.InDelta(t, 52.0, n.Value, 1e-9)

	n = NormalizeUnit(constants.Hematocrit, 46, "%", entity.Float(40), entity.Float(54))
	assert.InDelta(t, 46.0, n.Value, 1e-9)
}

func TestNormalizeUnitPassThrough(t *testing.T) {
	n := NormalizeUnit(constants.Testosterone, 12.34567, "furlongs", nil, nil)
	assert.False(t, n.Converted)
	assert.Equal(t, "furlongs", n.Unit)
	assert.Equal(t, 12.346, n.Value)

	n = NormalizeUnit(constants.Marker("Ureum"), 5.4321, "mmol/L", nil, nil)
	assert.Equal(t, "mmol/L", n.Unit)
	assert.Equal(t, 5.432, n.Value)
}

func TestUnitRoundTrip(t *testing.T) {
	for m, table := range conversions {
		for unit := range table {
			for _, v := range []float64{0.5, 3.2, 17.35, 250} {
				c, ok := ToCanonical(m, v, unit)
				require.True(t, ok)
				back, ok := FromCanonical(m, c, unit)
				require.True(t, ok)
				assert.InDelta(t, v, back, 1e-9, "%s %s", m, unit)
			}
		}
	}
}

func TestCanonicalUnitsMapToOne(t *testing.T) {
	for _, info := range constants.AllMarkers() {
		f, ok := Factor(info.Marker, info.Unit)
		require.True(t, ok, info.Marker)
		assert.Equal(t, 1.0, f, info.Marker)
	}
}
