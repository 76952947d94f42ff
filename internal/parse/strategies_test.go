package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

func lines(ls ...string) Input { return Input{Lines: ls} }

func TestLineStrategy(t *testing.T) {
	rows := LineStrategy{}.Parse(lines("Testosterone 18.5 nmol/L 8.6 - 29.0", "Page 1 of 2"))

	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "Testosterone", r.Label)
	assert.Equal(t, 18.5, r.Value)
	assert.Equal(t, "nmol/L", r.Unit)
	assert.Equal(t, 8.6, *r.RefMin)
	assert.Equal(t, 29.0, *r.RefMax)
	assert.InDelta(t, 0.8, r.Confidence, 1e-9)
	assert.Equal(t, "line", r.Strategy)
	assert.Equal(t, entity.OriginLocal, r.Origin)
}

func TestRightAnchoredStrategyKeepsDigitsInLabel(t *testing.T) {
	rows := RightAnchoredStrategy{}.Parse(lines("Vitamin B12 350 pmol/L 145 - 569", "no unit here 12"))

	require.Len(t, rows, 1)
	assert.Equal(t, "Vitamin B12", rows[0].Label)
	assert.Equal(t, 350.0, rows[0].Value)
	assert.Equal(t, "pmol/L", rows[0].Unit)
	assert.InDelta(t, 0.75, rows[0].Confidence, 1e-9)
}

func TestMultilineStrategy(t *testing.T) {
	rows := MultilineStrategy{}.Parse(lines(
		"SHBG",
		"30 nmol/L 10-57",
		"Hemoglobin",
		"9.1",
		"mmol/L 8.5-11.0",
	))

	require.Len(t, rows, 2)
	assert.Equal(t, "SHBG", rows[0].Label)
	assert.Equal(t, 30.0, rows[0].Value)
	assert.InDelta(t, 0.7, rows[0].Confidence, 1e-9)

	assert.Equal(t, "Hemoglobin", rows[1].Label)
	assert.Equal(t, 9.1, rows[1].Value)
	assert.Equal(t, "mmol/L", rows[1].Unit)
	assert.Equal(t, 11.0, *rows[1].RefMax)
}

func TestColumnStrategyReadsSeveralRecordsPerRow(t *testing.T) {
	rows := ColumnStrategy{}.Parse(lines(
		"Testosterone   18.5   nmol/L   8.6-29.0      SHBG   30   nmol/L   10-57",
		"two  cells",
	))

	require.Len(t, rows, 2)
	assert.Equal(t, "Testosterone", rows[0].Label)
	assert.Equal(t, 18.5, rows[0].Value)
	assert.Equal(t, "SHBG", rows[1].Label)
	assert.Equal(t, 30.0, rows[1].Value)
	assert.Equal(t, 57.0, *rows[1].RefMax)
}

func TestIndexedStrategyUsesDominantDenominator(t *testing.T) {
	rows := IndexedStrategy{}.Parse(lines(
		"1/4 Testosterone 18.5 nmol/L",
		"2/4 SHBG 30 nmol/L",
		"3/4 Estradiol 90 pmol/L",
		"Page 1/2",
	))

	require.Len(t, rows, 3)
	assert.Equal(t, "Testosterone", rows[0].Label)
	assert.Equal(t, "Estradiol", rows[2].Label)
	assert.InDelta(t, 0.75, rows[2].Confidence, 1e-9)

	assert.Empty(t, IndexedStrategy{}.Parse(lines("1/4 Testosterone 18.5 nmol/L", "2/4 SHBG 30 nmol/L")))
}

func TestKeywordRangeStrategyDutch(t *testing.T) {
	rows := KeywordRangeStrategy{}.Parse(lines(
		"Hematocriet",
		"Uw waarde: 0,43 L/L",
		"Normaalwaarde: hoger dan 0,40 - lager dan 0,50",
	))

	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "Hematocriet", r.Label)
	assert.Equal(t, 0.43, r.Value)
	assert.Equal(t, "L/L", r.Unit)
	assert.Equal(t, 0.40, *r.RefMin)
	assert.Equal(t, 0.50, *r.RefMax)
	assert.InDelta(t, 0.9, r.Confidence, 1e-9)
}

func TestKeywordRangeStrategyInlineLabelAndReference(t *testing.T) {
	rows := KeywordRangeStrategy{}.Parse(lines(
		"Testosteron - Ihr Wert: 18,5 nmol/l",
		"Referenz: 8,6 - 29",
	))

	require.Len(t, rows, 1)
	assert.Equal(t, "Testosteron", rows[0].Label)
	assert.Equal(t, 18.5, rows[0].Value)
	assert.Equal(t, 8.6, *rows[0].RefMin)
	assert.Equal(t, 29.0, *rows[0].RefMax)
}

func TestFixedTableStrategy(t *testing.T) {
	rows := FixedTableStrategy{}.Parse(lines(
		"Patient age 12 years",
		"Test Flag Result Reference Range - Units",
		"TESTOSTERONE, TOTAL, MS H 1250 250-1100 ng/dL",
		"SHBG 45 10-50 nmol/L",
		"End of Report",
		"LDL 3.1 mmol/L",
	))

	require.Len(t, rows, 2)
	assert.Equal(t, "TESTOSTERONE, TOTAL, MS", rows[0].Label)
	assert.Equal(t, 1250.0, rows[0].Value)
	assert.Equal(t, "ng/dL", rows[0].Unit)
	assert.Equal(t, 250.0, *rows[0].RefMin)
	assert.Equal(t, 1100.0, *rows[0].RefMax)
	assert.InDelta(t, 0.9, rows[0].Confidence, 1e-9)
	assert.Equal(t, "SHBG", rows[1].Label)
}

func TestSpatialStrategyEmitsOnlyPlausibleImportantMarkers(t *testing.T) {
	page := entity.Page{Number: 1, Fragments: []entity.Fragment{
		{X: 50, Y: 100, W: 60, H: 10, Text: "Testosterone"},
		{X: 200, Y: 101, W: 25, H: 10, Text: "18.5"},
		{X: 240, Y: 100, W: 35, H: 10, Text: "nmol/L"},
		{X: 300, Y: 100, W: 40, H: 10, Text: "8.6-29.0"},
		{X: 50, Y: 120, W: 60, H: 10, Text: "Cholesterol"},
		{X: 200, Y: 120, W: 20, H: 10, Text: "5.2"},
		{X: 240, Y: 120, W: 35, H: 10, Text: "mmol/L"},
		{X: 50, Y: 140, W: 60, H: 10, Text: "Hematocrit"},
		{X: 200, Y: 140, W: 20, H: 10, Text: "450"},
		{X: 240, Y: 140, W: 10, H: 10, Text: "%"},
	}}

	rows := SpatialStrategy{}.Parse(Input{Pages: []entity.Page{page}})

	require.Len(t, rows, 1)
	assert.Equal(t, "Testosterone", rows[0].Label)
	assert.Equal(t, 18.5, rows[0].Value)
	assert.Equal(t, 29.0, *rows[0].RefMax)
	assert.InDelta(t, 0.75, rows[0].Confidence, 1e-9)
}

func TestSpatialStrategyPairsValueInAdjacentBand(t *testing.T) {
	page := entity.Page{Number: 1, Fragments: []entity.Fragment{
		{X: 50, Y: 100, W: 60, H: 10, Text: "Testosterone"},
		{X: 200, Y: 108, W: 25, H: 10, Text: "18.5"},
		{X: 240, Y: 108, W: 35, H: 10, Text: "nmol/L"},
		{X: 50, Y: 130, W: 40, H: 10, Text: "SHBG"},
		{X: 200, Y: 130, W: 20, H: 10, Text: "45"},
		{X: 240, Y: 130, W: 35, H: 10, Text: "nmol/L"},
	}}

	rows := SpatialStrategy{}.Parse(Input{Pages: []entity.Page{page}})

	require.Len(t, rows, 2)
	byLabel := map[string]entity.CandidateRow{}
	for _, r := range rows {
		byLabel[r.Label] = r
	}
	require.Contains(t, byLabel, "Testosterone")
	assert.Equal(t, 18.5, byLabel["Testosterone"].Value)
	assert.Equal(t, "nmol/L", byLabel["Testosterone"].Unit)
	require.Contains(t, byLabel, "SHBG")
	assert.Equal(t, 45.0, byLabel["SHBG"].Value)
}

func TestSpatialStrategyIgnoresValueOwnedByAnotherLabel(t *testing.T) {
	page := entity.Page{Number: 1, Fragments: []entity.Fragment{
		{X: 50, Y: 100, W: 60, H: 10, Text: "Testosterone"},
		{X: 50, Y: 110, W: 40, H: 10, Text: "SHBG"},
		{X: 200, Y: 110, W: 20, H: 10, Text: "45"},
		{X: 240, Y: 110, W: 35, H: 10, Text: "nmol/L"},
	}}

	rows := SpatialStrategy{}.Parse(Input{Pages: []entity.Page{page}})

	require.Len(t, rows, 1)
	assert.Equal(t, "SHBG", rows[0].Label)
}

func TestLooseStrategy(t *testing.T) {
	rows := LooseStrategy{}.Parse(lines("Glucose = 5.4 mmol/L"))

	require.Len(t, rows, 1)
	assert.Equal(t, "Glucose", rows[0].Label)
	assert.Equal(t, 5.4, rows[0].Value)
	assert.Equal(t, "mmol/L", rows[0].Unit)
	assert.InDelta(t, 0.45, rows[0].Confidence, 1e-9)
}
