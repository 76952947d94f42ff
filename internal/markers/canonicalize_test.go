package markers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		raw   string
		want  constants.Marker
		known bool
	}{
		{"Testosterone", constants.Testosterone, true},
		{"Testosteron (totaal)", constants.Testosterone, true},
		{"Free Testosterone (calc)", constants.FreeTestosterone, true},
		{"Vrij testosteron", constants.FreeTestosterone, true},
		{"Östradiol", constants.Estradiol, true},
		{"Oestradiol (E2) LC-MS/MS", constants.Estradiol, true},
		{"SHBG", constants.SHBG, true},
		{"Hematocrit", constants.Hematocrit, true},
		{"Hämatokrit", constants.Hematocrit, true},
		{"Ht", constants.Hematocrit, true},
		{"Hb", constants.Hemoglobin, true},
		{"Hormones: LH", constants.LH, true},
		{"3. FSH", constants.FSH, true},
		{"12/40 PSA total", constants.PSA, true},
		{"LDL-Cholesterol", constants.LDL, true},
		{"Cholesterol, totaal", constants.TotalCholesterol, true},
		{"eGFR (CKD-EPI)", constants.EGFR, true},
		{"25-OH Vitamin D", constants.VitaminD, true},
		{"Gamma-GT", constants.GGT, true},
		{"Leukocyten", constants.WBC, true},
		{"TSH .........", constants.TSH, true},
		{"Hematocrit value", constants.Hematocrit, true},
		{"Hematocrit whole blood", constants.Hematocrit, true},
		{"Haematocrit value", constants.Hematocrit, true},
		{"Hematocriet (Ht)", constants.Hematocrit, true},
		{"Hemoglobin, total", constants.Hemoglobin, true},
		{"Hemoglobine (Hb)", constants.Hemoglobin, true},
		{"Hämoglobin im Blut", constants.Hemoglobin, true},
		{"Hemoglobin A1c", constants.Marker("Hemoglobin A1c"), false},
		{"Glycated hemoglobin", constants.Marker("Glycated hemoglobin"), false},
		{"Mean corpuscular hemoglobin", constants.Marker("Mean corpuscular hemoglobin"), false},
		{"Non-HDL cholesterol", constants.Marker("Non-HDL cholesterol"), false},
		{"Cholesterol/HDL ratio", constants.Marker("Cholesterol/HDL ratio"), false},
		{"LDL/HDL quotient", constants.Marker("LDL/HDL quotient"), false},
		{"Free PSA", constants.Marker("Free PSA"), false},
		{"fPSA", constants.Marker("fPSA"), false},
		{"PSA free/total %", constants.Marker("PSA free/total %"), false},
		{"HDL %", constants.Marker("HDL %"), false},
		{"HDL cholesterol (direct)", constants.HDL, true},
		{"Ureum", constants.Marker("Ureum"), false},
		{"Unknown Thing", constants.Marker("Unknown Thing"), false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			res := Resolve(tt.raw)
			assert.Equal(t, tt.want, res.Marker)
			assert.Equal(t, tt.known, res.Known)
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		require.Equal(t, constants.FreeT4, Resolve("Free T4 (ECLIA)").Marker)
	}
}

func TestCleanLabel(t *testing.T) {
	assert.Equal(t, "Testosterone", CleanLabel("  1) Testosterone (S)  "))
	assert.Equal(t, "Estradiol", CleanLabel("Estradiol ECLIA"))
	assert.Equal(t, "Hemoglobin", CleanLabel("Hematology: Hemoglobin ....."))
	long := "The following values were measured in the morning sample and reported Testosterone"
	assert.Equal(t, "sample and reported Testosterone", CleanLabel(long))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "hamatokrit", Fold("Hämatokrit"))
	assert.Equal(t, "dhea s", Fold("DHEA-S"))
	assert.Equal(t, "25 oh vitamin d", Fold("25-(OH) Vitamin D"))
}

func TestAcceptanceScore(t *testing.T) {
	assert.Equal(t, 5, AcceptanceScore("Testosterone", true, true, true))
	assert.Equal(t, 2, AcceptanceScore("Ureum", false, true, true))
	assert.Less(t, AcceptanceScore("Page", false, false, false), 0)
	assert.Less(t, AcceptanceScore("xz", false, true, false), LocalAcceptThreshold)
	assert.Less(t, AcceptanceScore("Please consult your physician about", false, true, true), LocalAcceptThreshold)
	assert.Less(t, AcceptanceScore("12345 678", false, true, false), LocalAcceptThreshold)
}

func TestAccept(t *testing.T) {
	assert.True(t, Accept(1, entity.OriginLocal, false))
	assert.False(t, Accept(0, entity.OriginLocal, false))
	assert.False(t, Accept(2, entity.OriginRemote, false))
	assert.True(t, Accept(3, entity.OriginRemote, false))
	assert.True(t, Accept(1, entity.OriginRemote, true))
}
