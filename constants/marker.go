package constants

import (
	"strings"
)

// Marker is a canonical blood marker identifier.
type Marker string

const (
	Testosterone     Marker = "Testosterone"
	FreeTestosterone Marker = "FreeTestosterone"
	Estradiol        Marker = "Estradiol"
	SHBG             Marker = "SHBG"
	Hematocrit       Marker = "Hematocrit"
	Hemoglobin       Marker = "Hemoglobin"
	LH               Marker = "LH"
	FSH              Marker = "FSH"
	Prolactin        Marker = "Prolactin"
	PSA              Marker = "PSA"
	DHEAS            Marker = "DHEAS"
	Cortisol         Marker = "Cortisol"
	TSH              Marker = "TSH"
	FreeT4           Marker = "FreeT4"
	FreeT3           Marker = "FreeT3"
	Glucose          Marker = "Glucose"
	TotalCholesterol Marker = "TotalCholesterol"
	LDL              Marker = "LDL"
	HDL              Marker = "HDL"
	Triglycerides    Marker = "Triglycerides"
	Creatinine       Marker = "Creatinine"
	EGFR             Marker = "eGFR"
	ALT              Marker = "ALT"
	AST              Marker = "AST"
	GGT              Marker = "GGT"
	Ferritin         Marker = "Ferritin"
	VitaminD         Marker = "VitaminD"
	VitaminB12       Marker = "VitaminB12"
	Platelets        Marker = "Platelets"
	WBC              Marker = "WBC"
	RBC              Marker = "RBC"
	MCV              Marker = "MCV"
	CRP              Marker = "CRP"
)

// MarkerInfo describes the canonical unit and plausible range of a marker,
// both expressed in the canonical unit.
type MarkerInfo struct {
	Marker    Marker
	Unit      string
	Important bool
	MinValue  float64
	MaxValue  float64
}

var allMarkers = []MarkerInfo{
	{Testosterone, "nmol/L", true, 0.05, 150},
	{FreeTestosterone, "pmol/L", true, 1, 3000},
	{Estradiol, "pmol/L", true, 5, 20000},
	{SHBG, "nmol/L", true, 1, 300},
	{Hematocrit, "%", true, 10, 80},
	{Hemoglobin, "g/dL", true, 3, 25},
	{LH, "IU/L", false, 0, 200},
	{FSH, "IU/L", false, 0, 300},
	{Prolactin, "mIU/L", false, 1, 10000},
	{PSA, "µg/L", true, 0, 1000},
	{DHEAS, "µmol/L", false, 0.1, 40},
	{Cortisol, "nmol/L", false, 5, 3000},
	{TSH, "mIU/L", false, 0.001, 150},
	{FreeT4, "pmol/L", false, 1, 150},
	{FreeT3, "pmol/L", false, 0.5, 50},
	{Glucose, "mmol/L", false, 0.5, 50},
	{TotalCholesterol, "mmol/L", false, 0.5, 25},
	{LDL, "mmol/L", false, 0.1, 20},
	{HDL, "mmol/L", false, 0.1, 10},
	{Triglycerides, "mmol/L", false, 0.1, 60},
	{Creatinine, "µmol/L", false, 10, 2000},
	{EGFR, "mL/min/1.73m²", false, 1, 200},
	{ALT, "U/L", false, 0, 5000},
	{AST, "U/L", false, 0, 5000},
	{GGT, "U/L", false, 0, 5000},
	{Ferritin, "µg/L", false, 0, 10000},
	{VitaminD, "nmol/L", false, 2, 600},
	{VitaminB12, "pmol/L", false, 20, 5000},
	{Platelets, "10^9/L", false, 1, 2000},
	{WBC, "10^9/L", false, 0.1, 300},
	{RBC, "10^12/L", false, 0.5, 10},
	{MCV, "fL", false, 40, 150},
	{CRP, "mg/L", false, 0, 500},
}

var markerIndex = func() map[Marker]MarkerInfo {
	m := make(map[Marker]MarkerInfo, len(allMarkers))
	for _, info := range allMarkers {
		m[info.Marker] = info
	}
	return m
}()

// AllMarkers returns the vocabulary in declaration order.
func AllMarkers() []MarkerInfo {
	out := make([]MarkerInfo, len(allMarkers))
	copy(out, allMarkers)
	return out
}

// AsStringSlice returns marker identifiers as strings.
func AsStringSlice() []string {
	result := make([]string, len(allMarkers))
	for i, info := range allMarkers {
		result[i] = string(info.Marker)
	}
	return result
}

// Lookup returns the vocabulary entry for m.
func Lookup(m Marker) (MarkerInfo, bool) {
	info, ok := markerIndex[m]
	return info, ok
}

// IsKnown reports whether m belongs to the closed vocabulary.
func IsKnown(m Marker) bool {
	_, ok := markerIndex[m]
	return ok
}

// IsImportant reports whether m is in the clinically important set used by
// scoring boosts and the quality gate.
func IsImportant(m Marker) bool {
	return markerIndex[m].Important
}

// CanonicalUnit returns the canonical unit of m, or "" for unknown markers.
func CanonicalUnit(m Marker) string {
	return markerIndex[m].Unit
}

// Canonicalize matches an identifier case-insensitively against the
// vocabulary. It does not resolve aliases.
func Canonicalize(input string) (Marker, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	for _, info := range allMarkers {
		if normalized == strings.ToLower(string(info.Marker)) {
			return info.Marker, true
		}
	}
	return Marker(strings.TrimSpace(input)), false
}
