package markers

import (
	"math"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/constants"
)

// conversions holds linear factors from a unit key to the canonical unit of
// each marker. The canonical unit itself always maps to 1.
var conversions = map[constants.Marker]map[string]float64{
	constants.Testosterone:     {"nmol/l": 1, "ng/dl": 0.0347, "ng/ml": 3.467, "ng/l": 0.003467, "ug/l": 3.467},
	constants.FreeTestosterone: {"pmol/l": 1, "pg/ml": 3.467, "ng/l": 3.467, "ng/dl": 34.67, "nmol/l": 1000},
	constants.Estradiol:        {"pmol/l": 1, "pg/ml": 3.671, "ng/l": 3.671, "nmol/l": 1000},
	constants.SHBG:             {"nmol/l": 1},
	constants.Hematocrit:       {"%": 1, "l/l": 100, "ratio": 100, "fraction": 100},
	constants.Hemoglobin:       {"g/dl": 1, "g/l": 0.1, "mmol/l": 1.611},
	constants.LH:               {"iu/l": 1, "miu/ml": 1, "u/l": 1},
	constants.FSH:              {"iu/l": 1, "miu/ml": 1, "u/l": 1},
	constants.Prolactin:        {"miu/l": 1, "mu/l": 1, "ng/ml": 21.2, "ug/l": 21.2},
	constants.PSA:              {"ug/l": 1, "ng/ml": 1},
	constants.DHEAS:            {"umol/l": 1, "ug/dl": 0.02714},
	constants.Cortisol:         {"nmol/l": 1, "ug/dl": 27.59, "ng/ml": 2.759},
	constants.TSH:              {"miu/l": 1, "mu/l": 1, "uiu/ml": 1},
	constants.FreeT4:           {"pmol/l": 1, "ng/dl": 12.87, "pg/ml": 1.287},
	constants.FreeT3:           {"pmol/l": 1, "pg/ml": 1.536, "ng/dl": 15.36},
	constants.Glucose:          {"mmol/l": 1, "mg/dl": 0.0555},
	constants.TotalCholesterol: {"mmol/l": 1, "mg/dl": 0.02586},
	constants.LDL:              {"mmol/l": 1, "mg/dl": 0.02586},
	constants.HDL:              {"mmol/l": 1, "mg/dl": 0.02586},
	constants.Triglycerides:    {"mmol/l": 1, "mg/dl": 0.01129},
	constants.Creatinine:       {"umol/l": 1, "mg/dl": 88.42},
	constants.EGFR:             {"ml/min/1.73m2": 1, "ml/min": 1},
	constants.ALT:              {"u/l": 1, "iu/l": 1, "ukat/l": 60},
	constants.AST:              {"u/l": 1, "iu/l": 1, "ukat/l": 60},
	constants.GGT:              {"u/l": 1, "iu/l": 1, "ukat/l": 60},
	constants.Ferritin:         {"ug/l": 1, "ng/ml": 1},
	constants.VitaminD:         {"nmol/l": 1, "ng/ml": 2.496, "ug/l": 2.496},
	constants.VitaminB12:       {"pmol/l": 1, "pg/ml": 0.7378, "ng/l": 0.7378},
	constants.Platelets:        {"10^9/l": 1, "10^3/ul": 1, "/nl": 1, "g/l": 1, "k/ul": 1},
	constants.WBC:              {"10^9/l": 1, "10^3/ul": 1, "/nl": 1, "g/l": 1, "k/ul": 1},
	constants.RBC:              {"10^12/l": 1, "10^6/ul": 1, "/pl": 1, "t/l": 1, "m/ul": 1},
	constants.MCV:              {"fl": 1},
	constants.CRP:              {"mg/l": 1, "mg/dl": 10},
}

var reExponent = regexp.MustCompile(`^10(?:\*\*|\^|exp|e|\*)?(\d{1,2})`)

// UnitKey reduces a unit string to a comparable lookup key.
func UnitKey(unit string) string {
	s := strings.TrimSpace(unit)
	s = strings.NewReplacer("μ", "u", "µ", "u", "²", "2", "³", "3", ",", ".").Replace(s)
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, "mcg") || strings.HasPrefix(s, "mcmol") {
		s = "u" + s[2:]
	}
	s = strings.TrimPrefix(s, "x")
	s = strings.TrimPrefix(s, "*")
	s = reExponent.ReplaceAllString(s, "10^$1")
	switch s {
	case "ie/l":
		return "iu/l"
	case "mie/l":
		return "miu/l"
	case "e/l":
		return "u/l"
	case "procent", "percent", "pct":
		return "%"
	case "mui/l":
		return "miu/l"
	}
	return s
}

// Factor returns the multiplier converting unit into the canonical unit of m.
func Factor(m constants.Marker, unit string) (float64, bool) {
	table, ok := conversions[m]
	if !ok {
		return 0, false
	}
	f, ok := table[UnitKey(unit)]
	return f, ok
}

// ToCanonical converts value from unit into m's canonical unit.
func ToCanonical(m constants.Marker, value float64, unit string) (float64, bool) {
	f, ok := Factor(m, unit)
	if !ok {
		return value, false
	}
	return value * f, true
}

// FromCanonical converts a canonical value back into unit.
func FromCanonical(m constants.Marker, value float64, unit string) (float64, bool) {
	f, ok := Factor(m, unit)
	if !ok || f == 0 {
		return value, false
	}
	return value / f, true
}

// Normalized is a value, unit and range expressed in a marker's canonical unit.
type Normalized struct {
	Value     float64
	Unit      string
	Min       *float64
	Max       *float64
	Converted bool
}

// Round rounds to the fixed three-decimal precision used for identity keys.
func Round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// NormalizeUnit converts a value and its bounds into m's canonical unit.
// Unknown markers and unconvertible units pass through with rounding only.
// A missing unit on a known marker is assumed to be canonical.
func NormalizeUnit(m constants.Marker, value float64, unit string, min, max *float64) Normalized {
	canonical := constants.CanonicalUnit(m)
	raw := strings.TrimSpace(unit)
	out := Normalized{Value: value, Unit: raw, Min: copyFloat(min), Max: copyFloat(max)}

	if canonical != "" {
		factor := 1.0
		converted := false
		if raw == "" {
			out.Unit = canonical
			converted = true
		} else if f, ok := Factor(m, raw); ok {
			factor = f
			out.Unit = canonical
			converted = true
		}
		if converted {
			out.Value = value * factor
			out.Min = scale(min, factor)
			out.Max = scale(max, factor)
			out.Converted = true
		}
		if m == constants.Hematocrit && out.Unit == canonical && factor == 1 {
			out.Value = ratioToPercent(out.Value)
			out.Min = ratioToPercentPtr(out.Min)
			out.Max = ratioToPercentPtr(out.Max)
		}
	}

	out.Value = Round(out.Value)
	out.Min = roundPtr(out.Min)
	out.Max = roundPtr(out.Max)
	return out
}

func ratioToPercent(v float64) float64 {
	if v > 0 && v <= 1.5 {
		return v * 100
	}
	return v
}

func ratioToPercentPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := ratioToPercent(*v)
	return &r
}

func scale(v *float64, f float64) *float64 {
	if v == nil {
		return nil
	}
	r := *v * f
	return &r
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round(*v)
	return &r
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := *v
	return &r
}
