package markers

import (
	"regexp"

	"github.com/joseph-ayodele/labs-tracker/constants"
)

// aliases maps folded labels to canonical markers. Keys must already be in
// Fold form (lowercase, no diacritics, punctuation collapsed to spaces).
var aliases = map[string]constants.Marker{
	"testosterone":                       constants.Testosterone,
	"testosteron":                        constants.Testosterone,
	"total testosterone":                 constants.Testosterone,
	"testosterone total":                 constants.Testosterone,
	"testosteron totaal":                 constants.Testosterone,
	"totaal testosteron":                 constants.Testosterone,
	"testosteron gesamt":                 constants.Testosterone,
	"testosterone serum":                 constants.Testosterone,
	"tt":                                 constants.Testosterone,
	"free testosterone":                  constants.FreeTestosterone,
	"testosterone free":                  constants.FreeTestosterone,
	"vrij testosteron":                   constants.FreeTestosterone,
	"vrije testosteron":                  constants.FreeTestosterone,
	"freies testosteron":                 constants.FreeTestosterone,
	"testosterone libre":                 constants.FreeTestosterone,
	"calculated free testosterone":       constants.FreeTestosterone,
	"free testosterone calculated":       constants.FreeTestosterone,
	"cft":                                constants.FreeTestosterone,
	"ft":                                 constants.FreeTestosterone,
	"estradiol":                          constants.Estradiol,
	"oestradiol":                         constants.Estradiol,
	"ostradiol":                          constants.Estradiol,
	"estradiol e2":                       constants.Estradiol,
	"oestradiol e2":                      constants.Estradiol,
	"e2":                                 constants.Estradiol,
	"17 beta estradiol":                  constants.Estradiol,
	"shbg":                               constants.SHBG,
	"sex hormone binding globulin":       constants.SHBG,
	"geslachtshormoon bindend globuline": constants.SHBG,
	"hematocrit":                         constants.Hematocrit,
	"haematocrit":                        constants.Hematocrit,
	"hematocriet":                        constants.Hematocrit,
	"hamatokrit":                         constants.Hematocrit,
	"hct":                                constants.Hematocrit,
	"ht":                                 constants.Hematocrit,
	"pcv":                                constants.Hematocrit,
	"packed cell volume":                 constants.Hematocrit,
	"hemoglobin":                         constants.Hemoglobin,
	"haemoglobin":                        constants.Hemoglobin,
	"hemoglobine":                        constants.Hemoglobin,
	"hamoglobin":                         constants.Hemoglobin,
	"hb":                                 constants.Hemoglobin,
	"hgb":                                constants.Hemoglobin,
	"lh":                                 constants.LH,
	"luteinizing hormone":                constants.LH,
	"luteinising hormone":                constants.LH,
	"luteiniserend hormoon":              constants.LH,
	"fsh":                                constants.FSH,
	"follicle stimulating hormone":       constants.FSH,
	"follikelstimulerend hormoon":        constants.FSH,
	"prolactin":                          constants.Prolactin,
	"prolactine":                         constants.Prolactin,
	"prl":                                constants.Prolactin,
	"psa":                                constants.PSA,
	"psa total":                          constants.PSA,
	"total psa":                          constants.PSA,
	"prostate specific antigen":          constants.PSA,
	"dheas":                              constants.DHEAS,
	"dhea s":                             constants.DHEAS,
	"dhea so4":                           constants.DHEAS,
	"dhea sulfate":                       constants.DHEAS,
	"dhea sulphate":                      constants.DHEAS,
	"dehydroepiandrosterone sulfate":     constants.DHEAS,
	"cortisol":                           constants.Cortisol,
	"cortisol morning":                   constants.Cortisol,
	"tsh":                                constants.TSH,
	"thyroid stimulating hormone":        constants.TSH,
	"thyrotropin":                        constants.TSH,
	"free t4":                            constants.FreeT4,
	"ft4":                                constants.FreeT4,
	"vrij t4":                            constants.FreeT4,
	"freies t4":                          constants.FreeT4,
	"free thyroxine":                     constants.FreeT4,
	"free t3":                            constants.FreeT3,
	"ft3":                                constants.FreeT3,
	"vrij t3":                            constants.FreeT3,
	"freies t3":                          constants.FreeT3,
	"free triiodothyronine":              constants.FreeT3,
	"glucose":                            constants.Glucose,
	"glucose fasting":                    constants.Glucose,
	"fasting glucose":                    constants.Glucose,
	"glucose nuchter":                    constants.Glucose,
	"nuchter glucose":                    constants.Glucose,
	"glukose":                            constants.Glucose,
	"cholesterol":                        constants.TotalCholesterol,
	"total cholesterol":                  constants.TotalCholesterol,
	"cholesterol total":                  constants.TotalCholesterol,
	"totaal cholesterol":                 constants.TotalCholesterol,
	"cholesterol totaal":                 constants.TotalCholesterol,
	"gesamtcholesterin":                  constants.TotalCholesterol,
	"ldl":                                constants.LDL,
	"ldl c":                              constants.LDL,
	"ldl cholesterol":                    constants.LDL,
	"ldl cholesterin":                    constants.LDL,
	"hdl":                                constants.HDL,
	"hdl c":                              constants.HDL,
	"hdl cholesterol":                    constants.HDL,
	"hdl cholesterin":                    constants.HDL,
	"triglycerides":                      constants.Triglycerides,
	"triglyceride":                       constants.Triglycerides,
	"triglyceriden":                      constants.Triglycerides,
	"triglyzeride":                       constants.Triglycerides,
	"creatinine":                         constants.Creatinine,
	"creatinin":                          constants.Creatinine,
	"kreatinin":                          constants.Creatinine,
	"creat":                              constants.Creatinine,
	"egfr":                               constants.EGFR,
	"egfr ckd epi":                       constants.EGFR,
	"estimated gfr":                      constants.EGFR,
	"alt":                                constants.ALT,
	"alat":                               constants.ALT,
	"sgpt":                               constants.ALT,
	"gpt":                                constants.ALT,
	"alanine aminotransferase":           constants.ALT,
	"ast":                                constants.AST,
	"asat":                               constants.AST,
	"sgot":                               constants.AST,
	"got":                                constants.AST,
	"aspartate aminotransferase":         constants.AST,
	"ggt":                                constants.GGT,
	"gamma gt":                           constants.GGT,
	"y gt":                               constants.GGT,
	"gamma glutamyltransferase":          constants.GGT,
	"ferritin":                           constants.Ferritin,
	"ferritine":                          constants.Ferritin,
	"vitamin d":                          constants.VitaminD,
	"vitamine d":                         constants.VitaminD,
	"vitamin d3":                         constants.VitaminD,
	"vitamine d3":                        constants.VitaminD,
	"25 oh vitamin d":                    constants.VitaminD,
	"25 oh vitamine d":                   constants.VitaminD,
	"25 oh d":                            constants.VitaminD,
	"25 hydroxy vitamin d":               constants.VitaminD,
	"vitamin b12":                        constants.VitaminB12,
	"vitamine b12":                       constants.VitaminB12,
	"b12":                                constants.VitaminB12,
	"cobalamin":                          constants.VitaminB12,
	"platelets":                          constants.Platelets,
	"platelet count":                     constants.Platelets,
	"plt":                                constants.Platelets,
	"trombocyten":                        constants.Platelets,
	"thrombozyten":                       constants.Platelets,
	"wbc":                                constants.WBC,
	"leukocytes":                         constants.WBC,
	"leukocyten":                         constants.WBC,
	"leukozyten":                         constants.WBC,
	"white blood cells":                  constants.WBC,
	"white blood cell count":             constants.WBC,
	"rbc":                                constants.RBC,
	"erythrocytes":                       constants.RBC,
	"erytrocyten":                        constants.RBC,
	"erythrozyten":                       constants.RBC,
	"red blood cells":                    constants.RBC,
	"red blood cell count":               constants.RBC,
	"mcv":                                constants.MCV,
	"mean corpuscular volume":            constants.MCV,
	"crp":                                constants.CRP,
	"hs crp":                             constants.CRP,
	"hscrp":                              constants.CRP,
	"c reactive protein":                 constants.CRP,
}

type anchor struct {
	re     *regexp.Regexp
	marker constants.Marker
}

// exclusions name measurements that share a token with a catalogue marker
// but are not that marker. They are checked before the anchors; a match
// leaves the label unknown.
var exclusions = []*regexp.Regexp{
	regexp.MustCompile(`\bnon ?hdl\b`),
	regexp.MustCompile(`\bratio\b|\bquotient\b|\bverhouding\b|\bindex\b`),
	regexp.MustCompile(`\b(free|vrij|vrije|freies|frei)\s+psa\b|\bpsa\s+(free|vrij|frei)\b|\bfpsa\b`),
	regexp.MustCompile(`\ba1c\b|\bhba1c\b|glycated|glycosylated|geglyceerd|glykiert`),
	regexp.MustCompile(`corpuscular hae?moglobin|\bmch\b|\bmchc\b`),
}

// rePercentVariant matches labels carrying a percent sign next to a lipid or
// PSA token, such as "HDL %" or "PSA free/total (%)".
var rePercentVariant = regexp.MustCompile(`(?i)\b(hdl|ldl|psa)\b.*%|%.*\b(hdl|ldl|psa)\b`)

func excluded(label, folded string) bool {
	if rePercentVariant.MatchString(label) {
		return true
	}
	for _, re := range exclusions {
		if re.MatchString(folded) {
			return true
		}
	}
	return false
}

// anchors are tried in order after an exact alias miss. More specific
// patterns come first (free testosterone before testosterone, LDL before
// cholesterol, eGFR before creatinine).
var anchors = []anchor{
	{regexp.MustCompile(`\b(free|vrij|vrije|freies|bioavailable)\s+testo|\btestosteron\w*\s+(free|vrij|frei)`), constants.FreeTestosterone},
	{regexp.MustCompile(`\bsex hormone binding|\bshbg\b`), constants.SHBG},
	{regexp.MustCompile(`\btestosteron`), constants.Testosterone},
	{regexp.MustCompile(`stradiol\b|\be2\b`), constants.Estradiol},
	{regexp.MustCompile(`\bh(?:a|ae|e)matocri|\bhamatokrit|\bhct\b`), constants.Hematocrit},
	{regexp.MustCompile(`\bh(?:a|ae|e)moglobin|\bhgb\b`), constants.Hemoglobin},
	{regexp.MustCompile(`\bldl\b`), constants.LDL},
	{regexp.MustCompile(`\bhdl\b`), constants.HDL},
	{regexp.MustCompile(`cholesterol|cholesterin`), constants.TotalCholesterol},
	{regexp.MustCompile(`\bpsa\b|prostate specific`), constants.PSA},
	{regexp.MustCompile(`\bdhea`), constants.DHEAS},
	{regexp.MustCompile(`\b(free|vrij|freies)\s+t4\b|\bft4\b|thyroxine`), constants.FreeT4},
	{regexp.MustCompile(`\b(free|vrij|freies)\s+t3\b|\bft3\b|triiodothyronine`), constants.FreeT3},
	{regexp.MustCompile(`\btsh\b|thyrotropin`), constants.TSH},
	{regexp.MustCompile(`\bfsh\b|follicle stimulating|follikelstimulerend`), constants.FSH},
	{regexp.MustCompile(`\blh\b|luteini`), constants.LH},
	{regexp.MustCompile(`prolactin`), constants.Prolactin},
	{regexp.MustCompile(`cortisol`), constants.Cortisol},
	{regexp.MustCompile(`gluco|glukose`), constants.Glucose},
	{regexp.MustCompile(`triglycerid|triglyzerid`), constants.Triglycerides},
	{regexp.MustCompile(`\begfr\b|\bgfr\b`), constants.EGFR},
	{regexp.MustCompile(`creatinin|kreatinin`), constants.Creatinine},
	{regexp.MustCompile(`\b(alt|alat|sgpt)\b|alanine amino`), constants.ALT},
	{regexp.MustCompile(`\b(ast|asat|sgot)\b|aspartate amino`), constants.AST},
	{regexp.MustCompile(`\bgamma ?g|\bggt\b`), constants.GGT},
	{regexp.MustCompile(`ferritin`), constants.Ferritin},
	{regexp.MustCompile(`vitamine? d|\b25 oh\b`), constants.VitaminD},
	{regexp.MustCompile(`\bb12\b|cobalamin`), constants.VitaminB12},
	{regexp.MustCompile(`platelet|thrombo|trombo|\bplt\b`), constants.Platelets},
	{regexp.MustCompile(`leuko|leuco|white blood|\bwbc\b`), constants.WBC},
	{regexp.MustCompile(`erythro|erytro|red blood|\brbc\b`), constants.RBC},
	{regexp.MustCompile(`\bmcv\b|corpuscular volume`), constants.MCV},
	{regexp.MustCompile(`\bcrp\b|c reactive`), constants.CRP},
}
