package constants

// Warning is a machine-readable code attached to an extraction draft.
type Warning string

const (
	WarningTextExtractionFailed Warning = "TEXT_EXTRACTION_FAILED"
	WarningEmptyTextLayer       Warning = "EMPTY_TEXT_LAYER"
	WarningOCRInitFailed        Warning = "OCR_INIT_FAILED"
	WarningOCRPartial           Warning = "OCR_PARTIAL"
	WarningOCRTimedOut          Warning = "OCR_TIMED_OUT"
	WarningLowConfidenceLocal   Warning = "LOW_CONFIDENCE_LOCAL"
	WarningDateNotFound         Warning = "DATE_NOT_FOUND"
	WarningRemoteUnavailable    Warning = "REMOTE_UNAVAILABLE"
	WarningInternalError        Warning = "INTERNAL_ERROR"
)

// warningPriority orders codes when a single headline code is reported.
var warningPriority = []Warning{
	WarningInternalError,
	WarningTextExtractionFailed,
	WarningOCRInitFailed,
	WarningOCRTimedOut,
	WarningEmptyTextLayer,
	WarningOCRPartial,
	WarningLowConfidenceLocal,
	WarningRemoteUnavailable,
	WarningDateNotFound,
}

// PrimaryWarning picks the most severe code present in ws.
func PrimaryWarning(ws []Warning) (Warning, bool) {
	if len(ws) == 0 {
		return "", false
	}
	present := make(map[Warning]struct{}, len(ws))
	for _, w := range ws {
		present[w] = struct{}{}
	}
	for _, w := range warningPriority {
		if _, ok := present[w]; ok {
			return w, true
		}
	}
	return ws[0], true
}
