package remote

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/parse"
)

var reISODate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

var (
	topLevelKeys = map[string]struct{}{"modelIdentifier": {}, "testDate": {}, "markers": {}}
	markerKeys   = map[string]struct{}{
		"marker": {}, "value": {}, "unit": {}, "referenceMin": {}, "referenceMax": {}, "confidence": {},
	}
)

// NormalizeAndSanitizeJSON makes a remote response friendly to the strict
// schema:
//   - renames common synonyms (name -> marker, model -> modelIdentifier)
//   - coerces numeric strings ("18,5", "<0.1") to numbers
//   - drops null/empty optionals and unknown keys
//   - drops markers with no usable name or value
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string
	rename(m, "model", "modelIdentifier", &dropped)
	rename(m, "date", "testDate", &dropped)
	rename(m, "results", "markers", &dropped)

	if v, ok := m["modelIdentifier"].(string); ok {
		m["modelIdentifier"] = strings.TrimSpace(v)
	}
	if v, ok := m["testDate"]; ok {
		s, isStr := v.(string)
		s = strings.TrimSpace(s)
		if !isStr || !reISODate.MatchString(s) {
			delete(m, "testDate")
			dropped = append(dropped, "testDate(format)")
		} else {
			m["testDate"] = s[:10]
		}
	}

	switch list := m["markers"].(type) {
	case nil:
		delete(m, "markers")
	case []any:
		kept := make([]any, 0, len(list))
		for i, item := range list {
			mk, ok := item.(map[string]any)
			if !ok {
				dropped = append(dropped, fmt.Sprintf("markers[%d](type)", i))
				continue
			}
			if reason := sanitizeMarker(mk); reason != "" {
				dropped = append(dropped, fmt.Sprintf("markers[%d](%s)", i, reason))
				continue
			}
			kept = append(kept, mk)
		}
		m["markers"] = kept
	default:
		delete(m, "markers")
		dropped = append(dropped, "markers(type)")
	}

	for k := range m {
		if _, ok := topLevelKeys[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("remote.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// sanitizeMarker fixes one marker in place. A non-empty result means the
// marker is unusable and should be dropped.
func sanitizeMarker(mk map[string]any) string {
	var ignored []string
	rename(mk, "name", "marker", &ignored)
	rename(mk, "label", "marker", &ignored)
	rename(mk, "min", "referenceMin", &ignored)
	rename(mk, "max", "referenceMax", &ignored)

	name, _ := mk["marker"].(string)
	if name = strings.TrimSpace(name); name == "" {
		return "marker"
	}
	mk["marker"] = name

	v, ok := coerceNumber(mk["value"])
	if !ok {
		return "value"
	}
	mk["value"] = v

	for _, k := range []string{"referenceMin", "referenceMax", "confidence"} {
		raw, present := mk[k]
		if !present {
			continue
		}
		if f, ok := coerceNumber(raw); ok {
			mk[k] = f
		} else {
			delete(mk, k)
		}
	}
	if c, ok := mk["confidence"].(float64); ok && (c < 0 || c > 1) {
		delete(mk, "confidence")
	}

	if u, ok := mk["unit"].(string); ok && strings.TrimSpace(u) != "" {
		mk["unit"] = strings.TrimSpace(u)
	} else {
		delete(mk, "unit")
	}

	for k := range mk {
		if _, ok := markerKeys[k]; !ok {
			delete(mk, k)
		}
	}
	return ""
}

func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			return 0, false
		}
		return parse.ParseNumber(s)
	}
	return 0, false
}

func rename(m map[string]any, from, to string, dropped *[]string) {
	v, ok := m[from]
	if !ok {
		return
	}
	if _, exists := m[to]; !exists {
		m[to] = v
	}
	delete(m, from)
	*dropped = append(*dropped, from+"->"+to)
}
