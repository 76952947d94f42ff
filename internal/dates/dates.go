// Package dates infers the sample collection date of a lab report from its
// text lines.
package dates

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const isoLayout = "2006-01-02"

// Keyword weights applied to every date on a matching line.
const (
	weightBase       = 1
	weightCollection = 10
	weightReceipt    = 4
	weightReport     = -6
	weightBirth      = -20
	weightTimeline   = 8
	minYear          = 1990
)

var (
	reYMD     = regexp.MustCompile(`\b(\d{4})([./-])(\d{1,2})([./-])(\d{1,2})(?:\b|T)`)
	reDMY     = regexp.MustCompile(`\b(\d{1,2})([./-])(\d{1,2})([./-])(\d{4}|\d{2})\b`)
	reDayMon  = regexp.MustCompile(`(?i)\b(\d{1,2})\.?\s+([a-zäé]{3,9})\.?,?\s+(\d{4})\b`)
	reMonDay  = regexp.MustCompile(`(?i)\b([a-zäé]{3,9})\.?\s+(\d{1,2}),?\s+(\d{4})\b`)
	reBareTag = regexp.MustCompile(`(?i)\b(date|dates|datum|data)\s*:`)

	reCollection = regexp.MustCompile(`(?i)\b(afname|monsterafname|collect|collection|sample date|sampling|specimen|drawn|abgenommen|abnahme|entnahme|probenahme|prelevement|prélèvement|date of collection|bloedafname)`)
	reReceipt    = regexp.MustCompile(`(?i)\b(receiv|receipt|ontvangst|ontvangen|binnenkomst|eingang|eingegangen|arrival|arrived|registered|registratie|aanvraagdatum|order date)`)
	reReport     = regexp.MustCompile(`(?i)\b(report|print|afgedrukt|rapport|uitslagdatum|befund|validated|gevalideerd|authori[sz]ed|released|generated|ausgedruckt|druckdatum|issued)`)
	reBirth      = regexp.MustCompile(`(?i)\b(geboren|geboortedatum|geburtsdatum|birth|dob\b|d\.o\.b|geb\.)`)
)

var months = map[string]time.Month{
	"jan": 1, "january": 1, "januari": 1, "januar": 1, "janvier": 1,
	"feb": 2, "february": 2, "februari": 2, "februar": 2, "fevrier": 2,
	"mar": 3, "march": 3, "mrt": 3, "maart": 3, "mär": 3, "märz": 3, "maerz": 3, "mars": 3,
	"apr": 4, "april": 4, "avril": 4,
	"may": 5, "mei": 5, "mai": 5,
	"jun": 6, "june": 6, "juni": 6, "juin": 6,
	"jul": 7, "july": 7, "juli": 7, "juillet": 7,
	"aug": 8, "august": 8, "augustus": 8, "aout": 8,
	"sep": 9, "sept": 9, "september": 9, "septembre": 9,
	"oct": 10, "october": 10, "okt": 10, "oktober": 10, "octobre": 10,
	"nov": 11, "november": 11, "novembre": 11,
	"dec": 12, "december": 12, "dez": 12, "dezember": 12, "decembre": 12,
}

// Candidate is a plausible date together with its accumulated evidence.
type Candidate struct {
	ISO       string
	Score     int
	Count     int
	FirstLine int
}

// Inference is the outcome of date inference. When Found is false, ISO holds
// today's date and callers should treat the result as low confidence.
type Inference struct {
	ISO        string
	Found      bool
	Candidates []Candidate
}

// IsToday reports whether the inferred date equals today according to now.
func (i Inference) IsToday(now time.Time) bool {
	return i.ISO == now.Format(isoLayout)
}

// Engine scores date candidates. It is safe for concurrent use.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an engine using now as its clock; nil means time.Now.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Today returns the engine's current date in ISO form.
func (e *Engine) Today() string {
	return e.now().Format(isoLayout)
}

// Infer picks the most likely test date from lines.
func (e *Engine) Infer(lines []string) Inference {
	now := e.now()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

	byISO := make(map[string]*Candidate)
	for idx, line := range lines {
		found := findDates(line, now.Year())
		if len(found) == 0 {
			continue
		}
		var valid []time.Time
		for _, d := range found {
			if d.Year() < minYear || d.After(tomorrow) {
				continue
			}
			valid = append(valid, d)
		}
		if len(valid) == 0 {
			continue
		}

		weight := weightBase
		hasKeyword := false
		if reCollection.MatchString(line) {
			weight += weightCollection
			hasKeyword = true
		}
		if reReceipt.MatchString(line) {
			weight += weightReceipt
			hasKeyword = true
		}
		if reReport.MatchString(line) {
			weight += weightReport
			hasKeyword = true
		}
		if reBirth.MatchString(line) {
			weight += weightBirth
			hasKeyword = true
		}

		latest := ""
		distinct := make(map[string]struct{})
		for _, d := range valid {
			iso := d.Format(isoLayout)
			distinct[iso] = struct{}{}
			if iso > latest {
				latest = iso
			}
			c, ok := byISO[iso]
			if !ok {
				c = &Candidate{ISO: iso, FirstLine: idx}
				byISO[iso] = c
			}
			c.Score += weight
			c.Count++
		}
		if !hasKeyword && len(distinct) >= 2 && reBareTag.MatchString(line) {
			byISO[latest].Score += weightTimeline
		}
	}

	if len(byISO) == 0 {
		return Inference{ISO: now.Format(isoLayout), Found: false}
	}
	cands := make([]Candidate, 0, len(byISO))
	for _, c := range byISO {
		cands = append(cands, *c)
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.FirstLine != b.FirstLine {
			return a.FirstLine < b.FirstLine
		}
		return a.ISO > b.ISO
	})
	return Inference{ISO: cands[0].ISO, Found: true, Candidates: cands}
}

type span struct{ start, end int }

func overlaps(spans []span, s, e int) bool {
	for _, sp := range spans {
		if s < sp.end && e > sp.start {
			return true
		}
	}
	return false
}

// findDates extracts calendar-valid dates from a line. Numeric dates must use
// the same separator twice, which keeps ranges like "1.5-12.0" out.
func findDates(line string, currentYear int) []time.Time {
	var out []time.Time
	var taken []span

	for _, m := range reYMD.FindAllStringSubmatchIndex(line, -1) {
		if line[m[4]:m[5]] != line[m[8]:m[9]] {
			continue
		}
		y, _ := strconv.Atoi(line[m[2]:m[3]])
		mo, _ := strconv.Atoi(line[m[6]:m[7]])
		d, _ := strconv.Atoi(line[m[10]:m[11]])
		if t, ok := makeDate(y, mo, d); ok {
			out = append(out, t)
			taken = append(taken, span{m[0], m[1]})
		}
	}
	for _, m := range reDMY.FindAllStringSubmatchIndex(line, -1) {
		if overlaps(taken, m[0], m[1]) || line[m[4]:m[5]] != line[m[8]:m[9]] {
			continue
		}
		a, _ := strconv.Atoi(line[m[2]:m[3]])
		b, _ := strconv.Atoi(line[m[6]:m[7]])
		y := expandYear(line[m[10]:m[11]], currentYear)
		day, month := a, b
		if b > 12 && a <= 12 {
			day, month = b, a
		}
		if t, ok := makeDate(y, month, day); ok {
			out = append(out, t)
			taken = append(taken, span{m[0], m[1]})
		}
	}
	for _, m := range reDayMon.FindAllStringSubmatchIndex(line, -1) {
		if overlaps(taken, m[0], m[1]) {
			continue
		}
		mon, ok := months[strings.ToLower(line[m[4]:m[5]])]
		if !ok {
			continue
		}
		d, _ := strconv.Atoi(line[m[2]:m[3]])
		y, _ := strconv.Atoi(line[m[6]:m[7]])
		if t, ok := makeDate(y, int(mon), d); ok {
			out = append(out, t)
			taken = append(taken, span{m[0], m[1]})
		}
	}
	for _, m := range reMonDay.FindAllStringSubmatchIndex(line, -1) {
		if overlaps(taken, m[0], m[1]) {
			continue
		}
		mon, ok := months[strings.ToLower(line[m[2]:m[3]])]
		if !ok {
			continue
		}
		d, _ := strconv.Atoi(line[m[4]:m[5]])
		y, _ := strconv.Atoi(line[m[6]:m[7]])
		if t, ok := makeDate(y, int(mon), d); ok {
			out = append(out, t)
		}
	}
	return out
}

func expandYear(s string, currentYear int) int {
	y, _ := strconv.Atoi(s)
	if len(s) == 4 {
		return y
	}
	if y <= currentYear%100+1 {
		return 2000 + y
	}
	return 1900 + y
}

func makeDate(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}
