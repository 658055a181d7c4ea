package refine

import (
	"regexp"
	"strings"
)

// Date normalization for resume attributes, run before grounding so that
// downstream storage sees a single YYYY.MM format. Values it cannot parse
// are left alone.

// timeAttrs are the attribute fields subject to date normalization.
var timeAttrs = []string{"period_start", "period_end", "date", "expiry"}

// passthroughDates are kept verbatim: they mark open-ended ranges.
var passthroughDates = map[string]struct{}{
	"至今":      {},
	"至今在职":    {},
	"在职":      {},
	"present": {},
	"now":     {},
	"current": {},
}

var monthNames = map[string]string{
	"jan": "01", "feb": "02", "mar": "03", "apr": "04",
	"may": "05", "jun": "06", "jul": "07", "aug": "08",
	"sep": "09", "oct": "10", "nov": "11", "dec": "12",
	"january": "01", "february": "02", "march": "03", "april": "04",
	"june": "06", "july": "07", "august": "08",
	"september": "09", "october": "10", "november": "11", "december": "12",
}

var (
	reCanonical  = regexp.MustCompile(`^\d{4}\.\d{2}$`)
	reShortMonth = regexp.MustCompile(`^(\d{4})\.(\d)$`)
	reYearOnly   = regexp.MustCompile(`^(\d{4})\s*年?$`)
	reCJKDate    = regexp.MustCompile(`^(\d{4})\s*年\s*(\d{1,2})\s*月?$`)
	reSlashDate  = regexp.MustCompile(`^(\d{4})/(\d{1,2})$`)
	reDashDate   = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	reNamedMonth = regexp.MustCompile(`^([A-Za-z]+)\s+(\d{4})$`)
)

// TimeNormalizer rewrites date-bearing attributes to YYYY.MM.
type TimeNormalizer struct{}

// NewTimeNormalizer creates a date normalizer.
func NewTimeNormalizer() *TimeNormalizer {
	return &TimeNormalizer{}
}

// Process normalizes the time attributes of every item. Items with no time
// attributes pass through untouched; items with them get a patched copy of
// the attribute map.
func (n *TimeNormalizer) Process(items []*Item) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		patched := it
		for _, field := range timeAttrs {
			raw, ok := stringAttr(patched, field)
			if !ok {
				continue
			}
			norm := NormalizeDate(raw)
			if norm == raw {
				continue
			}
			if patched == it {
				patched = it.Clone()
				patched.Attributes = cloneAttrs(it.Attributes)
			}
			patched.Attributes[field] = norm
		}
		out = append(out, patched)
	}
	return out
}

// NormalizeDate rewrites one date string to YYYY.MM, keeping passthrough
// tokens and unrecognized values verbatim.
func NormalizeDate(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return value
	}
	if _, ok := passthroughDates[strings.ToLower(v)]; ok {
		return v
	}
	if reCanonical.MatchString(v) {
		return v
	}
	if m := reShortMonth.FindStringSubmatch(v); m != nil {
		return m[1] + ".0" + m[2]
	}
	if m := reYearOnly.FindStringSubmatch(v); m != nil {
		return m[1] + ".01"
	}
	if m := reCJKDate.FindStringSubmatch(v); m != nil {
		return m[1] + "." + padMonth(m[2])
	}
	if m := reSlashDate.FindStringSubmatch(v); m != nil {
		return m[1] + "." + padMonth(m[2])
	}
	if m := reDashDate.FindStringSubmatch(v); m != nil {
		return m[1] + "." + padMonth(m[2])
	}
	if m := reNamedMonth.FindStringSubmatch(v); m != nil {
		if month, ok := monthNames[strings.ToLower(m[1])]; ok {
			return m[2] + "." + month
		}
	}
	return value
}

func padMonth(m string) string {
	if len(m) == 1 {
		return "0" + m
	}
	return m
}

func stringAttr(it *Item, key string) (string, bool) {
	if it.Attributes == nil {
		return "", false
	}
	s, ok := it.Attributes[key].(string)
	return s, ok
}

func cloneAttrs(attrs map[string]any) map[string]any {
	cp := make(map[string]any, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return cp
}
