package fields

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Date confidences.
const (
	DateParsedConfidence = 90
	DateRawConfidence    = 50
)

// DateOrder decides whether ambiguous numeric dates are read day-first or month-first.
type DateOrder string

const (
	DayFirst   DateOrder = "day_first"
	MonthFirst DateOrder = "month_first"
)

var (
	dayFirstLayouts = []string{
		"2-1-2006", "2/1/2006", "1-2-2006", "1/2/2006",
		"2-1-06", "2/1/06", "1-2-06", "1/2/06",
	}
	monthFirstLayouts = []string{
		"1-2-2006", "1/2/2006", "2-1-2006", "2/1/2006",
		"1-2-06", "1/2/06", "2-1-06", "2/1/06",
	}
)

// Layouts returns the parse templates tried, in order, for o.
func (o DateOrder) Layouts() []string {
	if o == MonthFirst {
		return append([]string(nil), monthFirstLayouts...)
	}
	return append([]string(nil), dayFirstLayouts...)
}

// ParseDateOrder accepts "day_first" (default when empty) or "month_first".
func ParseDateOrder(s string) (DateOrder, error) {
	switch DateOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", DayFirst:
		return DayFirst, nil
	case MonthFirst:
		return MonthFirst, nil
	default:
		return "", fmt.Errorf("unknown date order %q", s)
	}
}

// A trailing time of day is matched so it is not mistaken for part of the date, then ignored.
// The digit guards keep a date from being cut out of a longer number such as 2023-11-12.
var reDate = regexp.MustCompile(`(?:^|[^\d])(\d{1,2}[/-]\d{1,2}[/-](?:\d{4}|\d{2}))(?:\s+\d{1,2}:\d{2}(?::\d{2})?)?(?:[^\d]|$)`)

// DateField is the extracted transaction date.
type DateField struct {
	// Value is YYYY-MM-DD when parsed, the raw match when not, nil when absent.
	Value      *string
	Raw        string
	Parsed     *time.Time
	Confidence int
}

// ExtractDate finds the first date-shaped substring and parses it against the configured
// layouts. An unparseable match is kept verbatim at reduced confidence.
func (e *Extractor) ExtractDate(text string) DateField {
	m := reDate.FindStringSubmatch(text)
	if m == nil {
		return DateField{}
	}
	raw := m[1]
	for _, layout := range e.dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		iso := t.Format("2006-01-02")
		return DateField{Value: &iso, Raw: raw, Parsed: &t, Confidence: DateParsedConfidence}
	}
	return DateField{Value: &raw, Raw: raw, Confidence: DateRawConfidence}
}
