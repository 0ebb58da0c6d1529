package tabular

import (
	"strings"
	"time"
)

// Accepted date formats for partner feeds, tried in order. If any of them
// parses we assume there isn't a big risk that we somehow got the wrong date.
var dateFormats = []string{
	"01/02/2006",
	"01/02/06",
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
}

// maxYear is the upper bound applied by ParseDate. Some partner feeds carry
// extreme values like 01/01/8888 that overflow downstream date handling.
const maxYear = 2100

// ParseDate attempts to parse a raw feed value in each accepted format.
// Returns nil if the input is empty or matches none of the formats.
//
// Any parsed date beyond year 2100 is clamped to year 2100 with the original
// month and day. This is a deliberate, lossy safety valve for malformed
// extreme dates seen in real feeds.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, format := range dateFormats {
		t, err := time.Parse(format, raw)
		if err != nil {
			continue
		}
		if t.Year() > maxYear {
			t = time.Date(maxYear, t.Month(), t.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, t.Location())
		}
		return &t
	}
	return nil
}

// ParseDateFast parses a raw feed value without the year-2100 clamp. Values
// that fail to parse or fall outside the representable range become nil
// rather than erroring. Callers pick this when they know their inputs stay
// within bounds and want the single-pass coercion to stay cheap.
func ParseDateFast(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, format := range dateFormats {
		t, err := time.Parse(format, raw)
		if err != nil {
			continue
		}
		if t.Year() > maxYear {
			return nil
		}
		return &t
	}
	return nil
}
