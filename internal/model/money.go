package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cents is a monetary amount in integer cents. Claim amounts carry fixed
// two-decimal precision on the wire, and integer cents avoid float drift
// while the batch is being assembled.
type Cents int64

// ParseCents parses a raw feed amount like "150.00" or "-12.5" into cents,
// rounding to the nearest cent.
func ParseCents(raw string) (Cents, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("parse amount: empty value")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return Cents(math.Round(v * 100)), nil
}

// String formats the amount with two decimal places for the wire.
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders the amount as a two-decimal JSON number, matching the
// update endpoint's decimal contract.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseCents(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseIntegral parses a decimal raw value and rounds it to an integer, the
// way refill counters arrive in pharmacy feeds ("3.0" means 3 refills).
func ParseIntegral(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("parse integral: empty value")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse integral %q: %w", raw, err)
	}
	return int64(math.Round(v)), nil
}
