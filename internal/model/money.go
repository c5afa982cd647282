package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Money is a fixed-point amount with two decimal places, stored as an
// integer number of cents.  Sums are plain integer addition; there is no
// rounding anywhere in the reservation path.  JSON marshals to a decimal
// string such as "25.00" so clients never see floating point.
type Money int64

// ParseMoney converts a decimal string like "10.00", "10.5" or "10" into
// Money.  At most two fractional digits are accepted and the amount must not
// be negative where callers require it; ParseMoney itself allows any sign.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid amount %q", s)
	}
	cents := int64(0)
	if frac != "" {
		if len(frac) > 2 {
			return 0, fmt.Errorf("money: more than two decimal places in %q", s)
		}
		// Pad "5" to "50" so tenths scale correctly.
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("money: invalid amount %q", s)
		}
	}
	total := units*100 + cents
	if neg {
		total = -total
	}
	return Money(total), nil
}

// Cents returns the raw integer value.
func (m Money) Cents() int64 { return int64(m) }

// String formats the amount with exactly two decimal places.
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a decimal string ("10.00") or a bare JSON
// number; numbers are interpreted as a decimal amount, not cents.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Fall back to a bare number literal.
		s = string(data)
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
