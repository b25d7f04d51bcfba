// Package money converts between the external two-decimal amount contract
// and the int64 minor units the ledger works with. Parsing never goes
// through floating point, so repeated operations cannot accumulate drift.
package money

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedAmount indicates the amount string is not a decimal with at
// most two fraction digits.
var ErrMalformedAmount = errors.New("amount must be a decimal with at most two fraction digits")

// Parse converts a decimal string such as "50", "50.5" or "50.00" into
// minor units (5000, 5050, 5000). Amounts with more than two fraction
// digits are rejected rather than rounded.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformedAmount
	}

	negative := false
	if s[0] == '-' {
		negative = true
		s = s[1:]
	} else if s[0] == '+' {
		s = s[1:]
	}

	units, frac, found := strings.Cut(s, ".")
	if units == "" && frac == "" {
		return 0, ErrMalformedAmount
	}
	if found && (len(frac) == 0 || len(frac) > 2) {
		return 0, ErrMalformedAmount
	}
	if units == "" {
		units = "0"
	}

	var minor int64
	for _, r := range units {
		if r < '0' || r > '9' {
			return 0, ErrMalformedAmount
		}
		d := int64(r - '0')
		if minor > (1<<63-1-d)/10 {
			return 0, ErrMalformedAmount
		}
		minor = minor*10 + d
	}

	// Pad the fraction to cents: "5" means 50 cents.
	for len(frac) < 2 {
		frac += "0"
	}
	var cents int64
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, ErrMalformedAmount
		}
		cents = cents*10 + int64(r-'0')
	}
	if minor > (1<<63-1-cents)/100 {
		return 0, ErrMalformedAmount
	}
	minor = minor*100 + cents

	if negative {
		minor = -minor
	}
	return minor, nil
}

// Format renders minor units as a two-decimal string: 5000 -> "50.00".
func Format(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
