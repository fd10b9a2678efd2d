package gateway

import (
	"math"
	"strconv"
	"strings"

	"github.com/tripnest/backend/pkg/apperror"
)

// ToMinorUnits converts a decimal amount in major units ("1500.50") to minor
// units (150050). Digits past the second decimal place are truncated, never
// rounded. The text is parsed directly so no float conversion is involved.
func ToMinorUnits(amount string) (int64, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return 0, apperror.Validation("amount is required")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, apperror.Validation("amount must be a positive decimal number")
	}
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || major > (math.MaxInt64-99)/100 {
		return 0, apperror.Validation("amount is out of range")
	}
	minor, _ := strconv.ParseInt(frac, 10, 64)
	total := major*100 + minor
	if total <= 0 {
		return 0, apperror.Validation("amount must be positive")
	}
	return total, nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
