package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount caps a single billing or counter amount
var MaxAmount = decimal.NewFromInt(1_000_000_000)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// ValidateAmount validates a money amount: positive, at most two decimal places, under MaxAmount
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive: %s", amount.String())
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("amount has more than two decimal places: %s", amount.String())
	}
	if amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("amount exceeds maximum limit: %s", amount.String())
	}
	return nil
}

// SanitizeString removes control characters other than tab and newline, then trims
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// SplitList splits a comma separated header value, dropping empty entries
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
