package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ParseCurrency converts a pt-BR formatted currency string ("R$ 1.234,56")
// into a decimal amount. "." is a thousands separator, "," the decimal
// separator. Empty or unparsable input yields zero; this never errors because
// malformed sheet cells must degrade to a sentinel, not break a sync run.
func ParseCurrency(raw string) decimal.Decimal {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return decimal.Zero
	}
	clean = strings.ReplaceAll(clean, "R$", "")
	clean = strings.Join(strings.Fields(clean), "")
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseDate normalizes DD/MM/YY and DD/MM/YYYY into ISO YYYY-MM-DD.
// Two-digit years are expanded with a "20" prefix. Input without "/" is
// passed through unchanged; empty input resolves to today's date.
func ParseDate(raw string) string {
	str := strings.TrimSpace(raw)
	if str == "" {
		return Today()
	}
	if !strings.Contains(str, "/") {
		return str
	}
	parts := strings.Split(str, "/")
	if len(parts) != 3 {
		return str
	}
	day := parts[0]
	if len(day) == 1 {
		day = "0" + day
	}
	month := parts[1]
	if len(month) == 1 {
		month = "0" + month
	}
	year := parts[2]
	if len(year) == 2 {
		year = "20" + year
	}
	return fmt.Sprintf("%s-%s-%s", year, month, day)
}

// Today returns the current date as an ISO YYYY-MM-DD string.
func Today() string {
	return time.Now().Format("2006-01-02")
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}
