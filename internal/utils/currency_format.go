package utils

import (
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/shopspring/decimal"
)

// FormatAmount formats an amount with the fixed number of minor units of its currency.
// Example: 0.8 with EUR returns "0.80"
// Example: 1200 with JPY returns "1200"
func FormatAmount(amount decimal.Decimal, currencyCode string) string {
	return amount.StringFixed(domain.MinorUnits(currencyCode))
}

// FormatWithPrecision formats an amount with the given precision
// This is a convenience function when you only have the precision value
func FormatWithPrecision(amount decimal.Decimal, precision int) string {
	return amount.Round(int32(precision)).String()
}
