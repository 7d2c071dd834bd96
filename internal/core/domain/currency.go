package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnits lists the number of decimal places for currencies that differ from the default of 2.
var minorUnits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"ISK": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
}

// MinorUnits returns the number of decimal places used by a currency.
func MinorUnits(currencyCode string) int32 {
	if units, ok := minorUnits[strings.ToUpper(currencyCode)]; ok {
		return units
	}
	return 2
}

// RoundToMinor rounds an amount to the currency's minor unit.
func RoundToMinor(amount decimal.Decimal, currencyCode string) decimal.Decimal {
	return amount.Round(MinorUnits(currencyCode))
}

// ComputeRoundUp returns the distance from |amount| to the next whole currency unit.
// Whole amounts yield zero.
func ComputeRoundUp(amount decimal.Decimal, currencyCode string) decimal.Decimal {
	abs := RoundToMinor(amount.Abs(), currencyCode)
	return abs.Ceil().Sub(abs)
}

// ApplyMonthlyCap truncates a round-up so that accrual plus the result never exceeds the cap.
func ApplyMonthlyCap(roundUp, monthToDateAccrual, monthlyCap decimal.Decimal) decimal.Decimal {
	if monthToDateAccrual.Add(roundUp).LessThanOrEqual(monthlyCap) {
		return roundUp
	}
	return decimal.Max(monthlyCap.Sub(monthToDateAccrual), decimal.Zero)
}
