package domain

import (
	"github.com/shopspring/decimal"
)

// Instrument is one position of a model portfolio.
type Instrument struct {
	Symbol string
	Name   string
	Weight decimal.Decimal
}

// Allocation is the amount to invest in one instrument.
type Allocation struct {
	Symbol string
	Name   string
	Amount decimal.Decimal
}

func instrument(symbol, name, weight string) Instrument {
	return Instrument{Symbol: symbol, Name: name, Weight: decimal.RequireFromString(weight)}
}

var modelPortfolios = map[RiskProfile][]Instrument{
	Conservative: {
		instrument("AGG", "iShares Core U.S. Aggregate Bond ETF", "0.40"),
		instrument("BND", "Vanguard Total Bond Market ETF", "0.30"),
		instrument("VTI", "Vanguard Total Stock Market ETF", "0.20"),
		instrument("SGOV", "iShares 0-3 Month Treasury Bond ETF", "0.10"),
	},
	Balanced: {
		instrument("VTI", "Vanguard Total Stock Market ETF", "0.30"),
		instrument("VXUS", "Vanguard Total International Stock ETF", "0.20"),
		instrument("AGG", "iShares Core U.S. Aggregate Bond ETF", "0.25"),
		instrument("BND", "Vanguard Total Bond Market ETF", "0.15"),
		instrument("SGOV", "iShares 0-3 Month Treasury Bond ETF", "0.10"),
	},
	Growth: {
		instrument("VTI", "Vanguard Total Stock Market ETF", "0.35"),
		instrument("QQQ", "Invesco QQQ Trust", "0.25"),
		instrument("VXUS", "Vanguard Total International Stock ETF", "0.20"),
		instrument("AGG", "iShares Core U.S. Aggregate Bond ETF", "0.15"),
		instrument("SGOV", "iShares 0-3 Month Treasury Bond ETF", "0.05"),
	},
}

// ModelPortfolio returns the instruments for a risk profile, falling back to Balanced.
func ModelPortfolio(profile RiskProfile) []Instrument {
	if p, ok := modelPortfolios[profile]; ok {
		return p
	}
	return modelPortfolios[Balanced]
}

// Allocate splits amount across the profile's instruments. Each leg is truncated to the
// currency's minor unit and the remainder goes to the heaviest instrument, so the legs
// always sum to amount. Zero legs are dropped.
func Allocate(amount decimal.Decimal, currencyCode string, profile RiskProfile) []Allocation {
	instruments := ModelPortfolio(profile)
	units := MinorUnits(currencyCode)

	legs := make([]Allocation, len(instruments))
	heaviest := 0
	allocated := decimal.Zero
	for i, ins := range instruments {
		legAmount := amount.Mul(ins.Weight).Truncate(units)
		legs[i] = Allocation{Symbol: ins.Symbol, Name: ins.Name, Amount: legAmount}
		allocated = allocated.Add(legAmount)
		if ins.Weight.GreaterThan(instruments[heaviest].Weight) {
			heaviest = i
		}
	}
	legs[heaviest].Amount = legs[heaviest].Amount.Add(amount.Sub(allocated))

	out := legs[:0]
	for _, leg := range legs {
		if leg.Amount.IsPositive() {
			out = append(out, leg)
		}
	}
	return out
}
