package domain_test

import (
	"testing"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeRoundUp(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     string
	}{
		{name: "fractional amount", amount: "4.20", currency: "EUR", want: "0.80"},
		{name: "near whole amount", amount: "47.63", currency: "EUR", want: "0.37"},
		{name: "debit sign ignored", amount: "-3.01", currency: "CHF", want: "0.99"},
		{name: "whole amount yields zero", amount: "12.00", currency: "EUR", want: "0"},
		{name: "sub-cent precision rounded first", amount: "2.999", currency: "USD", want: "0"},
		{name: "zero decimal currency", amount: "1200", currency: "JPY", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.ComputeRoundUp(dec(tt.amount), tt.currency)
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestApplyMonthlyCap(t *testing.T) {
	tests := []struct {
		name    string
		roundUp string
		accrual string
		cap     string
		want    string
	}{
		{name: "under cap", roundUp: "0.80", accrual: "10.00", cap: "50", want: "0.80"},
		{name: "exactly at cap", roundUp: "0.50", accrual: "49.50", cap: "50", want: "0.50"},
		{name: "truncated to remaining", roundUp: "0.80", accrual: "49.50", cap: "50", want: "0.50"},
		{name: "cap exhausted", roundUp: "0.80", accrual: "50.00", cap: "50", want: "0"},
		{name: "accrual above cap never negative", roundUp: "0.10", accrual: "51.00", cap: "50", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.ApplyMonthlyCap(dec(tt.roundUp), dec(tt.accrual), dec(tt.cap))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestExclusionPolicy(t *testing.T) {
	policy := domain.NewExclusionPolicy(domain.DefaultExcludedCategories, []domain.ExcludedMerchant{
		{UserID: "u1", MerchantName: "Casino Royale"},
	})

	assert.True(t, policy.Excludes("tax payment", "Finanzamt"))
	assert.True(t, policy.Excludes("Groceries", "  casino royale "))
	assert.False(t, policy.Excludes("Groceries", "Migros"))
	assert.False(t, policy.Excludes("", ""))
}

func TestTransaction_QualifiesForRoundUp(t *testing.T) {
	assert.True(t, domain.Transaction{IsEligibleForRoundUp: true}.QualifiesForRoundUp())
	assert.False(t, domain.Transaction{IsEligibleForRoundUp: true, IsExcluded: true}.QualifiesForRoundUp())
	assert.False(t, domain.Transaction{}.QualifiesForRoundUp())
}
