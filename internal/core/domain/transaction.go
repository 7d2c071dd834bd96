package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultExcludedCategories are categories that never produce round-ups unless configured otherwise.
var DefaultExcludedCategories = []string{
	"ATM Withdrawal",
	"Bank Transfer",
	"Internal Transfer",
	"Tax Payment",
	"Loan Payment",
	"Fee",
	"Refund",
	"Credit Card Payment",
}

// Transaction is a card or bank movement ingested from the banking sync feed.
type Transaction struct {
	TransactionID        string          `json:"transactionID"`
	UserID               string          `json:"userID"`
	AccountID            string          `json:"accountID"`
	ExternalID           string          `json:"externalID"` // unique per user
	MerchantName         string          `json:"merchantName"`
	Category             string          `json:"category"`
	Amount               decimal.Decimal `json:"amount"`
	CurrencyCode         string          `json:"currencyCode"`
	TransactionDate      time.Time       `json:"transactionDate"`
	IsEligibleForRoundUp bool            `json:"isEligibleForRoundUp"`
	IsExcluded           bool            `json:"isExcluded"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// QualifiesForRoundUp reports whether the transaction may produce a round-up entry.
func (t Transaction) QualifiesForRoundUp() bool {
	return t.IsEligibleForRoundUp && !t.IsExcluded
}

// ExcludedMerchant is a per-user override that suppresses round-ups for a merchant.
type ExcludedMerchant struct {
	UserID       string    `json:"userID"`
	MerchantName string    `json:"merchantName"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ExclusionPolicy decides whether a transaction is excluded from round-ups.
type ExclusionPolicy struct {
	categories map[string]struct{}
	merchants  map[string]struct{}
}

// NewExclusionPolicy builds a policy from category names and a user's excluded merchants.
// Matching is case-insensitive.
func NewExclusionPolicy(categories []string, merchants []ExcludedMerchant) ExclusionPolicy {
	p := ExclusionPolicy{
		categories: make(map[string]struct{}, len(categories)),
		merchants:  make(map[string]struct{}, len(merchants)),
	}
	for _, c := range categories {
		p.categories[normalizeName(c)] = struct{}{}
	}
	for _, m := range merchants {
		p.merchants[normalizeName(m.MerchantName)] = struct{}{}
	}
	return p
}

// Excludes reports whether the given category or merchant is excluded.
func (p ExclusionPolicy) Excludes(category, merchant string) bool {
	if _, ok := p.categories[normalizeName(category)]; ok && category != "" {
		return true
	}
	if _, ok := p.merchants[normalizeName(merchant)]; ok && merchant != "" {
		return true
	}
	return false
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
