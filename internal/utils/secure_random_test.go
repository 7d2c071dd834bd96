package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReferenceNumber(t *testing.T) {
	now := time.UnixMilli(1767225600000)

	ref, err := GenerateReferenceNumber("WD", now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^WD-1767225600000-[A-Z0-9]{6}$`), ref)

	other, err := GenerateReferenceNumber("WD", now)
	require.NoError(t, err)
	assert.NotEqual(t, ref, other, "two references generated in the same millisecond should differ")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.80", FormatAmount(decimal.RequireFromString("0.8"), "EUR"))
	assert.Equal(t, "1200", FormatAmount(decimal.NewFromInt(1200), "JPY"))
	assert.Equal(t, "1.500", FormatAmount(decimal.RequireFromString("1.5"), "KWD"))
}
