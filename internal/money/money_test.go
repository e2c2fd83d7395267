package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEqualToleratesLessThanOneCent(t *testing.T) {
	require.True(t, Equal(d("100.00"), d("99.995")))
	require.True(t, Equal(d("100"), d("100")))
	require.False(t, Equal(d("100.00"), d("99.99")))
	require.False(t, Equal(d("100.00"), d("100.01")))
}

func TestIsZeroAndPositive(t *testing.T) {
	require.True(t, IsZero(d("0.009")))
	require.True(t, IsZero(d("-0.009")))
	require.False(t, IsZero(d("0.01")))
	require.True(t, Positive(d("0.01")))
	require.False(t, Positive(d("0.009")))
	require.False(t, Positive(d("-5")))
}

func TestSumMinAndClamp(t *testing.T) {
	require.True(t, Sum().IsZero())
	require.True(t, Sum(d("0.1"), d("0.2")).Equal(d("0.3")))
	require.True(t, Min(d("3"), d("2")).Equal(d("2")))
	require.True(t, NonNegative(d("-1")).IsZero())
	require.True(t, NonNegative(d("4")).Equal(d("4")))
}

func TestGroupByCurrencyKeepsCurrenciesApart(t *testing.T) {
	totals := GroupByCurrency([]Amount{
		{Currency: "try", Value: d("100")},
		{Currency: " TRY ", Value: d("50.5")},
		{Currency: "USD", Value: d("10")},
	})
	require.Len(t, totals, 2)
	require.True(t, totals["TRY"].Equal(d("150.5")))
	require.True(t, totals["USD"].Equal(d("10")))
}

func TestSameCurrency(t *testing.T) {
	require.True(t, SameCurrency("try", "TRY"))
	require.True(t, SameCurrency("", "USD"))
	require.False(t, SameCurrency("EUR", "USD"))
}
