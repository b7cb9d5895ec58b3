package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohappygo/internal/types"
)

func TestService_Quote(t *testing.T) {
	svc := NewService(DefaultPolicy())

	tests := []struct {
		name       string
		weight     float64
		pricePerKg string
		want       string
	}{
		// 4 x 5 x 1.24 + 10
		{name: "four kilos", weight: 4, pricePerKg: "5", want: "34.80"},
		// 10 x 12.5 x 1.24 + 10
		{name: "full trip", weight: 10, pricePerKg: "12.5", want: "165.00"},
		// 0.3 x 7.33 x 1.24 + 10 = 12.72676
		{name: "rounds half up", weight: 0.3, pricePerKg: "7.33", want: "12.73"},
		{name: "free carriage still pays the fee", weight: 2, pricePerKg: "0", want: "10.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := svc.Quote(QuoteRequest{WeightKg: tt.weight, PricePerKg: decimal.RequireFromString(tt.pricePerKg)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Total.Amount.StringFixed(2))
			assert.Equal(t, "EUR", q.Total.Currency)
		})
	}
}

func TestService_QuoteBreakdownAddsUp(t *testing.T) {
	svc := NewService(DefaultPolicy())
	q, err := svc.Quote(QuoteRequest{WeightKg: 4, PricePerKg: decimal.NewFromInt(5), Currency: "XAF"})
	require.NoError(t, err)

	sum := q.Breakdown["carrier"].Add(q.Breakdown["surcharge"]).Add(q.Breakdown["fee"])
	assert.True(t, sum.Equal(q.Total.Amount), "breakdown %v != total %s", q.Breakdown, q.Total)
	assert.Equal(t, "XAF", q.Total.Currency)
}

func TestService_CustomPolicy(t *testing.T) {
	svc := NewService(Policy{SurchargeFactor: decimal.NewFromInt(1), FlatFee: decimal.Zero, Currency: "USD"})
	q, err := svc.Quote(QuoteRequest{WeightKg: 3, PricePerKg: decimal.NewFromInt(2)})
	require.NoError(t, err)
	assert.Equal(t, "6.00 USD", q.Total.String())
}

func TestService_QuoteRejectsBadInput(t *testing.T) {
	svc := NewService(DefaultPolicy())
	_, err := svc.Quote(QuoteRequest{WeightKg: 0, PricePerKg: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = svc.Quote(QuoteRequest{WeightKg: 1, PricePerKg: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidQuote)
}
