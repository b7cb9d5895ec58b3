// README: Pricing policy for accepted requests and the quote it produces.
package pricing

import (
	"github.com/shopspring/decimal"

	"gohappygo/internal/types"
)

// Policy holds the platform factors applied on top of the carrier's price.
// Defaults reproduce amount = weight x pricePerKg x 1.24 + 10.
type Policy struct {
	SurchargeFactor decimal.Decimal
	FlatFee         decimal.Decimal
	Currency        string
}

func DefaultPolicy() Policy {
	return Policy{
		SurchargeFactor: decimal.RequireFromString("1.24"),
		FlatFee:         decimal.NewFromInt(10),
		Currency:        "EUR",
	}
}

type QuoteRequest struct {
	WeightKg   float64
	PricePerKg decimal.Decimal
	Currency   string
}

type Quote struct {
	Total     types.Money
	Breakdown map[string]decimal.Decimal
}
