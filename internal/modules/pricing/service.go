// README: Pricing service computes the amount held for an accepted request.
package pricing

import (
	"github.com/shopspring/decimal"

	"gohappygo/internal/types"
)

var ErrInvalidQuote = types.NewError(types.ErrValidation, "invalid pricing input")

type Service struct {
	policy Policy
}

func NewService(policy Policy) *Service {
	if policy.SurchargeFactor.IsZero() {
		policy.SurchargeFactor = DefaultPolicy().SurchargeFactor
	}
	if policy.Currency == "" {
		policy.Currency = DefaultPolicy().Currency
	}
	return &Service{policy: policy}
}

func (s *Service) Policy() Policy { return s.policy }

// Quote prices a booking. The listing currency wins over the policy default.
func (s *Service) Quote(req QuoteRequest) (Quote, error) {
	if req.WeightKg <= 0 {
		return Quote{}, ErrInvalidQuote.With("weight must be greater than zero")
	}
	if req.PricePerKg.IsNegative() {
		return Quote{}, ErrInvalidQuote.With("price per kg cannot be negative")
	}
	currency := req.Currency
	if currency == "" {
		currency = s.policy.Currency
	}

	weight := decimal.NewFromFloat(req.WeightKg)
	carrier := weight.Mul(req.PricePerKg)
	withSurcharge := carrier.Mul(s.policy.SurchargeFactor)
	total := withSurcharge.Add(s.policy.FlatFee)

	return Quote{
		Total: types.NewMoney(total, currency),
		Breakdown: map[string]decimal.Decimal{
			"carrier":   carrier.Round(2),
			"surcharge": withSurcharge.Sub(carrier).Round(2),
			"fee":       s.policy.FlatFee.Round(2),
		},
	}, nil
}
