// README: Common money value object used across modules.
package types

import "github.com/shopspring/decimal"

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount.Round(2), Currency: currency}
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}
