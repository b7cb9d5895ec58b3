// README: Transaction: the money held for one accepted request.
package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"gohappygo/internal/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusReleased  Status = "released"
	StatusRefunded  Status = "refunded"
	StatusCancelled Status = "cancelled"
)

// MoneyMoved reports statuses where funds already left custody.
func (s Status) MoneyMoved() bool {
	return s == StatusReleased || s == StatusRefunded
}

var (
	ErrNotFound  = types.NewError(types.ErrNotFound, "transaction not found")
	ErrDuplicate = types.NewError(types.ErrConflict, "request already has a transaction")
)

type Transaction struct {
	ID         types.ID        `json:"id"`
	RequestID  types.ID        `json:"requestId"`
	PayerID    types.ID        `json:"payerId"`
	PayeeID    types.ID        `json:"payeeId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	ReleasedAt *time.Time      `json:"releasedAt,omitempty"`
}

func (t Transaction) Money() types.Money {
	return types.NewMoney(t.Amount, t.Currency)
}
