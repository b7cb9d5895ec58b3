// README: Transaction store backed by PostgreSQL. Status moves are conditional
// updates so concurrent release attempts cannot both win.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"gohappygo/internal/infra"
	"gohappygo/internal/modules/status"
	"gohappygo/internal/types"
)

type Store struct {
	db infra.Querier
}

func NewStore(db infra.Querier) *Store {
	return &Store{db: db}
}

const uniqueViolation = "23505"

const transactionColumns = `
	t.id, t.request_id, t.payer_id, t.payee_id, t.amount, t.currency,
	t.status, t.created_at, t.updated_at, t.released_at`

func (s *Store) Create(ctx context.Context, tx *Transaction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transactions (id, request_id, payer_id, payee_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(tx.ID), string(tx.RequestID), string(tx.PayerID), string(tx.PayeeID),
		tx.Amount, tx.Currency, string(tx.Status), tx.CreatedAt, tx.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("transaction.Store.Create: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("transaction.Store.Create: %w", err)
	}
	return nil
}

func (s *Store) GetByRequest(ctx context.Context, requestID types.ID) (*Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		WHERE t.request_id = $1`, string(requestID)))
	if err != nil {
		return nil, fmt.Errorf("transaction.Store.GetByRequest: %w", err)
	}
	return tx, nil
}

// MarkReleased flips pending -> released. false means someone else already
// moved the transaction.
func (s *Store) MarkReleased(ctx context.Context, id types.ID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE transactions
		SET status = 'released', released_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'pending'`, at, string(id))
	if err != nil {
		return false, fmt.Errorf("transaction.Store.MarkReleased: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel flips pending -> cancelled for a booking that was called off before
// any money moved.
func (s *Store) Cancel(ctx context.Context, id types.ID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE transactions
		SET status = 'cancelled', updated_at = $1
		WHERE id = $2 AND status = 'pending'`, at, string(id))
	if err != nil {
		return false, fmt.Errorf("transaction.Store.Cancel: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AnyMoneyMoved reports whether a transaction attached to the listing was
// released or refunded.
func (s *Store) AnyMoneyMoved(ctx context.Context, tripID, demandID types.ID) (bool, error) {
	var found bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM transactions t
			JOIN requests r ON r.id = t.request_id
			WHERE (r.trip_id = $1 OR r.demand_id = $2)
			  AND t.status IN ('released', 'refunded')
		)`, tripID.Ptr(), demandID.Ptr(),
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("transaction.Store.AnyMoneyMoved: %w", err)
	}
	return found, nil
}

// ListStuckReleases returns pending transactions whose request is already
// completed, oldest first.
func (s *Store) ListStuckReleases(ctx context.Context, limit int) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN requests r ON r.id = t.request_id
		WHERE t.status = 'pending' AND r.status_id = $1
		ORDER BY t.created_at
		LIMIT $2`, int16(status.Completed), limit)
	if err != nil {
		return nil, fmt.Errorf("transaction.Store.ListStuckReleases: %w", err)
	}
	defer rows.Close()

	out := []Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("transaction.Store.ListStuckReleases: %w", err)
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var tx Transaction
	var id, requestID, payer, payee, st string
	err := row.Scan(
		&id, &requestID, &payer, &payee, &tx.Amount, &tx.Currency,
		&st, &tx.CreatedAt, &tx.UpdatedAt, &tx.ReleasedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	tx.ID = types.ID(id)
	tx.RequestID = types.ID(requestID)
	tx.PayerID = types.ID(payer)
	tx.PayeeID = types.ID(payee)
	tx.Status = Status(st)
	return &tx, nil
}
