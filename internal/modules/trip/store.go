// README: Trip store backed by PostgreSQL. Works on a pool or inside a unit of work.
package trip

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gohappygo/internal/infra"
	"gohappygo/internal/types"
)

type Store struct {
	db infra.Querier
}

func NewStore(db infra.Querier) *Store {
	return &Store{db: db}
}

const tripColumns = `
	id, owner_id, departure_city, arrival_city, departure_at,
	total_capacity, remaining_capacity, price_per_kg, currency,
	sharable, instant, status, version, created_at, updated_at`

func (s *Store) Create(ctx context.Context, t *Trip) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO trips (`+tripColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		string(t.ID), string(t.OwnerID), t.DepartureCity, t.ArrivalCity, t.DepartureAt,
		t.TotalCapacity, t.RemainingCapacity, t.PricePerKg, t.Currency,
		t.Sharable, t.Instant, string(t.Status), t.Version, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("trip.Store.Create: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Trip, error) {
	t, err := scanTrip(s.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, string(id)))
	if err != nil {
		return nil, fmt.Errorf("trip.Store.Get: %w", err)
	}
	return t, nil
}

// GetForUpdate locks the trip row until the surrounding transaction ends.
// Outside a transaction the lock is released immediately, so only call it
// from a unit of work.
func (s *Store) GetForUpdate(ctx context.Context, id types.ID) (*Trip, error) {
	t, err := scanTrip(s.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 FOR UPDATE`, string(id)))
	if err != nil {
		return nil, fmt.Errorf("trip.Store.GetForUpdate: %w", err)
	}
	return t, nil
}

// Save writes every mutable field if the stored version still matches, then
// bumps t.Version.
func (s *Store) Save(ctx context.Context, t *Trip) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE trips
		SET departure_city = $1,
		    arrival_city = $2,
		    departure_at = $3,
		    total_capacity = $4,
		    remaining_capacity = $5,
		    price_per_kg = $6,
		    sharable = $7,
		    instant = $8,
		    status = $9,
		    version = version + 1,
		    updated_at = $10
		WHERE id = $11 AND version = $12`,
		t.DepartureCity, t.ArrivalCity, t.DepartureAt,
		t.TotalCapacity, t.RemainingCapacity, t.PricePerKg,
		t.Sharable, t.Instant, string(t.Status), t.UpdatedAt,
		string(t.ID), t.Version,
	)
	if err != nil {
		return fmt.Errorf("trip.Store.Save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip.Store.Save: %w", ErrConcurrentUpdate)
	}
	t.Version++
	return nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID types.ID) ([]Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE owner_id = $1
		ORDER BY departure_at DESC, id`, string(ownerID))
	if err != nil {
		return nil, fmt.Errorf("trip.Store.ListByOwner: %w", err)
	}
	defer rows.Close()

	out := []Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("trip.Store.ListByOwner: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trip.Store.ListByOwner: %w", err)
	}
	return out, nil
}

func scanTrip(row pgx.Row) (*Trip, error) {
	var t Trip
	var id, owner, status string
	err := row.Scan(
		&id, &owner, &t.DepartureCity, &t.ArrivalCity, &t.DepartureAt,
		&t.TotalCapacity, &t.RemainingCapacity, &t.PricePerKg, &t.Currency,
		&t.Sharable, &t.Instant, &status, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.ID = types.ID(id)
	t.OwnerID = types.ID(owner)
	t.Status = Status(status)
	return &t, nil
}
