// README: Demand store backed by PostgreSQL.
package demand

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

const demandColumns = `
	id, owner_id, origin_city, destination_city, weight, price_per_kg,
	currency, description, deliver_by, status, version, created_at, updated_at`

func (s *Store) Create(ctx context.Context, d *Demand) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO demands (`+demandColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(d.ID), string(d.OwnerID), d.OriginCity, d.DestinationCity, d.Weight, d.PricePerKg,
		d.Currency, d.Description, d.DeliverBy, string(d.Status), d.Version, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("demand.Store.Create: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Demand, error) {
	d, err := scanDemand(s.db.QueryRow(ctx, `SELECT `+demandColumns+` FROM demands WHERE id = $1`, string(id)))
	if err != nil {
		return nil, fmt.Errorf("demand.Store.Get: %w", err)
	}
	return d, nil
}

func (s *Store) GetForUpdate(ctx context.Context, id types.ID) (*Demand, error) {
	d, err := scanDemand(s.db.QueryRow(ctx, `SELECT `+demandColumns+` FROM demands WHERE id = $1 FOR UPDATE`, string(id)))
	if err != nil {
		return nil, fmt.Errorf("demand.Store.GetForUpdate: %w", err)
	}
	return d, nil
}

func (s *Store) Save(ctx context.Context, d *Demand) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE demands
		SET origin_city = $1,
		    destination_city = $2,
		    weight = $3,
		    price_per_kg = $4,
		    description = $5,
		    deliver_by = $6,
		    status = $7,
		    version = version + 1,
		    updated_at = $8
		WHERE id = $9 AND version = $10`,
		d.OriginCity, d.DestinationCity, d.Weight, d.PricePerKg,
		d.Description, d.DeliverBy, string(d.Status), d.UpdatedAt,
		string(d.ID), d.Version,
	)
	if err != nil {
		return fmt.Errorf("demand.Store.Save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("demand.Store.Save: %w", ErrConcurrentUpdate)
	}
	d.Version++
	return nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID types.ID) ([]Demand, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+demandColumns+`
		FROM demands
		WHERE owner_id = $1
		ORDER BY created_at DESC, id`, string(ownerID))
	if err != nil {
		return nil, fmt.Errorf("demand.Store.ListByOwner: %w", err)
	}
	defer rows.Close()

	out := []Demand{}
	for rows.Next() {
		d, err := scanDemand(rows)
		if err != nil {
			return nil, fmt.Errorf("demand.Store.ListByOwner: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDemand(row pgx.Row) (*Demand, error) {
	var d Demand
	var id, owner, status string
	err := row.Scan(
		&id, &owner, &d.OriginCity, &d.DestinationCity, &d.Weight, &d.PricePerKg,
		&d.Currency, &d.Description, &d.DeliverBy, &status, &d.Version, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.ID = types.ID(id)
	d.OwnerID = types.ID(owner)
	d.Status = Status(status)
	return &d, nil
}
