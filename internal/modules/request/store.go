// README: Request store backed by PostgreSQL: current status pointer plus the
// append-only status history.
package request

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

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

const requestColumns = `
	id, requester_id, trip_id, demand_id, kind, weight,
	status_id, message, version, created_at, updated_at`

func targetColumn(t Target) string {
	if t.Kind == TargetDemand {
		return "demand_id"
	}
	return "trip_id"
}

func (s *Store) Create(ctx context.Context, r *Request) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(r.ID), string(r.RequesterID), r.TripID.Ptr(), r.DemandID.Ptr(), string(r.Kind), r.Weight,
		int16(r.Status), r.Message, r.Version, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("request.Store.Create: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Request, error) {
	r, err := scanRequest(s.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, string(id)))
	if err != nil {
		return nil, fmt.Errorf("request.Store.Get: %w", err)
	}
	return r, nil
}

func (s *Store) GetForUpdate(ctx context.Context, id types.ID) (*Request, error) {
	r, err := scanRequest(s.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, string(id)))
	if err != nil {
		return nil, fmt.Errorf("request.Store.GetForUpdate: %w", err)
	}
	return r, nil
}

// Save persists the current status if nobody else moved the request first.
func (s *Store) Save(ctx context.Context, r *Request) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE requests
		SET status_id = $1,
		    version = version + 1,
		    updated_at = $2
		WHERE id = $3 AND version = $4`,
		int16(r.Status), r.UpdatedAt, string(r.ID), r.Version,
	)
	if err != nil {
		return fmt.Errorf("request.Store.Save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request.Store.Save: %w", ErrConcurrentUpdate)
	}
	r.Version++
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, e *HistoryEntry) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO request_status_history (request_id, status_id, actor_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		string(e.RequestID), int16(e.Status), string(e.ActorID), e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("request.Store.AppendHistory: %w", err)
	}
	return nil
}

func (s *Store) History(ctx context.Context, requestID types.ID) ([]HistoryEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, request_id, status_id, actor_id, created_at
		FROM request_status_history
		WHERE request_id = $1
		ORDER BY created_at, id`, string(requestID))
	if err != nil {
		return nil, fmt.Errorf("request.Store.History: %w", err)
	}
	defer rows.Close()

	out := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var reqID, actor string
		var st int16
		if err := rows.Scan(&e.ID, &reqID, &st, &actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("request.Store.History: %w", err)
		}
		e.RequestID = types.ID(reqID)
		e.ActorID = types.ID(actor)
		e.Status = status.Status(st)
		out = append(out, e)
	}
	return out, rows.Err()
}

// AnyReached reports whether any request on the target, other than except,
// has ever been in one of the given statuses. It reads the history log, so a
// request that later moved on still counts.
func (s *Store) AnyReached(ctx context.Context, target Target, set status.Set, except types.ID) (bool, error) {
	var found bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM request_status_history h
			JOIN requests r ON r.id = h.request_id
			WHERE r.`+targetColumn(target)+` = $1
			  AND h.status_id = ANY($2)
			  AND r.id <> $3
		)`, string(target.ID), set.IDs(), string(except),
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("request.Store.AnyReached: %w", err)
	}
	return found, nil
}

// CountCurrent counts requests on the target whose current status is in set.
func (s *Store) CountCurrent(ctx context.Context, target Target, set status.Set) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM requests
		WHERE `+targetColumn(target)+` = $1 AND status_id = ANY($2)`,
		string(target.ID), set.IDs(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("request.Store.CountCurrent: %w", err)
	}
	return n, nil
}

func (s *Store) ListByTarget(ctx context.Context, target Target) ([]Request, error) {
	return s.list(ctx, "request.Store.ListByTarget", targetColumn(target)+` = $1`, string(target.ID))
}

func (s *Store) ListByRequester(ctx context.Context, requesterID types.ID) ([]Request, error) {
	return s.list(ctx, "request.Store.ListByRequester", `requester_id = $1`, string(requesterID))
}

func (s *Store) list(ctx context.Context, op, where string, arg any) ([]Request, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE `+where+`
		ORDER BY created_at DESC, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	var id, requester, kind string
	var tripID, demandID *string
	var st int16
	err := row.Scan(
		&id, &requester, &tripID, &demandID, &kind, &r.Weight,
		&st, &r.Message, &r.Version, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.ID = types.ID(id)
	r.RequesterID = types.ID(requester)
	r.TripID = types.IDFromPtr(tripID)
	r.DemandID = types.IDFromPtr(demandID)
	r.Kind = Kind(kind)
	r.Status = status.Status(st)
	return &r, nil
}
