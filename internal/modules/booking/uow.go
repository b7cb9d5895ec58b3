// README: Unit of work: every booking mutation runs inside one database
// transaction, handed to the protocol as a set of transaction-bound stores.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gohappygo/internal/infra"
	"gohappygo/internal/modules/demand"
	"gohappygo/internal/modules/request"
	"gohappygo/internal/modules/status"
	"gohappygo/internal/modules/transaction"
	"gohappygo/internal/modules/trip"
	"gohappygo/internal/types"
)

type TripRepo interface {
	Create(ctx context.Context, t *trip.Trip) error
	Get(ctx context.Context, id types.ID) (*trip.Trip, error)
	GetForUpdate(ctx context.Context, id types.ID) (*trip.Trip, error)
	Save(ctx context.Context, t *trip.Trip) error
	ListByOwner(ctx context.Context, ownerID types.ID) ([]trip.Trip, error)
}

type DemandRepo interface {
	Create(ctx context.Context, d *demand.Demand) error
	Get(ctx context.Context, id types.ID) (*demand.Demand, error)
	GetForUpdate(ctx context.Context, id types.ID) (*demand.Demand, error)
	Save(ctx context.Context, d *demand.Demand) error
	ListByOwner(ctx context.Context, ownerID types.ID) ([]demand.Demand, error)
}

type RequestRepo interface {
	Create(ctx context.Context, r *request.Request) error
	Get(ctx context.Context, id types.ID) (*request.Request, error)
	GetForUpdate(ctx context.Context, id types.ID) (*request.Request, error)
	Save(ctx context.Context, r *request.Request) error
	AppendHistory(ctx context.Context, e *request.HistoryEntry) error
	History(ctx context.Context, requestID types.ID) ([]request.HistoryEntry, error)
	AnyReached(ctx context.Context, target request.Target, set status.Set, except types.ID) (bool, error)
	CountCurrent(ctx context.Context, target request.Target, set status.Set) (int, error)
	ListByTarget(ctx context.Context, target request.Target) ([]request.Request, error)
	ListByRequester(ctx context.Context, requesterID types.ID) ([]request.Request, error)
}

type TransactionRepo interface {
	Create(ctx context.Context, tx *transaction.Transaction) error
	GetByRequest(ctx context.Context, requestID types.ID) (*transaction.Transaction, error)
	MarkReleased(ctx context.Context, id types.ID, at time.Time) (bool, error)
	Cancel(ctx context.Context, id types.ID, at time.Time) (bool, error)
	AnyMoneyMoved(ctx context.Context, tripID, demandID types.ID) (bool, error)
	ListStuckReleases(ctx context.Context, limit int) ([]transaction.Transaction, error)
}

type Repos struct {
	Trips        TripRepo
	Demands      DemandRepo
	Requests     RequestRepo
	Transactions TransactionRepo
}

type UnitOfWork interface {
	// Do runs fn in one transaction. fn's error rolls everything back.
	Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
	// Reader returns stores for reads outside any transaction.
	Reader() Repos
}

func reposFor(db infra.Querier) Repos {
	return Repos{
		Trips:        trip.NewStore(db),
		Demands:      demand.NewStore(db),
		Requests:     request.NewStore(db),
		Transactions: transaction.NewStore(db),
	}
}

// PgUnitOfWork runs units of work as READ COMMITTED transactions; protocols
// take row locks (SELECT ... FOR UPDATE) on the listing first, then the request.
type PgUnitOfWork struct {
	pool *pgxpool.Pool
}

func NewPgUnitOfWork(pool *pgxpool.Pool) *PgUnitOfWork {
	return &PgUnitOfWork{pool: pool}
}

func (u *PgUnitOfWork) Reader() Repos { return reposFor(u.pool) }

func (u *PgUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("booking.PgUnitOfWork.Do: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, reposFor(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("booking.PgUnitOfWork.Do: commit: %w", err)
	}
	return nil
}
