// README: Booking service: listing lifecycle, request protocols, completion
// with fund release, and the guards that protect bookings in flight.
package booking

import (
	"context"
	"log/slog"
	"time"

	"gohappygo/internal/cache"
	"gohappygo/internal/metrics"
	"gohappygo/internal/modules/demand"
	"gohappygo/internal/modules/pricing"
	"gohappygo/internal/modules/request"
	"gohappygo/internal/modules/transaction"
	"gohappygo/internal/modules/trip"
	"gohappygo/internal/notify"
	"gohappygo/internal/payment"
	"gohappygo/internal/types"
)

type Identity interface {
	IsVerified(ctx context.Context, userID types.ID) (bool, error)
}

type Pricer interface {
	Quote(req pricing.QuoteRequest) (pricing.Quote, error)
}

type Deps struct {
	UnitOfWork UnitOfWork
	Pricing    Pricer
	Payments   payment.Gateway
	Notifier   notify.Notifier
	Identity   Identity
	Cache      cache.Cache
	CacheTTL   time.Duration
	// Currency is used for listings created without one.
	Currency string
	Logger   *slog.Logger
	Now      func() time.Time
}

type Service struct {
	uow      UnitOfWork
	pricing  Pricer
	payments payment.Gateway
	notifier notify.Notifier
	identity Identity
	cache    cache.Cache
	cacheTTL time.Duration
	currency string
	log      *slog.Logger
	now      func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		uow:      d.UnitOfWork,
		pricing:  d.Pricing,
		payments: d.Payments,
		notifier: d.Notifier,
		identity: d.Identity,
		cache:    d.Cache,
		cacheTTL: d.CacheTTL,
		currency: d.Currency,
		log:      d.Logger,
		now:      d.Now,
	}
	if s.pricing == nil {
		s.pricing = pricing.NewService(pricing.DefaultPolicy())
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 30 * time.Second
	}
	if s.currency == "" {
		s.currency = "EUR"
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Booking is a request together with the transaction holding its funds, if any.
type Booking struct {
	Request     *request.Request         `json:"request"`
	Transaction *transaction.Transaction `json:"transaction,omitempty"`
}

type CreateTripCommand struct {
	OwnerID       types.ID
	DepartureCity string
	ArrivalCity   string
	DepartureAt   time.Time
	TotalCapacity float64
	PricePerKg    string
	Currency      string
	Sharable      bool
	Instant       bool
}

type UpdateTripCommand struct {
	TripID   types.ID
	CallerID types.ID
	Update   trip.Update
}

type CreateDemandCommand struct {
	OwnerID         types.ID
	OriginCity      string
	DestinationCity string
	Weight          float64
	PricePerKg      string
	Currency        string
	Description     string
	DeliverBy       *time.Time
}

type UpdateDemandCommand struct {
	DemandID types.ID
	CallerID types.ID
	Update   demand.Update
}

type CancelListingCommand struct {
	ListingID types.ID
	CallerID  types.ID
}

type CreateRequestCommand struct {
	RequesterID types.ID
	TripID      types.ID
	DemandID    types.ID
	Kind        request.Kind
	Weight      float64
	Message     string
}

type AcceptCommand struct {
	RequestID types.ID
	CallerID  types.ID
}

type RejectCommand struct {
	RequestID types.ID
	CallerID  types.ID
}

type CompleteCommand struct {
	RequestID types.ID
	CallerID  types.ID
}

type CancelCommand struct {
	RequestID types.ID
	CallerID  types.ID
}

// ReleaseCommand retries a stuck fund release. An empty CallerID is the
// system (settlement job).
type ReleaseCommand struct {
	RequestID types.ID
	CallerID  types.ID
}

func (s *Service) observe(op string, start time.Time, err error) {
	metrics.BookingOperations.WithLabelValues(op, metrics.Outcome(err)).Inc()
	metrics.BookingDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *Service) requireVerified(ctx context.Context, userID types.ID) error {
	if s.identity == nil {
		return nil
	}
	ok, err := s.identity.IsVerified(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "identity lookup failed", "user_id", userID, "error", err)
		return ErrIdentityFailed
	}
	if !ok {
		return ErrUnverified
	}
	return nil
}

// invalidate retires cached views after a committed mutation. A failure leaves
// views stale until their TTL, so it is logged rather than returned.
func (s *Service) invalidate(ctx context.Context, tags ...string) {
	if err := s.cache.Invalidate(ctx, tags...); err != nil {
		metrics.CacheInvalidationFailures.Inc()
		s.log.ErrorContext(ctx, "cache invalidation failed", "tags", tags, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, userID types.ID, event notify.Event, payload map[string]string) {
	if err := s.notifier.Notify(ctx, userID, event, payload); err != nil {
		s.log.WarnContext(ctx, "notification failed", "user_id", userID, "event", event, "error", err)
	}
}

// cachedList serves a list view from the cache, loading and storing it on a
// miss. The stamp is taken before loading, so a view loaded across a
// concurrent mutation is stored under generations that mutation retired.
func cachedList[T any](ctx context.Context, s *Service, key string, tags []string, load func() ([]T, error)) ([]T, error) {
	stamp, err := s.cache.Stamp(ctx, tags...)
	if err != nil {
		s.log.WarnContext(ctx, "cache stamp failed", "key", key, "error", err)
		return load()
	}
	key = stamp.Key(key)

	var out []T
	hit, err := s.cache.Get(ctx, key, &out)
	if err != nil {
		s.log.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}
	if hit {
		return out, nil
	}
	out, err = load()
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, out, s.cacheTTL); err != nil {
		s.log.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return out, nil
}
