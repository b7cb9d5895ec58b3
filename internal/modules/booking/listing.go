// README: Trip and demand lifecycle (create, edit, cancel) and the structural
// mutation guards shared by both listing kinds.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gohappygo/internal/cache"
	"gohappygo/internal/modules/demand"
	"gohappygo/internal/modules/request"
	"gohappygo/internal/modules/status"
	"gohappygo/internal/modules/trip"
	"gohappygo/internal/types"
)

var ErrInvalidPrice = types.NewError(types.ErrValidation, "price per kg must be a decimal number")

// listing is the locked target of a request: exactly one of trip or demand.
type listing struct {
	target request.Target
	trip   *trip.Trip
	demand *demand.Demand
}

func lockListing(ctx context.Context, r Repos, target request.Target) (*listing, error) {
	l := &listing{target: target}
	var err error
	if target.Kind == request.TargetTrip {
		l.trip, err = r.Trips.GetForUpdate(ctx, target.ID)
	} else {
		l.demand, err = r.Demands.GetForUpdate(ctx, target.ID)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (l *listing) ownerID() types.ID {
	if l.trip != nil {
		return l.trip.OwnerID
	}
	return l.demand.OwnerID
}

func (l *listing) save(ctx context.Context, r Repos, at time.Time) error {
	if l.trip != nil {
		l.trip.UpdatedAt = at
		return r.Trips.Save(ctx, l.trip)
	}
	l.demand.UpdatedAt = at
	return r.Demands.Save(ctx, l.demand)
}

func (l *listing) cancelled() bool {
	if l.trip != nil {
		return l.trip.Status == trip.StatusCancelled
	}
	return l.demand.Status == demand.StatusCancelled
}

func (l *listing) markCancelled() {
	if l.trip != nil {
		l.trip.Status = trip.StatusCancelled
		return
	}
	l.demand.Status = demand.StatusCancelled
}

func listingTag(target request.Target) string {
	if target.Kind == request.TargetTrip {
		return cache.TripTag(target.ID)
	}
	return cache.DemandTag(target.ID)
}

// guardUpdate rejects edits once any request on the listing ever reached an
// update-blocking status.
func guardUpdate(ctx context.Context, r Repos, target request.Target) error {
	blocked, err := r.Requests.AnyReached(ctx, target, status.UpdateBlocking, "")
	if err != nil {
		return err
	}
	if blocked {
		return ErrHasAcceptedRequest
	}
	return nil
}

// guardDelete is stricter: open negotiations block too, as does any money
// that already moved.
func guardDelete(ctx context.Context, r Repos, target request.Target) error {
	if err := guardUpdate(ctx, r, target); err != nil {
		return err
	}
	open, err := r.Requests.CountCurrent(ctx, target, status.Set{status.Negotiating})
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrHasOpenNegotiation
	}
	var tripID, demandID types.ID
	if target.Kind == request.TargetTrip {
		tripID = target.ID
	} else {
		demandID = target.ID
	}
	moved, err := r.Transactions.AnyMoneyMoved(ctx, tripID, demandID)
	if err != nil {
		return err
	}
	if moved {
		return ErrMoneyMoved
	}
	return nil
}

func parsePrice(v string) (decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, ErrInvalidPrice.With(v)
	}
	return d, nil
}

func (s *Service) CreateTrip(ctx context.Context, cmd CreateTripCommand) (_ *trip.Trip, err error) {
	defer func(start time.Time) { s.observe("create_trip", start, err) }(time.Now())

	price, err := parsePrice(cmd.PricePerKg)
	if err != nil {
		return nil, err
	}
	now := s.now()
	t := &trip.Trip{
		ID:                types.NewID(),
		OwnerID:           cmd.OwnerID,
		DepartureCity:     strings.TrimSpace(cmd.DepartureCity),
		ArrivalCity:       strings.TrimSpace(cmd.ArrivalCity),
		DepartureAt:       cmd.DepartureAt,
		TotalCapacity:     cmd.TotalCapacity,
		RemainingCapacity: cmd.TotalCapacity,
		PricePerKg:        price,
		Currency:          cmd.Currency,
		Sharable:          cmd.Sharable,
		Instant:           cmd.Instant,
		Status:            trip.StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if t.Currency == "" {
		t.Currency = s.currency
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.uow.Do(ctx, func(ctx context.Context, r Repos) error {
		return r.Trips.Create(ctx, t)
	}); err != nil {
		return nil, fmt.Errorf("booking.Service.CreateTrip: %w", err)
	}
	s.invalidate(ctx, cache.UserTag(t.OwnerID))
	s.log.InfoContext(ctx, "trip created", "trip_id", t.ID, "owner_id", t.OwnerID, "instant", t.Instant, "sharable", t.Sharable)
	return t, nil
}

func (s *Service) UpdateTrip(ctx context.Context, cmd UpdateTripCommand) (_ *trip.Trip, err error) {
	defer func(start time.Time) { s.observe("update_trip", start, err) }(time.Now())

	var t *trip.Trip
	err = s.uow.Do(ctx, func(ctx context.Context, r Repos) error {
		var err error
		if t, err = r.Trips.GetForUpdate(ctx, cmd.TripID); err != nil {
			return err
		}
		if t.OwnerID != cmd.CallerID {
			return ErrNotOwner
		}
		if err := guardUpdate(ctx, r, request.TripTarget(t.ID)); err != nil {
			return err
		}
		if err := t.Apply(cmd.Update); err != nil {
			return err
		}
		t.UpdatedAt = s.now()
		return r.Trips.Save(ctx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("booking.Service.UpdateTrip: %w", err)
	}
	s.invalidate(ctx, cache.TripTag(t.ID), cache.UserTag(t.OwnerID))
	return t, nil
}

func (s *Service) CancelTrip(ctx context.Context, cmd CancelListingCommand) (err error) {
	defer func(start time.Time) { s.observe("cancel_trip", start, err) }(time.Now())
	if err := s.cancelListing(ctx, request.TripTarget(cmd.ListingID), cmd.CallerID); err != nil {
		return fmt.Errorf("booking.Service.CancelTrip: %w", err)
	}
	return nil
}

func (s *Service) CancelDemand(ctx context.Context, cmd CancelListingCommand) (err error) {
	defer func(start time.Time) { s.observe("cancel_demand", start, err) }(time.Now())
	if err := s.cancelListing(ctx, request.DemandTarget(cmd.ListingID), cmd.CallerID); err != nil {
		return fmt.Errorf("booking.Service.CancelDemand: %w", err)
	}
	return nil
}

func (s *Service) cancelListing(ctx context.Context, target request.Target, callerID types.ID) error {
	var owner types.ID
	err := s.uow.Do(ctx, func(ctx context.Context, r Repos) error {
		l, err := lockListing(ctx, r, target)
		if err != nil {
			return err
		}
		owner = l.ownerID()
		if owner != callerID {
			return ErrNotOwner
		}
		if l.cancelled() {
			return ErrListingCancelled
		}
		if err := guardDelete(ctx, r, target); err != nil {
			return err
		}
		l.markCancelled()
		return l.save(ctx, r, s.now())
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, listingTag(target), cache.UserTag(owner))
	s.log.InfoContext(ctx, "listing cancelled", "target", target.String(), "owner_id", owner)
	return nil
}

func (s *Service) GetTrip(ctx context.Context, id types.ID) (*trip.Trip, error) {
	t, err := s.uow.Reader().Trips.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.GetTrip: %w", err)
	}
	return t, nil
}

func (s *Service) ListMyTrips(ctx context.Context, ownerID types.ID) ([]trip.Trip, error) {
	key := cache.Key("trips:mine", ownerID)
	trips, err := cachedList(ctx, s, key, []string{cache.UserTag(ownerID)}, func() ([]trip.Trip, error) {
		return s.uow.Reader().Trips.ListByOwner(ctx, ownerID)
	})
	if err != nil {
		return nil, fmt.Errorf("booking.Service.ListMyTrips: %w", err)
	}
	return trips, nil
}

func (s *Service) CreateDemand(ctx context.Context, cmd CreateDemandCommand) (_ *demand.Demand, err error) {
	defer func(start time.Time) { s.observe("create_demand", start, err) }(time.Now())

	price, err := parsePrice(cmd.PricePerKg)
	if err != nil {
		return nil, err
	}
	now := s.now()
	d := &demand.Demand{
		ID:              types.NewID(),
		OwnerID:         cmd.OwnerID,
		OriginCity:      strings.TrimSpace(cmd.OriginCity),
		DestinationCity: strings.TrimSpace(cmd.DestinationCity),
		Weight:          cmd.Weight,
		PricePerKg:      price,
		Currency:        cmd.Currency,
		Description:     cmd.Description,
		DeliverBy:       cmd.DeliverBy,
		Status:          demand.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if d.Currency == "" {
		d.Currency = s.currency
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := s.uow.Do(ctx, func(ctx context.Context, r Repos) error {
		return r.Demands.Create(ctx, d)
	}); err != nil {
		return nil, fmt.Errorf("booking.Service.CreateDemand: %w", err)
	}
	s.invalidate(ctx, cache.UserTag(d.OwnerID))
	return d, nil
}

func (s *Service) UpdateDemand(ctx context.Context, cmd UpdateDemandCommand) (_ *demand.Demand, err error) {
	defer func(start time.Time) { s.observe("update_demand", start, err) }(time.Now())

	var d *demand.Demand
	err = s.uow.Do(ctx, func(ctx context.Context, r Repos) error {
		var err error
		if d, err = r.Demands.GetForUpdate(ctx, cmd.DemandID); err != nil {
			return err
		}
		if d.OwnerID != cmd.CallerID {
			return ErrNotOwner
		}
		if err := guardUpdate(ctx, r, request.DemandTarget(d.ID)); err != nil {
			return err
		}
		if err := d.Apply(cmd.Update); err != nil {
			return err
		}
		d.UpdatedAt = s.now()
		return r.Demands.Save(ctx, d)
	})
	if err != nil {
		return nil, fmt.Errorf("booking.Service.UpdateDemand: %w", err)
	}
	s.invalidate(ctx, cache.DemandTag(d.ID), cache.UserTag(d.OwnerID))
	return d, nil
}

func (s *Service) GetDemand(ctx context.Context, id types.ID) (*demand.Demand, error) {
	d, err := s.uow.Reader().Demands.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.GetDemand: %w", err)
	}
	return d, nil
}

func (s *Service) ListMyDemands(ctx context.Context, ownerID types.ID) ([]demand.Demand, error) {
	key := cache.Key("demands:mine", ownerID)
	demands, err := cachedList(ctx, s, key, []string{cache.UserTag(ownerID)}, func() ([]demand.Demand, error) {
		return s.uow.Reader().Demands.ListByOwner(ctx, ownerID)
	})
	if err != nil {
		return nil, fmt.Errorf("booking.Service.ListMyDemands: %w", err)
	}
	return demands, nil
}
