// README: Request protocols: creation with manual or instant acceptance,
// acceptance, rejection and cancellation. One unit of work per operation.
package booking

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"gohappygo/internal/cache"
	"gohappygo/internal/modules/pricing"
	"gohappygo/internal/modules/request"
	"gohappygo/internal/modules/status"
	"gohappygo/internal/modules/transaction"
	"gohappygo/internal/notify"
	"gohappygo/internal/types"
)

// reservedStatuses are the current statuses that hold a non-sharable trip.
var reservedStatuses = status.Set{status.Negotiating, status.Accepted, status.Completed, status.Delivered}

func (s *Service) CreateRequest(ctx context.Context, cmd CreateRequestCommand) (_ *Booking, err error) {
	defer func(start time.Time) { s.observe("create_request", start, err) }(time.Now())

	now := s.now()
	r := &request.Request{
		ID:          types.NewID(),
		RequesterID: cmd.RequesterID,
		TripID:      cmd.TripID,
		DemandID:    cmd.DemandID,
		Kind:        cmd.Kind,
		Weight:      cmd.Weight,
		Message:     cmd.Message,
		Status:      status.None,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if r.Kind == "" {
		r.Kind = request.KindCarryForMe
		if cmd.DemandID != "" {
			r.Kind = request.KindICarry
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireVerified(ctx, cmd.RequesterID); err != nil {
		return nil, err
	}

	target := r.Target()
	var owner types.ID
	var tx *transaction.Transaction
	err = s.uow.Do(ctx, func(ctx context.Context, repos Repos) error {
		l, err := lockListing(ctx, repos, target)
		if err != nil {
			return err
		}
		owner = l.ownerID()
		if owner == r.RequesterID {
			return ErrOwnListing
		}

		if l.demand != nil {
			if err := l.demand.CheckOffer(r.Weight); err != nil {
				return err
			}
			return s.open(ctx, repos, r, status.Negotiating, now)
		}

		t := l.trip
		if err := t.CheckCapacity(r.Weight); err != nil {
			return err
		}
		if !t.Sharable {
			n, err := repos.Requests.CountCurrent(ctx, target, reservedStatuses)
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrTripReserved
			}
		}
		if !t.Instant {
			return s.open(ctx, repos, r, status.Negotiating, now)
		}

		// instant trip: accepted on creation, debit and hold in the same step
		if err := s.open(ctx, repos, r, status.Accepted, now); err != nil {
			return err
		}
		if err := t.Reserve(r.Weight); err != nil {
			return err
		}
		if err := l.save(ctx, repos, now); err != nil {
			return err
		}
		tx, err = s.hold(ctx, repos, r, r.RequesterID, t.OwnerID, t.PricePerKg, t.Currency, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("booking.Service.CreateRequest: %w", err)
	}

	s.invalidate(ctx, listingTag(target), cache.UserTag(r.RequesterID), cache.UserTag(owner))
	s.log.InfoContext(ctx, "request created",
		"request_id", r.ID, "target", target.String(), "status", r.Status.String(), "weight", r.Weight)

	payload := requestPayload(r, tx)
	if r.Status == status.Accepted {
		s.notify(ctx, r.RequesterID, notify.EventRequestAccepted, payload)
		s.notify(ctx, owner, notify.EventRequestAccepted, payload)
	} else {
		s.notify(ctx, owner, notify.EventRequestCreated, payload)
	}
	return &Booking{Request: r, Transaction: tx}, nil
}

// Accept is the owner's manual acceptance of a negotiating request.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (_ *Booking, err error) {
	defer func(start time.Time) { s.observe("accept", start, err) }(time.Now())

	found, err := s.uow.Reader().Requests.Get(ctx, cmd.RequestID)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.Accept: %w", err)
	}
	target := found.Target()
	if err := s.checkOwner(ctx, target, cmd.CallerID); err != nil {
		return nil, fmt.Errorf("booking.Service.Accept: %w", err)
	}
	if err := s.requireVerified(ctx, cmd.CallerID); err != nil {
		return nil, fmt.Errorf("booking.Service.Accept: %w", err)
	}

	var r *request.Request
	var tx *transaction.Transaction
	err = s.uow.Do(ctx, func(ctx context.Context, repos Repos) error {
		l, err := lockListing(ctx, repos, target)
		if err != nil {
			return err
		}
		if l.ownerID() != cmd.CallerID {
			return ErrNotOwner
		}
		if r, err = repos.Requests.GetForUpdate(ctx, cmd.RequestID); err != nil {
			return err
		}
		now := s.now()
		if err := r.Transition(status.Accepted, now); err != nil {
			return err
		}

		var payer, payee types.ID
		var price decimal.Decimal
		var currency string
		if t := l.trip; t != nil {
			if err := t.Reserve(r.Weight); err != nil {
				return err
			}
			payer, payee, price, currency = r.RequesterID, t.OwnerID, t.PricePerKg, t.Currency
		} else {
			d := l.demand
			if err := d.CheckOffer(r.Weight); err != nil {
				return err
			}
			if err := d.Resolve(); err != nil {
				return err
			}
			payer, payee, price, currency = d.OwnerID, r.RequesterID, d.PricePerKg, d.Currency
		}
		if err := l.save(ctx, repos, now); err != nil {
			return err
		}
		if err := s.advance(ctx, repos, r, cmd.CallerID, now); err != nil {
			return err
		}
		tx, err = s.hold(ctx, repos, r, payer, payee, price, currency, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("booking.Service.Accept: %w", err)
	}

	s.invalidate(ctx, listingTag(target), cache.UserTag(r.RequesterID), cache.UserTag(cmd.CallerID))
	s.log.InfoContext(ctx, "request accepted",
		"request_id", r.ID, "target", target.String(), "transaction_id", tx.ID, "amount", tx.Money().String())
	payload := requestPayload(r, tx)
	s.notify(ctx, r.RequesterID, notify.EventRequestAccepted, payload)
	s.notify(ctx, cmd.CallerID, notify.EventRequestAccepted, payload)
	return &Booking{Request: r, Transaction: tx}, nil
}

func (s *Service) Reject(ctx context.Context, cmd RejectCommand) (_ *request.Request, err error) {
	defer func(start time.Time) { s.observe("reject", start, err) }(time.Now())

	found, err := s.uow.Reader().Requests.Get(ctx, cmd.RequestID)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.Reject: %w", err)
	}
	target := found.Target()

	var r *request.Request
	err = s.uow.Do(ctx, func(ctx context.Context, repos Repos) error {
		l, err := lockListing(ctx, repos, target)
		if err != nil {
			return err
		}
		if l.ownerID() != cmd.CallerID {
			return ErrNotOwner
		}
		if r, err = repos.Requests.GetForUpdate(ctx, cmd.RequestID); err != nil {
			return err
		}
		now := s.now()
		if err := r.Transition(status.Rejected, now); err != nil {
			return err
		}
		return s.advance(ctx, repos, r, cmd.CallerID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("booking.Service.Reject: %w", err)
	}

	s.invalidate(ctx, listingTag(target), cache.UserTag(r.RequesterID), cache.UserTag(cmd.CallerID))
	s.notify(ctx, r.RequesterID, notify.EventRequestRejected, requestPayload(r, nil))
	return r, nil
}

// Cancel calls off a request on behalf of its requester or the listing owner.
// An accepted request gives its capacity back and voids its held transaction.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (_ *request.Request, err error) {
	defer func(start time.Time) { s.observe("cancel_request", start, err) }(time.Now())

	found, err := s.uow.Reader().Requests.Get(ctx, cmd.RequestID)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.Cancel: %w", err)
	}
	target := found.Target()

	var r *request.Request
	var owner types.ID
	err = s.uow.Do(ctx, func(ctx context.Context, repos Repos) error {
		l, err := lockListing(ctx, repos, target)
		if err != nil {
			return err
		}
		owner = l.ownerID()
		if r, err = repos.Requests.GetForUpdate(ctx, cmd.RequestID); err != nil {
			return err
		}
		if cmd.CallerID != r.RequesterID && cmd.CallerID != owner {
			return ErrNotParticipant
		}
		now := s.now()
		wasAccepted := r.Status == status.Accepted
		if err := r.Transition(status.Cancelled, now); err != nil {
			return err
		}
		// a sibling that reached a blocking status freezes the listing's requests
		blocked, err := repos.Requests.AnyReached(ctx, target, status.UpdateBlocking, r.ID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrHasAcceptedRequest
		}

		if wasAccepted {
			if l.trip != nil {
				l.trip.Release(r.Weight)
			} else {
				l.demand.Reopen()
			}
			if err := l.save(ctx, repos, now); err != nil {
				return err
			}
			tx, err := repos.Transactions.GetByRequest(ctx, r.ID)
			if err != nil {
				return err
			}
			voided, err := repos.Transactions.Cancel(ctx, tx.ID, now)
			if err != nil {
				return err
			}
			if !voided {
				return ErrMoneyMoved
			}
		}
		return s.advance(ctx, repos, r, cmd.CallerID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("booking.Service.Cancel: %w", err)
	}

	s.invalidate(ctx, listingTag(target), cache.UserTag(r.RequesterID), cache.UserTag(owner))
	other := owner
	if cmd.CallerID == owner {
		other = r.RequesterID
	}
	s.notify(ctx, other, notify.EventRequestCancelled, requestPayload(r, nil))
	return r, nil
}

// open moves a brand new request to its first status and persists it with
// its first history entry.
func (s *Service) open(ctx context.Context, repos Repos, r *request.Request, to status.Status, at time.Time) error {
	if err := r.Transition(to, at); err != nil {
		return err
	}
	if err := repos.Requests.Create(ctx, r); err != nil {
		return err
	}
	return repos.Requests.AppendHistory(ctx, r.Entry(r.RequesterID, at))
}

// advance persists a transition of an existing request and logs it.
func (s *Service) advance(ctx context.Context, repos Repos, r *request.Request, actor types.ID, at time.Time) error {
	if err := repos.Requests.Save(ctx, r); err != nil {
		return err
	}
	return repos.Requests.AppendHistory(ctx, r.Entry(actor, at))
}

// hold records the pending transaction for a request that just got accepted.
func (s *Service) hold(ctx context.Context, repos Repos, r *request.Request, payer, payee types.ID, price decimal.Decimal, currency string, at time.Time) (*transaction.Transaction, error) {
	q, err := s.pricing.Quote(pricing.QuoteRequest{WeightKg: r.Weight, PricePerKg: price, Currency: currency})
	if err != nil {
		return nil, err
	}
	tx := &transaction.Transaction{
		ID:        types.NewID(),
		RequestID: r.ID,
		PayerID:   payer,
		PayeeID:   payee,
		Amount:    q.Total.Amount,
		Currency:  q.Total.Currency,
		Status:    transaction.StatusPending,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := repos.Transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// checkOwner is the early, lock-free ownership check. The unit of work checks
// again under the row lock.
func (s *Service) checkOwner(ctx context.Context, target request.Target, callerID types.ID) error {
	var owner types.ID
	if target.Kind == request.TargetTrip {
		t, err := s.uow.Reader().Trips.Get(ctx, target.ID)
		if err != nil {
			return err
		}
		owner = t.OwnerID
	} else {
		d, err := s.uow.Reader().Demands.Get(ctx, target.ID)
		if err != nil {
			return err
		}
		owner = d.OwnerID
	}
	if owner != callerID {
		return ErrNotOwner
	}
	return nil
}

func requestPayload(r *request.Request, tx *transaction.Transaction) map[string]string {
	p := map[string]string{
		"request_id": string(r.ID),
		"status":     r.Status.String(),
		"weight":     strconv.FormatFloat(r.Weight, 'f', -1, 64),
	}
	if r.TripID != "" {
		p["trip_id"] = string(r.TripID)
	}
	if r.DemandID != "" {
		p["demand_id"] = string(r.DemandID)
	}
	if tx != nil {
		p["transaction_id"] = string(tx.ID)
		p["amount"] = tx.Money().String()
	}
	return p
}
