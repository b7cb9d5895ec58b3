package booking

import (
	"context"
	"errors"
	"fmt"

	"gohappygo/internal/cache"
	"gohappygo/internal/modules/request"
	"gohappygo/internal/modules/transaction"
	"gohappygo/internal/types"
)

// GetRequest returns a request to one of its two participants.
func (s *Service) GetRequest(ctx context.Context, id, callerID types.ID) (*request.Request, error) {
	r, err := s.participantRequest(ctx, id, callerID)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.GetRequest: %w", err)
	}
	return r, nil
}

func (s *Service) History(ctx context.Context, id, callerID types.ID) ([]request.HistoryEntry, error) {
	if _, err := s.participantRequest(ctx, id, callerID); err != nil {
		return nil, fmt.Errorf("booking.Service.History: %w", err)
	}
	h, err := s.uow.Reader().Requests.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.History: %w", err)
	}
	return h, nil
}

// GetTransaction is visible to the payer and the payee only.
func (s *Service) GetTransaction(ctx context.Context, requestID, callerID types.ID) (*transaction.Transaction, error) {
	tx, err := s.uow.Reader().Transactions.GetByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.GetTransaction: %w", err)
	}
	if callerID != tx.PayerID && callerID != tx.PayeeID {
		return nil, fmt.Errorf("booking.Service.GetTransaction: %w", ErrNotParticipant)
	}
	return tx, nil
}

func (s *Service) ListRequestsForTrip(ctx context.Context, tripID, callerID types.ID) ([]request.Request, error) {
	out, err := s.listForTarget(ctx, request.TripTarget(tripID), callerID)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.ListRequestsForTrip: %w", err)
	}
	return out, nil
}

func (s *Service) ListRequestsForDemand(ctx context.Context, demandID, callerID types.ID) ([]request.Request, error) {
	out, err := s.listForTarget(ctx, request.DemandTarget(demandID), callerID)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.ListRequestsForDemand: %w", err)
	}
	return out, nil
}

func (s *Service) ListMyRequests(ctx context.Context, requesterID types.ID) ([]request.Request, error) {
	key := cache.Key("requests:mine", requesterID)
	out, err := cachedList(ctx, s, key, []string{cache.UserTag(requesterID)}, func() ([]request.Request, error) {
		return s.uow.Reader().Requests.ListByRequester(ctx, requesterID)
	})
	if err != nil {
		return nil, fmt.Errorf("booking.Service.ListMyRequests: %w", err)
	}
	return out, nil
}

// listForTarget shows the owner every request on the listing and anyone
// else only their own.
func (s *Service) listForTarget(ctx context.Context, target request.Target, callerID types.ID) ([]request.Request, error) {
	isOwner := s.checkOwner(ctx, target, callerID) == nil
	if !isOwner {
		if err := s.checkExists(ctx, target); err != nil {
			return nil, err
		}
	}
	key := cache.Key("requests:"+string(target.Kind), callerID, string(target.ID))
	all, err := cachedList(ctx, s, key, []string{listingTag(target)}, func() ([]request.Request, error) {
		rs, err := s.uow.Reader().Requests.ListByTarget(ctx, target)
		if err != nil || isOwner {
			return rs, err
		}
		mine := make([]request.Request, 0, len(rs))
		for _, r := range rs {
			if r.RequesterID == callerID {
				mine = append(mine, r)
			}
		}
		return mine, nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

func (s *Service) checkExists(ctx context.Context, target request.Target) error {
	var err error
	if target.Kind == request.TargetTrip {
		_, err = s.uow.Reader().Trips.Get(ctx, target.ID)
	} else {
		_, err = s.uow.Reader().Demands.Get(ctx, target.ID)
	}
	return err
}

func (s *Service) participantRequest(ctx context.Context, id, callerID types.ID) (*request.Request, error) {
	r, err := s.uow.Reader().Requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.RequesterID == callerID {
		return r, nil
	}
	if err := s.checkOwner(ctx, r.Target(), callerID); err != nil {
		if errors.Is(err, ErrNotOwner) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}
	return r, nil
}
