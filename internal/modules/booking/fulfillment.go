// README: Completion and fund release. Completion commits first; the payout
// runs after and may be retried without double paying.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gohappygo/internal/cache"
	"gohappygo/internal/metrics"
	"gohappygo/internal/modules/request"
	"gohappygo/internal/modules/status"
	"gohappygo/internal/modules/transaction"
	"gohappygo/internal/notify"
	"gohappygo/internal/types"
)

// Complete is the requester confirming delivery. The request is COMPLETED
// once this returns, even with ErrReleaseFailed; the release is then retried
// through RetryRelease or the settlement job.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (_ *Booking, err error) {
	defer func(start time.Time) { s.observe("complete", start, err) }(time.Now())

	found, err := s.uow.Reader().Requests.Get(ctx, cmd.RequestID)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.Complete: %w", err)
	}
	target := found.Target()

	var r *request.Request
	var tx *transaction.Transaction
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
		if r.RequesterID != cmd.CallerID {
			return ErrNotRequester
		}
		now := s.now()
		if err := r.Transition(status.Completed, now); err != nil {
			return err
		}
		if err := s.advance(ctx, repos, r, cmd.CallerID, now); err != nil {
			return err
		}
		tx, err = repos.Transactions.GetByRequest(ctx, r.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("booking.Service.Complete: %w", err)
	}

	s.invalidate(ctx, listingTag(target), cache.UserTag(r.RequesterID), cache.UserTag(owner))
	payload := requestPayload(r, tx)
	s.notify(ctx, r.RequesterID, notify.EventRequestCompleted, payload)
	s.notify(ctx, owner, notify.EventRequestCompleted, payload)

	if err := s.release(ctx, tx); err != nil {
		return &Booking{Request: r, Transaction: tx}, fmt.Errorf("booking.Service.Complete: %w", err)
	}
	return &Booking{Request: r, Transaction: tx}, nil
}

// RetryRelease re-runs the payout of a completed request. Already released
// transactions are skipped.
func (s *Service) RetryRelease(ctx context.Context, cmd ReleaseCommand) (_ *transaction.Transaction, err error) {
	defer func(start time.Time) { s.observe("retry_release", start, err) }(time.Now())

	reader := s.uow.Reader()
	r, err := reader.Requests.Get(ctx, cmd.RequestID)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.RetryRelease: %w", err)
	}
	if r.Status != status.Completed {
		return nil, fmt.Errorf("booking.Service.RetryRelease: %w", ErrNotCompleted)
	}
	tx, err := reader.Transactions.GetByRequest(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.RetryRelease: %w", err)
	}
	if cmd.CallerID != "" && cmd.CallerID != tx.PayerID && cmd.CallerID != tx.PayeeID {
		return nil, fmt.Errorf("booking.Service.RetryRelease: %w", ErrNotParticipant)
	}
	if err := s.release(ctx, tx); err != nil {
		return tx, fmt.Errorf("booking.Service.RetryRelease: %w", err)
	}
	return tx, nil
}

// PendingReleases lists completed requests whose funds are still held.
func (s *Service) PendingReleases(ctx context.Context, limit int) ([]transaction.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	txs, err := s.uow.Reader().Transactions.ListStuckReleases(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("booking.Service.PendingReleases: %w", err)
	}
	return txs, nil
}

// release pays the payee and marks the transaction released. The gateway is
// keyed by transaction id, so a retry after a lost response cannot pay twice.
func (s *Service) release(ctx context.Context, tx *transaction.Transaction) error {
	if tx.Status != transaction.StatusPending {
		return nil
	}
	if s.payments == nil {
		return errors.Join(ErrReleaseFailed, errors.New("no payment gateway configured"))
	}
	if err := s.payments.Release(ctx, *tx); err != nil {
		metrics.ReleaseFailures.Inc()
		s.log.ErrorContext(ctx, "fund release failed",
			"transaction_id", tx.ID, "request_id", tx.RequestID, "amount", tx.Money().String(), "error", err)
		return errors.Join(ErrReleaseFailed, err)
	}

	now := s.now()
	moved, err := s.uow.Reader().Transactions.MarkReleased(ctx, tx.ID, now)
	if err != nil {
		s.log.ErrorContext(ctx, "marking transaction released failed", "transaction_id", tx.ID, "error", err)
		return errors.Join(ErrReleaseFailed, err)
	}
	if !moved {
		// a concurrent retry won the conditional update
		return nil
	}
	tx.Status = transaction.StatusReleased
	tx.ReleasedAt = &now
	tx.UpdatedAt = now

	s.invalidate(ctx, cache.UserTag(tx.PayerID), cache.UserTag(tx.PayeeID))
	s.log.InfoContext(ctx, "funds released", "transaction_id", tx.ID, "payee_id", tx.PayeeID, "amount", tx.Money().String())
	s.notify(ctx, tx.PayeeID, notify.EventFundsReleased, map[string]string{
		"request_id":     string(tx.RequestID),
		"transaction_id": string(tx.ID),
		"amount":         tx.Money().String(),
	})
	return nil
}
