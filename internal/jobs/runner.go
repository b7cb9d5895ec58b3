package jobs

import (
	"context"
	"log/slog"
	"time"

	"gohappygo/internal/modules/booking"
	"gohappygo/internal/modules/transaction"
)

// Releaser is the slice of the booking service the settlement job drives.
type Releaser interface {
	PendingReleases(ctx context.Context, limit int) ([]transaction.Transaction, error)
	RetryRelease(ctx context.Context, cmd booking.ReleaseCommand) (*transaction.Transaction, error)
}

// JobRunner coordinates the scheduled jobs.
type JobRunner struct {
	releases Releaser
	batch    int
	timeout  time.Duration
	log      *slog.Logger
}

func NewJobRunner(releases Releaser, batch int, log *slog.Logger) *JobRunner {
	if batch <= 0 {
		batch = 50
	}
	if log == nil {
		log = slog.Default()
	}
	return &JobRunner{releases: releases, batch: batch, timeout: 2 * time.Minute, log: log}
}

// SettlementResult counts the outcome of one sweep.
type SettlementResult struct {
	Found    int
	Released int
	Failed   int
}

// SettleStuckReleases retries the payout of completed requests whose funds
// are still held. Failures stay pending for the next sweep.
func (jr *JobRunner) SettleStuckReleases() {
	jr.runWithRecovery("SettleStuckReleases", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
		defer cancel()
		jr.settle(ctx)
	})
}

func (jr *JobRunner) settle(ctx context.Context) SettlementResult {
	var res SettlementResult
	stuck, err := jr.releases.PendingReleases(ctx, jr.batch)
	if err != nil {
		jr.log.Error("Failed to list pending releases", "error", err)
		return res
	}
	res.Found = len(stuck)
	for _, tx := range stuck {
		if _, err := jr.releases.RetryRelease(ctx, booking.ReleaseCommand{RequestID: tx.RequestID}); err != nil {
			res.Failed++
			jr.log.Error("Fund release still failing",
				"transaction_id", tx.ID,
				"request_id", tx.RequestID,
				"amount", tx.Money().String(),
				"error", err)
			continue
		}
		res.Released++
	}
	if res.Found > 0 {
		jr.log.Info("Settlement sweep finished", "found", res.Found, "released", res.Released, "failed", res.Failed)
	}
	return res
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			jr.log.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	jr.log.Debug("Starting job", "job", jobName)
	jobFunc()
	jr.log.Debug("Job completed", "job", jobName)
}
