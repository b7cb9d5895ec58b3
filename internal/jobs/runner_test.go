package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohappygo/internal/logger"
	"gohappygo/internal/modules/booking"
	"gohappygo/internal/modules/transaction"
	"gohappygo/internal/types"
)

var _ Releaser = (*mockReleaser)(nil)
var _ Releaser = (*booking.Service)(nil)

type mockReleaser struct {
	PendingReleasesFunc func(ctx context.Context, limit int) ([]transaction.Transaction, error)
	RetryReleaseFunc    func(ctx context.Context, cmd booking.ReleaseCommand) (*transaction.Transaction, error)
}

func (m *mockReleaser) PendingReleases(ctx context.Context, limit int) ([]transaction.Transaction, error) {
	return m.PendingReleasesFunc(ctx, limit)
}

func (m *mockReleaser) RetryRelease(ctx context.Context, cmd booking.ReleaseCommand) (*transaction.Transaction, error) {
	return m.RetryReleaseFunc(ctx, cmd)
}

func TestSettleRetriesEveryStuckRelease(t *testing.T) {
	var limit int
	var retried []types.ID
	m := &mockReleaser{
		PendingReleasesFunc: func(_ context.Context, n int) ([]transaction.Transaction, error) {
			limit = n
			return []transaction.Transaction{
				{ID: "tx-1", RequestID: "req-1"},
				{ID: "tx-2", RequestID: "req-2"},
				{ID: "tx-3", RequestID: "req-3"},
			}, nil
		},
		RetryReleaseFunc: func(_ context.Context, cmd booking.ReleaseCommand) (*transaction.Transaction, error) {
			retried = append(retried, cmd.RequestID)
			assert.Empty(t, cmd.CallerID)
			if cmd.RequestID == "req-2" {
				return nil, booking.ErrReleaseFailed
			}
			return &transaction.Transaction{RequestID: cmd.RequestID, Status: transaction.StatusReleased}, nil
		},
	}

	jr := NewJobRunner(m, 25, logger.Discard())
	res := jr.settle(context.Background())

	assert.Equal(t, 25, limit)
	assert.Equal(t, []types.ID{"req-1", "req-2", "req-3"}, retried)
	assert.Equal(t, SettlementResult{Found: 3, Released: 2, Failed: 1}, res)
}

func TestSettleStopsWhenListingFails(t *testing.T) {
	m := &mockReleaser{
		PendingReleasesFunc: func(context.Context, int) ([]transaction.Transaction, error) {
			return nil, errors.New("db down")
		},
		RetryReleaseFunc: func(context.Context, booking.ReleaseCommand) (*transaction.Transaction, error) {
			t.Fatal("retry must not run")
			return nil, nil
		},
	}
	res := NewJobRunner(m, 0, logger.Discard()).settle(context.Background())
	assert.Equal(t, SettlementResult{}, res)
}

func TestJobPanicIsRecovered(t *testing.T) {
	m := &mockReleaser{
		PendingReleasesFunc: func(context.Context, int) ([]transaction.Transaction, error) {
			panic("boom")
		},
	}
	jr := NewJobRunner(m, 10, logger.Discard())
	assert.NotPanics(t, jr.SettleStuckReleases)
}

func TestSchedulerRegistersSettlement(t *testing.T) {
	jr := NewJobRunner(&mockReleaser{}, 10, logger.Discard())

	s, err := NewScheduler(jr, "0 */5 * * * *")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())

	_, err = NewScheduler(jr, "every five minutes")
	assert.Error(t, err)
}
