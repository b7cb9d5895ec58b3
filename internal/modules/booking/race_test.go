// README: Concurrency tests for the capacity ledger (run with -race).
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohappygo/internal/modules/trip"
	"gohappygo/internal/types"
)

func TestConcurrentAcceptForLastKilograms(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.newTrip(t, 5, true, false)
	a := f.requestTrip(t, tr.ID, sender, 5)
	b := f.requestTrip(t, tr.ID, sender2, 5)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, id := range []types.ID{a.Request.ID, b.Request.ID} {
		wg.Add(1)
		go func(id types.ID) {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, AcceptCommand{RequestID: id, CallerID: carrier})
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		assert.ErrorIs(t, err, trip.ErrInsufficientCapacity)
	}
	assert.Equal(t, 1, success)

	got := f.trip(t, tr.ID)
	assert.Equal(t, 0.0, got.RemainingCapacity)
	assert.Equal(t, trip.StatusFilled, got.Status)
	assert.Len(t, f.uow.snapshot().txs, 1)
}

func TestConcurrentInstantBookingsNeverOverbook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.newTrip(t, 5, true, true)

	const senders = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	success, conflicts := 0, 0
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.CreateRequest(ctx, CreateRequestCommand{
				RequesterID: types.ID(fmt.Sprintf("sender-%d", i+10)),
				TripID:      tr.ID,
				Weight:      1,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, trip.ErrInsufficientCapacity):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, success)
	assert.Equal(t, senders-5, conflicts)

	st := f.uow.snapshot()
	require.Len(t, st.requests, 5)
	assert.Len(t, st.txs, 5)
	assert.Equal(t, 0.0, st.trips[tr.ID].RemainingCapacity)
	assert.Equal(t, trip.StatusFilled, st.trips[tr.ID].Status)
}
