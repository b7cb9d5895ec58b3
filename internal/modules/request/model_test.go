package request

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohappygo/internal/modules/status"
	"gohappygo/internal/types"
)

func TestValidate(t *testing.T) {
	for _, w := range []float64{0.01, 2, 2.5, 14.99} {
		ok := Request{TripID: "t1", Kind: KindCarryForMe, Weight: w}
		require.NoError(t, ok.Validate(), "%v", w)
	}

	cases := map[string]struct {
		r    Request
		want error
	}{
		"no target":      {Request{Kind: KindCarryForMe, Weight: 2}, ErrMissingTarget},
		"two targets":    {Request{TripID: "t", DemandID: "d", Kind: KindICarry, Weight: 2}, ErrAmbiguousTarget},
		"zero weight":    {Request{TripID: "t", Kind: KindCarryForMe}, ErrInvalidWeight},
		"sub-hundredth":  {Request{TripID: "t", Kind: KindCarryForMe, Weight: 0.004}, ErrInvalidWeight},
		"three decimals": {Request{TripID: "t", Kind: KindCarryForMe, Weight: 1.004}, ErrInvalidWeight},
		"bad kind":       {Request{DemandID: "d", Kind: "ship", Weight: 1}, ErrInvalidKind},
		"kind on trip":   {Request{TripID: "t", Kind: KindICarry, Weight: 1}, ErrKindMismatch},
		"kind on demand": {Request{DemandID: "d", Kind: KindCarryForMe, Weight: 1}, ErrKindMismatch},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.r.Validate()
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

func TestTransition(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	r := &Request{ID: "r1", Status: status.Negotiating}

	require.NoError(t, r.Transition(status.Accepted, at))
	assert.Equal(t, status.Accepted, r.Status)
	assert.Equal(t, at, r.UpdatedAt)

	err := r.Transition(status.Accepted, at)
	assert.ErrorIs(t, err, ErrAlreadyAccepted)
	assert.ErrorIs(t, err, ErrAlreadyInState)
	assert.ErrorIs(t, err, types.ErrConflict)

	assert.ErrorIs(t, r.Transition(status.Rejected, at), ErrInvalidTransition)

	require.NoError(t, r.Transition(status.Completed, at))
	assert.ErrorIs(t, r.Transition(status.Completed, at), ErrAlreadyCompleted)
	assert.ErrorIs(t, r.Transition(status.Cancelled, at), ErrClosed)
	assert.Equal(t, status.Completed, r.Status)
}

func TestTransitionFromTerminal(t *testing.T) {
	r := &Request{Status: status.Rejected}
	assert.ErrorIs(t, r.Transition(status.Accepted, time.Now()), ErrClosed)

	c := &Request{Status: status.Cancelled}
	err := c.Transition(status.Cancelled, time.Now())
	assert.ErrorIs(t, err, ErrAlreadyInState)
	assert.NotErrorIs(t, err, ErrAlreadyAccepted)
}

func TestTargetAndEntry(t *testing.T) {
	r := &Request{ID: "r1", DemandID: "d9", Status: status.Negotiating}
	assert.Equal(t, DemandTarget("d9"), r.Target())
	assert.Equal(t, "demand:d9", r.Target().String())

	at := time.Now()
	e := r.Entry("bob", at)
	assert.Equal(t, types.ID("r1"), e.RequestID)
	assert.Equal(t, status.Negotiating, e.Status)
	assert.Equal(t, types.ID("bob"), e.ActorID)
}
