package demand

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohappygo/internal/types"
)

func sample() *Demand {
	return &Demand{
		ID:              "d1",
		OwnerID:         "sender",
		OriginCity:      "Yaounde",
		DestinationCity: "Brussels",
		Weight:          3,
		PricePerKg:      decimal.NewFromInt(8),
		Currency:        "EUR",
		Status:          StatusActive,
	}
}

func TestResolveOnlyOnce(t *testing.T) {
	d := sample()
	require.NoError(t, d.Resolve())
	assert.Equal(t, StatusResolved, d.Status)

	err := d.Resolve()
	assert.ErrorIs(t, err, ErrNotActive)
	assert.ErrorIs(t, err, types.ErrConflict)

	d.Reopen()
	assert.Equal(t, StatusActive, d.Status)
}

func TestApplyValidates(t *testing.T) {
	d := sample()
	w := -2.0
	err := d.Apply(Update{Weight: &w})
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, 3.0, d.Weight)

	tiny := 0.004
	assert.ErrorIs(t, d.Apply(Update{Weight: &tiny}), ErrInvalidDemand)
	assert.Equal(t, 3.0, d.Weight)

	desc := "two pairs of shoes"
	require.NoError(t, d.Apply(Update{Description: &desc}))
	assert.Equal(t, desc, d.Description)
}
