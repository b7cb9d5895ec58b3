// README: Trip aggregate and its capacity ledger (kilograms only).
package trip

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gohappygo/internal/types"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusFilled    Status = "filled"
	StatusCancelled Status = "cancelled"
)

// FullWeightTolerance is how far a request on a non-sharable trip may drift
// from the total capacity and still count as taking all of it.
const FullWeightTolerance = 0.01

var (
	ErrNotFound             = types.NewError(types.ErrNotFound, "trip not found")
	ErrNotActive            = types.NewError(types.ErrConflict, "trip is not active")
	ErrInsufficientCapacity = types.NewError(types.ErrConflict, "insufficient capacity")
	ErrFullWeightRequired   = types.NewError(types.ErrConflict, "full weight allowance required")
	ErrInvalidWeight        = types.NewError(types.ErrValidation, "weight must be greater than zero")
	ErrInvalidTrip          = types.NewError(types.ErrValidation, "invalid trip")
	ErrConcurrentUpdate     = types.NewError(types.ErrConflict, "trip was modified concurrently")
)

type Trip struct {
	ID                types.ID        `json:"id"`
	OwnerID           types.ID        `json:"ownerId"`
	DepartureCity     string          `json:"departureCity"`
	ArrivalCity       string          `json:"arrivalCity"`
	DepartureAt       time.Time       `json:"departureAt"`
	TotalCapacity     float64         `json:"totalCapacity"`
	RemainingCapacity float64         `json:"remainingCapacity"`
	PricePerKg        decimal.Decimal `json:"pricePerKg"`
	Currency          string          `json:"currency"`
	Sharable          bool            `json:"sharable"`
	Instant           bool            `json:"instant"`
	Status            Status          `json:"status"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Validate checks the fields an owner controls.
func (t *Trip) Validate() error {
	switch {
	case t.OwnerID == "":
		return ErrInvalidTrip.With("owner is required")
	case strings.TrimSpace(t.DepartureCity) == "" || strings.TrimSpace(t.ArrivalCity) == "":
		return ErrInvalidTrip.With("departure and arrival cities are required")
	case t.DepartureAt.IsZero():
		return ErrInvalidTrip.With("departure date is required")
	case t.TotalCapacity <= 0:
		return ErrInvalidTrip.With("total capacity must be greater than zero")
	case !types.IsBookableWeight(t.TotalCapacity):
		return ErrInvalidTrip.With("total capacity must be at least 0.01 kg with at most two decimals")
	case t.PricePerKg.IsNegative():
		return ErrInvalidTrip.With("price per kg cannot be negative")
	}
	return nil
}

// Reserve debits weight from the remaining capacity. The caller must hold the
// row lock on the trip and persist the result in the same unit of work.
func (t *Trip) Reserve(weight float64) error {
	if weight < types.MinWeight {
		return ErrInvalidWeight
	}
	if t.Status == StatusCancelled {
		return ErrNotActive
	}
	if !t.Sharable {
		if math.Abs(weight-t.TotalCapacity) > FullWeightTolerance {
			return ErrFullWeightRequired
		}
		// a full booking takes everything, float noise included
		weight = t.RemainingCapacity
		if t.RemainingCapacity < t.TotalCapacity-FullWeightTolerance || weight <= 0 {
			return ErrInsufficientCapacity
		}
	}
	// compared unrounded: rounding here would let 1.004 kg into 1 kg
	if t.Status != StatusActive || weight > t.RemainingCapacity+capacityEpsilon {
		return ErrInsufficientCapacity
	}
	t.RemainingCapacity = round2(t.RemainingCapacity - weight)
	if t.RemainingCapacity <= 0 {
		t.RemainingCapacity = 0
		t.Status = StatusFilled
	}
	return nil
}

// Release credits weight back, bounded by the total capacity.
func (t *Trip) Release(weight float64) {
	if weight <= 0 {
		return
	}
	if !t.Sharable {
		weight = t.TotalCapacity
	}
	t.RemainingCapacity = math.Min(t.TotalCapacity, round2(t.RemainingCapacity+weight))
	if t.Status == StatusFilled && t.RemainingCapacity > 0 {
		t.Status = StatusActive
	}
}

func (t *Trip) CheckCapacity(weight float64) error {
	dry := *t
	return dry.Reserve(weight)
}

type Update struct {
	DepartureCity *string
	ArrivalCity   *string
	DepartureAt   *time.Time
	TotalCapacity *float64
	PricePerKg    *decimal.Decimal
	Sharable      *bool
	Instant       *bool
}

// Apply edits an untouched trip. Callers guarantee nothing was ever booked on
// it, so remaining capacity simply follows the new total.
func (t *Trip) Apply(u Update) error {
	if t.Status != StatusActive {
		return ErrNotActive
	}
	next := *t
	if u.DepartureCity != nil {
		next.DepartureCity = *u.DepartureCity
	}
	if u.ArrivalCity != nil {
		next.ArrivalCity = *u.ArrivalCity
	}
	if u.DepartureAt != nil {
		next.DepartureAt = *u.DepartureAt
	}
	if u.TotalCapacity != nil {
		next.TotalCapacity = round2(*u.TotalCapacity)
		next.RemainingCapacity = next.TotalCapacity
	}
	if u.PricePerKg != nil {
		next.PricePerKg = *u.PricePerKg
	}
	if u.Sharable != nil {
		next.Sharable = *u.Sharable
	}
	if u.Instant != nil {
		next.Instant = *u.Instant
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*t = next
	return nil
}

// capacityEpsilon absorbs float noise from repeated debits, well under MinWeight.
const capacityEpsilon = 1e-9

func round2(v float64) float64 {
	return types.RoundWeight(v)
}
