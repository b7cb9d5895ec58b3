// README: Demand listing: a sender's posted need, satisfied by one accepted request.
package demand

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gohappygo/internal/types"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusResolved  Status = "resolved"
	StatusCancelled Status = "cancelled"
)

var (
	ErrNotFound         = types.NewError(types.ErrNotFound, "demand not found")
	ErrNotActive        = types.NewError(types.ErrConflict, "demand is not active")
	ErrInvalidDemand    = types.NewError(types.ErrValidation, "invalid demand")
	ErrConcurrentUpdate = types.NewError(types.ErrConflict, "demand was modified concurrently")
	ErrExceedsWeight    = types.NewError(types.ErrConflict, "offer exceeds the demand weight")
)

type Demand struct {
	ID              types.ID        `json:"id"`
	OwnerID         types.ID        `json:"ownerId"`
	OriginCity      string          `json:"originCity"`
	DestinationCity string          `json:"destinationCity"`
	Weight          float64         `json:"weight"`
	PricePerKg      decimal.Decimal `json:"pricePerKg"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	DeliverBy       *time.Time      `json:"deliverBy,omitempty"`
	Status          Status          `json:"status"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (d *Demand) Validate() error {
	switch {
	case d.OwnerID == "":
		return ErrInvalidDemand.With("owner is required")
	case strings.TrimSpace(d.OriginCity) == "" || strings.TrimSpace(d.DestinationCity) == "":
		return ErrInvalidDemand.With("origin and destination cities are required")
	case d.Weight <= 0:
		return ErrInvalidDemand.With("weight must be greater than zero")
	case !types.IsBookableWeight(d.Weight):
		return ErrInvalidDemand.With("weight must be at least 0.01 kg with at most two decimals")
	case d.PricePerKg.IsNegative():
		return ErrInvalidDemand.With("price per kg cannot be negative")
	}
	return nil
}

func (d *Demand) CheckActive() error {
	if d.Status != StatusActive {
		return ErrNotActive
	}
	return nil
}

// CheckOffer reports whether a carrier offer of weight fits the demand.
func (d *Demand) CheckOffer(weight float64) error {
	if err := d.CheckActive(); err != nil {
		return err
	}
	if weight > d.Weight+1e-9 {
		return ErrExceedsWeight.With(fmt.Sprintf("%.2f kg offered, %.2f kg requested", weight, d.Weight))
	}
	return nil
}

// Resolve marks the demand as satisfied by an accepted request.
func (d *Demand) Resolve() error {
	if err := d.CheckActive(); err != nil {
		return err
	}
	d.Status = StatusResolved
	return nil
}

// Reopen undoes Resolve when the accepted request is cancelled.
func (d *Demand) Reopen() {
	if d.Status == StatusResolved {
		d.Status = StatusActive
	}
}

type Update struct {
	OriginCity      *string
	DestinationCity *string
	Weight          *float64
	PricePerKg      *decimal.Decimal
	Description     *string
	DeliverBy       *time.Time
}

func (d *Demand) Apply(u Update) error {
	if d.Status != StatusActive {
		return ErrNotActive
	}
	next := *d
	if u.OriginCity != nil {
		next.OriginCity = *u.OriginCity
	}
	if u.DestinationCity != nil {
		next.DestinationCity = *u.DestinationCity
	}
	if u.Weight != nil {
		next.Weight = *u.Weight
	}
	if u.PricePerKg != nil {
		next.PricePerKg = *u.PricePerKg
	}
	if u.Description != nil {
		next.Description = *u.Description
	}
	if u.DeliverBy != nil {
		v := *u.DeliverBy
		next.DeliverBy = &v
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*d = next
	return nil
}
