// README: Request aggregate, its lifecycle transitions and the status history entry.
package request

import (
	"fmt"
	"time"

	"gohappygo/internal/modules/status"
	"gohappygo/internal/types"
)

type Kind string

const (
	// KindCarryForMe: a sender asks a carrier to take a package on their trip.
	KindCarryForMe Kind = "carry_for_me"
	// KindICarry: a carrier offers to fulfil a sender's demand.
	KindICarry Kind = "i_carry"
)

type TargetKind string

const (
	TargetTrip   TargetKind = "trip"
	TargetDemand TargetKind = "demand"
)

type Target struct {
	Kind TargetKind
	ID   types.ID
}

func TripTarget(id types.ID) Target   { return Target{Kind: TargetTrip, ID: id} }
func DemandTarget(id types.ID) Target { return Target{Kind: TargetDemand, ID: id} }

func (t Target) String() string { return string(t.Kind) + ":" + string(t.ID) }

var (
	ErrNotFound          = types.NewError(types.ErrNotFound, "request not found")
	ErrInvalidWeight     = types.NewError(types.ErrValidation, "weight must be greater than zero")
	ErrMissingTarget     = types.NewError(types.ErrValidation, "a trip or a demand is required")
	ErrAmbiguousTarget   = types.NewError(types.ErrValidation, "a request targets either a trip or a demand, not both")
	ErrInvalidKind       = types.NewError(types.ErrValidation, "unknown request kind")
	ErrKindMismatch      = types.NewError(types.ErrValidation, "request kind does not match its target")
	ErrAlreadyInState    = types.NewError(types.ErrConflict, "request is already in that state")
	ErrAlreadyAccepted   = types.NewError(ErrAlreadyInState, "request already accepted")
	ErrAlreadyCompleted  = types.NewError(ErrAlreadyInState, "request already completed")
	ErrClosed            = types.NewError(types.ErrConflict, "request is closed")
	ErrInvalidTransition = types.NewError(types.ErrConflict, "invalid status transition")
	ErrConcurrentUpdate  = types.NewError(types.ErrConflict, "request was modified concurrently")
)

type Request struct {
	ID          types.ID      `json:"id"`
	RequesterID types.ID      `json:"requesterId"`
	TripID      types.ID      `json:"tripId,omitempty"`
	DemandID    types.ID      `json:"demandId,omitempty"`
	Kind        Kind          `json:"kind"`
	Weight      float64       `json:"weight"`
	Status      status.Status `json:"status"`
	Message     string        `json:"message,omitempty"`
	Version     int           `json:"version"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type HistoryEntry struct {
	ID        int64         `json:"id"`
	RequestID types.ID      `json:"requestId"`
	Status    status.Status `json:"status"`
	ActorID   types.ID      `json:"actorId,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

func (r *Request) Target() Target {
	if r.TripID != "" {
		return TripTarget(r.TripID)
	}
	return DemandTarget(r.DemandID)
}

func (r *Request) Validate() error {
	switch {
	case r.TripID == "" && r.DemandID == "":
		return ErrMissingTarget
	case r.TripID != "" && r.DemandID != "":
		return ErrAmbiguousTarget
	case r.Weight <= 0:
		return ErrInvalidWeight
	case !types.IsBookableWeight(r.Weight):
		return ErrInvalidWeight.With("weight must be at least 0.01 kg with at most two decimals")
	}
	switch r.Kind {
	case KindCarryForMe, KindICarry:
	default:
		return ErrInvalidKind.With(string(r.Kind))
	}
	// trips are asked to carry, demands are offered a carrier
	if want := kindFor(r.Target().Kind); r.Kind != want {
		return ErrKindMismatch.With(fmt.Sprintf("%s target takes %s", r.Target().Kind, want))
	}
	return nil
}

func kindFor(t TargetKind) Kind {
	if t == TargetDemand {
		return KindICarry
	}
	return KindCarryForMe
}

// Transition moves the request to the next status, or explains why it cannot.
// It never regresses and never re-enters the current status.
func (r *Request) Transition(to status.Status, at time.Time) error {
	if r.Status == to {
		switch to {
		case status.Accepted:
			return ErrAlreadyAccepted
		case status.Completed:
			return ErrAlreadyCompleted
		}
		return ErrAlreadyInState.With(to.String())
	}
	if status.IsTerminal(r.Status) {
		return ErrClosed.With(r.Status.String())
	}
	if !status.CanTransition(r.Status, to) {
		return ErrInvalidTransition.With(fmt.Sprintf("%s -> %s", r.Status, to))
	}
	r.Status = to
	r.UpdatedAt = at
	return nil
}

// Entry is the history row recording the request's current status.
func (r *Request) Entry(actor types.ID, at time.Time) *HistoryEntry {
	return &HistoryEntry{RequestID: r.ID, Status: r.Status, ActorID: actor, CreatedAt: at}
}
