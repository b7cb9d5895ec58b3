package handlers

import (
	"context"

	"gohappygo/internal/modules/booking"
	"gohappygo/internal/modules/demand"
	"gohappygo/internal/modules/request"
	"gohappygo/internal/modules/transaction"
	"gohappygo/internal/modules/trip"
	"gohappygo/internal/types"
)

// BookingService is what the HTTP layer needs from the booking core.
type BookingService interface {
	CreateTrip(ctx context.Context, cmd booking.CreateTripCommand) (*trip.Trip, error)
	UpdateTrip(ctx context.Context, cmd booking.UpdateTripCommand) (*trip.Trip, error)
	CancelTrip(ctx context.Context, cmd booking.CancelListingCommand) error
	GetTrip(ctx context.Context, id types.ID) (*trip.Trip, error)
	ListMyTrips(ctx context.Context, ownerID types.ID) ([]trip.Trip, error)

	CreateDemand(ctx context.Context, cmd booking.CreateDemandCommand) (*demand.Demand, error)
	UpdateDemand(ctx context.Context, cmd booking.UpdateDemandCommand) (*demand.Demand, error)
	CancelDemand(ctx context.Context, cmd booking.CancelListingCommand) error
	GetDemand(ctx context.Context, id types.ID) (*demand.Demand, error)
	ListMyDemands(ctx context.Context, ownerID types.ID) ([]demand.Demand, error)

	CreateRequest(ctx context.Context, cmd booking.CreateRequestCommand) (*booking.Booking, error)
	Accept(ctx context.Context, cmd booking.AcceptCommand) (*booking.Booking, error)
	Reject(ctx context.Context, cmd booking.RejectCommand) (*request.Request, error)
	Cancel(ctx context.Context, cmd booking.CancelCommand) (*request.Request, error)
	Complete(ctx context.Context, cmd booking.CompleteCommand) (*booking.Booking, error)
	RetryRelease(ctx context.Context, cmd booking.ReleaseCommand) (*transaction.Transaction, error)

	GetRequest(ctx context.Context, id, callerID types.ID) (*request.Request, error)
	History(ctx context.Context, id, callerID types.ID) ([]request.HistoryEntry, error)
	GetTransaction(ctx context.Context, requestID, callerID types.ID) (*transaction.Transaction, error)
	ListRequestsForTrip(ctx context.Context, tripID, callerID types.ID) ([]request.Request, error)
	ListRequestsForDemand(ctx context.Context, demandID, callerID types.ID) ([]request.Request, error)
	ListMyRequests(ctx context.Context, requesterID types.ID) ([]request.Request, error)
}

var _ BookingService = (*booking.Service)(nil)
