package handlers_test

import (
	"context"

	"gohappygo/internal/http/handlers"
	"gohappygo/internal/modules/booking"
	"gohappygo/internal/modules/demand"
	"gohappygo/internal/modules/request"
	"gohappygo/internal/modules/transaction"
	"gohappygo/internal/modules/trip"
	"gohappygo/internal/types"
)

// mockBooking is a test double for handlers.BookingService.
// Set only the method fields your test needs.
type mockBooking struct {
	createTrip            func(ctx context.Context, cmd booking.CreateTripCommand) (*trip.Trip, error)
	updateTrip            func(ctx context.Context, cmd booking.UpdateTripCommand) (*trip.Trip, error)
	cancelTrip            func(ctx context.Context, cmd booking.CancelListingCommand) error
	getTrip               func(ctx context.Context, id types.ID) (*trip.Trip, error)
	listMyTrips           func(ctx context.Context, ownerID types.ID) ([]trip.Trip, error)
	createDemand          func(ctx context.Context, cmd booking.CreateDemandCommand) (*demand.Demand, error)
	updateDemand          func(ctx context.Context, cmd booking.UpdateDemandCommand) (*demand.Demand, error)
	cancelDemand          func(ctx context.Context, cmd booking.CancelListingCommand) error
	getDemand             func(ctx context.Context, id types.ID) (*demand.Demand, error)
	listMyDemands         func(ctx context.Context, ownerID types.ID) ([]demand.Demand, error)
	createRequest         func(ctx context.Context, cmd booking.CreateRequestCommand) (*booking.Booking, error)
	accept                func(ctx context.Context, cmd booking.AcceptCommand) (*booking.Booking, error)
	reject                func(ctx context.Context, cmd booking.RejectCommand) (*request.Request, error)
	cancel                func(ctx context.Context, cmd booking.CancelCommand) (*request.Request, error)
	complete              func(ctx context.Context, cmd booking.CompleteCommand) (*booking.Booking, error)
	retryRelease          func(ctx context.Context, cmd booking.ReleaseCommand) (*transaction.Transaction, error)
	getRequest            func(ctx context.Context, id, callerID types.ID) (*request.Request, error)
	history               func(ctx context.Context, id, callerID types.ID) ([]request.HistoryEntry, error)
	getTransaction        func(ctx context.Context, requestID, callerID types.ID) (*transaction.Transaction, error)
	listRequestsForTrip   func(ctx context.Context, tripID, callerID types.ID) ([]request.Request, error)
	listRequestsForDemand func(ctx context.Context, demandID, callerID types.ID) ([]request.Request, error)
	listMyRequests        func(ctx context.Context, requesterID types.ID) ([]request.Request, error)
}

// compile-time check: mockBooking must satisfy handlers.BookingService.
var _ handlers.BookingService = (*mockBooking)(nil)

func (m *mockBooking) CreateTrip(ctx context.Context, cmd booking.CreateTripCommand) (*trip.Trip, error) {
	return m.createTrip(ctx, cmd)
}
func (m *mockBooking) UpdateTrip(ctx context.Context, cmd booking.UpdateTripCommand) (*trip.Trip, error) {
	return m.updateTrip(ctx, cmd)
}
func (m *mockBooking) CancelTrip(ctx context.Context, cmd booking.CancelListingCommand) error {
	return m.cancelTrip(ctx, cmd)
}
func (m *mockBooking) GetTrip(ctx context.Context, id types.ID) (*trip.Trip, error) {
	return m.getTrip(ctx, id)
}
func (m *mockBooking) ListMyTrips(ctx context.Context, ownerID types.ID) ([]trip.Trip, error) {
	return m.listMyTrips(ctx, ownerID)
}
func (m *mockBooking) CreateDemand(ctx context.Context, cmd booking.CreateDemandCommand) (*demand.Demand, error) {
	return m.createDemand(ctx, cmd)
}
func (m *mockBooking) UpdateDemand(ctx context.Context, cmd booking.UpdateDemandCommand) (*demand.Demand, error) {
	return m.updateDemand(ctx, cmd)
}
func (m *mockBooking) CancelDemand(ctx context.Context, cmd booking.CancelListingCommand) error {
	return m.cancelDemand(ctx, cmd)
}
func (m *mockBooking) GetDemand(ctx context.Context, id types.ID) (*demand.Demand, error) {
	return m.getDemand(ctx, id)
}
func (m *mockBooking) ListMyDemands(ctx context.Context, ownerID types.ID) ([]demand.Demand, error) {
	return m.listMyDemands(ctx, ownerID)
}
func (m *mockBooking) CreateRequest(ctx context.Context, cmd booking.CreateRequestCommand) (*booking.Booking, error) {
	return m.createRequest(ctx, cmd)
}
func (m *mockBooking) Accept(ctx context.Context, cmd booking.AcceptCommand) (*booking.Booking, error) {
	return m.accept(ctx, cmd)
}
func (m *mockBooking) Reject(ctx context.Context, cmd booking.RejectCommand) (*request.Request, error) {
	return m.reject(ctx, cmd)
}
func (m *mockBooking) Cancel(ctx context.Context, cmd booking.CancelCommand) (*request.Request, error) {
	return m.cancel(ctx, cmd)
}
func (m *mockBooking) Complete(ctx context.Context, cmd booking.CompleteCommand) (*booking.Booking, error) {
	return m.complete(ctx, cmd)
}
func (m *mockBooking) RetryRelease(ctx context.Context, cmd booking.ReleaseCommand) (*transaction.Transaction, error) {
	return m.retryRelease(ctx, cmd)
}
func (m *mockBooking) GetRequest(ctx context.Context, id, callerID types.ID) (*request.Request, error) {
	return m.getRequest(ctx, id, callerID)
}
func (m *mockBooking) History(ctx context.Context, id, callerID types.ID) ([]request.HistoryEntry, error) {
	return m.history(ctx, id, callerID)
}
func (m *mockBooking) GetTransaction(ctx context.Context, requestID, callerID types.ID) (*transaction.Transaction, error) {
	return m.getTransaction(ctx, requestID, callerID)
}
func (m *mockBooking) ListRequestsForTrip(ctx context.Context, tripID, callerID types.ID) ([]request.Request, error) {
	return m.listRequestsForTrip(ctx, tripID, callerID)
}
func (m *mockBooking) ListRequestsForDemand(ctx context.Context, demandID, callerID types.ID) ([]request.Request, error) {
	return m.listRequestsForDemand(ctx, demandID, callerID)
}
func (m *mockBooking) ListMyRequests(ctx context.Context, requesterID types.ID) ([]request.Request, error) {
	return m.listMyRequests(ctx, requesterID)
}
