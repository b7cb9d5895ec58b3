// README: Booking failures. Each wraps one error class from internal/types.
package booking

import "gohappygo/internal/types"

var (
	ErrNotOwner           = types.NewError(types.ErrUnauthorized, "only the listing owner can do this")
	ErrNotRequester       = types.NewError(types.ErrUnauthorized, "only the requester can do this")
	ErrNotParticipant     = types.NewError(types.ErrUnauthorized, "not a participant of this request")
	ErrUnverified         = types.NewError(types.ErrUnauthorized, "identity verification required")
	ErrOwnListing         = types.NewError(types.ErrValidation, "cannot request your own listing")
	ErrHasAcceptedRequest = types.NewError(types.ErrConflict, "listing has an accepted request")
	ErrHasOpenNegotiation = types.NewError(types.ErrConflict, "listing has an open negotiation")
	ErrMoneyMoved         = types.NewError(types.ErrConflict, "funds already moved for this listing")
	ErrTripReserved       = types.NewError(types.ErrConflict, "trip is reserved for another request")
	ErrListingCancelled   = types.NewError(types.ErrConflict, "listing already cancelled")
	ErrNotCompleted       = types.NewError(types.ErrConflict, "request is not completed")
	ErrReleaseFailed      = types.NewError(types.ErrDependency, "fund release failed; the request stays completed, retry the release")
	ErrIdentityFailed     = types.NewError(types.ErrDependency, "identity service unavailable")
)
