// README: Request handlers: the booking protocols (create, accept, reject,
// cancel, complete) plus fund release retries.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gohappygo/internal/http/middleware"
	"gohappygo/internal/modules/booking"
	"gohappygo/internal/modules/request"
	"gohappygo/internal/types"
)

type RequestHandler struct {
	booking BookingService
}

func NewRequestHandler(svc BookingService) *RequestHandler {
	return &RequestHandler{booking: svc}
}

type createRequestReq struct {
	TripID   string  `json:"tripId"`
	DemandID string  `json:"demandId"`
	Kind     string  `json:"kind"`
	Weight   float64 `json:"weight"`
	Message  string  `json:"message"`
}

func (h *RequestHandler) Create(c *gin.Context) {
	var req createRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.booking.CreateRequest(c.Request.Context(), booking.CreateRequestCommand{
		RequesterID: caller(c),
		TripID:      types.ID(req.TripID),
		DemandID:    types.ID(req.DemandID),
		Kind:        request.Kind(req.Kind),
		Weight:      req.Weight,
		Message:     req.Message,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, b)
}

func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.booking.GetRequest(c.Request.Context(), id, caller(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.booking.History(c.Request.Context(), id, caller(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"history": entries})
}

func (h *RequestHandler) Transaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tx, err := h.booking.GetTransaction(c.Request.Context(), id, caller(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, tx)
}

func (h *RequestHandler) ListMine(c *gin.Context) {
	reqs, err := h.booking.ListMyRequests(c.Request.Context(), caller(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": reqs})
}

func (h *RequestHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.booking.Accept(c.Request.Context(), booking.AcceptCommand{RequestID: id, CallerID: caller(c)})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

func (h *RequestHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.booking.Reject(c.Request.Context(), booking.RejectCommand{RequestID: id, CallerID: caller(c)})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.booking.Cancel(c.Request.Context(), booking.CancelCommand{RequestID: id, CallerID: caller(c)})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

// Complete answers 502 when the payout failed; the request is COMPLETED
// regardless and the client retries through Release.
func (h *RequestHandler) Complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.booking.Complete(c.Request.Context(), booking.CompleteCommand{RequestID: id, CallerID: caller(c)})
	if err != nil && b != nil && errors.Is(err, booking.ErrReleaseFailed) {
		// the request is COMPLETED; the body says so next to the failure
		_ = c.Error(err)
		status, msg := describe(err)
		writeJSON(c, status, completeFailure{Error: msg, Booking: b})
		return
	}
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

type completeFailure struct {
	Error string `json:"error"`
	*booking.Booking
}

func (h *RequestHandler) Release(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cmd := booking.ReleaseCommand{RequestID: id, CallerID: caller(c)}
	if middleware.CallerRole(c) == middleware.RoleOps {
		cmd.CallerID = ""
	}
	tx, err := h.booking.RetryRelease(c.Request.Context(), cmd)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, tx)
}
