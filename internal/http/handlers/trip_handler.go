// README: Trip handlers: publish, edit, cancel and list a carrier's trips.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"gohappygo/internal/modules/booking"
	"gohappygo/internal/modules/trip"
)

type TripHandler struct {
	booking BookingService
}

func NewTripHandler(svc BookingService) *TripHandler {
	return &TripHandler{booking: svc}
}

type createTripReq struct {
	DepartureCity string    `json:"departureCity" binding:"required"`
	ArrivalCity   string    `json:"arrivalCity" binding:"required"`
	DepartureAt   time.Time `json:"departureAt" binding:"required"`
	TotalCapacity float64   `json:"totalCapacity" binding:"required"`
	PricePerKg    string    `json:"pricePerKg"`
	Currency      string    `json:"currency"`
	// Sharable defaults to true when omitted.
	Sharable *bool `json:"sharable"`
	Instant  bool  `json:"instant"`
}

type updateTripReq struct {
	DepartureCity *string          `json:"departureCity"`
	ArrivalCity   *string          `json:"arrivalCity"`
	DepartureAt   *time.Time       `json:"departureAt"`
	TotalCapacity *float64         `json:"totalCapacity"`
	PricePerKg    *decimal.Decimal `json:"pricePerKg"`
	Sharable      *bool            `json:"sharable"`
	Instant       *bool            `json:"instant"`
}

func (h *TripHandler) Create(c *gin.Context) {
	var req createTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	sharable := true
	if req.Sharable != nil {
		sharable = *req.Sharable
	}
	t, err := h.booking.CreateTrip(c.Request.Context(), booking.CreateTripCommand{
		OwnerID:       caller(c),
		DepartureCity: req.DepartureCity,
		ArrivalCity:   req.ArrivalCity,
		DepartureAt:   req.DepartureAt,
		TotalCapacity: req.TotalCapacity,
		PricePerKg:    req.PricePerKg,
		Currency:      req.Currency,
		Sharable:      sharable,
		Instant:       req.Instant,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, t)
}

func (h *TripHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.booking.GetTrip(c.Request.Context(), id)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *TripHandler) ListMine(c *gin.Context) {
	trips, err := h.booking.ListMyTrips(c.Request.Context(), caller(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"trips": trips})
}

func (h *TripHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.booking.UpdateTrip(c.Request.Context(), booking.UpdateTripCommand{
		TripID:   id,
		CallerID: caller(c),
		Update: trip.Update{
			DepartureCity: req.DepartureCity,
			ArrivalCity:   req.ArrivalCity,
			DepartureAt:   req.DepartureAt,
			TotalCapacity: req.TotalCapacity,
			PricePerKg:    req.PricePerKg,
			Sharable:      req.Sharable,
			Instant:       req.Instant,
		},
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *TripHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.booking.CancelTrip(c.Request.Context(), booking.CancelListingCommand{ListingID: id, CallerID: caller(c)})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": trip.StatusCancelled})
}

func (h *TripHandler) ListRequests(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reqs, err := h.booking.ListRequestsForTrip(c.Request.Context(), id, caller(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": reqs})
}
