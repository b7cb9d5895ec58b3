// README: Demand handlers: a sender's posted shipping need.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"gohappygo/internal/modules/booking"
	"gohappygo/internal/modules/demand"
)

type DemandHandler struct {
	booking BookingService
}

func NewDemandHandler(svc BookingService) *DemandHandler {
	return &DemandHandler{booking: svc}
}

type createDemandReq struct {
	OriginCity      string     `json:"originCity" binding:"required"`
	DestinationCity string     `json:"destinationCity" binding:"required"`
	Weight          float64    `json:"weight" binding:"required"`
	PricePerKg      string     `json:"pricePerKg"`
	Currency        string     `json:"currency"`
	Description     string     `json:"description"`
	DeliverBy       *time.Time `json:"deliverBy"`
}

type updateDemandReq struct {
	OriginCity      *string          `json:"originCity"`
	DestinationCity *string          `json:"destinationCity"`
	Weight          *float64         `json:"weight"`
	PricePerKg      *decimal.Decimal `json:"pricePerKg"`
	Description     *string          `json:"description"`
	DeliverBy       *time.Time       `json:"deliverBy"`
}

func (h *DemandHandler) Create(c *gin.Context) {
	var req createDemandReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.booking.CreateDemand(c.Request.Context(), booking.CreateDemandCommand{
		OwnerID:         caller(c),
		OriginCity:      req.OriginCity,
		DestinationCity: req.DestinationCity,
		Weight:          req.Weight,
		PricePerKg:      req.PricePerKg,
		Currency:        req.Currency,
		Description:     req.Description,
		DeliverBy:       req.DeliverBy,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, d)
}

func (h *DemandHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.booking.GetDemand(c.Request.Context(), id)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DemandHandler) ListMine(c *gin.Context) {
	demands, err := h.booking.ListMyDemands(c.Request.Context(), caller(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"demands": demands})
}

func (h *DemandHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateDemandReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.booking.UpdateDemand(c.Request.Context(), booking.UpdateDemandCommand{
		DemandID: id,
		CallerID: caller(c),
		Update: demand.Update{
			OriginCity:      req.OriginCity,
			DestinationCity: req.DestinationCity,
			Weight:          req.Weight,
			PricePerKg:      req.PricePerKg,
			Description:     req.Description,
			DeliverBy:       req.DeliverBy,
		},
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DemandHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.booking.CancelDemand(c.Request.Context(), booking.CancelListingCommand{ListingID: id, CallerID: caller(c)})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": demand.StatusCancelled})
}

func (h *DemandHandler) ListRequests(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reqs, err := h.booking.ListRequestsForDemand(c.Request.Context(), id, caller(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": reqs})
}
