package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clubworks/coaching-booking-backend/internal/booking"
	"github.com/clubworks/coaching-booking-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

// RPC is the single booking endpoint; it dispatches on the action field.
func (h *Handler) RPC(c *gin.Context) {
	var body RPCRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"code":    "VALIDATION",
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	switch body.Action {
	case "getSlots":
		h.getSlots(c, body.Date)
	case "bookSlot":
		h.bookSlot(c, body.Booking)
	}
}

func (h *Handler) getSlots(c *gin.Context, date string) {
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"code":    "VALIDATION",
			"error":   "date is required for getSlots",
		})
		return
	}

	slots, err := h.service.GetSlots(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewGetSlotsResponse(slots))
}

func (h *Handler) bookSlot(c *gin.Context, body *BookingBody) {
	if body == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"code":    "VALIDATION",
			"error":   "booking is required for bookSlot",
		})
		return
	}

	slots := make([]booking.SelectedSlot, 0, len(body.Slots))
	for _, sel := range body.Slots {
		slots = append(slots, booking.SelectedSlot{
			Start:           sel.Time,
			DurationMinutes: sel.DurationMinutes,
		})
	}

	req := booking.Request{
		Name:     body.Name,
		Email:    body.Email,
		Phone:    body.Phone,
		Location: body.Location,
		Date:     body.Date,
		Slots:    slots,
		Notes:    body.Notes,
	}

	confirmed, err := h.service.Book(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, BookSlotResponse{
		Success:   true,
		BookingID: confirmed.ID,
		EventID:   confirmed.EventID,
		EventLink: confirmed.EventLink,
	})
}

func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	date := c.Query("date")

	bookings, total, err := h.service.ListByDate(c.Request.Context(), date, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, page, pageSize, total))
}
