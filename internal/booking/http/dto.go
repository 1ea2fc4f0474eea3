package http

import (
	"fmt"
	"time"

	"github.com/clubworks/coaching-booking-backend/internal/booking"
)

// RPCRequest is the single-endpoint booking contract: one POST body carrying
// an action discriminator.
type RPCRequest struct {
	Action  string       `json:"action" binding:"required,oneof=getSlots bookSlot"`
	Date    string       `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Booking *BookingBody `json:"booking"`
}

type BookingBody struct {
	Name     string             `json:"name" binding:"required"`
	Email    string             `json:"email" binding:"required,email"`
	Phone    string             `json:"phone"`
	Location string             `json:"location" binding:"required"`
	Date     string             `json:"date" binding:"required,datetime=2006-01-02"`
	Slots    []SelectedSlotBody `json:"slots" binding:"required,min=1,dive"`
	Notes    string             `json:"notes"`
}

type SelectedSlotBody struct {
	Time            string `json:"time" binding:"required"`
	DurationMinutes int    `json:"durationMinutes" binding:"required,min=15"`
}

type SlotView struct {
	Time            string `json:"time"`
	Display         string `json:"display"`
	Available       bool   `json:"available"`
	DurationMinutes int    `json:"durationMinutes"`
}

type GetSlotsResponse struct {
	Success  bool       `json:"success"`
	Date     string     `json:"date"`
	Degraded bool       `json:"degraded,omitempty"`
	Slots    []SlotView `json:"slots"`
}

func NewGetSlotsResponse(d *booking.DaySlots) GetSlotsResponse {
	slots := make([]SlotView, 0, len(d.Slots))
	for _, inst := range d.Slots {
		slots = append(slots, SlotView{
			Time:            inst.Start.Format("15:04"),
			Display:         fmt.Sprintf("%s - %s", inst.Start.Format("15:04"), inst.End.Format("15:04")),
			Available:       inst.Available,
			DurationMinutes: inst.DurationMinutes,
		})
	}
	return GetSlotsResponse{
		Success:  true,
		Date:     d.Date,
		Degraded: d.Degraded,
		Slots:    slots,
	}
}

type BookSlotResponse struct {
	Success   bool   `json:"success"`
	BookingID string `json:"bookingId"`
	EventID   string `json:"eventId"`
	EventLink string `json:"eventLink"`
}

type BookingResponse struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Email          string                 `json:"email"`
	Phone          string                 `json:"phone,omitempty"`
	Location       string                 `json:"location"`
	Date           string                 `json:"date"`
	StartTime      string                 `json:"start_time"`
	EndTime        string                 `json:"end_time"`
	Slots          []booking.SelectedSlot `json:"slots"`
	TotalMinutes   int                    `json:"total_minutes"`
	TotalCostCents int                    `json:"total_cost_cents"`
	EventID        string                 `json:"event_id"`
	EventLink      string                 `json:"event_link"`
	Status         string                 `json:"status"`
	Notes          string                 `json:"notes,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

func NewBookingResponse(b *booking.Confirmed) BookingResponse {
	return BookingResponse{
		ID:             b.ID,
		Name:           b.Name,
		Email:          b.Email,
		Phone:          b.Phone,
		Location:       b.Location,
		Date:           b.Date,
		StartTime:      b.StartTime,
		EndTime:        b.EndTime,
		Slots:          b.Slots,
		TotalMinutes:   b.TotalMinutes,
		TotalCostCents: b.TotalCostCents,
		EventID:        b.EventID,
		EventLink:      b.EventLink,
		Status:         string(b.Status),
		Notes:          b.Notes,
		CreatedAt:      b.CreatedAt,
	}
}
