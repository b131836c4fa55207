package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"eventease/internal/services"
)

type BookingHandler struct {
	app            *pocketbase.PocketBase
	bookingService *services.BookingService
	ticketService  *services.TicketService
}

func NewBookingHandler(app *pocketbase.PocketBase, bookingService *services.BookingService, ticketService *services.TicketService) *BookingHandler {
	return &BookingHandler{
		app:            app,
		bookingService: bookingService,
		ticketService:  ticketService,
	}
}

// Book - place a hold on N tickets for the authenticated user
func (h *BookingHandler) Book(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		EventID  string `json:"event_id"`
		Quantity int    `json:"quantity"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("event_id is required", nil)
	}

	result, err := h.bookingService.Book(e.Request.Context(), req.EventID, e.Auth.Id, req.Quantity)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket_ids":     result.TicketIDs,
		"ticket_numbers": result.TicketNumbers,
		"total_price":    result.TotalPrice.StringFixed(2),
		"expires_at":     result.ExpiresAt,
	})
}

// History - the authenticated user's tickets, newest first
func (h *BookingHandler) History(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	tickets, err := h.ticketService.History(e.Request.Context(), e.Auth.Id, 50)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, tickets)
}
