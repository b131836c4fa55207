package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"eventease/internal/services"
)

type AdminHandler struct {
	app           *pocketbase.PocketBase
	ticketService *services.TicketService
	sweeper       *services.SweeperService
}

func NewAdminHandler(app *pocketbase.PocketBase, ticketService *services.TicketService, sweeper *services.SweeperService) *AdminHandler {
	return &AdminHandler{
		app:           app,
		ticketService: ticketService,
		sweeper:       sweeper,
	}
}

// Sweep - run a sweeper pass now instead of waiting for the next tick
func (h *AdminHandler) Sweep(e *core.RequestEvent) error {
	reclaimed, err := h.sweeper.SweepExpiredReservations(e.Request.Context())
	if err != nil {
		return apis.NewInternalServerError("internal error", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"reclaimed_count": reclaimed})
}

// CancelEvent - stop sales for an event
func (h *AdminHandler) CancelEvent(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("eventId")
	if err := h.ticketService.CancelEvent(e.Request.Context(), eventID, actorFrom(e)); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Event cancelled"})
}

// Inventory - counter vs. counted tickets, for the dashboard
func (h *AdminHandler) Inventory(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	report, err := h.ticketService.InventoryReport(e.Request.Context(), eventID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, report)
}
