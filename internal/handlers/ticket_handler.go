package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"eventease/internal/services"
)

type TicketHandler struct {
	app           *pocketbase.PocketBase
	ticketService *services.TicketService
}

func NewTicketHandler(app *pocketbase.PocketBase, ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{app: app, ticketService: ticketService}
}

func actorFrom(e *core.RequestEvent) services.Actor {
	return services.Actor{
		ID:          e.Auth.Id,
		IsSuperuser: e.Auth.IsSuperuser(),
	}
}

// Cancel - release a reserved or paid ticket back to inventory
func (h *TicketHandler) Cancel(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")
	if err := h.ticketService.Cancel(e.Request.Context(), ticketID, actorFrom(e)); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Ticket cancelled"})
}

// CheckIn - mark a paid ticket as used at the venue
func (h *TicketHandler) CheckIn(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")
	if err := h.ticketService.MarkUsed(e.Request.Context(), ticketID, actorFrom(e)); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Ticket checked in"})
}

// Verify - non-mutating validity check against status and event window
func (h *TicketHandler) Verify(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")
	result, err := h.ticketService.Verify(e.Request.Context(), ticketID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, result)
}
