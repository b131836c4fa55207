package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"eventease/internal/store"
)

type EventHandler struct {
	app *pocketbase.PocketBase
	st  store.Store
}

func NewEventHandler(app *pocketbase.PocketBase, st store.Store) *EventHandler {
	return &EventHandler{app: app, st: st}
}

// Availability - public remaining-count read for the booking page
func (h *EventHandler) Availability(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	ev, err := h.st.EventByID(e.Request.Context(), eventID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event_id":          ev.ID,
		"name":              ev.Name,
		"tickets_remaining": ev.TicketsRemaining,
		"total_tickets":     ev.TotalTickets,
		"ticket_price":      ev.TicketPrice.StringFixed(2),
		"sellable":          ev.Sellable(time.Now()),
	})
}
