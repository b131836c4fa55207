package services

import (
	"context"
	"time"

	"eventease/internal/status"
	"eventease/internal/store"
	"eventease/models"
	"eventease/monitoring"
)

// Actor is the already-authenticated principal acting on a ticket.
type Actor struct {
	ID          string
	IsSuperuser bool
}

// TicketService applies the per-ticket lifecycle transitions: cancellation
// (with its conditional inventory replenish), check-in, and verification.
type TicketService struct {
	store    store.Store
	monitor  *monitoring.Monitor
	notifier *Notifier

	now func() time.Time
}

func NewTicketService(st store.Store, monitor *monitoring.Monitor, notifier *Notifier) *TicketService {
	return &TicketService{
		store:    st,
		monitor:  monitor,
		notifier: notifier,
		now:      time.Now,
	}
}

// Cancel transitions a reserved or paid ticket to cancelled and returns its
// seat to inventory, unless the event itself is no longer selling. Allowed
// for the ticket owner, the event organizer, and superusers.
func (s *TicketService) Cancel(ctx context.Context, ticketID string, actor Actor) error {
	t, err := s.store.TicketByID(ctx, ticketID)
	if err != nil {
		return err
	}
	ev, err := s.store.EventByID(ctx, t.EventID)
	if err != nil {
		return err
	}
	if !actor.IsSuperuser && actor.ID != t.UserID && actor.ID != ev.OrganizerID {
		return status.ErrUnauthorized
	}
	if !t.Status.CanTransitionTo(models.TicketCancelled) {
		return &status.InvalidTransitionError{TicketID: ticketID, From: t.Status, To: models.TicketCancelled}
	}

	wasPaid := t.Status == models.TicketPaid
	var remaining int
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		applied, err := tx.TransitionTicket(ctx, ticketID, t.Status, models.TicketCancelled)
		if err != nil {
			return err
		}
		if !applied {
			// someone got there first; report against the current status
			current, err := tx.TicketByID(ctx, ticketID)
			if err != nil {
				return err
			}
			return &status.InvalidTransitionError{TicketID: ticketID, From: current.Status, To: models.TicketCancelled}
		}

		// cancelled events do not replenish: they can no longer sell
		if _, err := tx.ReleaseInventory(ctx, t.EventID, 1); err != nil {
			return err
		}

		if wasPaid {
			refund := &models.Transaction{
				TicketID:         ticketID,
				EventID:          t.EventID,
				UserID:           t.UserID,
				Amount:           t.Price,
				PaymentReference: "refund:" + ticketID,
				Status:           models.TransactionRefunded,
			}
			if err := tx.CreateTransaction(ctx, refund); err != nil {
				return err
			}
		}

		current, err := tx.EventByID(ctx, t.EventID)
		if err != nil {
			return err
		}
		remaining = current.TicketsRemaining
		return nil
	})
	if err != nil {
		return err
	}

	if s.monitor != nil {
		s.monitor.MirrorInventory(ctx, t.EventID, remaining)
	}
	s.notifier.NotifyUser(t.UserID, map[string]any{
		"type":          "ticket_cancelled",
		"ticket_id":     ticketID,
		"ticket_number": t.Number,
		"event_id":      t.EventID,
	})
	return nil
}

// MarkUsed checks a paid ticket in at the venue. Organizer and superuser only.
func (s *TicketService) MarkUsed(ctx context.Context, ticketID string, actor Actor) error {
	t, err := s.store.TicketByID(ctx, ticketID)
	if err != nil {
		return err
	}
	ev, err := s.store.EventByID(ctx, t.EventID)
	if err != nil {
		return err
	}
	if !actor.IsSuperuser && actor.ID != ev.OrganizerID {
		return status.ErrUnauthorized
	}
	if !t.Status.CanTransitionTo(models.TicketUsed) {
		return &status.InvalidTransitionError{TicketID: ticketID, From: t.Status, To: models.TicketUsed}
	}

	applied, err := s.store.TransitionTicket(ctx, ticketID, models.TicketPaid, models.TicketUsed)
	if err != nil {
		return err
	}
	if !applied {
		current, err := s.store.TicketByID(ctx, ticketID)
		if err != nil {
			return err
		}
		return &status.InvalidTransitionError{TicketID: ticketID, From: current.Status, To: models.TicketUsed}
	}
	return nil
}

type VerifyResult struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason,omitempty"`
}

// Verify reports whether the ticket currently admits entry. Read only.
func (s *TicketService) Verify(ctx context.Context, ticketID string) (*VerifyResult, error) {
	t, err := s.store.TicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ev, err := s.store.EventByID(ctx, t.EventID)
	if err != nil {
		return nil, err
	}
	return VerifyTicket(t, ev, s.now()), nil
}

// VerifyTicket is the pure validity check: status plus the event time window.
func VerifyTicket(t *models.Ticket, ev *models.Event, now time.Time) *VerifyResult {
	switch {
	case t.Status == models.TicketCancelled:
		return &VerifyResult{Reason: "ticket is cancelled"}
	case t.Status == models.TicketUsed:
		return &VerifyResult{Reason: "ticket already used"}
	case now.Before(ev.StartsAt):
		return &VerifyResult{Reason: "event has not started"}
	case ev.Ended(now):
		return &VerifyResult{Reason: "event has ended"}
	default:
		return &VerifyResult{IsValid: true}
	}
}

// History returns the caller's tickets, newest first.
func (s *TicketService) History(ctx context.Context, userID string, limit int) ([]*models.Ticket, error) {
	return s.store.TicketsByUser(ctx, userID, limit)
}

// InventoryReport compares the event counter against the counted live
// tickets; drift means the booking invariant was violated somewhere.
type InventoryReport struct {
	EventID          string `json:"event_id"`
	TotalTickets     int    `json:"total_tickets"`
	TicketsRemaining int    `json:"tickets_remaining"`
	LiveTickets      int    `json:"live_tickets"`
	Consistent       bool   `json:"consistent"`
}

func (s *TicketService) InventoryReport(ctx context.Context, eventID string) (*InventoryReport, error) {
	ev, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	live, err := s.store.CountLiveTickets(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &InventoryReport{
		EventID:          eventID,
		TotalTickets:     ev.TotalTickets,
		TicketsRemaining: ev.TicketsRemaining,
		LiveTickets:      live,
		Consistent:       ev.TicketsRemaining+live == ev.TotalTickets,
	}, nil
}

// CancelEvent stops sales for an event. Existing tickets are untouched;
// later ticket cancellations will no longer replenish its inventory.
func (s *TicketService) CancelEvent(ctx context.Context, eventID string, actor Actor) error {
	ev, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if !actor.IsSuperuser && actor.ID != ev.OrganizerID {
		return status.ErrUnauthorized
	}
	if ev.Status == models.EventCancelled {
		return nil
	}
	return s.store.SetEventStatus(ctx, eventID, models.EventCancelled)
}
