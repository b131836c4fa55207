package store

import (
	"context"
	"time"

	"eventease/models"
)

// Store is the persistence boundary for the reservation lifecycle.
//
// Every mutation of Event.tickets_remaining goes through ReserveInventory or
// ReleaseInventory, which are guarded (conditional) updates: they apply only
// if the precondition still holds at commit time and report whether they did.
// TransitionTicket is guarded the same way on the ticket's current status, so
// duplicate triggers (sweeper vs. late payment callback, retried webhooks)
// collapse to a single effect.
type Store interface {
	// RunInTransaction executes fn atomically; fn sees a transaction-scoped
	// Store and any error rolls the whole unit back.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	EventByID(ctx context.Context, id string) (*models.Event, error)
	SetEventStatus(ctx context.Context, id string, st models.EventStatus) error

	// ReserveInventory decrements tickets_remaining by qty if the event is
	// active and has at least qty left. Returns false when the condition
	// no longer holds.
	ReserveInventory(ctx context.Context, eventID string, qty int) (bool, error)

	// ReleaseInventory increments tickets_remaining by qty if the event is
	// still active and the counter stays within total_tickets. A cancelled
	// event's inventory is not replenished; that case returns false, nil.
	ReleaseInventory(ctx context.Context, eventID string, qty int) (bool, error)

	CreateTicket(ctx context.Context, t *models.Ticket) error
	TicketByID(ctx context.Context, id string) (*models.Ticket, error)
	TicketsByUser(ctx context.Context, userID string, limit int) ([]*models.Ticket, error)
	TicketNumberExists(ctx context.Context, number string) (bool, error)

	// TransitionTicket applies from -> to only if the ticket is still in
	// from, coupling the status-dependent side effects (checked flag on
	// check-in, expiry cleared on leaving reserved). Returns false when the
	// ticket was not in from anymore.
	TransitionTicket(ctx context.Context, id string, from, to models.TicketStatus) (bool, error)

	// ExpiredReservations lists reserved tickets whose hold lapsed before now.
	ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]*models.Ticket, error)

	// CountLiveTickets counts tickets in {reserved, paid, used} for an event.
	CountLiveTickets(ctx context.Context, eventID string) (int, error)

	CreateTransaction(ctx context.Context, tr *models.Transaction) error
}
