package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketReserved  TicketStatus = "reserved"
	TicketPaid      TicketStatus = "paid"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
)

// ticketTransitions is the single source of truth for legal status changes.
// used and cancelled are terminal.
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketReserved: {TicketPaid, TicketCancelled},
	TicketPaid:     {TicketUsed, TicketCancelled},
}

// CanTransitionTo reports whether s -> to is a legal lifecycle transition.
func (s TicketStatus) CanTransitionTo(to TicketStatus) bool {
	for _, next := range ticketTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s TicketStatus) Terminal() bool {
	return len(ticketTransitions[s]) == 0
}

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketReserved, TicketPaid, TicketUsed, TicketCancelled:
		return true
	}
	return false
}

type Ticket struct {
	ID                string          `json:"id"`
	Number            string          `json:"ticket_number"`
	EventID           string          `json:"event_id"`
	UserID            string          `json:"user_id"`
	Price             decimal.Decimal `json:"price"` // snapshot of the event price at booking time
	Status            TicketStatus    `json:"status"`
	ReservationExpiry *time.Time      `json:"reservation_expiry,omitempty"`
	Checked           bool            `json:"checked"`
	Created           time.Time       `json:"created"`
}

// HoldExpired reports whether a reserved ticket's hold has lapsed.
// Only meaningful while the ticket is reserved.
func (t *Ticket) HoldExpired(now time.Time) bool {
	return t.Status == TicketReserved && t.ReservationExpiry != nil && t.ReservationExpiry.Before(now)
}
