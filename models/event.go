package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventStatus string

const (
	EventActive    EventStatus = "active"
	EventCancelled EventStatus = "cancelled"
)

type Event struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Venue            string          `json:"venue"`
	StartsAt         time.Time       `json:"starts_at"`
	EndsAt           time.Time       `json:"ends_at"`
	TotalTickets     int             `json:"total_tickets"`
	TicketsRemaining int             `json:"tickets_remaining"`
	TicketPrice      decimal.Decimal `json:"ticket_price"`
	Status           EventStatus     `json:"status"`
	OrganizerID      string          `json:"organizer_id"`
}

// Sellable reports whether the event can accept new bookings at the given time.
func (e *Event) Sellable(now time.Time) bool {
	return e.Status == EventActive && now.Before(e.EndsAt)
}

func (e *Event) Ended(now time.Time) bool {
	return !now.Before(e.EndsAt)
}
