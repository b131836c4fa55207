package status

import (
	"errors"
	"fmt"

	"eventease/models"
)

var (
	ErrEventNotFound         = errors.New("event: not found")
	ErrTicketNotFound        = errors.New("ticket: not found")
	ErrEventInactive         = errors.New("event: not accepting bookings")
	ErrEventEnded            = errors.New("event: already ended")
	ErrUnauthorized          = errors.New("actor: not allowed")
	ErrInvalidQuantity       = errors.New("booking: quantity must be at least 1")
	ErrDuplicateTicketNumber = errors.New("ticket: duplicate ticket number")
	ErrInternal              = errors.New("internal error")
)

// InsufficientInventoryError reports how many tickets were actually left,
// so the caller can show it to the user.
type InsufficientInventoryError struct {
	EventID   string
	Requested int
	Remaining int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("event %s: requested %d tickets, only %d remaining", e.EventID, e.Requested, e.Remaining)
}

// InvalidTransitionError rejects a status change outside the lifecycle table.
type InvalidTransitionError struct {
	TicketID string
	From     models.TicketStatus
	To       models.TicketStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("ticket %s: illegal transition %s -> %s", e.TicketID, e.From, e.To)
}

func IsInsufficientInventory(err error) bool {
	var target *InsufficientInventoryError
	return errors.As(err, &target)
}

func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}
