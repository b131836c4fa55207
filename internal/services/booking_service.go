package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"eventease/internal/status"
	"eventease/internal/store"
	"eventease/models"
	"eventease/monitoring"
	"eventease/utils"
)

const (
	// attempts to find a free ticket number before giving up
	maxNumberAttempts = 5
	// attempts at the whole booking transaction on transient storage errors
	maxBookAttempts = 3
)

// BookingService is the entry point for creating holds: it validates the
// event, then decrements the inventory counter and creates the reserved
// tickets as one transaction, so concurrent bookings can never oversell.
type BookingService struct {
	store    store.Store
	monitor  *monitoring.Monitor
	notifier *Notifier

	holdDuration time.Duration

	now       func() time.Time
	genNumber func() (string, error)
}

type BookingResult struct {
	TicketIDs     []string        `json:"ticket_ids"`
	TicketNumbers []string        `json:"ticket_numbers"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	ExpiresAt     time.Time       `json:"expires_at"`
	Remaining     int             `json:"tickets_remaining"`
}

func NewBookingService(st store.Store, monitor *monitoring.Monitor, notifier *Notifier, holdDuration time.Duration) *BookingService {
	return &BookingService{
		store:        st,
		monitor:      monitor,
		notifier:     notifier,
		holdDuration: holdDuration,
		now:          time.Now,
		genNumber:    defaultTicketNumber,
	}
}

// Book attempts to reserve quantity tickets for userID on the event.
// On any failure the inventory counter and ticket set are left untouched.
func (s *BookingService) Book(ctx context.Context, eventID, userID string, quantity int) (*BookingResult, error) {
	started := time.Now()

	result, err := s.book(ctx, eventID, userID, quantity)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	if s.monitor != nil {
		s.monitor.TrackBooking(eventID, outcome, quantity, time.Since(started))
	}
	if err != nil {
		return nil, err
	}

	if s.monitor != nil {
		s.monitor.MirrorInventory(ctx, eventID, result.Remaining)
	}
	s.notifier.NotifyUser(userID, map[string]any{
		"type":           "booking_created",
		"event_id":       eventID,
		"ticket_numbers": result.TicketNumbers,
		"total_price":    result.TotalPrice.StringFixed(2),
		"expires_at":     result.ExpiresAt,
	})

	return result, nil
}

func (s *BookingService) book(ctx context.Context, eventID, userID string, quantity int) (*BookingResult, error) {
	if quantity < 1 {
		return nil, status.ErrInvalidQuantity
	}

	ev, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if ev.Status != models.EventActive {
		return nil, status.ErrEventInactive
	}
	if ev.Ended(now) {
		return nil, status.ErrEventEnded
	}
	if ev.TicketsRemaining < quantity {
		return nil, &status.InsufficientInventoryError{
			EventID:   eventID,
			Requested: quantity,
			Remaining: ev.TicketsRemaining,
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxBookAttempts; attempt++ {
		result, err := s.tryBook(ctx, ev, userID, quantity)
		if err == nil {
			return result, nil
		}
		if isBookingRejection(err) {
			return nil, err
		}
		// transient storage error (tx conflict, unique index race): retry
		// with freshly generated ticket numbers
		lastErr = err
		slog.Warn("booking attempt failed, retrying", "event_id", ev.ID, "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("%w: booking for event %s: %v", status.ErrInternal, eventID, lastErr)
}

func (s *BookingService) tryBook(ctx context.Context, ev *models.Event, userID string, quantity int) (*BookingResult, error) {
	numbers, err := s.generateNumbers(ctx, quantity)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.holdDuration).UTC()
	result := &BookingResult{
		TicketNumbers: numbers,
		TotalPrice:    ev.TicketPrice.Mul(decimal.NewFromInt(int64(quantity))),
		ExpiresAt:     expiresAt,
	}

	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		ok, err := tx.ReserveInventory(ctx, ev.ID, quantity)
		if err != nil {
			return err
		}
		if !ok {
			// counter moved under us; re-read for an accurate rejection
			current, err := tx.EventByID(ctx, ev.ID)
			if err != nil {
				return err
			}
			if current.Status != models.EventActive {
				return status.ErrEventInactive
			}
			return &status.InsufficientInventoryError{
				EventID:   ev.ID,
				Requested: quantity,
				Remaining: current.TicketsRemaining,
			}
		}

		ids := make([]string, 0, quantity)
		for _, number := range numbers {
			ticket := &models.Ticket{
				Number:            number,
				EventID:           ev.ID,
				UserID:            userID,
				Price:             ev.TicketPrice,
				Status:            models.TicketReserved,
				ReservationExpiry: &expiresAt,
			}
			if err := tx.CreateTicket(ctx, ticket); err != nil {
				return err
			}
			ids = append(ids, ticket.ID)
		}
		result.TicketIDs = ids

		current, err := tx.EventByID(ctx, ev.ID)
		if err != nil {
			return err
		}
		result.Remaining = current.TicketsRemaining
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// generateNumbers produces quantity unique ticket numbers, re-rolling on a
// collision with existing tickets or within the batch itself.
func (s *BookingService) generateNumbers(ctx context.Context, quantity int) ([]string, error) {
	numbers := make([]string, 0, quantity)
	seen := make(map[string]bool, quantity)

	for len(numbers) < quantity {
		found := false
		for attempt := 0; attempt < maxNumberAttempts; attempt++ {
			number, err := s.genNumber()
			if err != nil {
				return nil, fmt.Errorf("%w: ticket number generation: %v", status.ErrInternal, err)
			}
			if seen[number] {
				continue
			}
			exists, err := s.store.TicketNumberExists(ctx, number)
			if err != nil {
				return nil, err
			}
			if exists {
				continue
			}
			seen[number] = true
			numbers = append(numbers, number)
			found = true
			break
		}
		if !found {
			return nil, status.ErrDuplicateTicketNumber
		}
	}
	return numbers, nil
}

func defaultTicketNumber() (string, error) {
	return utils.TicketNumber()
}

// isBookingRejection reports whether err is a final answer for the caller
// rather than a transient storage failure worth retrying.
func isBookingRejection(err error) bool {
	return errors.Is(err, status.ErrEventNotFound) ||
		errors.Is(err, status.ErrEventInactive) ||
		errors.Is(err, status.ErrEventEnded) ||
		errors.Is(err, status.ErrInvalidQuantity) ||
		errors.Is(err, status.ErrDuplicateTicketNumber) ||
		status.IsInsufficientInventory(err)
}
