package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventease/internal/status"
	"eventease/internal/store"
	"eventease/models"
)

func setupBookingTest(total, remaining int) (*BookingService, *store.MemoryStore, string) {
	ms := store.NewMemoryStore()
	eventID := ms.AddEvent(&models.Event{
		Name:             "Test Concert",
		Status:           models.EventActive,
		TotalTickets:     total,
		TicketsRemaining: remaining,
		TicketPrice:      decimal.NewFromFloat(20.00),
		StartsAt:         time.Now().Add(time.Hour),
		EndsAt:           time.Now().Add(4 * time.Hour),
		OrganizerID:      "organizer1",
	})

	svc := NewBookingService(ms, nil, nil, 10*time.Minute)
	return svc, ms, eventID
}

func TestBook_Success(t *testing.T) {
	svc, ms, eventID := setupBookingTest(10, 10)
	ctx := context.Background()

	before := time.Now()
	result, err := svc.Book(ctx, eventID, "user1", 3)

	require.NoError(t, err)
	assert.Len(t, result.TicketIDs, 3)
	assert.Len(t, result.TicketNumbers, 3)
	assert.Equal(t, "60.00", result.TotalPrice.StringFixed(2))
	assert.Equal(t, 7, result.Remaining)
	assert.WithinDuration(t, before.Add(10*time.Minute), result.ExpiresAt, 5*time.Second)

	ev, err := ms.EventByID(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 7, ev.TicketsRemaining)

	for _, id := range result.TicketIDs {
		ticket, err := ms.TicketByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.TicketReserved, ticket.Status)
		assert.Equal(t, "user1", ticket.UserID)
		assert.Equal(t, "20.00", ticket.Price.StringFixed(2))
		require.NotNil(t, ticket.ReservationExpiry)
	}
}

func TestBook_InvalidQuantity(t *testing.T) {
	svc, _, eventID := setupBookingTest(10, 10)

	_, err := svc.Book(context.Background(), eventID, "user1", 0)
	assert.ErrorIs(t, err, status.ErrInvalidQuantity)

	_, err = svc.Book(context.Background(), eventID, "user1", -2)
	assert.ErrorIs(t, err, status.ErrInvalidQuantity)
}

func TestBook_EventNotFound(t *testing.T) {
	svc, _, _ := setupBookingTest(10, 10)

	_, err := svc.Book(context.Background(), "missing", "user1", 1)
	assert.ErrorIs(t, err, status.ErrEventNotFound)
}

func TestBook_InsufficientInventory(t *testing.T) {
	svc, ms, eventID := setupBookingTest(10, 3)
	ctx := context.Background()

	_, err := svc.Book(ctx, eventID, "user1", 5)

	require.True(t, status.IsInsufficientInventory(err))
	var inv *status.InsufficientInventoryError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 5, inv.Requested)
	assert.Equal(t, 3, inv.Remaining)

	// rejection leaves the counter and ticket set untouched
	ev, _ := ms.EventByID(ctx, eventID)
	assert.Equal(t, 3, ev.TicketsRemaining)
	live, _ := ms.CountLiveTickets(ctx, eventID)
	assert.Equal(t, 0, live)
}

func TestBook_CancelledEvent(t *testing.T) {
	svc, ms, eventID := setupBookingTest(10, 10)
	require.NoError(t, ms.SetEventStatus(context.Background(), eventID, models.EventCancelled))

	_, err := svc.Book(context.Background(), eventID, "user1", 1)
	assert.ErrorIs(t, err, status.ErrEventInactive)
}

func TestBook_EndedEvent(t *testing.T) {
	svc, ms, _ := setupBookingTest(10, 10)
	eventID := ms.AddEvent(&models.Event{
		Name:             "Past Event",
		Status:           models.EventActive,
		TotalTickets:     10,
		TicketsRemaining: 10,
		TicketPrice:      decimal.NewFromFloat(20.00),
		StartsAt:         time.Now().Add(-4 * time.Hour),
		EndsAt:           time.Now().Add(-time.Hour),
		OrganizerID:      "organizer1",
	})

	_, err := svc.Book(context.Background(), eventID, "user1", 1)
	assert.ErrorIs(t, err, status.ErrEventEnded)
}

func TestBook_ConcurrentNeverOversells(t *testing.T) {
	const seats = 5
	const buyers = 20

	svc, ms, eventID := setupBookingTest(seats, seats)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, buyers)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(buyer int) {
			defer wg.Done()
			_, err := svc.Book(ctx, eventID, fmt.Sprintf("user%d", buyer), 1)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, status.IsInsufficientInventory(err), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, seats, succeeded)

	ev, _ := ms.EventByID(ctx, eventID)
	assert.Equal(t, 0, ev.TicketsRemaining)

	live, _ := ms.CountLiveTickets(ctx, eventID)
	assert.Equal(t, seats, live)
}

func TestBook_RerollsOnNumberCollision(t *testing.T) {
	svc, _, eventID := setupBookingTest(10, 10)

	// first roll collides with itself, the reroll resolves it
	sequence := []string{"EVT-000001-SAME", "EVT-000001-SAME", "EVT-000002-SAME"}
	calls := 0
	svc.genNumber = func() (string, error) {
		n := sequence[calls%len(sequence)]
		calls++
		return n, nil
	}

	result, err := svc.Book(context.Background(), eventID, "user1", 2)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"EVT-000001-SAME", "EVT-000002-SAME"}, result.TicketNumbers)
}

func TestBook_GivesUpWhenNumbersExhausted(t *testing.T) {
	svc, _, eventID := setupBookingTest(10, 10)
	svc.genNumber = func() (string, error) {
		return "EVT-000001-ONLY", nil
	}

	_, err := svc.Book(context.Background(), eventID, "user1", 2)
	assert.ErrorIs(t, err, status.ErrDuplicateTicketNumber)
}
