package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventease/internal/store"
	"eventease/models"
)

func setupSweeperTest(remaining int) (*SweeperService, *store.MemoryStore, string) {
	ms := store.NewMemoryStore()
	eventID := ms.AddEvent(&models.Event{
		Name:             "Test Concert",
		Status:           models.EventActive,
		TotalTickets:     10,
		TicketsRemaining: remaining,
		TicketPrice:      decimal.NewFromFloat(20.00),
		StartsAt:         time.Now().Add(time.Hour),
		EndsAt:           time.Now().Add(4 * time.Hour),
		OrganizerID:      "organizer1",
	})
	return NewSweeperService(ms, nil, nil, time.Minute, 100), ms, eventID
}

func addSweeperTicket(t *testing.T, ms *store.MemoryStore, eventID string, st models.TicketStatus, expiry time.Time) string {
	t.Helper()
	ticket := &models.Ticket{
		Number:            "EVT-" + string(st) + "-" + expiry.Format("150405.000"),
		EventID:           eventID,
		UserID:            "user1",
		Price:             decimal.NewFromFloat(20.00),
		Status:            st,
		ReservationExpiry: &expiry,
	}
	require.NoError(t, ms.CreateTicket(context.Background(), ticket))
	return ticket.ID
}

func TestSweep_ReclaimsExpiredHolds(t *testing.T) {
	sweeper, ms, eventID := setupSweeperTest(7)
	ctx := context.Background()

	now := time.Now()
	expiredA := addSweeperTicket(t, ms, eventID, models.TicketReserved, now.Add(-2*time.Minute))
	expiredB := addSweeperTicket(t, ms, eventID, models.TicketReserved, now.Add(-time.Minute))
	liveHold := addSweeperTicket(t, ms, eventID, models.TicketReserved, now.Add(10*time.Minute))
	paid := addSweeperTicket(t, ms, eventID, models.TicketPaid, now.Add(-time.Minute))

	reclaimed, err := sweeper.SweepExpiredReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reclaimed)

	for _, id := range []string{expiredA, expiredB} {
		ticket, _ := ms.TicketByID(ctx, id)
		assert.Equal(t, models.TicketCancelled, ticket.Status)
	}

	ticket, _ := ms.TicketByID(ctx, liveHold)
	assert.Equal(t, models.TicketReserved, ticket.Status)
	ticket, _ = ms.TicketByID(ctx, paid)
	assert.Equal(t, models.TicketPaid, ticket.Status)

	ev, _ := ms.EventByID(ctx, eventID)
	assert.Equal(t, 9, ev.TicketsRemaining)
}

func TestSweep_SecondPassFindsNothing(t *testing.T) {
	sweeper, ms, eventID := setupSweeperTest(9)
	ctx := context.Background()
	addSweeperTicket(t, ms, eventID, models.TicketReserved, time.Now().Add(-time.Minute))

	reclaimed, err := sweeper.SweepExpiredReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	reclaimed, err = sweeper.SweepExpiredReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, reclaimed)

	// the seat came back exactly once
	ev, _ := ms.EventByID(ctx, eventID)
	assert.Equal(t, 10, ev.TicketsRemaining)
}

func TestSweep_CancelledEventKeepsSeatsOffMarket(t *testing.T) {
	sweeper, ms, eventID := setupSweeperTest(9)
	ctx := context.Background()
	ticketID := addSweeperTicket(t, ms, eventID, models.TicketReserved, time.Now().Add(-time.Minute))
	require.NoError(t, ms.SetEventStatus(ctx, eventID, models.EventCancelled))

	reclaimed, err := sweeper.SweepExpiredReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	ticket, _ := ms.TicketByID(ctx, ticketID)
	assert.Equal(t, models.TicketCancelled, ticket.Status)

	ev, _ := ms.EventByID(ctx, eventID)
	assert.Equal(t, 9, ev.TicketsRemaining)
}

func TestSweeper_StartAndShutdown(t *testing.T) {
	sweeper, ms, eventID := setupSweeperTest(9)
	sweeper.interval = 10 * time.Millisecond
	addSweeperTicket(t, ms, eventID, models.TicketReserved, time.Now().Add(-time.Minute))

	ctx := context.Background()
	sweeper.Start(ctx)

	assert.Eventually(t, func() bool {
		ev, err := ms.EventByID(ctx, eventID)
		return err == nil && ev.TicketsRemaining == 10
	}, time.Second, 10*time.Millisecond)

	sweeper.Shutdown()
	// Shutdown twice must not panic
	sweeper.Shutdown()
}
