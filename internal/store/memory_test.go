package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventease/models"
)

func seedEvent(s *MemoryStore, total, remaining int) string {
	return s.AddEvent(&models.Event{
		Name:             "Test Event",
		Status:           models.EventActive,
		TotalTickets:     total,
		TicketsRemaining: remaining,
		TicketPrice:      decimal.NewFromFloat(25.00),
		StartsAt:         time.Now().Add(time.Hour),
		EndsAt:           time.Now().Add(2 * time.Hour),
		OrganizerID:      "organizer1",
	})
}

func TestReserveInventory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	eventID := seedEvent(s, 10, 3)

	ok, err := s.ReserveInventory(ctx, eventID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ev, err := s.EventByID(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, ev.TicketsRemaining)

	// not enough left: counter untouched
	ok, err = s.ReserveInventory(ctx, eventID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ev, _ = s.EventByID(ctx, eventID)
	assert.Equal(t, 1, ev.TicketsRemaining)
}

func TestReserveInventory_CancelledEvent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	eventID := seedEvent(s, 10, 10)
	require.NoError(t, s.SetEventStatus(ctx, eventID, models.EventCancelled))

	ok, err := s.ReserveInventory(ctx, eventID, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReleaseInventory_CapsAtTotal(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	eventID := seedEvent(s, 10, 9)

	ok, err := s.ReleaseInventory(ctx, eventID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	// releasing past the total is refused, not clamped
	ok, err = s.ReleaseInventory(ctx, eventID, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ev, _ := s.EventByID(ctx, eventID)
	assert.Equal(t, 10, ev.TicketsRemaining)
}

func TestTransitionTicket_Guarded(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	eventID := seedEvent(s, 10, 10)

	expiry := time.Now().Add(10 * time.Minute)
	ticket := &models.Ticket{
		Number:            "EVT-000001-AAAA",
		EventID:           eventID,
		UserID:            "user1",
		Status:            models.TicketReserved,
		ReservationExpiry: &expiry,
	}
	require.NoError(t, s.CreateTicket(ctx, ticket))

	// wrong expected status: no-op
	ok, err := s.TransitionTicket(ctx, ticket.ID, models.TicketPaid, models.TicketUsed)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.TransitionTicket(ctx, ticket.ID, models.TicketReserved, models.TicketPaid)
	require.NoError(t, err)
	assert.True(t, ok)

	paid, err := s.TicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketPaid, paid.Status)
	assert.Nil(t, paid.ReservationExpiry)

	ok, err = s.TransitionTicket(ctx, ticket.ID, models.TicketPaid, models.TicketUsed)
	require.NoError(t, err)
	assert.True(t, ok)

	used, _ := s.TicketByID(ctx, ticket.ID)
	assert.Equal(t, models.TicketUsed, used.Status)
	assert.True(t, used.Checked)
}

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	eventID := seedEvent(s, 10, 10)

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(tx Store) error {
		ok, err := tx.ReserveInventory(ctx, eventID, 3)
		require.NoError(t, err)
		require.True(t, ok)
		if err := tx.CreateTicket(ctx, &models.Ticket{
			Number:  "EVT-111111-BBBB",
			EventID: eventID,
			UserID:  "user1",
			Status:  models.TicketReserved,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)

	// nothing from the failed unit is visible
	ev, _ := s.EventByID(ctx, eventID)
	assert.Equal(t, 10, ev.TicketsRemaining)

	exists, _ := s.TicketNumberExists(ctx, "EVT-111111-BBBB")
	assert.False(t, exists)
}

func TestExpiredReservations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	eventID := seedEvent(s, 10, 7)

	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	for i, expiry := range []*time.Time{&past, &future, nil} {
		require.NoError(t, s.CreateTicket(ctx, &models.Ticket{
			Number:            "EVT-00000" + string(rune('1'+i)) + "-CCCC",
			EventID:           eventID,
			UserID:            "user1",
			Status:            models.TicketReserved,
			ReservationExpiry: expiry,
		}))
	}

	expired, err := s.ExpiredReservations(ctx, now, 100)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "EVT-000001-CCCC", expired[0].Number)
}

func TestCountLiveTickets(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	eventID := seedEvent(s, 10, 6)

	statuses := []models.TicketStatus{
		models.TicketReserved,
		models.TicketPaid,
		models.TicketUsed,
		models.TicketCancelled,
	}
	for i, st := range statuses {
		require.NoError(t, s.CreateTicket(ctx, &models.Ticket{
			Number:  "EVT-10000" + string(rune('1'+i)) + "-DDDD",
			EventID: eventID,
			UserID:  "user1",
			Status:  st,
		}))
	}

	live, err := s.CountLiveTickets(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 3, live) // cancelled does not count
}
