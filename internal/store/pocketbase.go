package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"eventease/models"
	"eventease/internal/status"
)

// PBStore implements Store on top of a PocketBase app (or a transaction-scoped
// core.App inside RunInTransaction). The inventory counter updates are single
// conditional UPDATE statements so the check and the write happen in one step.
type PBStore struct {
	app core.App
}

func NewPBStore(app core.App) *PBStore {
	return &PBStore{app: app}
}

func (s *PBStore) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		return fn(&PBStore{app: txApp})
	})
}

func (s *PBStore) EventByID(ctx context.Context, id string) (*models.Event, error) {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		return nil, status.ErrEventNotFound
	}
	return eventFromRecord(record), nil
}

func (s *PBStore) SetEventStatus(ctx context.Context, id string, st models.EventStatus) error {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		return status.ErrEventNotFound
	}
	record.Set("status", string(st))
	return s.app.Save(record)
}

func (s *PBStore) ReserveInventory(ctx context.Context, eventID string, qty int) (bool, error) {
	res, err := s.app.DB().NewQuery(
		`UPDATE events
		 SET tickets_remaining = tickets_remaining - {:qty}
		 WHERE id = {:id} AND status = 'active' AND tickets_remaining >= {:qty}`,
	).Bind(dbx.Params{"id": eventID, "qty": qty}).WithContext(ctx).Execute()
	if err != nil {
		return false, fmt.Errorf("reserve inventory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve inventory: %w", err)
	}
	return n == 1, nil
}

func (s *PBStore) ReleaseInventory(ctx context.Context, eventID string, qty int) (bool, error) {
	res, err := s.app.DB().NewQuery(
		`UPDATE events
		 SET tickets_remaining = tickets_remaining + {:qty}
		 WHERE id = {:id} AND status = 'active' AND tickets_remaining + {:qty} <= total_tickets`,
	).Bind(dbx.Params{"id": eventID, "qty": qty}).WithContext(ctx).Execute()
	if err != nil {
		return false, fmt.Errorf("release inventory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release inventory: %w", err)
	}
	return n == 1, nil
}

func (s *PBStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	collection, err := s.app.FindCollectionByNameOrId("tickets")
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("ticket_number", t.Number)
	record.Set("event", t.EventID)
	record.Set("user", t.UserID)
	record.Set("price", t.Price.InexactFloat64())
	record.Set("status", string(t.Status))
	record.Set("checked", t.Checked)
	if t.ReservationExpiry != nil {
		record.Set("reservation_expiry", t.ReservationExpiry.UTC().Format(types.DefaultDateLayout))
	}

	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}

	t.ID = record.Id
	t.Created = record.GetDateTime("created").Time()
	return nil
}

func (s *PBStore) TicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	record, err := s.app.FindRecordById("tickets", id)
	if err != nil {
		return nil, status.ErrTicketNotFound
	}
	return ticketFromRecord(record), nil
}

func (s *PBStore) TicketsByUser(ctx context.Context, userID string, limit int) ([]*models.Ticket, error) {
	records, err := s.app.FindRecordsByFilter(
		"tickets",
		"user = {:user}",
		"-created",
		limit,
		0,
		dbx.Params{"user": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("tickets by user: %w", err)
	}

	tickets := make([]*models.Ticket, 0, len(records))
	for _, record := range records {
		tickets = append(tickets, ticketFromRecord(record))
	}
	return tickets, nil
}

func (s *PBStore) TicketNumberExists(ctx context.Context, number string) (bool, error) {
	_, err := s.app.FindFirstRecordByData("tickets", "ticket_number", number)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *PBStore) TransitionTicket(ctx context.Context, id string, from, to models.TicketStatus) (bool, error) {
	set := "status = {:to}"
	switch to {
	case models.TicketUsed:
		set += ", checked = TRUE"
	case models.TicketPaid, models.TicketCancelled:
		// leaving reserved: the hold deadline no longer applies
		set += ", reservation_expiry = ''"
	}

	res, err := s.app.DB().NewQuery(
		"UPDATE tickets SET "+set+" WHERE id = {:id} AND status = {:from}",
	).Bind(dbx.Params{"id": id, "from": string(from), "to": string(to)}).WithContext(ctx).Execute()
	if err != nil {
		return false, fmt.Errorf("transition ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition ticket: %w", err)
	}
	return n == 1, nil
}

func (s *PBStore) ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]*models.Ticket, error) {
	records, err := s.app.FindRecordsByFilter(
		"tickets",
		"status = 'reserved' && reservation_expiry != '' && reservation_expiry < {:now}",
		"reservation_expiry",
		limit,
		0,
		dbx.Params{"now": now.UTC().Format(types.DefaultDateLayout)},
	)
	if err != nil {
		return nil, fmt.Errorf("expired reservations: %w", err)
	}

	tickets := make([]*models.Ticket, 0, len(records))
	for _, record := range records {
		tickets = append(tickets, ticketFromRecord(record))
	}
	return tickets, nil
}

func (s *PBStore) CountLiveTickets(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.app.DB().NewQuery(
		`SELECT COUNT(*) FROM tickets
		 WHERE event = {:id} AND status IN ('reserved', 'paid', 'used')`,
	).Bind(dbx.Params{"id": eventID}).WithContext(ctx).Row(&count)
	if err != nil {
		return 0, fmt.Errorf("count live tickets: %w", err)
	}
	return count, nil
}

func (s *PBStore) CreateTransaction(ctx context.Context, tr *models.Transaction) error {
	collection, err := s.app.FindCollectionByNameOrId("transactions")
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("ticket", tr.TicketID)
	record.Set("event", tr.EventID)
	record.Set("user", tr.UserID)
	record.Set("amount", tr.Amount.InexactFloat64())
	record.Set("payment_reference", tr.PaymentReference)
	record.Set("status", string(tr.Status))

	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	tr.ID = record.Id
	tr.Created = record.GetDateTime("created").Time()
	return nil
}

func eventFromRecord(record *core.Record) *models.Event {
	return &models.Event{
		ID:               record.Id,
		Name:             record.GetString("name"),
		Description:      record.GetString("description"),
		Venue:            record.GetString("venue"),
		StartsAt:         record.GetDateTime("starts_at").Time(),
		EndsAt:           record.GetDateTime("ends_at").Time(),
		TotalTickets:     record.GetInt("total_tickets"),
		TicketsRemaining: record.GetInt("tickets_remaining"),
		TicketPrice:      decimal.NewFromFloat(record.GetFloat("ticket_price")),
		Status:           models.EventStatus(record.GetString("status")),
		OrganizerID:      record.GetString("organizer"),
	}
}

func ticketFromRecord(record *core.Record) *models.Ticket {
	t := &models.Ticket{
		ID:      record.Id,
		Number:  record.GetString("ticket_number"),
		EventID: record.GetString("event"),
		UserID:  record.GetString("user"),
		Price:   decimal.NewFromFloat(record.GetFloat("price")),
		Status:  models.TicketStatus(record.GetString("status")),
		Checked: record.GetBool("checked"),
		Created: record.GetDateTime("created").Time(),
	}
	if expiry := record.GetDateTime("reservation_expiry"); !expiry.IsZero() {
		et := expiry.Time()
		t.ReservationExpiry = &et
	}
	return t
}
