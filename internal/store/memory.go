package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"eventease/models"
	"eventease/internal/status"
)

// MemoryStore is a mutex-serialized Store used by tests and local runs
// without a database. Transactions clone the state and swap it in on
// success, so a failed unit leaves no partial effect, matching the
// PocketBase implementation's rollback semantics.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	seq          int
	events       map[string]*models.Event
	tickets      map[string]*models.Ticket
	transactions map[string]*models.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		events:       map[string]*models.Event{},
		tickets:      map[string]*models.Ticket{},
		transactions: map[string]*models.Transaction{},
	}}
}

// AddEvent seeds an event and returns its id.
func (s *MemoryStore) AddEvent(ev *models.Event) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = s.state.nextID("evt")
	}
	s.state.events[ev.ID] = cloneEvent(ev)
	return ev.ID
}

func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&txMemoryStore{state: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) EventByID(ctx context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.eventByID(id)
}

func (s *MemoryStore) SetEventStatus(ctx context.Context, id string, st models.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.setEventStatus(id, st)
}

func (s *MemoryStore) ReserveInventory(ctx context.Context, eventID string, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.reserveInventory(eventID, qty)
}

func (s *MemoryStore) ReleaseInventory(ctx context.Context, eventID string, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.releaseInventory(eventID, qty)
}

func (s *MemoryStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createTicket(t)
}

func (s *MemoryStore) TicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ticketByID(id)
}

func (s *MemoryStore) TicketsByUser(ctx context.Context, userID string, limit int) ([]*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ticketsByUser(userID, limit)
}

func (s *MemoryStore) TicketNumberExists(ctx context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ticketNumberExists(number)
}

func (s *MemoryStore) TransitionTicket(ctx context.Context, id string, from, to models.TicketStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.transitionTicket(id, from, to)
}

func (s *MemoryStore) ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.expiredReservations(now, limit)
}

func (s *MemoryStore) CountLiveTickets(ctx context.Context, eventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.countLiveTickets(eventID)
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, tr *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createTransaction(tr)
}

// txMemoryStore operates on the working copy while the root mutex is held.
type txMemoryStore struct {
	state *memState
}

func (s *txMemoryStore) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	// already inside the outer transaction
	return fn(s)
}

func (s *txMemoryStore) EventByID(ctx context.Context, id string) (*models.Event, error) {
	return s.state.eventByID(id)
}

func (s *txMemoryStore) SetEventStatus(ctx context.Context, id string, st models.EventStatus) error {
	return s.state.setEventStatus(id, st)
}

func (s *txMemoryStore) ReserveInventory(ctx context.Context, eventID string, qty int) (bool, error) {
	return s.state.reserveInventory(eventID, qty)
}

func (s *txMemoryStore) ReleaseInventory(ctx context.Context, eventID string, qty int) (bool, error) {
	return s.state.releaseInventory(eventID, qty)
}

func (s *txMemoryStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	return s.state.createTicket(t)
}

func (s *txMemoryStore) TicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	return s.state.ticketByID(id)
}

func (s *txMemoryStore) TicketsByUser(ctx context.Context, userID string, limit int) ([]*models.Ticket, error) {
	return s.state.ticketsByUser(userID, limit)
}

func (s *txMemoryStore) TicketNumberExists(ctx context.Context, number string) (bool, error) {
	return s.state.ticketNumberExists(number)
}

func (s *txMemoryStore) TransitionTicket(ctx context.Context, id string, from, to models.TicketStatus) (bool, error) {
	return s.state.transitionTicket(id, from, to)
}

func (s *txMemoryStore) ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]*models.Ticket, error) {
	return s.state.expiredReservations(now, limit)
}

func (s *txMemoryStore) CountLiveTickets(ctx context.Context, eventID string) (int, error) {
	return s.state.countLiveTickets(eventID)
}

func (s *txMemoryStore) CreateTransaction(ctx context.Context, tr *models.Transaction) error {
	return s.state.createTransaction(tr)
}

func (st *memState) nextID(prefix string) string {
	st.seq++
	return fmt.Sprintf("%s%06d", prefix, st.seq)
}

func (st *memState) eventByID(id string) (*models.Event, error) {
	ev, ok := st.events[id]
	if !ok {
		return nil, status.ErrEventNotFound
	}
	return cloneEvent(ev), nil
}

func (st *memState) setEventStatus(id string, s models.EventStatus) error {
	ev, ok := st.events[id]
	if !ok {
		return status.ErrEventNotFound
	}
	ev.Status = s
	return nil
}

func (st *memState) reserveInventory(eventID string, qty int) (bool, error) {
	ev, ok := st.events[eventID]
	if !ok {
		return false, status.ErrEventNotFound
	}
	if ev.Status != models.EventActive || ev.TicketsRemaining < qty {
		return false, nil
	}
	ev.TicketsRemaining -= qty
	return true, nil
}

func (st *memState) releaseInventory(eventID string, qty int) (bool, error) {
	ev, ok := st.events[eventID]
	if !ok {
		return false, status.ErrEventNotFound
	}
	if ev.Status != models.EventActive || ev.TicketsRemaining+qty > ev.TotalTickets {
		return false, nil
	}
	ev.TicketsRemaining += qty
	return true, nil
}

func (st *memState) createTicket(t *models.Ticket) error {
	for _, existing := range st.tickets {
		if existing.Number == t.Number {
			return status.ErrDuplicateTicketNumber
		}
	}
	t.ID = st.nextID("tkt")
	t.Created = time.Now()
	st.tickets[t.ID] = cloneTicket(t)
	return nil
}

func (st *memState) ticketByID(id string) (*models.Ticket, error) {
	t, ok := st.tickets[id]
	if !ok {
		return nil, status.ErrTicketNotFound
	}
	return cloneTicket(t), nil
}

func (st *memState) ticketsByUser(userID string, limit int) ([]*models.Ticket, error) {
	var out []*models.Ticket
	for _, t := range st.tickets {
		if t.UserID == userID {
			out = append(out, cloneTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (st *memState) ticketNumberExists(number string) (bool, error) {
	for _, t := range st.tickets {
		if t.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (st *memState) transitionTicket(id string, from, to models.TicketStatus) (bool, error) {
	t, ok := st.tickets[id]
	if !ok {
		return false, status.ErrTicketNotFound
	}
	if t.Status != from {
		return false, nil
	}
	t.Status = to
	switch to {
	case models.TicketUsed:
		t.Checked = true
	case models.TicketPaid, models.TicketCancelled:
		t.ReservationExpiry = nil
	}
	return true, nil
}

func (st *memState) expiredReservations(now time.Time, limit int) ([]*models.Ticket, error) {
	var out []*models.Ticket
	for _, t := range st.tickets {
		if t.Status == models.TicketReserved && t.ReservationExpiry != nil && t.ReservationExpiry.Before(now) {
			out = append(out, cloneTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservationExpiry.Before(*out[j].ReservationExpiry) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (st *memState) countLiveTickets(eventID string) (int, error) {
	count := 0
	for _, t := range st.tickets {
		if t.EventID != eventID {
			continue
		}
		switch t.Status {
		case models.TicketReserved, models.TicketPaid, models.TicketUsed:
			count++
		}
	}
	return count, nil
}

func (st *memState) createTransaction(tr *models.Transaction) error {
	tr.ID = st.nextID("txn")
	tr.Created = time.Now()
	st.transactions[tr.ID] = cloneTransaction(tr)
	return nil
}

// Transactions returns all receipt records, for test assertions.
func (s *MemoryStore) Transactions() []*models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Transaction, 0, len(s.state.transactions))
	for _, tr := range s.state.transactions {
		out = append(out, cloneTransaction(tr))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *memState) clone() *memState {
	next := &memState{
		seq:          st.seq,
		events:       make(map[string]*models.Event, len(st.events)),
		tickets:      make(map[string]*models.Ticket, len(st.tickets)),
		transactions: make(map[string]*models.Transaction, len(st.transactions)),
	}
	for id, ev := range st.events {
		next.events[id] = cloneEvent(ev)
	}
	for id, t := range st.tickets {
		next.tickets[id] = cloneTicket(t)
	}
	for id, tr := range st.transactions {
		next.transactions[id] = cloneTransaction(tr)
	}
	return next
}

func cloneEvent(ev *models.Event) *models.Event {
	cp := *ev
	return &cp
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	cp := *t
	if t.ReservationExpiry != nil {
		expiry := *t.ReservationExpiry
		cp.ReservationExpiry = &expiry
	}
	return &cp
}

func cloneTransaction(tr *models.Transaction) *models.Transaction {
	cp := *tr
	return &cp
}
