package services

import (
	"context"
	"log"
	"log/slog"
	"sync"
	"time"

	"eventease/internal/store"
	"eventease/models"
	"eventease/monitoring"
)

// SweeperService reclaims holds whose reservation expiry passed without
// payment. One goroutine sweeps all events on a fixed interval; there are no
// per-reservation timers. Each ticket is reclaimed independently with the
// same guarded transition the rest of the lifecycle uses, so a concurrent
// sweep or a crash-and-restart cannot release the same seat twice.
type SweeperService struct {
	store    store.Store
	monitor  *monitoring.Monitor
	notifier *Notifier

	interval time.Duration
	batch    int

	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSweeperService(st store.Store, monitor *monitoring.Monitor, notifier *Notifier, interval time.Duration, batch int) *SweeperService {
	return &SweeperService{
		store:    st,
		monitor:  monitor,
		notifier: notifier,
		interval: interval,
		batch:    batch,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start runs the sweep loop until Shutdown or ctx cancellation.
func (s *SweeperService) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Println("Reservation sweeper started")

		for {
			select {
			case <-ticker.C:
				if reclaimed, err := s.SweepExpiredReservations(ctx); err != nil {
					log.Printf("Sweep pass failed: %v", err)
				} else if reclaimed > 0 {
					log.Printf("Sweep reclaimed %d expired holds", reclaimed)
				}
			case <-s.stopChan:
				log.Println("Reservation sweeper stopping")
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *SweeperService) Shutdown() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

// SweepExpiredReservations reclaims every lapsed hold it can see and returns
// how many it released. Per-ticket failures are logged and skipped so one
// bad record cannot block the rest of the batch.
func (s *SweeperService) SweepExpiredReservations(ctx context.Context) (int, error) {
	started := time.Now()
	defer func() {
		if s.monitor != nil {
			s.monitor.TrackSweep(time.Since(started))
		}
	}()

	expired, err := s.store.ExpiredReservations(ctx, s.now(), s.batch)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, t := range expired {
		applied, remaining, err := s.reclaimOne(ctx, t)
		if err != nil {
			slog.Error("failed to reclaim expired hold", "ticket_id", t.ID, "event_id", t.EventID, "error", err)
			continue
		}
		if !applied {
			continue // lost the race to a payment or another sweep
		}

		reclaimed++
		if s.monitor != nil {
			s.monitor.TrackReclaim(t.EventID, 1)
			s.monitor.MirrorInventory(ctx, t.EventID, remaining)
		}
		s.notifier.NotifyUser(t.UserID, map[string]any{
			"type":          "reservation_expired",
			"ticket_id":     t.ID,
			"ticket_number": t.Number,
			"event_id":      t.EventID,
		})
	}
	return reclaimed, nil
}

func (s *SweeperService) reclaimOne(ctx context.Context, t *models.Ticket) (bool, int, error) {
	applied := false
	remaining := 0

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		ok, err := tx.TransitionTicket(ctx, t.ID, models.TicketReserved, models.TicketCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		// replenish only while the event still sells
		if _, err := tx.ReleaseInventory(ctx, t.EventID, 1); err != nil {
			return err
		}

		current, err := tx.EventByID(ctx, t.EventID)
		if err != nil {
			return err
		}
		remaining = current.TicketsRemaining
		applied = true
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return applied, remaining, nil
}
