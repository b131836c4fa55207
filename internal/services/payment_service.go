package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	pubnub "github.com/pubnub/go"

	"eventease/internal/status"
	"eventease/internal/store"
	"eventease/models"
	"eventease/monitoring"
)

// PaymentService consumes payment confirmations from the external gateway.
// The gateway delivers at least once (webhook retries, duplicate channel
// messages), so confirmation is idempotent: a ticket that already left
// reserved is skipped, never errored.
type PaymentService struct {
	store    store.Store
	monitor  *monitoring.Monitor
	notifier *Notifier

	PubNub         *pubnub.PubNub
	gatewayChannel string

	now func() time.Time
}

func NewPaymentService(st store.Store, monitor *monitoring.Monitor, notifier *Notifier, pn *pubnub.PubNub, gatewayChannel string) *PaymentService {
	return &PaymentService{
		store:          st,
		monitor:        monitor,
		notifier:       notifier,
		PubNub:         pn,
		gatewayChannel: gatewayChannel,
		now:            time.Now,
	}
}

// GatewayNotification is the confirmation payload the gateway sends, over
// the webhook and the notification channel alike.
type GatewayNotification struct {
	PaymentReference string   `json:"payment_reference"`
	TicketIDs        []string `json:"ticket_ids"`
	Status           string   `json:"status"`
}

// ConfirmPayment transitions the named reserved tickets to paid and writes a
// receipt per ticket. Returns how many tickets this call actually confirmed.
func (s *PaymentService) ConfirmPayment(ctx context.Context, reference string, ticketIDs []string) (int, error) {
	confirmed := 0
	for _, ticketID := range ticketIDs {
		t, applied, err := s.confirmOne(ctx, reference, ticketID)
		if err != nil {
			slog.Error("payment confirmation failed for ticket", "ticket_id", ticketID, "reference", reference, "error", err)
			continue
		}
		if !applied {
			continue
		}

		confirmed++
		if s.monitor != nil {
			s.monitor.TrackConfirmation(t.EventID, 1)
		}
		s.notifier.NotifyUser(t.UserID, map[string]any{
			"type":          "payment_confirmed",
			"ticket_id":     t.ID,
			"ticket_number": t.Number,
			"event_id":      t.EventID,
			"amount":        t.Price.StringFixed(2),
			"reference":     reference,
		})
	}
	return confirmed, nil
}

func (s *PaymentService) confirmOne(ctx context.Context, reference, ticketID string) (*models.Ticket, bool, error) {
	var ticket *models.Ticket
	applied := false

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		t, err := tx.TicketByID(ctx, ticketID)
		if err != nil {
			if err == status.ErrTicketNotFound {
				return nil // unknown id in a retried callback: skip
			}
			return err
		}
		ticket = t

		if t.Status != models.TicketReserved {
			return nil // already paid, cancelled, or used: no-op
		}
		if t.HoldExpired(s.now()) {
			// stale hold; the sweeper reclaims it, a late confirmation
			// must not resurrect it
			return nil
		}

		ok, err := tx.TransitionTicket(ctx, ticketID, models.TicketReserved, models.TicketPaid)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		receipt := &models.Transaction{
			TicketID:         t.ID,
			EventID:          t.EventID,
			UserID:           t.UserID,
			Amount:           t.Price,
			PaymentReference: reference,
			Status:           models.TransactionCompleted,
		}
		if err := tx.CreateTransaction(ctx, receipt); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return ticket, applied, nil
}

// SubscribeToGatewayNotifications listens on the gateway's PubNub channel
// and feeds successful confirmations into ConfirmPayment. Runs until ctx is
// cancelled.
func (s *PaymentService) SubscribeToGatewayNotifications(ctx context.Context) {
	if s.PubNub == nil {
		return
	}

	listener := pubnub.NewListener()
	s.PubNub.AddListener(listener)
	s.PubNub.Subscribe().
		Channels([]string{s.gatewayChannel}).
		Execute()

	for {
		select {
		case message := <-listener.Message:
			go s.handleGatewayNotification(ctx, message)
		case <-ctx.Done():
			s.PubNub.Unsubscribe().
				Channels([]string{s.gatewayChannel}).
				Execute()
			return
		}
	}
}

func (s *PaymentService) handleGatewayNotification(ctx context.Context, message *pubnub.PNMessage) {
	data, ok := message.Message.(map[string]any)
	if !ok {
		return
	}

	jsonData, _ := json.Marshal(data)
	var notification GatewayNotification
	if err := json.Unmarshal(jsonData, &notification); err != nil {
		slog.Error("bad gateway notification", "error", err)
		return
	}

	if notification.Status != "success" {
		slog.Info("ignoring gateway notification", "reference", notification.PaymentReference, "status", notification.Status)
		return
	}

	confirmed, err := s.ConfirmPayment(ctx, notification.PaymentReference, notification.TicketIDs)
	if err != nil {
		slog.Error("gateway confirmation failed", "reference", notification.PaymentReference, "error", err)
		return
	}
	slog.Info("gateway confirmation processed",
		"reference", notification.PaymentReference,
		"tickets", len(notification.TicketIDs),
		"confirmed", confirmed,
	)
}
