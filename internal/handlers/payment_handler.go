package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/crypto/bcrypt"

	"eventease/config"
	"eventease/internal/services"
)

type PaymentHandler struct {
	app            *pocketbase.PocketBase
	paymentService *services.PaymentService
	cfg            *config.Config
}

func NewPaymentHandler(app *pocketbase.PocketBase, paymentService *services.PaymentService, cfg *config.Config) *PaymentHandler {
	return &PaymentHandler{
		app:            app,
		paymentService: paymentService,
		cfg:            cfg,
	}
}

// ConfirmWebhook - the gateway's server-to-server confirmation callback.
// Delivered at least once; re-confirming an already-paid ticket is a no-op.
func (h *PaymentHandler) ConfirmWebhook(e *core.RequestEvent) error {
	if !h.verifyGatewayToken(e.Request.Header.Get("X-Gateway-Token")) {
		return apis.NewUnauthorizedError("Invalid gateway token", nil)
	}

	var req services.GatewayNotification
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.PaymentReference == "" || len(req.TicketIDs) == 0 {
		return apis.NewBadRequestError("payment_reference and ticket_ids are required", nil)
	}

	if req.Status != "success" {
		slog.Info("gateway webhook ignored", "reference", req.PaymentReference, "status", req.Status)
		return e.JSON(http.StatusOK, map[string]any{"confirmed_count": 0})
	}

	confirmed, err := h.paymentService.ConfirmPayment(e.Request.Context(), req.PaymentReference, req.TicketIDs)
	if err != nil {
		return apis.NewInternalServerError("internal error", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"confirmed_count": confirmed})
}

func (h *PaymentHandler) verifyGatewayToken(token string) bool {
	if h.cfg.GatewayTokenHash == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h.cfg.GatewayTokenHash), []byte(token)) == nil
}

// SimulatePayment - publish a fake gateway notification (development only)
func (h *PaymentHandler) SimulatePayment(e *core.RequestEvent) error {
	var req services.GatewayNotification
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if h.paymentService.PubNub != nil {
		h.paymentService.PubNub.Publish().
			Channel(h.cfg.GatewayChannel).
			Message(map[string]any{
				"payment_reference": req.PaymentReference,
				"ticket_ids":        req.TicketIDs,
				"status":            req.Status,
			}).
			Execute()
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Payment simulation sent"})
}
