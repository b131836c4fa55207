package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"eventease/internal/status"
)

// apiError maps lifecycle errors onto API responses. Precondition failures
// carry their message through so the caller can act on it (e.g. the
// remaining count on an insufficient-inventory rejection).
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrEventNotFound), errors.Is(err, status.ErrTicketNotFound):
		return apis.NewNotFoundError(err.Error(), err)
	case errors.Is(err, status.ErrUnauthorized):
		return apis.NewForbiddenError(err.Error(), err)
	case errors.Is(err, status.ErrEventInactive),
		errors.Is(err, status.ErrEventEnded),
		errors.Is(err, status.ErrInvalidQuantity):
		return apis.NewBadRequestError(err.Error(), err)
	case status.IsInsufficientInventory(err), status.IsInvalidTransition(err):
		return apis.NewApiError(http.StatusConflict, err.Error(), err)
	default:
		return apis.NewInternalServerError("internal error", err)
	}
}
