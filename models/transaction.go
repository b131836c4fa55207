package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionRefunded  TransactionStatus = "refunded"
)

// Transaction is the per-ticket payment receipt, kept for audit and refunds.
type Transaction struct {
	ID               string            `json:"id"`
	TicketID         string            `json:"ticket_id"`
	EventID          string            `json:"event_id"`
	UserID           string            `json:"user_id"`
	Amount           decimal.Decimal   `json:"amount"`
	PaymentReference string            `json:"payment_reference"`
	Status           TransactionStatus `json:"status"`
	Created          time.Time         `json:"created"`
}
