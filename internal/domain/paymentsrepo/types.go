package paymentsrepo

import (
	"context"
	"encoding/json"
	"time"

	"hostedpay/internal/payments"
)

type Store interface {
	payments.Store
	Create(ctx context.Context, s *payments.Session) (*payments.Session, error)
	List(ctx context.Context, status payments.Status, since *time.Time, limit, offset int) ([]*payments.Session, int, error)
}

type PaymentLog struct {
	ID        int64           `json:"id"`
	PaymentID int64           `json:"payment_id"`
	LogType   string          `json:"log_type"` // request, response, callback, lookup, error
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type LogsStore interface {
	payments.AuditLog
	ListByPayment(ctx context.Context, paymentID int64) ([]*PaymentLog, error)
}

var (
	_ Store     = (*Repository)(nil)
	_ LogsStore = (*LogsRepository)(nil)
)
