package payments

import (
	"context"

	"hostedpay/internal/paystation"

	"go.uber.org/zap"
)

// Gateway is the hosted payment provider. paystation.Client implements it.
type Gateway interface {
	Initiate(ctx context.Context, req paystation.InitiationRequest) (paystation.InitiationResult, error)
	Lookup(ctx context.Context, req paystation.LookupRequest) (paystation.LookupResult, error)
}

// Store persists payment sessions. Get returns ErrSessionNotFound when no
// session has the id.
type Store interface {
	Get(ctx context.Context, id int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// Redirector sends the customer's browser somewhere else.
type Redirector interface {
	Redirect(url string)
}

// AuditLog records raw gateway traffic for support. Failures are ignored.
type AuditLog interface {
	InsertPaymentLog(ctx context.Context, paymentID int64, logType string, payload any) error
}

// Alerter is told when Paystation reported an approval that quick lookup did
// not confirm. It must not block.
type Alerter interface {
	VerificationFailed(ctx context.Context, s Session)
}

const (
	LogTypeRequest  = "request"
	LogTypeResponse = "response"
	LogTypeCallback = "callback"
	LogTypeLookup   = "lookup"
	LogTypeError    = "error"
)

// audit never fails the payment; a lost log entry is only reported.
func audit(ctx context.Context, log AuditLog, logger *zap.SugaredLogger, paymentID int64, logType string, payload any) {
	if log == nil {
		return
	}
	if err := log.InsertPaymentLog(ctx, paymentID, logType, payload); err != nil {
		logger.Warnw("payment log not written", "payment_id", paymentID, "log_type", logType, "error", err)
	}
}
