package payments

import (
	"errors"
	"fmt"
)

var (
	// Integration or configuration problems. These are for operators, not
	// customers.
	ErrConfiguration            = errors.New("paystation is not configured")
	ErrMissingParameter         = errors.New("missing callback parameter")
	ErrMalformedMerchantSession = errors.New("malformed merchant session")
	ErrSessionNotFound          = errors.New("payment session not found")

	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrGatewayRejected = errors.New("payment rejected by gateway")
	ErrUnknownResponse = errors.New("unknown error")
)

// GatewayFailure is returned when Paystation answers an initiation request
// with a positive error code.
type GatewayFailure struct {
	Code    int
	Message string
}

func (e *GatewayFailure) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

func (e *GatewayFailure) Is(target error) bool {
	return target == ErrGatewayRejected
}
