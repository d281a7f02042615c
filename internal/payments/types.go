package payments

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusIncomplete Status = "incomplete"
	StatusSuccess    Status = "success"
	StatusFailure    Status = "failure"
)

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusIncomplete:
		return 1
	case StatusSuccess, StatusFailure:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

func (s Status) Valid() bool { return s.rank() >= 0 }

// Session is one checkout attempt against the hosted gateway.
type Session struct {
	ID                int64     `json:"id"`
	MerchantSession   string    `json:"merchant_session"`
	AmountCents       int64     `json:"amount_cents"`
	Status            Status    `json:"status"`
	TransactionID     string    `json:"transaction_id"`
	Message           string    `json:"message"`
	TestMode          bool      `json:"test_mode"`
	MerchantReference string    `json:"merchant_reference,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Transition moves the session forward. Terminal states never change.
func (s *Session) Transition(next Status) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if s.Status.Terminal() || next.rank() <= s.Status.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, next)
	}
	s.Status = next
	return nil
}

// AppendMessage adds detail without dropping what is already recorded.
func (s *Session) AppendMessage(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	if s.Message == "" {
		s.Message = msg
		return
	}
	s.Message += " " + msg
}

// MerchantSession is the decomposed form of the token sent to the gateway as
// pstn_ms: "{browserSessionID}-{paymentID}".
type MerchantSession struct {
	BrowserSessionID string
	PaymentID        int64
}

const merchantSessionSep = "-"

func NewMerchantSession(browserSessionID string, paymentID int64) string {
	return browserSessionID + merchantSessionSep + strconv.FormatInt(paymentID, 10)
}

// ParseMerchantSession splits on the last separator, so browser session ids
// may contain dashes themselves.
func ParseMerchantSession(token string) (MerchantSession, error) {
	i := strings.LastIndex(token, merchantSessionSep)
	if i < 0 {
		return MerchantSession{}, fmt.Errorf("%w: %q has no separator", ErrMalformedMerchantSession, token)
	}

	id, err := strconv.ParseInt(token[i+1:], 10, 64)
	if err != nil || id <= 0 {
		return MerchantSession{}, fmt.Errorf("%w: %q has no payment id", ErrMalformedMerchantSession, token)
	}

	return MerchantSession{
		BrowserSessionID: token[:i],
		PaymentID:        id,
	}, nil
}

func (m MerchantSession) String() string {
	return NewMerchantSession(m.BrowserSessionID, m.PaymentID)
}

// CallbackParams are the query parameters the gateway appends when it sends
// the browser back. All of them are untrusted.
type CallbackParams struct {
	ErrorCode       string // ec
	MerchantSession string // ms
	TransactionID   string // ti
	ErrorMessage    string // em
}
