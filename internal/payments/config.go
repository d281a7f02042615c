package payments

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultTransactionURL = "https://www.paystation.co.nz/direct/paystation.dll"
	DefaultLookupURL      = "https://www.paystation.co.nz/lookup/quick/"

	// DefaultReturnURL is used when no return url is configured. The api
	// serves a result page under it.
	DefaultReturnURL = "/v1/payments/result"
)

// Config is shared by the Initiator and the Verifier.
type Config struct {
	InitiatorID       string `validate:"required"` // pstn_pi
	GatewayID         string `validate:"required"` // pstn_gi
	TestMode          bool
	MerchantReference string `validate:"max=64"`
	ReturnURL         string
	TransactionURL    string `validate:"omitempty,url"`
	LookupURL         string `validate:"omitempty,url"`
	QuickLookup       bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports a configuration error when the gateway credentials are
// absent. The host application must not start taking payments in that case.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

func (c Config) requireCredentials() error {
	if strings.TrimSpace(c.InitiatorID) == "" {
		return fmt.Errorf("%w: no paystation id specified", ErrConfiguration)
	}
	if strings.TrimSpace(c.GatewayID) == "" {
		return fmt.Errorf("%w: no gateway id specified", ErrConfiguration)
	}
	return nil
}

// ReturnURLFor is where the browser lands once a payment is final.
func (c Config) ReturnURLFor(paymentID int64) string {
	base := strings.TrimRight(c.ReturnURL, "/")
	if base == "" {
		base = DefaultReturnURL
	}
	return fmt.Sprintf("%s/%d", base, paymentID)
}
