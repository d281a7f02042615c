package main

import (
	"context"
	"fmt"

	"hostedpay/internal/mailer"
	"hostedpay/internal/payments"

	"go.uber.org/zap"
)

type paymentAlert struct {
	Username        string
	PaymentID       int64
	Status          payments.Status
	MerchantSession string
	AmountCents     int64
	TransactionID   string
	Message         string
	LogsURL         string
}

// mailAlerter emails the operator when an approval could not be confirmed.
// Sending happens in the background so the customer's redirect is not held
// up by SMTP.
type mailAlerter struct {
	mailer mailer.Client
	to     string
	apiURL string
	logger *zap.SugaredLogger
}

func (a *mailAlerter) VerificationFailed(_ context.Context, s payments.Session) {
	data := paymentAlert{
		Username:        "operator",
		PaymentID:       s.ID,
		Status:          s.Status,
		MerchantSession: s.MerchantSession,
		AmountCents:     s.AmountCents,
		TransactionID:   s.TransactionID,
		Message:         s.Message,
		LogsURL:         fmt.Sprintf("%s/v1/admin/payments/%d/logs", a.apiURL, s.ID),
	}

	go func() {
		attempts, err := a.mailer.Send(mailer.PaymentAlertTemplate, data.Username, a.to, data)
		if err != nil {
			a.logger.Errorw("error sending payment alert email", "payment_id", s.ID, "error", err)
			return
		}
		a.logger.Infow("payment alert email sent", "payment_id", s.ID, "attempts", attempts)
	}()
}
