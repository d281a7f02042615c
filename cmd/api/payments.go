package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"hostedpay/internal/payments"

	"github.com/go-chi/chi/v5"
)

type CreatePaymentPayload struct {
	AmountCents       int64  `json:"amount_cents" validate:"required,gt=0"`
	MerchantReference string `json:"merchant_reference" validate:"max=64"`
	TestMode          bool   `json:"test_mode"`
}

// POST /v1/payments
func (app *application) createPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreatePaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	s, err := app.store.Create(r.Context(), &payments.Session{
		AmountCents:       payload.AmountCents,
		Status:            payments.StatusPending,
		TestMode:          payload.TestMode,
		MerchantReference: payload.MerchantReference,
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, s); err != nil {
		app.internalServerError(w, r, err)
	}
}

// POST /v1/payments/{paymentID}/checkout
//
// Sends the customer to Paystation with a 303. Clients that drive the
// redirect themselves can ask for ?format=json.
func (app *application) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paymentID, err := paymentIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	s, err := app.store.Get(ctx, paymentID)
	if err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	redirectURL, err := app.initiator.Initiate(ctx, s, getBrowserSession(r))
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		if err := app.jsonResponse(w, http.StatusOK, map[string]any{
			"payment_id":   s.ID,
			"status":       s.Status,
			"redirect_url": redirectURL,
		}); err != nil {
			app.internalServerError(w, r, err)
		}
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusSeeOther)
}

type paymentResult struct {
	ID            int64           `json:"id"`
	Status        payments.Status `json:"status"`
	AmountCents   int64           `json:"amount_cents"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// GET /v1/payments/result/{paymentID}
//
// Landing page when no return url is configured. Only the browser session
// that started the payment may see it.
func (app *application) paymentResultHandler(w http.ResponseWriter, r *http.Request) {
	paymentID, err := paymentIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	s, err := app.store.Get(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	ms, err := payments.ParseMerchantSession(s.MerchantSession)
	if err != nil || ms.BrowserSessionID != getBrowserSession(r) {
		app.notFoundResponse(w, r, fmt.Errorf("payment %d does not belong to this browser session", paymentID))
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, paymentResult{
		ID:            s.ID,
		Status:        s.Status,
		AmountCents:   s.AmountCents,
		TransactionID: s.TransactionID,
		Message:       s.Message,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

func paymentIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "paymentID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid payment id")
	}
	return id, nil
}
