package main

import (
	"net/http"

	"hostedpay/internal/payments"
)

// httpRedirector sends the customer's browser on once a callback has been
// recorded.
type httpRedirector struct {
	w http.ResponseWriter
	r *http.Request
}

func (h httpRedirector) Redirect(url string) {
	http.Redirect(h.w, h.r, url, http.StatusFound)
}

// GET|POST /v1/paystation/complete?ec=..&ms=..&ti=..&em=..
//
// Paystation returns the customer here after the hosted page. The query is
// only a hint; the verifier confirms it with a quick lookup before anything
// is recorded.
func (app *application) paystationCompleteHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	params := payments.CallbackParams{
		ErrorCode:       r.Form.Get("ec"),
		MerchantSession: r.Form.Get("ms"),
		TransactionID:   r.Form.Get("ti"),
		ErrorMessage:    r.Form.Get("em"),
	}

	rd := httpRedirector{w: w, r: r}
	if err := app.verifier.HandleCallback(r.Context(), params, getBrowserSession(r), rd); err != nil {
		app.logger.Warnw("paystation callback rejected",
			"ms", params.MerchantSession,
			"ec", params.ErrorCode,
			"error", err,
		)
		app.paymentErrorResponse(w, r, err)
	}
}
