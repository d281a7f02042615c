package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"hostedpay/internal/payments"
)

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadRequest, err.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("not found error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusNotFound, "not found")
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("conflict response", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusConflict, err.Error())
}

// paymentFailedResponse reports a payment the gateway refused. The message
// is the gateway's own and is safe to show the customer.
func (app *application) paymentFailedResponse(w http.ResponseWriter, r *http.Request, message string) {
	app.logger.Infow("payment failed", "method", r.Method, "path", r.URL.Path, "message", message)

	writeJSONError(w, http.StatusPaymentRequired, message)
}

func (app *application) badGatewayResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("gateway error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadGateway, "payment gateway unavailable")
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)

	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))

	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after: "+retryAfter.String())
}

// paymentErrorResponse maps errors from the payments package.
func (app *application) paymentErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var gf *payments.GatewayFailure

	switch {
	case errors.As(err, &gf):
		app.paymentFailedResponse(w, r, gf.Message)
	case errors.Is(err, payments.ErrUnknownResponse):
		app.paymentFailedResponse(w, r, "Unknown error")
	case errors.Is(err, payments.ErrSessionNotFound):
		app.notFoundResponse(w, r, err)
	case errors.Is(err, payments.ErrMissingParameter),
		errors.Is(err, payments.ErrMalformedMerchantSession),
		errors.Is(err, payments.ErrInvalidAmount):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, payments.ErrInvalidTransition):
		app.conflictResponse(w, r, err)
	case errors.Is(err, payments.ErrConfiguration):
		app.internalServerError(w, r, err)
	default:
		app.badGatewayResponse(w, r, err)
	}
}
