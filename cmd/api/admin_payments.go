package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hostedpay/internal/params"
	"hostedpay/internal/payments"
)

// GET /v1/admin/payments?status=&since=&page=&limit=
func (app *application) adminListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()

	status := payments.Status(strings.TrimSpace(q.Get("status"))) // "" => no filter
	if status != "" && !status.Valid() {
		app.badRequestResponse(w, r, fmt.Errorf("invalid status %q", status))
		return
	}

	since, err := params.ParseSince(q)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	pg := params.ParsePagination(q)

	sessions, total, err := app.store.List(ctx, status, since, pg.Limit, pg.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	pg.ComputeMeta(total)

	if sessions == nil {
		sessions = []*payments.Session{}
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"payments":   sessions,
		"pagination": pg,
		"status":     status,
		"since":      since, // null if not provided
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// GET /v1/admin/payments/{paymentID}/logs
func (app *application) adminPaymentLogsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	paymentID, err := paymentIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if _, err := app.store.Get(ctx, paymentID); err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	logs, err := app.paylogs.ListByPayment(ctx, paymentID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"payment_id": paymentID,
		"logs":       logs,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}
