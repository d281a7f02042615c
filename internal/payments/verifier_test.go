package payments

import (
	"context"
	"errors"
	"testing"

	"hostedpay/internal/paystation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func incompleteSession() Session {
	return Session{
		ID:              42,
		MerchantSession: NewMerchantSession(browserSID, 42),
		AmountCents:     2500,
		Status:          StatusIncomplete,
	}
}

func matchingLookup() paystation.LookupResponse {
	return paystation.LookupResponse{
		PaystationTransactionID: "0041234567-01",
		PurchaseAmount:          "2500",
		MerchantSession:         NewMerchantSession(browserSID, 42),
		PaystationErrorCode:     "0",
	}
}

func approvedCallback() CallbackParams {
	return CallbackParams{
		ErrorCode:       "0",
		MerchantSession: NewMerchantSession(browserSID, 42),
		TransactionID:   "0041234567-01",
		ErrorMessage:    "Transaction successful",
	}
}

func newTestVerifier(cfg Config, gw *fakeGateway, store *memStore, log AuditLog) *Verifier {
	return NewVerifier(cfg, gw, store, log, zap.NewNop().Sugar())
}

func TestHandleCallbackVerifiedSuccess(t *testing.T) {
	store := newMemStore(incompleteSession())
	gw := &fakeGateway{lookup: matchingLookup()}
	log := &auditRecorder{}
	rd := &redirectRecorder{}
	v := newTestVerifier(testConfig(), gw, store, log)

	err := v.HandleCallback(context.Background(), approvedCallback(), browserSID, rd)
	require.NoError(t, err)

	got := store.stored(42)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Equal(t, "0041234567-01", got.TransactionID)
	assert.Equal(t, "Transaction successful", got.Message)
	assert.Equal(t, []string{"https://shop.example.com/checkout/done/42"}, rd.urls)
	assert.Equal(t, []string{LogTypeCallback, LogTypeLookup}, log.types)

	require.Len(t, gw.gotLookup, 1)
	assert.Equal(t, "615400", gw.gotLookup[0].PaystationID)
	assert.Equal(t, approvedCallback().MerchantSession, gw.gotLookup[0].MerchantSession)
}

func TestHandleCallbackCrossChecks(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(l *paystation.LookupResponse, p *CallbackParams, browser *string)
		messages []string
	}{
		{
			name:     "amount mismatch",
			mutate:   func(l *paystation.LookupResponse, _ *CallbackParams, _ *string) { l.PurchaseAmount = "1" },
			messages: []string{msgAmountMismatch},
		},
		{
			name:     "amount not a number",
			mutate:   func(l *paystation.LookupResponse, _ *CallbackParams, _ *string) { l.PurchaseAmount = "25.00" },
			messages: []string{msgAmountMismatch},
		},
		{
			name:     "transaction id mismatch",
			mutate:   func(l *paystation.LookupResponse, _ *CallbackParams, _ *string) { l.PaystationTransactionID = "other" },
			messages: []string{msgTransactionMismatch},
		},
		{
			name:     "no transaction id in callback",
			mutate:   func(_ *paystation.LookupResponse, p *CallbackParams, _ *string) { p.TransactionID = "" },
			messages: []string{msgTransactionMismatch},
		},
		{
			name:     "different browser session",
			mutate:   func(_ *paystation.LookupResponse, _ *CallbackParams, b *string) { *b = "attacker-session" },
			messages: []string{msgSessionMismatch},
		},
		{
			name:     "approval code edited by the customer",
			mutate:   func(l *paystation.LookupResponse, _ *CallbackParams, _ *string) { l.PaystationErrorCode = "5" },
			messages: []string{msgNotApproved},
		},
		{
			name:     "lookup without error code",
			mutate:   func(l *paystation.LookupResponse, _ *CallbackParams, _ *string) { l.PaystationErrorCode = "" },
			messages: []string{msgNotApproved},
		},
		{
			name: "every check fails",
			mutate: func(l *paystation.LookupResponse, _ *CallbackParams, b *string) {
				l.PaystationTransactionID = "other"
				l.PurchaseAmount = "1"
				*b = ""
			},
			messages: []string{msgTransactionMismatch, msgAmountMismatch, msgSessionMismatch},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := matchingLookup()
			params := approvedCallback()
			browser := browserSID
			tt.mutate(&lookup, &params, &browser)

			store := newMemStore(incompleteSession())
			v := newTestVerifier(testConfig(), &fakeGateway{lookup: lookup}, store, nil)

			err := v.HandleCallback(context.Background(), params, browser, &redirectRecorder{})
			require.NoError(t, err)

			got := store.stored(42)
			assert.Equal(t, StatusFailure, got.Status)
			for _, m := range tt.messages {
				assert.Contains(t, got.Message, m)
			}
		})
	}
}

func TestHandleCallbackMessagesAccumulate(t *testing.T) {
	lookup := matchingLookup()
	lookup.PurchaseAmount = "9999"
	store := newMemStore(incompleteSession())
	v := newTestVerifier(testConfig(), &fakeGateway{lookup: lookup}, store, nil)

	require.NoError(t, v.HandleCallback(context.Background(), approvedCallback(), browserSID, &redirectRecorder{}))

	assert.Equal(t, "Transaction successful "+msgAmountMismatch, store.stored(42).Message)
}

func TestHandleCallbackUnverifiableLookup(t *testing.T) {
	tests := []struct {
		name    string
		gw      *fakeGateway
		message string
	}{
		{"lookup status", &fakeGateway{lookup: paystation.LookupStatus{Message: "No transaction found"}}, "No transaction found"},
		{"empty lookup status", &fakeGateway{lookup: paystation.LookupStatus{}}, msgLookupFailed},
		{"unparseable", &fakeGateway{lookup: paystation.LookupUnparseable{Body: ""}}, msgLookupFailed},
		{"transport error", &fakeGateway{lookupErr: errors.New("timeout")}, msgLookupFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(incompleteSession())
			p := approvedCallback()
			p.ErrorMessage = ""
			v := newTestVerifier(testConfig(), tt.gw, store, nil)

			require.NoError(t, v.HandleCallback(context.Background(), p, browserSID, &redirectRecorder{}))

			got := store.stored(42)
			assert.Equal(t, StatusFailure, got.Status)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestHandleCallbackDeclined(t *testing.T) {
	store := newMemStore(incompleteSession())
	p := approvedCallback()
	p.ErrorCode = "5"
	p.ErrorMessage = "Insufficient Funds"
	v := newTestVerifier(testConfig(), &fakeGateway{lookup: matchingLookup()}, store, nil)

	require.NoError(t, v.HandleCallback(context.Background(), p, browserSID, &redirectRecorder{}))

	got := store.stored(42)
	assert.Equal(t, StatusFailure, got.Status)
	assert.Equal(t, "Insufficient Funds", got.Message)
}

func TestHandleCallbackWithoutQuickLookup(t *testing.T) {
	cfg := testConfig()
	cfg.QuickLookup = false
	gw := &fakeGateway{}
	store := newMemStore(incompleteSession())
	v := newTestVerifier(cfg, gw, store, nil)

	require.NoError(t, v.HandleCallback(context.Background(), approvedCallback(), "someone-else", &redirectRecorder{}))

	assert.Equal(t, StatusSuccess, store.stored(42).Status)
	assert.Empty(t, gw.gotLookup)
}

func TestHandleCallbackIntegrationErrors(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(incompleteSession())
	v := newTestVerifier(testConfig(), &fakeGateway{lookup: matchingLookup()}, store, nil)
	rd := &redirectRecorder{}

	err := v.HandleCallback(ctx, CallbackParams{MerchantSession: "abc-42"}, browserSID, rd)
	assert.ErrorIs(t, err, ErrMissingParameter)

	err = v.HandleCallback(ctx, CallbackParams{ErrorCode: "0"}, browserSID, rd)
	assert.ErrorIs(t, err, ErrMissingParameter)

	err = v.HandleCallback(ctx, CallbackParams{ErrorCode: "0", MerchantSession: "garbage"}, browserSID, rd)
	assert.ErrorIs(t, err, ErrMalformedMerchantSession)

	err = v.HandleCallback(ctx, CallbackParams{ErrorCode: "0", MerchantSession: "abc-777"}, browserSID, rd)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Empty(t, rd.urls)
	assert.Equal(t, StatusIncomplete, store.stored(42).Status)
}

func TestHandleCallbackIsIdempotent(t *testing.T) {
	store := newMemStore(incompleteSession())
	gw := &fakeGateway{lookup: matchingLookup()}
	v := newTestVerifier(testConfig(), gw, store, nil)
	ctx := context.Background()

	require.NoError(t, v.HandleCallback(ctx, approvedCallback(), browserSID, &redirectRecorder{}))
	first := store.stored(42)
	require.Equal(t, StatusSuccess, first.Status)

	// replay with a failing code: the final state must not move
	replay := approvedCallback()
	replay.ErrorCode = "5"
	replay.TransactionID = "forged"
	rd := &redirectRecorder{}
	require.NoError(t, v.HandleCallback(ctx, replay, browserSID, rd))

	assert.Equal(t, first, store.stored(42))
	assert.Equal(t, 1, store.saves)
	assert.Len(t, gw.gotLookup, 1)
	assert.Equal(t, []string{"https://shop.example.com/checkout/done/42"}, rd.urls)
}

func TestHandleCallbackDefaultReturnURL(t *testing.T) {
	cfg := testConfig()
	cfg.ReturnURL = ""
	store := newMemStore(incompleteSession())
	rd := &redirectRecorder{}
	v := newTestVerifier(cfg, &fakeGateway{lookup: matchingLookup()}, store, nil)

	require.NoError(t, v.HandleCallback(context.Background(), approvedCallback(), browserSID, rd))
	assert.Equal(t, []string{"/v1/payments/result/42"}, rd.urls)
}

func TestHandleCallbackAlertsOnUnconfirmedApproval(t *testing.T) {
	lookup := matchingLookup()
	lookup.PurchaseAmount = "1"

	store := newMemStore(incompleteSession())
	alerts := &alertRecorder{}
	v := newTestVerifier(testConfig(), &fakeGateway{lookup: lookup}, store, nil).WithAlerter(alerts)

	require.NoError(t, v.HandleCallback(context.Background(), approvedCallback(), browserSID, &redirectRecorder{}))

	require.Len(t, alerts.sessions, 1)
	assert.Equal(t, int64(42), alerts.sessions[0].ID)
	assert.Equal(t, StatusFailure, alerts.sessions[0].Status)
}

func TestHandleCallbackNoAlertForDecline(t *testing.T) {
	store := newMemStore(incompleteSession())
	alerts := &alertRecorder{}
	v := newTestVerifier(testConfig(), &fakeGateway{lookup: paystation.LookupStatus{Message: "No transaction found"}}, store, nil).WithAlerter(alerts)

	p := approvedCallback()
	p.ErrorCode = "5"
	require.NoError(t, v.HandleCallback(context.Background(), p, browserSID, &redirectRecorder{}))

	assert.Empty(t, alerts.sessions)
	assert.Equal(t, StatusFailure, store.stored(42).Status)
}

func TestHandleCallbackConcurrentCallbacksConverge(t *testing.T) {
	approved := incompleteSession()
	approved.Status = StatusSuccess
	approved.TransactionID = "0041234567-01"

	// The second callback loaded the row before the first one finalised it.
	store := newMemStore(approved)
	store.stale = map[int64]Session{42: incompleteSession()}

	p := approvedCallback()
	p.ErrorCode = "5"
	p.ErrorMessage = "Insufficient Funds"
	rd := &redirectRecorder{}
	v := newTestVerifier(testConfig(), &fakeGateway{lookup: matchingLookup()}, store, nil)

	require.NoError(t, v.HandleCallback(context.Background(), p, browserSID, rd))

	assert.Equal(t, approved, store.stored(42))
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, []string{"https://shop.example.com/checkout/done/42"}, rd.urls)
}

func TestHandleCallbackAuditFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := newMemStore(incompleteSession())
	audit := &auditRecorder{err: errors.New("payment_logs: connection reset")}
	v := NewVerifier(testConfig(), &fakeGateway{lookup: matchingLookup()}, store, audit, zap.New(core).Sugar())

	require.NoError(t, v.HandleCallback(context.Background(), approvedCallback(), browserSID, &redirectRecorder{}))

	assert.Equal(t, StatusSuccess, store.stored(42).Status)
	entries := logs.FilterMessage("payment log not written").All()
	require.Len(t, entries, 2)
	assert.Equal(t, LogTypeCallback, entries[0].ContextMap()["log_type"])
	assert.Equal(t, LogTypeLookup, entries[1].ContextMap()["log_type"])
}
