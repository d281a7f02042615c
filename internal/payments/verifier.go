package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hostedpay/internal/paystation"

	"go.uber.org/zap"
)

const (
	msgTransactionMismatch = "The transaction ID didn't match."
	msgAmountMismatch      = "The purchase amount was inconsistent."
	msgSessionMismatch     = "Session id didn't match."
	msgLookupFailed        = "Paystation quick lookup failed."
	msgNotApproved         = "The transaction was not approved by Paystation."
)

// Verifier finalises sessions when Paystation sends the customer back.
type Verifier struct {
	cfg     Config
	gateway Gateway
	store   Store
	audit   AuditLog
	alert   Alerter
	logger  *zap.SugaredLogger
}

func NewVerifier(cfg Config, gateway Gateway, store Store, auditLog AuditLog, logger *zap.SugaredLogger) *Verifier {
	return &Verifier{
		cfg:     cfg,
		gateway: gateway,
		store:   store,
		audit:   auditLog,
		logger:  logger,
	}
}

// WithAlerter reports approvals that fail verification to a.
func (v *Verifier) WithAlerter(a Alerter) *Verifier {
	v.alert = a
	return v
}

// HandleCallback verifies a return callback, stores the final status and
// redirects the browser to the return url. The returned error is non-nil only
// for integration problems (missing parameters, unknown session, store
// failures); a declined or unverifiable payment is a Failure status, not an
// error.
//
// A callback for a session that is already final is redirected without
// touching the stored state.
func (v *Verifier) HandleCallback(ctx context.Context, p CallbackParams, browserSessionID string, rd Redirector) error {
	if strings.TrimSpace(p.ErrorCode) == "" {
		return fmt.Errorf("%w: ec", ErrMissingParameter)
	}
	if strings.TrimSpace(p.MerchantSession) == "" {
		return fmt.Errorf("%w: ms", ErrMissingParameter)
	}

	ms, err := ParseMerchantSession(p.MerchantSession)
	if err != nil {
		return err
	}

	s, err := v.store.Get(ctx, ms.PaymentID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("%w: no paystation payment with id #%d", ErrSessionNotFound, ms.PaymentID)
		}
		return fmt.Errorf("load session %d: %w", ms.PaymentID, err)
	}

	audit(ctx, v.audit, v.logger, s.ID, LogTypeCallback, p)

	if s.Status.Terminal() {
		v.logger.Infow("duplicate paystation callback",
			"payment_id", s.ID,
			"status", s.Status,
			"transaction_id", p.TransactionID,
		)
		rd.Redirect(v.cfg.ReturnURLFor(s.ID))
		return nil
	}

	outcome := StatusFailure
	if strings.TrimSpace(p.ErrorCode) == "0" {
		outcome = StatusSuccess
	}
	if p.TransactionID != "" {
		s.TransactionID = p.TransactionID
	}
	if p.ErrorMessage != "" {
		s.Message = p.ErrorMessage
	}

	unconfirmed := false
	if v.cfg.QuickLookup {
		if !v.lookup(ctx, s, p.MerchantSession, ms, browserSessionID) {
			unconfirmed = outcome == StatusSuccess
			outcome = StatusFailure
		}
	}

	if err := s.Transition(outcome); err != nil {
		return err
	}
	if err := v.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session %d: %w", s.ID, err)
	}

	v.logger.Infow("paystation payment finalised",
		"payment_id", s.ID,
		"status", s.Status,
		"ec", p.ErrorCode,
		"class", paystation.ClassifyResultCode(p.ErrorCode),
		"transaction_id", s.TransactionID,
		"message", s.Message,
	)

	if unconfirmed && v.alert != nil {
		v.alert.VerificationFailed(ctx, *s)
	}

	rd.Redirect(v.cfg.ReturnURLFor(s.ID))
	return nil
}

// lookup asks Paystation for the authoritative record and cross checks it.
// Every mismatch appends its own message. It returns false when the callback
// cannot be trusted.
func (v *Verifier) lookup(ctx context.Context, s *Session, rawMS string, ms MerchantSession, browserSessionID string) bool {
	res, err := v.gateway.Lookup(ctx, paystation.LookupRequest{
		PaystationID:    v.cfg.InitiatorID,
		MerchantSession: rawMS,
	})
	if err != nil {
		audit(ctx, v.audit, v.logger, s.ID, LogTypeError, map[string]any{"stage": "quick_lookup", "error": err.Error()})
		v.logger.Errorw("paystation quick lookup failed", "payment_id", s.ID, "err", err)
		s.AppendMessage(msgLookupFailed)
		return false
	}
	audit(ctx, v.audit, v.logger, s.ID, LogTypeLookup, res)

	switch r := res.(type) {
	case paystation.LookupResponse:
		ok := true
		// The callback code can be edited by the customer; only the lookup
		// record decides approval.
		if strings.TrimSpace(r.PaystationErrorCode) != "0" {
			s.AppendMessage(msgNotApproved)
			ok = false
		}
		if s.TransactionID != r.TransactionID() {
			s.AppendMessage(msgTransactionMismatch)
			ok = false
		}
		if amount, parsed := r.AmountCents(); !parsed || amount != s.AmountCents {
			s.AppendMessage(msgAmountMismatch)
			ok = false
		}
		if ms.BrowserSessionID != browserSessionID {
			s.AppendMessage(msgSessionMismatch)
			ok = false
		}
		if !ok {
			v.logger.Warnw("paystation callback failed verification", "payment_id", s.ID, "message", s.Message)
		}
		return ok

	case paystation.LookupStatus:
		if r.Message == "" {
			r.Message = msgLookupFailed
		}
		s.AppendMessage(r.Message)
		return false

	default:
		s.AppendMessage(msgLookupFailed)
		return false
	}
}
