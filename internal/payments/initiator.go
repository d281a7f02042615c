package payments

import (
	"context"
	"fmt"
	"strings"

	"hostedpay/internal/paystation"

	"go.uber.org/zap"
)

const msgUnknownResponse = "Unknown error"

// Initiator starts hosted transactions.
type Initiator struct {
	cfg     Config
	gateway Gateway
	store   Store
	audit   AuditLog
	logger  *zap.SugaredLogger
}

// NewInitiator fails with ErrConfiguration when the paystation or gateway id
// is missing. auditLog may be nil.
func NewInitiator(cfg Config, gateway Gateway, store Store, auditLog AuditLog, logger *zap.SugaredLogger) (*Initiator, error) {
	if err := cfg.requireCredentials(); err != nil {
		return nil, err
	}
	return &Initiator{
		cfg:     cfg,
		gateway: gateway,
		store:   store,
		audit:   auditLog,
		logger:  logger,
	}, nil
}

// Initiate sends the session to Paystation and returns the url the browser
// must be redirected to. The session is saved in every outcome once a request
// has been attempted. Nothing is retried: the gateway may already hold a
// pending transaction for this merchant session.
func (in *Initiator) Initiate(ctx context.Context, s *Session, browserSessionID string) (string, error) {
	if err := in.cfg.requireCredentials(); err != nil {
		return "", err
	}
	if s.AmountCents <= 0 {
		return "", ErrInvalidAmount
	}
	if s.Status != StatusPending {
		return "", fmt.Errorf("%w: session %d is %s", ErrInvalidTransition, s.ID, s.Status)
	}
	browserSessionID = strings.TrimSpace(browserSessionID)
	if browserSessionID == "" {
		return "", fmt.Errorf("%w: browser session", ErrMissingParameter)
	}

	s.MerchantSession = NewMerchantSession(browserSessionID, s.ID)
	s.TestMode = s.TestMode || in.cfg.TestMode
	if s.MerchantReference == "" {
		s.MerchantReference = in.cfg.MerchantReference
	}

	req := paystation.InitiationRequest{
		PaystationID:      in.cfg.InitiatorID,
		GatewayID:         in.cfg.GatewayID,
		MerchantSession:   s.MerchantSession,
		AmountCents:       s.AmountCents,
		TestMode:          s.TestMode,
		MerchantReference: s.MerchantReference,
	}
	audit(ctx, in.audit, in.logger, s.ID, LogTypeRequest, req)

	res, err := in.gateway.Initiate(ctx, req)
	if err != nil {
		audit(ctx, in.audit, in.logger, s.ID, LogTypeError, map[string]any{"stage": "initiate", "error": err.Error()})
		in.logger.Errorw("paystation initiate failed", "payment_id", s.ID, "merchant_session", s.MerchantSession, "err", err)
		if ferr := in.fail(ctx, s, err.Error()); ferr != nil {
			return "", ferr
		}
		return "", err
	}
	audit(ctx, in.audit, in.logger, s.ID, LogTypeResponse, res)

	switch r := res.(type) {
	case paystation.Redirect:
		if err := s.Transition(StatusIncomplete); err != nil {
			return "", err
		}
		if err := in.store.Save(ctx, s); err != nil {
			return "", fmt.Errorf("save session %d: %w", s.ID, err)
		}
		in.logger.Infow("redirecting to paystation", "payment_id", s.ID, "merchant_session", s.MerchantSession)
		return r.URL, nil

	case paystation.GatewayError:
		failure := &GatewayFailure{Code: r.Code, Message: r.Message}
		in.logger.Warnw("paystation rejected payment",
			"payment_id", s.ID,
			"code", r.Code,
			"class", paystation.ClassifyErrorCode(r.Code),
			"message", r.Message,
		)
		s.Message = failure.Error()
		if err := in.fail(ctx, s, ""); err != nil {
			return "", err
		}
		return "", failure

	default:
		in.logger.Errorw("unrecognised paystation response", "payment_id", s.ID, "response", res)
		s.Message = msgUnknownResponse
		if err := in.fail(ctx, s, ""); err != nil {
			return "", err
		}
		return "", ErrUnknownResponse
	}
}

func (in *Initiator) fail(ctx context.Context, s *Session, msg string) error {
	s.AppendMessage(msg)
	if err := s.Transition(StatusFailure); err != nil {
		return err
	}
	if err := in.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session %d: %w", s.ID, err)
	}
	return nil
}
