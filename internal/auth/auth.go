package auth

import "errors"

var ErrInvalidSession = errors.New("invalid browser session")

// SessionAuthenticator issues and checks the signed cookie that carries a
// browser session id. The id becomes the prefix of every merchant session
// sent to the gateway.
type SessionAuthenticator interface {
	IssueSession() (sessionID, token string, err error)
	ValidateSession(token string) (sessionID string, err error)
}
