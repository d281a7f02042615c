package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type JWTSessionAuthenticator struct {
	secret string
	iss    string
	exp    time.Duration
}

func NewJWTSessionAuthenticator(secret, iss string, exp time.Duration) *JWTSessionAuthenticator {
	return &JWTSessionAuthenticator{secret: secret, iss: iss, exp: exp}
}

// IssueSession creates a new random session id and its signed token.
func (a *JWTSessionAuthenticator) IssueSession() (string, string, error) {
	sid := uuid.NewString()
	now := time.Now()

	claims := jwt.MapClaims{
		"sub": sid,
		"exp": now.Add(a.exp).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"iss": a.iss,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(a.secret))
	if err != nil {
		return "", "", err
	}

	return sid, tokenString, nil
}

func (a *JWTSessionAuthenticator) ValidateSession(token string) (string, error) {
	t, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.secret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(a.iss),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	sid, err := t.Claims.GetSubject()
	if err != nil || sid == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidSession)
	}
	if _, err := uuid.Parse(sid); err != nil {
		return "", fmt.Errorf("%w: subject is not a session id", ErrInvalidSession)
	}

	return sid, nil
}
