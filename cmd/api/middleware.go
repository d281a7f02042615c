package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const browserSessionCtx contextKey = "browserSession"

const sessionCookieName = "sid"

func (app *application) BasicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// read the auth header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
				return
			}

			// parse it -> get the base64
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Basic" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
				return
			}

			decoded, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				app.unauthorizedBasicErrorResponse(w, r, err)
				return
			}

			username := app.config.auth.basic.user
			hash := app.config.auth.basic.passHash
			if username == "" || hash == "" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("basic auth is not configured"))
				return
			}

			creds := strings.SplitN(string(decoded), ":", 2)
			if len(creds) != 2 || creds[0] != username {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("invalid credentials"))
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(creds[1])); err != nil {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("invalid credentials"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP drops the port so every connection from one host shares a window.
// RealIP has already replaced RemoteAddr when a proxy header was present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (app *application) RateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allow, retryAfter := app.rateLimiter.Allow(clientIP(r)); !allow {
			app.rateLimitExceededResponse(w, r, retryAfter)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BrowserSessionMiddleware makes sure every request carries a browser session
// id. The id is the prefix of the merchant session sent to Paystation and is
// compared again when the customer comes back, so it lives in a signed
// cookie. A missing or invalid cookie gets a fresh session.
func (app *application) BrowserSessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sid, ok := app.readBrowserSession(r); ok {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), browserSessionCtx, sid)))
			return
		}

		sid, token, err := app.sessions.IssueSession()
		if err != nil {
			app.internalServerError(w, r, fmt.Errorf("issue browser session: %w", err))
			return
		}

		// Lax so the cookie survives the top level redirect back from the
		// gateway.
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   app.config.env == "production",
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(app.config.auth.session.exp.Seconds()),
		})

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), browserSessionCtx, sid)))
	})
}

// ReturnSessionMiddleware reads the browser session but never issues one.
// A cross-site POST back from the gateway arrives without the Lax cookie;
// issuing a fresh session there would overwrite the customer's real one. The
// request carries an empty session id instead and verification fails closed.
func (app *application) ReturnSessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sid, ok := app.readBrowserSession(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), browserSessionCtx, sid))
		}
		next.ServeHTTP(w, r)
	})
}

func (app *application) readBrowserSession(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", false
	}
	sid, err := app.sessions.ValidateSession(c.Value)
	if err != nil {
		return "", false
	}
	return sid, true
}

func getBrowserSession(r *http.Request) string {
	sid, _ := r.Context().Value(browserSessionCtx).(string)
	return sid
}
