package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostedpay/internal/auth"
	"hostedpay/internal/domain/paymentsrepo"
	"hostedpay/internal/payments"
	"hostedpay/internal/ratelimiter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type application struct {
	config      config
	store       paymentsrepo.Store
	paylogs     paymentsrepo.LogsStore
	logger      *zap.SugaredLogger
	initiator   *payments.Initiator
	verifier    *payments.Verifier
	sessions    auth.SessionAuthenticator
	rateLimiter ratelimiter.Limiter
}

type config struct {
	addr        string
	db          dbConfig
	env         string
	apiURL      string
	auth        authConfig
	rateLimiter ratelimiter.Config
	paystation  payments.Config
	mail        mailConfig
}

type mailConfig struct {
	fromEmail string
	alertTo   string
	mailtrap  mailTrapConfig
}

type mailTrapConfig struct {
	apiKey string
}

type authConfig struct {
	basic   basicConfig
	session sessionConfig
}

type sessionConfig struct {
	secret string
	exp    time.Duration
	iss    string
}

type basicConfig struct {
	user     string
	passHash string // bcrypt
}

type dbConfig struct {
	addr        string
	maxConns    int32
	maxIdleTime string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// The gateway calls are blocking with no timeout of their own; this is
	// what cancels them.
	r.Use(middleware.Timeout(60 * time.Second))

	if app.config.rateLimiter.Enabled {
		r.Use(app.RateLimiterMiddleware)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)

		r.Group(func(r chi.Router) {
			r.Use(app.BrowserSessionMiddleware)

			r.Route("/payments", func(r chi.Router) {
				r.Post("/", app.createPaymentHandler)
				r.Post("/{paymentID}/checkout", app.checkoutHandler)
				r.Get("/result/{paymentID}", app.paymentResultHandler)
			})
		})

		// Paystation sends the customer's browser back here.
		r.Group(func(r chi.Router) {
			r.Use(app.ReturnSessionMiddleware)
			r.Get("/paystation/complete", app.paystationCompleteHandler)
			r.Post("/paystation/complete", app.paystationCompleteHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(app.BasicAuthMiddleware())
			r.Get("/payments", app.adminListPaymentsHandler)
			r.Get("/payments/{paymentID}/logs", app.adminPaymentLogsHandler)
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 90,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
