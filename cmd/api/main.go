package main

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"hostedpay/internal/auth"
	"hostedpay/internal/db"
	"hostedpay/internal/domain/paymentsrepo"
	"hostedpay/internal/mailer"
	"hostedpay/internal/payments"
	"hostedpay/internal/paystation"
	"hostedpay/internal/ratelimiter"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	defaultRequests := 200
	defaultEnabled := false

	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// LoadPaystationConfig reads the gateway settings. Quick lookup is on unless
// PAYSTATION_QUICK_LOOKUP says otherwise.
func LoadPaystationConfig() payments.Config {
	return payments.Config{
		InitiatorID:       os.Getenv("PAYSTATION_ID"),
		GatewayID:         os.Getenv("PAYSTATION_GATEWAY_ID"),
		MerchantReference: os.Getenv("PAYSTATION_MERCHANT_REF"),
		ReturnURL:         os.Getenv("PAYSTATION_RETURN_URL"),
		TransactionURL:    envOr("PAYSTATION_URL", payments.DefaultTransactionURL),
		LookupURL:         envOr("PAYSTATION_LOOKUP_URL", payments.DefaultLookupURL),
		QuickLookup:       envBool("PAYSTATION_QUICK_LOOKUP", true),
		TestMode:          envBool("PAYSTATION_TEST_MODE", false),
	}
}

func envOr(key, fallback string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %v\n", key, fallback)
		return fallback
	}
	return parsed
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel

	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	logger := zap.New(core)

	return logger.Sugar(), nil
}

var version = "0.3.0"

func main() {
	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Infow("no .env file loaded, using process environment", "err", err)
	}

	maxConns, err := strconv.ParseInt(envOr("DB_MAX_CONNS", "10"), 10, 32)
	if err != nil {
		logger.Fatalf("Invalid value for DB_MAX_CONNS: %v", err)
	}

	cfg := config{
		addr:   envOr("ADDR", ":8080"),
		env:    envOr("ENV", "development"),
		apiURL: os.Getenv("EXTERNAL_URL"),
		db: dbConfig{
			addr:        os.Getenv("DB_ADDR"),
			maxConns:    int32(maxConns),
			maxIdleTime: envOr("DB_MAX_IDLE_TIME", "15m"),
		},
		auth: authConfig{
			basic: basicConfig{
				user:     os.Getenv("AUTH_BASIC_USER"),
				passHash: os.Getenv("AUTH_BASIC_PASS_HASH"),
			},
			session: sessionConfig{
				secret: os.Getenv("SESSION_SECRET"),
				exp:    time.Hour * 24,
				iss:    "hostedpay",
			},
		},
		rateLimiter: LoadRateLimiterConfig(),
		paystation:  LoadPaystationConfig(),
		mail: mailConfig{
			fromEmail: os.Getenv("MAIL_FROM_EMAIL"),
			alertTo:   os.Getenv("MAIL_ALERT_TO"),
			mailtrap: mailTrapConfig{
				apiKey: os.Getenv("MAILTRAP_API_KEY"),
			},
		},
	}

	// Missing paystation credentials must stop the process before any
	// customer reaches checkout.
	if err := cfg.paystation.Validate(); err != nil {
		logger.Fatal(err)
	}
	if cfg.auth.session.secret == "" {
		logger.Fatal("SESSION_SECRET is required")
	}
	if cfg.paystation.ReturnURL == "" {
		logger.Warnw("PAYSTATION_RETURN_URL not set, using built-in result page", "path", payments.DefaultReturnURL)
	}
	if !cfg.paystation.QuickLookup {
		logger.Warn("paystation quick lookup is disabled, callbacks are trusted without verification")
	}

	// Database
	pool, err := db.New(cfg.db.addr, cfg.db.maxConns, cfg.db.maxIdleTime)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	if err := db.Migrate(context.Background(), pool); err != nil {
		logger.Fatal(err)
	}

	store := paymentsrepo.NewRepository(pool)
	paylogs := paymentsrepo.NewLogsRepository(pool)

	gateway := paystation.NewClient(cfg.paystation.TransactionURL, cfg.paystation.LookupURL)

	initiator, err := payments.NewInitiator(cfg.paystation, gateway, store, paylogs, logger)
	if err != nil {
		logger.Fatal(err)
	}
	verifier := payments.NewVerifier(cfg.paystation, gateway, store, paylogs, logger)

	// Alert mails are optional; without them unconfirmed approvals are only
	// logged.
	if cfg.mail.mailtrap.apiKey != "" && cfg.mail.alertTo != "" {
		mailtrap, err := mailer.NewMailTrapClient(cfg.mail.mailtrap.apiKey, cfg.mail.fromEmail)
		if err != nil {
			logger.Fatal(err)
		}
		verifier.WithAlerter(&mailAlerter{
			mailer: mailtrap,
			to:     cfg.mail.alertTo,
			apiURL: cfg.apiURL,
			logger: logger,
		})
	} else {
		logger.Warn("MAILTRAP_API_KEY or MAIL_ALERT_TO not set, payment alert emails are disabled")
	}

	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	app := &application{
		config:      cfg,
		store:       store,
		paylogs:     paylogs,
		logger:      logger,
		initiator:   initiator,
		verifier:    verifier,
		sessions:    auth.NewJWTSessionAuthenticator(cfg.auth.session.secret, cfg.auth.session.iss, cfg.auth.session.exp),
		rateLimiter: rateLimiter,
	}

	// Metrics collected http://localhost:8080/v1/admin/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		return pool.Stat().TotalConns()
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
