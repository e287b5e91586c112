package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"atelier/internal/config"
	"atelier/internal/mail"
	"atelier/internal/observability/logging"
	"atelier/internal/observability/metrics"
	"atelier/internal/ratelimit"
	"atelier/internal/service/impl"
	"atelier/internal/store"
	httpx "atelier/internal/transport/http"
	"atelier/pkg/db"
)

func main() {
	_ = godotenv.Load()

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	logger := logging.NewLogger(logging.Config{
		ServiceName: "atelier",
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	slog.SetDefault(logger)
	logger.Info("starting service")

	cfg := config.Load()
	metrics.MustRegister("atelier")

	gdb, err := db.OpenGorm(db.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}
	st := store.New(gdb)

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		limiter = ratelimit.NewRedis(client, ratelimit.DefaultQuotas)
		logger.Info("rate limiter", "backend", "redis", "addr", cfg.RedisAddr)
	} else {
		limiter = ratelimit.NewMemory(ratelimit.DefaultQuotas)
		logger.Info("rate limiter", "backend", "memory")
	}

	mailer := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Timeout:  cfg.SMTPTimeout,
	})

	pw := impl.NewPasswordVerifier()
	ts := impl.NewTokenServiceHS256(impl.TokenConfig{
		Issuer:     cfg.Issuer,
		SigningKey: []byte(cfg.JWTSecret),
	})
	as := impl.NewAuthServiceImpl(st, pw, ts, mailer, cfg.MinPasswordLen)
	tfs := impl.NewTwoFactorServiceImpl(st, mailer, cfg.TOTPIssuer)
	acs := impl.NewAccessServiceImpl(st)

	handler := httpx.NewRouter(httpx.Deps{
		Auth:        as,
		TwoFactor:   tfs,
		Tokens:      ts,
		Access:      acs,
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
		ArchiveDir:  cfg.ArchiveDir,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("listening", "addr", srv.Addr, "issuer", cfg.Issuer)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
