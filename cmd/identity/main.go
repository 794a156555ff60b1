package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"identity/internal/config"
	"identity/internal/mail"
	"identity/internal/observability/logging"
	"identity/internal/observability/metrics"
	"identity/internal/service"
	impl "identity/internal/service/impl"
	"identity/internal/store"
	"identity/internal/store/mongostore"
	httpx "identity/internal/transport/http"

	"github.com/joho/godotenv"
)

const serviceName = "identity"

func main() {
	// a missing .env is fine outside development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)

	metrics.MustRegister(serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1) Store
	users, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// 2) Delivery
	var mailer service.Mailer
	switch cfg.MailDriver {
	case config.MailSMTP:
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	default:
		mailer = mail.NewLogMailer(logger)
	}

	// 3) Services
	pw := impl.NewPasswordServiceArgon2id(impl.DefaultArgon2Params)
	ts := impl.NewTokenServiceHS256(impl.TokenConfig{
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
	})
	as := impl.NewAuthServiceImpl(users, pw, ts, mailer, impl.AuthConfig{
		VerifyEmailTTL:       cfg.VerifyEmailTTL,
		ResetPasswordTTL:     cfg.ResetPasswordTTL,
		PublicBaseURL:        cfg.PublicBaseURL,
		RequireVerifiedEmail: cfg.RequireVerifiedEmail,
	})

	// 4) HTTP
	router := httpx.NewRouter(as, httpx.Options{
		CookieSecure:       cfg.CookieSecure,
		TrustProxy:         cfg.TrustProxy,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSOrigins:        cfg.CORSOrigins,
		Logger:             logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	logger.Info("identity service listening", "addr", srv.Addr, "store", cfg.StoreDriver, "mail", cfg.MailDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func openStore(ctx context.Context, cfg config.Config) (service.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		client, err := mongostore.Connect(connectCtx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		users := mongostore.New(client.Database(cfg.MongoDatabase))
		if err := users.EnsureIndexes(connectCtx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return users, func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		gdb, err := store.OpenPostgres(store.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.IsDev() && cfg.LogLevel == "debug"})
		if err != nil {
			return nil, nil, err
		}
		st := store.New(gdb)
		if err := st.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return st.Users(), closeFn, nil
	}
}
