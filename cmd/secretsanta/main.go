package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/secretsanta/internal/adapter/fsm"
	"github.com/neomorfeo/secretsanta/internal/adapter/mail"
	"github.com/neomorfeo/secretsanta/internal/adapter/otel"
	"github.com/neomorfeo/secretsanta/internal/adapter/river"
	"github.com/neomorfeo/secretsanta/internal/adapter/sqlite"
	"github.com/neomorfeo/secretsanta/internal/app"
	"github.com/neomorfeo/secretsanta/internal/draw"
	"github.com/neomorfeo/secretsanta/internal/token"

	handler "github.com/neomorfeo/secretsanta/internal/adapter/http"
)

const serviceName = "secretsanta"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	slog.SetDefault(newLogger(envOrDefault("LOG_LEVEL", "info")))

	port := envOrDefault("PORT", "8080")
	dbPath := envOrDefault("DATABASE_PATH", ":memory:")

	sessionTTL, err := time.ParseDuration(envOrDefault("SESSION_TTL", "72h"))
	if err != nil {
		return fmt.Errorf("parsing SESSION_TTL: %w", err)
	}
	purgeInterval, err := time.ParseDuration(envOrDefault("PURGE_INTERVAL", "1h"))
	if err != nil {
		return fmt.Errorf("parsing PURGE_INTERVAL: %w", err)
	}
	cipher, err := token.ParseCipher(envOrDefault("TOKEN_CIPHER", string(token.CipherAuto)))
	if err != nil {
		return err
	}
	tokenWorkers, err := strconv.Atoi(envOrDefault("TOKEN_WORKERS", "1"))
	if err != nil {
		return fmt.Errorf("parsing TOKEN_WORKERS: %w", err)
	}
	mailCfg, err := mail.ConfigFromEnv()
	if err != nil {
		return err
	}
	otelCfg, err := otel.ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("otel config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	telemetry, err := otel.Setup(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	repo := otel.NewTracingRepository(store)

	riverClient, err := river.Setup(ctx, db, river.Config{
		Sessions:      repo,
		SessionTTL:    sessionTTL,
		PurgeInterval: purgeInterval,
	})
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			slog.Error("river stop", "error", err)
		}
	}()

	mailer, err := mail.New(mailCfg)
	if err != nil {
		return err
	}

	encryptor := token.New(token.Config{Cipher: cipher, Workers: tokenWorkers})

	// --- Application ---
	svc := app.NewSessionService(
		repo,
		otel.NewTracingPublisher(river.NewPublisher(riverClient)),
		fsm.New(),
		draw.New(draw.NewRandomizer()),
		otel.NewTracingEncryptor(encryptor, telemetry.Instruments),
		otel.NewTracingMailer(mailer, telemetry.Instruments),
	)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig(serviceName, "0.1.0"))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening",
			"addr", srv.Addr,
			"docs", "http://localhost:"+port+"/docs",
			"mail_provider", mailCfg.Provider,
			"token_cipher", string(cipher),
			"tokens_available", encryptor.Available(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("stopped")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
