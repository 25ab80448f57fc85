// CoHub - property owner dashboard server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/cohub/internal/api"
	"github.com/ashureev/cohub/internal/assistant"
	"github.com/ashureev/cohub/internal/chatws"
	"github.com/ashureev/cohub/internal/config"
	"github.com/ashureev/cohub/internal/healthcheck"
	"github.com/ashureev/cohub/internal/identity"
	"github.com/ashureev/cohub/internal/middleware"
	"github.com/ashureev/cohub/internal/payments"
	"github.com/ashureev/cohub/internal/referral"
	"github.com/ashureev/cohub/internal/seed"
	"github.com/ashureev/cohub/internal/store"
	"github.com/ashureev/cohub/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "grpc_port", cfg.GRPCPort, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	loc := time.Local
	if cfg.Money.Timezone != "" {
		// Validated by config.Load.
		loc, _ = time.LoadLocation(cfg.Money.Timezone)
	}
	format := payments.NewFormatter(cfg.Money.Symbol, cfg.Money.Locale, loc)
	cache := payments.NewCache(repo, logger)

	loader := seed.NewLoader(repo, cache, logger)
	if cfg.SeedPath != "" {
		if err := loader.Apply(ctx, cfg.SeedPath); err != nil {
			slog.Error("Failed to apply seed", "path", cfg.SeedPath, "error", err)
			os.Exit(1)
		}
	}

	// A failed initial load leaves the cache empty; the dashboard can retry.
	if err := cache.Refresh(ctx); err != nil {
		slog.Warn("Initial payment load failed", "error", err)
	}

	backend, err := assistant.NewBackend(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize assistant backend", "error", err)
		os.Exit(1)
	}
	slog.Info("Assistant backend ready", "mode", backend.Name())

	conversationLogger, err := assistant.NewConversationLogger(assistant.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}

	chat, err := assistant.NewService(assistant.ServiceDeps{
		Answerer:   assistant.NewAnswerer(format),
		Dispatcher: assistant.NewDispatcher(backend, cfg.Assistant.WrapContext, logger),
		Payments:   cache,
		Sessions:   assistant.NewSessionRegistry(repo, logger),
		Log:        conversationLogger,
		Logger:     logger,
	})
	if err != nil {
		slog.Error("Failed to initialize assistant", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := chat.Close(); closeErr != nil {
			slog.Error("Failed to close conversation log", "error", closeErr)
		}
	}()

	conns := chatws.NewConnManager()
	loader.OnApply(func() {
		conns.Broadcast(ctx, chatws.ServerMessage{Type: chatws.TypePaymentsUpdated})
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	go limiter.Run(ctx)

	// Initialize handlers.
	baseHandler := api.NewHandler(api.Deps{
		Repo:      repo,
		Cache:     cache,
		Format:    format,
		Assistant: chat,
		Referrals: referral.NewService(repo, cfg.ReferralBaseURL),
		Config:    cfg,
		ChatConns: conns,
	})
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := chatws.NewHandler(chat, conns, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)
	baseHandler.RegisterRoutes(r, limiter.Middleware)

	// WebSocket endpoint.
	r.With(limiter.Middleware).Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	assistant.StartTTLWorker(ctx, repo, chat.Sessions(), cfg.TranscriptTTL)
	slog.Info("TTL worker started", "transcript_ttl", cfg.TranscriptTTL)

	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		slog.Error("Failed to listen for gRPC", "port", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}
	healthServer := healthcheck.NewServer(repo, 0, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return healthServer.Serve(gctx, grpcLis)
	})
	if cfg.SeedWatch {
		g.Go(func() error {
			return loader.Watch(gctx, cfg.SeedPath, seed.DefaultDebounce)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
