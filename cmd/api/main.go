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

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/cors"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/auth"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/config"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/database"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/ledger"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/llm"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/payments"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/repository"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.UsesDevSecret() {
		slog.Warn("JWT_SECRET not set; using development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		be   backend
		deps routeDeps
	)

	switch cfg.StoreDriver {
	case config.DriverMemory:
		mem := store.NewMemory()
		be = backend{
			agents:    mem.Agents(),
			listings:  mem.Listings(),
			reviews:   mem.Reviews(),
			users:     mem.Users(),
			purchases: mem.Purchases(),
		}
		deps.ledger = ledger.NewService(be.purchases)
		deps.enqueue = payments.NewInlineEnqueuer(deps.ledger)
		slog.Info("Using in-memory store; data is lost on restart")

	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		slog.Info("Connected to PostgreSQL database successfully!")

		if err := database.Migrate(ctx, pool); err != nil {
			slog.Error("Migrations failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Schema and River migrations applied")

		be = backend{
			agents:    repository.NewAgentRepo(pool),
			listings:  repository.NewListingRepo(pool),
			reviews:   repository.NewReviewRepo(pool),
			users:     auth.NewPGRepository(pool),
			purchases: ledger.NewRepository(pool),
		}
		deps.ledger = ledger.NewService(be.purchases)

		workers := river.NewWorkers()
		river.AddWorker(workers, payments.NewGrantPurchaseWorker(deps.ledger))

		riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
			Queues: map[string]river.QueueConfig{
				river.QueueDefault: {MaxWorkers: cfg.RiverMaxWorkers},
			},
			Workers: workers,
			Logger:  logger,
		})
		if err != nil {
			slog.Error("Failed to create River client", "error", err)
			os.Exit(1)
		}
		deps.enqueue = payments.NewRiverEnqueuer(riverClient)

		if err := riverClient.Start(ctx); err != nil {
			slog.Error("River client failed to start", "error", err)
			os.Exit(1)
		}
		defer stopRiver(riverClient)
	}

	deps.provider = newProvider(ctx, cfg)
	if cfg.CheckoutEnabled() {
		deps.checkout = payments.NewHostedCheckout(payments.HostedCheckoutConfig{
			BaseURL:    cfg.CheckoutBaseURL,
			APIKey:     cfg.CheckoutAPIKey,
			SuccessURL: cfg.CheckoutSuccessURL,
			CancelURL:  cfg.CheckoutCancelURL,
		})
	} else {
		slog.Warn("CHECKOUT_API_KEY not set; only free listings can be acquired")
	}

	api := buildAPI(cfg, be, deps, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
	}).Handler(api)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting HTTP server", "addr", srv.Addr, "store", cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}

func newProvider(ctx context.Context, cfg *config.Config) llm.Provider {
	p, err := llm.NewOpenAI(ctx, llm.OpenAIConfig{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		DefaultModel: cfg.LLMDefaultModel,
		Timeout:      cfg.LLMTimeout,
	})
	if errors.Is(err, llm.ErrNotConfigured) {
		slog.Warn("OPENAI_API_KEY not set; agent runs will fail with a provider error")
		return llm.Disabled{}
	}
	if err != nil {
		slog.Error("LLM provider init failed; agent runs disabled", "error", err)
		return llm.Disabled{}
	}
	return p
}

func stopRiver(c *river.Client[pgx.Tx]) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		slog.Error("River client stop failed", "error", err)
	}
}
