package main

import (
	"log/slog"
	"net/http"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/agents"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/auth"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/config"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/dashboard"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/handlers"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/ledger"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/llm"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/marketplace"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/payments"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/reviews"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/router"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/services"
)

// backend is the set of stores the API runs on, memory or PostgreSQL.
type backend struct {
	agents    agents.Repository
	listings  marketplace.Repository
	reviews   reviews.Repository
	users     auth.Repository
	purchases ledger.Store
}

// routeDeps are the collaborators built before the router.
type routeDeps struct {
	ledger   ledger.Service
	enqueue  payments.Enqueuer
	provider llm.Provider
	checkout payments.Checkout
}

// buildAPI wires services and handlers on top of be.
// Order: stores -> domain services -> consistency/runner -> handlers -> router.
func buildAPI(cfg *config.Config, be backend, deps routeDeps, logger *slog.Logger) http.Handler {
	authSvc := auth.NewService(be.users, cfg.JWTSecret, cfg.JWTTTL)
	agentSvc := agents.NewService(be.agents)
	listingSvc := marketplace.NewService(be.listings)
	reviewSvc := reviews.NewService(be.reviews, listingSvc, nil)

	consistency := services.NewConsistency(agentSvc, listingSvc, logger)
	runner := services.NewRunner(agentSvc, deps.provider, deps.ledger, logger)
	paymentSvc := payments.NewService(deps.checkout, deps.enqueue, logger)

	return router.New(router.Handlers{
		Auth: &handlers.AuthHandler{Auth: authSvc, Logger: logger},
		Agents: &handlers.AgentHandler{
			Agents:      agentSvc,
			Consistency: consistency,
			Runner:      runner,
			Logger:      logger,
		},
		Listings: &handlers.ListingHandler{
			Listings:    listingSvc,
			Consistency: consistency,
			Reviews:     reviewSvc,
			Payments:    paymentSvc,
			Logger:      logger,
		},
		Payments: &handlers.PaymentHandler{
			Payments:  paymentSvc,
			Secret:    cfg.WebhookSecret,
			Tolerance: cfg.WebhookTolerance,
			Logger:    logger,
		},
		Dashboard: dashboard.NewHandler(agentSvc, listingSvc, deps.ledger, logger),
	}, authSvc)
}
