package router

import (
	"net/http"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/dashboard"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/handlers"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/middleware"
)

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Agents    *handlers.AgentHandler
	Listings  *handlers.ListingHandler
	Payments  *handlers.PaymentHandler
	Dashboard *dashboard.Handler
}

// New returns an http.Handler serving the API under /api/v1 and /healthz.
// Every API route runs behind Authenticate; routes that act on the caller's
// own resources additionally require a user.
func New(h Handlers, tokens middleware.TokenValidator) http.Handler {
	mux := http.NewServeMux()
	const base = "/api/v1"

	open := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, fn)
	}
	user := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireUser(fn))
	}

	open("POST "+base+"/auth/register", h.Auth.Register)
	open("POST "+base+"/auth/login", h.Auth.Login)
	user("GET "+base+"/auth/me", h.Auth.Me)

	user("POST "+base+"/agents", h.Agents.CreateAgent)
	user("GET "+base+"/agents", h.Agents.ListMyAgents)
	open("GET "+base+"/agents/{id}", h.Agents.GetAgent)
	user("PATCH "+base+"/agents/{id}", h.Agents.UpdateAgent)
	user("DELETE "+base+"/agents/{id}", h.Agents.DeleteAgent)
	user("PUT "+base+"/agents/{id}/pricing", h.Agents.UpdatePricing)
	user("POST "+base+"/agents/{id}/api-key", h.Agents.GenerateAPIKey)
	open("POST "+base+"/agents/{id}/run", h.Agents.RunAgent)

	user("POST "+base+"/marketplace", h.Listings.CreateListing)
	open("GET "+base+"/marketplace", h.Listings.ListListings)
	open("GET "+base+"/marketplace/{id}", h.Listings.GetListing)
	user("PATCH "+base+"/marketplace/{id}", h.Listings.UpdateListing)
	user("DELETE "+base+"/marketplace/{id}", h.Listings.DeleteListing)
	open("GET "+base+"/marketplace/{id}/reviews", h.Listings.ListReviews)
	user("POST "+base+"/marketplace/{id}/reviews", h.Listings.SubmitReview)
	user("POST "+base+"/marketplace/{id}/checkout", h.Listings.StartCheckout)

	open("POST "+base+"/payments/webhook", h.Payments.Webhook)

	user("GET "+base+"/dashboard", h.Dashboard.GetSummary)

	authed := middleware.Authenticate(tokens)(mux)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	root.Handle("/", authed)
	return root
}
