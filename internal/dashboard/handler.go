package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/agents"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/middleware"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
)

// ListingLister is the subset of the marketplace service the dashboard reads.
type ListingLister interface {
	List(ctx context.Context, f models.ListingFilter) ([]*models.Listing, error)
}

// PurchaseLister returns a user's purchases.
type PurchaseLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Purchase, error)
}

type Handler struct {
	agents    agents.Service
	listings  ListingLister
	purchases PurchaseLister
	log       *slog.Logger
}

func NewHandler(agentSvc agents.Service, listings ListingLister, purchases PurchaseLister, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{agents: agentSvc, listings: listings, purchases: purchases, log: log}
}

// maxSellerListings bounds the listing scan; one listing per agent.
const maxSellerListings = 100

type Summary struct {
	Agents      int                `json:"agents"`
	TotalRuns   int64              `json:"total_runs"`
	Listings    []*models.Listing  `json:"listings"`
	ActiveCount int                `json:"active_listings"`
	Purchases   int64              `json:"purchases"`
	Revenue     decimal.Decimal    `json:"revenue"`
	MyPurchases []*models.Purchase `json:"my_purchases"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func internalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error": map[string]string{"code": string(models.KindInternal), "message": "internal error"},
	})
}

// GET /api/v1/dashboard
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())

	mine, err := h.agents.ListByOwner(r.Context(), userID)
	if err != nil {
		h.log.Error("dashboard list agents failed", "user_id", userID, "error", err)
		internalError(w)
		return
	}
	listings, err := h.listings.List(r.Context(), models.ListingFilter{
		SellerID:        userID,
		IncludeInactive: true,
		Limit:           maxSellerListings,
	})
	if err != nil {
		h.log.Error("dashboard list listings failed", "user_id", userID, "error", err)
		internalError(w)
		return
	}
	bought, err := h.purchases.ListByUser(r.Context(), userID)
	if err != nil {
		h.log.Error("dashboard list purchases failed", "user_id", userID, "error", err)
		internalError(w)
		return
	}

	s := Summary{
		Agents:      len(mine),
		Listings:    listings,
		Revenue:     decimal.Zero,
		MyPurchases: bought,
	}
	for _, ag := range mine {
		s.TotalRuns += ag.Stats.UsageCount
	}
	for _, l := range listings {
		if l.IsActive {
			s.ActiveCount++
		}
		s.Purchases += l.Purchases
		s.Revenue = s.Revenue.Add(l.Revenue)
	}
	if s.Listings == nil {
		s.Listings = []*models.Listing{}
	}
	if s.MyPurchases == nil {
		s.MyPurchases = []*models.Purchase{}
	}
	writeJSON(w, http.StatusOK, s)
}
