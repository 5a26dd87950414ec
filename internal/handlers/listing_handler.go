package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/marketplace"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/middleware"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/payments"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/reviews"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/services"
)

// ListingHandler serves /api/v1/marketplace endpoints.
type ListingHandler struct {
	Listings    marketplace.Service
	Consistency *services.Consistency
	Reviews     reviews.Service
	Payments    *payments.Service
	Logger      *slog.Logger
}

// --- POST /api/v1/marketplace ---

type createListingRequest struct {
	AgentID     string   `json:"agent_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	pricing.Envelope
}

func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AgentID == "" {
		writeError(w, h.Logger, "create listing", fmt.Errorf("%w: agent_id", models.ErrMissingRequiredField))
		return
	}
	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		writeError(w, h.Logger, "create listing", fmt.Errorf("%w: agent_id", models.ErrInvalidField))
		return
	}
	in := marketplace.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
	}
	if p, ok := req.Envelope.Resolve(); ok {
		in.Pricing = &p
	}
	l, err := h.Consistency.PublishAgent(r.Context(), middleware.UserIDFromCtx(r.Context()), agentID, in)
	if err != nil {
		writeError(w, h.Logger, "create listing", err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// --- GET /api/v1/marketplace ---

func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.ListingFilter{Query: q.Get("q"), Sort: q.Get("sort")}
	if c := q.Get("category"); c != "" {
		cat, ok := models.ParseCategory(c)
		if !ok {
			writeError(w, h.Logger, "list listings", fmt.Errorf("%w: category %q", models.ErrInvalidField, c))
			return
		}
		f.Category = cat
	}
	var err error
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, h.Logger, "list listings", fmt.Errorf("%w: limit", models.ErrInvalidField))
		return
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, h.Logger, "list listings", fmt.Errorf("%w: offset", models.ErrInvalidField))
		return
	}
	list, err := h.Listings.List(r.Context(), f)
	if err != nil {
		writeError(w, h.Logger, "list listings", err)
		return
	}
	if list == nil {
		list = []*models.Listing{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": list})
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid")
	}
	return n, nil
}

// --- GET /api/v1/marketplace/{id} ---

func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	l, err := h.Listings.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, "get listing", err)
		return
	}
	if !l.IsActive && l.SellerID != middleware.UserIDFromCtx(r.Context()) {
		writeError(w, h.Logger, "get listing", models.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// --- PATCH /api/v1/marketplace/{id} ---

type updateListingRequest struct {
	marketplace.Patch
	pricing.Envelope
}

func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req updateListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch := req.Patch
	if p, ok := req.Envelope.Resolve(); ok {
		patch.Pricing = &p
	}
	l, err := h.Consistency.UpdateListing(r.Context(), id, middleware.UserIDFromCtx(r.Context()), patch)
	if err != nil {
		writeError(w, h.Logger, "update listing", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// --- DELETE /api/v1/marketplace/{id} ---

func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Consistency.UnlistListing(r.Context(), id, middleware.UserIDFromCtx(r.Context())); err != nil {
		writeError(w, h.Logger, "delete listing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- GET /api/v1/marketplace/{id}/reviews ---

func (h *ListingHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.Reviews.ListByListing(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, "list reviews", err)
		return
	}
	if list == nil {
		list = []*models.Review{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": list})
}

// --- POST /api/v1/marketplace/{id}/reviews ---

type submitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *ListingHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req submitReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rv, err := h.Reviews.Submit(r.Context(), middleware.UserIDFromCtx(r.Context()), id, req.Rating, req.Comment)
	if err != nil {
		writeError(w, h.Logger, "submit review", err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

// --- POST /api/v1/marketplace/{id}/checkout ---

func (h *ListingHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	l, err := h.Listings.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, "checkout", err)
		return
	}
	res, err := h.Payments.StartCheckout(r.Context(), middleware.UserIDFromCtx(r.Context()), l)
	if errors.Is(err, payments.ErrCheckoutDisabled) {
		writeErrorCode(w, http.StatusServiceUnavailable, "checkout_disabled", "checkout is not configured")
		return
	}
	if err != nil {
		writeError(w, h.Logger, "checkout", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
