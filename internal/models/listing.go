package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
)

type Category string

// Categories is the fixed set a listing may be filed under.
var Categories = []Category{
	"Productivity",
	"Writing",
	"Coding",
	"Marketing",
	"Education",
	"Customer Support",
	"Research",
	"Entertainment",
	"Other",
}

// ParseCategory matches s case-insensitively against Categories and returns the canonical spelling.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// Rating is derived from reviews; never written by sellers.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type Listing struct {
	ID          uuid.UUID       `json:"id"`
	AgentID     uuid.UUID       `json:"agent_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Tags        []string        `json:"tags"`
	Pricing     pricing.Pricing `json:"pricing"`
	Rating      Rating          `json:"rating"`
	IsActive    bool            `json:"is_active"`
	Purchases   int64           `json:"purchases"`
	Revenue     decimal.Decimal `json:"revenue"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (l *Listing) Clone() *Listing {
	cp := *l
	cp.Tags = append(make([]string, 0, len(l.Tags)), l.Tags...)
	return &cp
}

// Listing sort orders.
const (
	SortNewest = "newest"
	SortRating = "rating"
)

// ListingFilter narrows a listing query. Zero value lists active listings, newest first.
type ListingFilter struct {
	Category        Category
	Query           string
	SellerID        uuid.UUID
	IncludeInactive bool
	Sort            string
	Limit           int
	Offset          int
}
