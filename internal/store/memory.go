// Package store holds in-memory repositories for tests and zero-config local runs.
// All views share one lock so listing purchase stats and purchases stay consistent.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
)

type Memory struct {
	mu        sync.RWMutex
	agents    map[uuid.UUID]*models.Agent
	listings  map[uuid.UUID]*models.Listing
	byAgent   map[uuid.UUID]uuid.UUID // agent id -> listing id
	reviews   map[uuid.UUID][]*models.Review
	users     map[uuid.UUID]*models.User
	byEmail   map[string]uuid.UUID
	purchases map[string]*models.Purchase // keyed by event id
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		agents:    make(map[uuid.UUID]*models.Agent),
		listings:  make(map[uuid.UUID]*models.Listing),
		byAgent:   make(map[uuid.UUID]uuid.UUID),
		reviews:   make(map[uuid.UUID][]*models.Review),
		users:     make(map[uuid.UUID]*models.User),
		byEmail:   make(map[string]uuid.UUID),
		purchases: make(map[string]*models.Purchase),
		now:       time.Now,
	}
}

func (m *Memory) Agents() *AgentStore     { return &AgentStore{m} }
func (m *Memory) Listings() *ListingStore { return &ListingStore{m} }
func (m *Memory) Reviews() *ReviewStore   { return &ReviewStore{m} }
func (m *Memory) Users() *UserStore       { return &UserStore{m} }
func (m *Memory) Purchases() *PurchaseStore {
	return &PurchaseStore{m}
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

type AgentStore struct{ m *Memory }

func (s *AgentStore) Create(_ context.Context, ag *models.Agent) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.agents[ag.ID] = ag.Clone()
	return nil
}

func (s *AgentStore) GetByID(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	ag, ok := s.m.agents[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return ag.Clone(), nil
}

func (s *AgentStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.Agent, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var list []*models.Agent
	for _, ag := range s.m.agents {
		if ag.OwnerID == ownerID {
			list = append(list, ag.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *AgentStore) Update(_ context.Context, ag *models.Agent) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cur, ok := s.m.agents[ag.ID]
	if !ok {
		return models.ErrNotFound
	}
	src := ag.Clone()
	cur.Name = src.Name
	cur.Description = src.Description
	cur.Instructions = src.Instructions
	cur.Temperature = src.Temperature
	cur.MaxTokens = src.MaxTokens
	cur.EnableWebSearch = src.EnableWebSearch
	cur.EnableKnowledgeBase = src.EnableKnowledgeBase
	cur.EnableMemory = src.EnableMemory
	cur.Pricing = src.Pricing
	cur.CustomizationOptions = src.CustomizationOptions
	cur.UpdatedAt = src.UpdatedAt
	return nil
}

func (s *AgentStore) SetVisibility(_ context.Context, id uuid.UUID, vis models.Visibility) (*models.Agent, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	ag, ok := s.m.agents[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if ag.IsPublished != (vis == models.VisibilityMarketplace) {
		return nil, fmt.Errorf("%w: visibility %s does not match publication state", models.ErrInvalidField, vis)
	}
	ag.Visibility = vis
	ag.UpdatedAt = s.m.now().UTC()
	return ag.Clone(), nil
}

func (s *AgentStore) SetPublication(_ context.Context, id uuid.UUID, published bool, vis models.Visibility) (*models.Agent, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	ag, ok := s.m.agents[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	ag.IsPublished = published
	ag.Visibility = vis
	ag.UpdatedAt = s.m.now().UTC()
	return ag.Clone(), nil
}

func (s *AgentStore) RecordRun(_ context.Context, id uuid.UUID, responseTimeMs float64) (*models.Agent, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	ag, ok := s.m.agents[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	n := float64(ag.Stats.UsageCount)
	ag.Stats.AverageResponseTime = (ag.Stats.AverageResponseTime*n + responseTimeMs) / (n + 1)
	ag.Stats.UsageCount++
	return ag.Clone(), nil
}

func (s *AgentStore) SetAPIKeyIfAbsent(_ context.Context, id uuid.UUID, key string) (string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	ag, ok := s.m.agents[id]
	if !ok {
		return "", models.ErrNotFound
	}
	if ag.APIKey == "" {
		ag.APIKey = key
	}
	return ag.APIKey, nil
}

func (s *AgentStore) Delete(_ context.Context, id uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.agents[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.m.agents, id)
	return nil
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

type ListingStore struct{ m *Memory }

func (s *ListingStore) Create(_ context.Context, l *models.Listing) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.byAgent[l.AgentID]; ok {
		return models.ErrAlreadyListed
	}
	s.m.listings[l.ID] = l.Clone()
	s.m.byAgent[l.AgentID] = l.ID
	return nil
}

func (s *ListingStore) GetByID(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	l, ok := s.m.listings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return l.Clone(), nil
}

func (s *ListingStore) FindByAgentID(_ context.Context, agentID uuid.UUID) (*models.Listing, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	id, ok := s.m.byAgent[agentID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.m.listings[id].Clone(), nil
}

func (s *ListingStore) List(_ context.Context, f models.ListingFilter) ([]*models.Listing, error) {
	s.m.mu.RLock()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var list []*models.Listing
	for _, l := range s.m.listings {
		if !f.IncludeInactive && !l.IsActive {
			continue
		}
		if f.Category != "" && l.Category != f.Category {
			continue
		}
		if f.SellerID != uuid.Nil && l.SellerID != f.SellerID {
			continue
		}
		if q != "" && !matchesQuery(l, q) {
			continue
		}
		list = append(list, l.Clone())
	}
	s.m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if f.Sort == models.SortRating && list[i].Rating.Average != list[j].Rating.Average {
			return list[i].Rating.Average > list[j].Rating.Average
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if f.Offset > 0 {
		if f.Offset >= len(list) {
			return nil, nil
		}
		list = list[f.Offset:]
	}
	if f.Limit > 0 && len(list) > f.Limit {
		list = list[:f.Limit]
	}
	return list, nil
}

func matchesQuery(l *models.Listing, q string) bool {
	if strings.Contains(strings.ToLower(l.Title), q) || strings.Contains(strings.ToLower(l.Description), q) {
		return true
	}
	for _, t := range l.Tags {
		if strings.ToLower(t) == q {
			return true
		}
	}
	return false
}

func (s *ListingStore) Update(_ context.Context, l *models.Listing) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cur, ok := s.m.listings[l.ID]
	if !ok {
		return models.ErrNotFound
	}
	cur.Title = l.Title
	cur.Description = l.Description
	cur.Category = l.Category
	cur.Tags = append(make([]string, 0, len(l.Tags)), l.Tags...)
	cur.Pricing = l.Pricing
	cur.IsActive = l.IsActive
	cur.UpdatedAt = l.UpdatedAt
	return nil
}

func (s *ListingStore) ApplyProjection(_ context.Context, id uuid.UUID, title, description string, p pricing.Pricing) (*models.Listing, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	l, ok := s.m.listings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	l.Title = title
	l.Description = description
	l.Pricing = p
	l.UpdatedAt = s.m.now().UTC()
	return l.Clone(), nil
}

func (s *ListingStore) SetRating(_ context.Context, id uuid.UUID, r models.Rating) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	l, ok := s.m.listings[id]
	if !ok {
		return models.ErrNotFound
	}
	l.Rating = r
	return nil
}

func (s *ListingStore) Delete(_ context.Context, id uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	l, ok := s.m.listings[id]
	if !ok {
		return models.ErrNotFound
	}
	delete(s.m.byAgent, l.AgentID)
	delete(s.m.listings, id)
	return nil
}

// ---------------------------------------------------------------------------
// Reviews
// ---------------------------------------------------------------------------

type ReviewStore struct{ m *Memory }

func (s *ReviewStore) Create(_ context.Context, r *models.Review) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.reviews[r.ListingID] {
		if existing.UserID == r.UserID {
			return models.ErrDuplicateReview
		}
	}
	cp := *r
	s.m.reviews[r.ListingID] = append(s.m.reviews[r.ListingID], &cp)
	return nil
}

func (s *ReviewStore) Exists(_ context.Context, userID, listingID uuid.UUID) (bool, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, r := range s.m.reviews[listingID] {
		if r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *ReviewStore) ListByListing(_ context.Context, listingID uuid.UUID) ([]*models.Review, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	list := make([]*models.Review, 0, len(s.m.reviews[listingID]))
	for _, r := range s.m.reviews[listingID] {
		cp := *r
		list = append(list, &cp)
	}
	return list, nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type UserStore struct{ m *Memory }

func (s *UserStore) Create(_ context.Context, u *models.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := s.m.byEmail[key]; ok {
		return models.ErrDuplicateEmail
	}
	cp := *u
	s.m.users[u.ID] = &cp
	s.m.byEmail[key] = u.ID
	return nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	id, ok := s.m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *s.m.users[id]
	return &cp, nil
}

func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// ---------------------------------------------------------------------------
// Purchases
// ---------------------------------------------------------------------------

type PurchaseStore struct{ m *Memory }

// RecordPurchase stores p and bumps the listing's purchase stats. A known event id records nothing.
func (s *PurchaseStore) RecordPurchase(_ context.Context, p *models.Purchase) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.purchases[p.EventID]; ok {
		return false, nil
	}
	l, ok := s.m.listings[p.ListingID]
	if !ok {
		return false, models.ErrNotFound
	}
	cp := *p
	s.m.purchases[p.EventID] = &cp
	l.Purchases++
	l.Revenue = l.Revenue.Add(p.Amount)
	return true, nil
}

func (s *PurchaseStore) HasPurchased(_ context.Context, userID, agentID uuid.UUID) (bool, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, p := range s.m.purchases {
		if p.UserID == userID && p.AgentID == agentID {
			return true, nil
		}
	}
	return false, nil
}

func (s *PurchaseStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Purchase, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var list []*models.Purchase
	for _, p := range s.m.purchases {
		if p.UserID == userID {
			cp := *p
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}
