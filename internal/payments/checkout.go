package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mode is the hosted checkout billing mode.
type Mode string

const (
	ModePayment      Mode = "payment"
	ModeSubscription Mode = "subscription"
)

type LineItem struct {
	Name     string
	Amount   decimal.Decimal // major units
	Currency string
}

type Metadata struct {
	AgentID   uuid.UUID
	UserID    uuid.UUID
	ListingID uuid.UUID
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Checkout creates hosted checkout sessions.
type Checkout interface {
	CreateCheckout(ctx context.Context, item LineItem, mode Mode, md Metadata) (*Session, error)
}

// HostedCheckout talks to a Stripe-compatible checkout sessions endpoint.
type HostedCheckout struct {
	baseURL    string
	apiKey     string
	successURL string
	cancelURL  string
	httpClient *http.Client
}

type HostedCheckoutConfig struct {
	BaseURL    string
	APIKey     string
	SuccessURL string
	CancelURL  string
}

func NewHostedCheckout(cfg HostedCheckoutConfig) *HostedCheckout {
	return &HostedCheckout{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HostedCheckout) CreateCheckout(ctx context.Context, item LineItem, mode Mode, md Metadata) (*Session, error) {
	form := url.Values{}
	form.Set("mode", string(mode))
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(item.Currency))
	form.Set("line_items[0][price_data][product_data][name]", item.Name)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(item.Amount.Shift(2).Round(0).IntPart(), 10))
	if mode == ModeSubscription {
		form.Set("line_items[0][price_data][recurring][interval]", "month")
	}
	form.Set("metadata[agentId]", md.AgentID.String())
	form.Set("metadata[userId]", md.UserID.String())
	form.Set("metadata[listingId]", md.ListingID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error calling checkout: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("checkout returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("checkout returned invalid JSON: %w", err)
	}
	if s.URL == "" {
		return nil, fmt.Errorf("checkout returned no url")
	}
	return &s, nil
}
