package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase grants a user access to a paid agent. EventID is the payment event
// that produced it and is unique, so replays record nothing.
type Purchase struct {
	ID        uuid.UUID       `json:"id"`
	EventID   string          `json:"event_id"`
	UserID    uuid.UUID       `json:"user_id"`
	AgentID   uuid.UUID       `json:"agent_id"`
	ListingID uuid.UUID       `json:"listing_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}
