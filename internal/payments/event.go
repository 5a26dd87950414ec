package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Event types that grant access.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventInvoicePaid       = "invoice.paid"
)

// SignatureHeader carries "t=<unix seconds>,v1=<hex hmac-sha256 of "<t>.<body>">".
const SignatureHeader = "Webhook-Signature"

var (
	ErrInvalidEvent     = errors.New("invalid payment event")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

//go:embed event.schema.json
var eventSchemaJSON string

var eventSchema = jsonschema.MustCompileString("https://schemas.local/payments/event.json", eventSchemaJSON)

type EventMetadata struct {
	AgentID   string `json:"agentId"`
	UserID    string `json:"userId"`
	ListingID string `json:"listingId"`
}

// Event is the inbound webhook payload. AmountTotal is in minor units (cents).
type Event struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	Metadata    EventMetadata `json:"metadata"`
	AmountTotal int64         `json:"amountTotal"`
	Currency    string        `json:"currency"`
}

// Grants reports whether the event type grants access.
func (e *Event) Grants() bool {
	return e.Type == EventCheckoutCompleted || e.Type == EventInvoicePaid
}

// IDs parses the metadata ids.
func (e *Event) IDs() (agentID, userID, listingID uuid.UUID, err error) {
	if agentID, err = uuid.Parse(e.Metadata.AgentID); err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, fmt.Errorf("%w: metadata.agentId", ErrInvalidEvent)
	}
	if userID, err = uuid.Parse(e.Metadata.UserID); err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, fmt.Errorf("%w: metadata.userId", ErrInvalidEvent)
	}
	if listingID, err = uuid.Parse(e.Metadata.ListingID); err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, fmt.Errorf("%w: metadata.listingId", ErrInvalidEvent)
	}
	return agentID, userID, listingID, nil
}

// ParseEvent validates body against the event schema and decodes it.
func ParseEvent(body []byte) (*Event, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := eventSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return &ev, nil
}

// Sign produces a SignatureHeader value for body at time t.
func Sign(body []byte, secret string, t time.Time) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	return "t=" + ts + ",v1=" + computeMAC(ts, body, secret)
}

// VerifySignature checks header against body. Timestamps older than tolerance are rejected.
func VerifySignature(body []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(unix, 0))
		if age > tolerance || age < -tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}
	want := computeMAC(ts, body, secret)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}

func computeMAC(ts string, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
