package payments

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func grantBody(eventType string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_123",
		"type": %q,
		"amountTotal": 999,
		"currency": "usd",
		"metadata": {"agentId": %q, "userId": %q, "listingId": %q}
	}`, eventType, uuid.NewString(), uuid.NewString(), uuid.NewString()))
}

func TestParseEvent_Valid(t *testing.T) {
	ev, err := ParseEvent(grantBody(EventCheckoutCompleted))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ev.Grants() || ev.AmountTotal != 999 || ev.Currency != "usd" {
		t.Errorf("unexpected event %+v", ev)
	}
	if _, _, _, err := ev.IDs(); err != nil {
		t.Errorf("ids: %v", err)
	}
}

func TestParseEvent_Rejects(t *testing.T) {
	tests := map[string]string{
		"not json":         `{`,
		"missing id":       `{"type":"invoice.paid"}`,
		"missing metadata": `{"id":"evt_1","type":"invoice.paid","amountTotal":100}`,
		"missing amount":   fmt.Sprintf(`{"id":"evt_1","type":"checkout.session.completed","metadata":{"agentId":%q,"userId":%q,"listingId":%q}}`, uuid.NewString(), uuid.NewString(), uuid.NewString()),
		"negative amount":  fmt.Sprintf(`{"id":"evt_1","type":"invoice.paid","amountTotal":-1,"metadata":{"agentId":%q,"userId":%q,"listingId":%q}}`, uuid.NewString(), uuid.NewString(), uuid.NewString()),
		"partial metadata": `{"id":"evt_1","type":"invoice.paid","amountTotal":1,"metadata":{"agentId":"x"}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseEvent([]byte(body)); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("expected invalid event, got %v", err)
			}
		})
	}
}

func TestParseEvent_NonGrantingNeedsNoMetadata(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"id":"evt_9","type":"customer.created"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Grants() {
		t.Error("customer.created should not grant access")
	}
}

func TestSignature_RoundTrip(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	now := time.Unix(1_700_000_000, 0)
	header := Sign(body, "whsec", now)

	if err := VerifySignature(body, header, "whsec", 5*time.Minute, now.Add(time.Minute)); err != nil {
		t.Errorf("expected valid signature, got %v", err)
	}
	if err := VerifySignature(body, header, "other", 5*time.Minute, now); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("wrong secret: expected invalid signature, got %v", err)
	}
	if err := VerifySignature([]byte(`{"id":"evt_2"}`), header, "whsec", 5*time.Minute, now); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("tampered body: expected invalid signature, got %v", err)
	}
	if err := VerifySignature(body, header, "whsec", 5*time.Minute, now.Add(10*time.Minute)); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("stale: expected invalid signature, got %v", err)
	}
	if err := VerifySignature(body, "garbage", "whsec", 0, now); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("malformed: expected invalid signature, got %v", err)
	}
}
