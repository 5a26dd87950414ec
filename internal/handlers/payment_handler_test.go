package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/payments"
)

type countingEnqueuer struct {
	mu sync.Mutex
	n  int
}

func (e *countingEnqueuer) EnqueueGrant(context.Context, payments.GrantPurchaseArgs) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.n++
	return nil
}

func paidEvent() []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_7","type":"checkout.session.completed","amountTotal":999,"currency":"usd","metadata":{"agentId":%q,"userId":%q,"listingId":%q}}`,
		uuid.NewString(), uuid.NewString(), uuid.NewString()))
}

func postWebhook(h *PaymentHandler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/payments/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(payments.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)
	return rec
}

func TestWebhook_RefusedWithoutSecret(t *testing.T) {
	enq := &countingEnqueuer{}
	h := &PaymentHandler{
		Payments: payments.NewService(nil, enq, nil),
		Logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}

	rec := postWebhook(h, paidEvent(), "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if enq.n != 0 {
		t.Errorf("unsigned event granted access")
	}
}

func TestWebhook_Signature(t *testing.T) {
	enq := &countingEnqueuer{}
	h := &PaymentHandler{
		Payments:  payments.NewService(nil, enq, nil),
		Secret:    "whsec",
		Tolerance: time.Minute,
		Logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	body := paidEvent()

	if rec := postWebhook(h, body, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing signature: expected 400, got %d", rec.Code)
	}
	if rec := postWebhook(h, body, payments.Sign(body, "forged", time.Now())); rec.Code != http.StatusBadRequest {
		t.Errorf("forged signature: expected 400, got %d", rec.Code)
	}
	if enq.n != 0 {
		t.Fatalf("rejected events must not grant, got %d", enq.n)
	}
	if rec := postWebhook(h, body, payments.Sign(body, "whsec", time.Now())); rec.Code != http.StatusOK {
		t.Errorf("signed event: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if enq.n != 1 {
		t.Errorf("expected 1 grant, got %d", enq.n)
	}
}
