package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/payments"
)

// PaymentHandler receives payment provider webhooks.
type PaymentHandler struct {
	Payments  *payments.Service
	Secret    string // empty refuses every webhook
	Tolerance time.Duration
	Logger    *slog.Logger
}

// Webhook handles POST /api/v1/payments/webhook.
// Verify signature -> validate event -> enqueue grant -> 200.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "could not read body")
		return
	}
	if h.Secret == "" {
		h.Logger.Warn("webhook refused: no signing secret configured")
		writeErrorCode(w, http.StatusServiceUnavailable, "webhook_disabled", "webhooks are not configured")
		return
	}
	err = payments.VerifySignature(body, r.Header.Get(payments.SignatureHeader), h.Secret, h.Tolerance, time.Now())
	if err != nil {
		h.Logger.Warn("webhook signature rejected", "error", err)
		writeErrorCode(w, http.StatusBadRequest, "invalid_signature", "invalid signature")
		return
	}
	ev, err := payments.ParseEvent(body)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}
	if err := h.Payments.HandleEvent(r.Context(), ev); err != nil {
		if errors.Is(err, payments.ErrInvalidEvent) {
			writeErrorCode(w, http.StatusBadRequest, "invalid_event", err.Error())
			return
		}
		writeError(w, h.Logger, "handle payment event", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
