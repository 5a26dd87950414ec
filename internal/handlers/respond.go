package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(k models.Kind) int {
	switch k {
	case models.KindMissingRequiredField, models.KindInvalidField, models.KindInvalidPricingType,
		models.KindInvalidPricingAmount, models.KindInvalidRating:
		return http.StatusBadRequest
	case models.KindUnauthorized:
		return http.StatusUnauthorized
	case models.KindForbidden:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindAlreadyListed, models.KindDuplicateReview, models.KindDuplicateEmail:
		return http.StatusConflict
	case models.KindProvider:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError translates a domain error. Internal errors are logged and replaced
// with a generic message.
func writeError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	kind := models.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	switch {
	case kind == models.KindInternal:
		log.Error(op, "error", err)
		msg = "internal error"
	case kind == models.KindProvider:
		log.Warn(op, "error", err)
		msg = "agent provider failed"
	}
	writeErrorCode(w, status, string(kind), msg)
}

// decodeJSON reads a JSON body. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) {
		writeErrorCode(w, http.StatusBadRequest, "invalid_json", "request body required")
		return false
	}
	writeErrorCode(w, http.StatusBadRequest, "invalid_json", "invalid JSON")
	return false
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue(name)))
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_id", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
