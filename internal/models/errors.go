package models

import (
	"errors"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
)

var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidField         = errors.New("invalid field")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrAlreadyListed        = errors.New("agent already listed")
	ErrDuplicateReview      = errors.New("review already submitted for this listing")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrProvider             = errors.New("provider error")
	ErrDuplicateEmail       = errors.New("email already registered")
)

// Kind names an error category for callers that translate errors into responses.
type Kind string

const (
	KindMissingRequiredField Kind = "missing_required_field"
	KindInvalidField         Kind = "invalid_field"
	KindInvalidPricingType   Kind = "invalid_pricing_type"
	KindInvalidPricingAmount Kind = "invalid_pricing_amount"
	KindUnauthorized         Kind = "unauthorized"
	KindForbidden            Kind = "forbidden"
	KindNotFound             Kind = "not_found"
	KindAlreadyListed        Kind = "already_listed"
	KindDuplicateReview      Kind = "duplicate_review"
	KindInvalidRating        Kind = "invalid_rating"
	KindProvider             Kind = "provider_error"
	KindDuplicateEmail       Kind = "duplicate_email"
	KindInternal             Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrMissingRequiredField, KindMissingRequiredField},
	{ErrInvalidField, KindInvalidField},
	{pricing.ErrInvalidPricingType, KindInvalidPricingType},
	{pricing.ErrInvalidPricingAmount, KindInvalidPricingAmount},
	{ErrUnauthorized, KindUnauthorized},
	{ErrForbidden, KindForbidden},
	{ErrNotFound, KindNotFound},
	{ErrAlreadyListed, KindAlreadyListed},
	{ErrDuplicateReview, KindDuplicateReview},
	{ErrInvalidRating, KindInvalidRating},
	{ErrProvider, KindProvider},
	{ErrDuplicateEmail, KindDuplicateEmail},
}

// KindOf classifies err. Anything outside the taxonomy is KindInternal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
