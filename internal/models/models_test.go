package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/pricing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{fmt.Errorf("%w: name", ErrMissingRequiredField), KindMissingRequiredField},
		{fmt.Errorf("update: %w", ErrForbidden), KindForbidden},
		{pricing.ErrInvalidPricingAmount, KindInvalidPricingAmount},
		{fmt.Errorf("%w: %q", pricing.ErrInvalidPricingType, "x"), KindInvalidPricingType},
		{ErrAlreadyListed, KindAlreadyListed},
		{fmt.Errorf("%w: timeout", ErrProvider), KindProvider},
		{errors.New("connection reset"), KindInternal},
	}
	for _, tc := range tests {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory(" customer support ")
	if !ok || c != "Customer Support" {
		t.Errorf("got %q %v", c, ok)
	}
	if _, ok := ParseCategory("Gaming"); ok {
		t.Error("expected unknown category to be rejected")
	}
}

func TestListingClone_TagsIndependent(t *testing.T) {
	l := &Listing{Tags: []string{"a"}}
	cp := l.Clone()
	cp.Tags[0] = "b"
	if l.Tags[0] != "a" {
		t.Error("clone shares tag storage with original")
	}
}
