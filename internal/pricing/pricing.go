package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Type is the billing model of an agent or listing.
type Type string

const (
	Free         Type = "free"
	OneTime      Type = "one-time"
	Subscription Type = "subscription"
)

// DefaultCurrency is applied when a pricing input carries no currency.
const DefaultCurrency = "USD"

// Amounts are kept to cents.
const amountPlaces = 2

var (
	ErrInvalidPricingType   = errors.New("invalid pricing type")
	ErrInvalidPricingAmount = errors.New("invalid pricing amount")
)

func (t Type) Valid() bool {
	switch t {
	case Free, OneTime, Subscription:
		return true
	}
	return false
}

// Mode selects how a non-free input without a usable positive amount is treated.
type Mode int

const (
	// Strict rejects the input with ErrInvalidPricingAmount. Used by create, list and pricing updates.
	Strict Mode = iota
	// Lenient yields amount 0. Used for display-safe reads of stored data.
	Lenient
)

// Pricing is the canonical {type, amount, currency} shape. Amount is zero iff Type is Free
// (Lenient reads of broken data are the only exception).
type Pricing struct {
	Type     Type            `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Default is the pricing assigned to agents created without one.
func Default() Pricing {
	return Pricing{Type: Free, Amount: decimal.Zero, Currency: DefaultCurrency}
}

func (p Pricing) IsFree() bool { return p.Type == Free }

// Equal compares by value; decimal amounts with different exponents compare equal.
func (p Pricing) Equal(o Pricing) bool {
	return p.Type == o.Type && p.Currency == o.Currency && p.Amount.Equal(o.Amount)
}

// Input returns p in input form, so Normalize(p.Input(), m) round-trips.
func (p Pricing) Input() Input {
	return Input{Type: string(p.Type), Amount: Amount(p.Amount.String()), Currency: p.Currency}
}

func (p Pricing) String() string {
	if p.IsFree() {
		return string(Free)
	}
	return fmt.Sprintf("%s %s %s", p.Type, p.Amount.StringFixed(amountPlaces), p.Currency)
}

// MarshalJSON renders amount as a JSON number.
func (p Pricing) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     Type        `json:"type"`
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
	}{p.Type, json.Number(p.Amount.String()), p.Currency})
}

// Amount is the raw textual amount of a pricing input. It decodes from a JSON number or string.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(str))
		return nil
	}
	*a = Amount(s)
	return nil
}

func (a Amount) decimal() (decimal.Decimal, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return decimal.Zero, ErrInvalidPricingAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPricingAmount, s)
	}
	return d, nil
}

// AmountOf converts a decimal into input form.
func AmountOf(d decimal.Decimal) Amount { return Amount(d.String()) }

// Input is an unvalidated pricing payload.
type Input struct {
	Type     string `json:"type"`
	Amount   Amount `json:"amount"`
	Currency string `json:"currency"`
}

// Envelope accepts pricing either nested under "pricing" or flat at the top level
// ("pricing_type", "price", "currency"). Request types embed it.
type Envelope struct {
	Pricing     *Input `json:"pricing"`
	PricingType string `json:"pricing_type"`
	Price       Amount `json:"price"`
	Currency    string `json:"currency"`
}

// Resolve returns the pricing carried by the envelope. The nested shape wins when both are present.
func (e Envelope) Resolve() (Input, bool) {
	if e.Pricing != nil {
		in := *e.Pricing
		if in.Currency == "" {
			in.Currency = e.Currency
		}
		return in, true
	}
	if e.PricingType != "" || e.Price != "" {
		return Input{Type: e.PricingType, Amount: e.Price, Currency: e.Currency}, true
	}
	return Input{}, false
}

// FromStored canonicalizes pricing read back from storage. A non-free row without a
// positive amount reads with amount 0 and an unknown type reads as the default.
func FromStored(p Pricing) Pricing {
	n, err := Normalize(p.Input(), Lenient)
	if err != nil {
		return Default()
	}
	return n
}

// Normalize validates and canonicalizes in. It is pure and idempotent.
func Normalize(in Input, mode Mode) (Pricing, error) {
	t := Type(strings.ToLower(strings.TrimSpace(in.Type)))
	if !t.Valid() {
		return Pricing{}, fmt.Errorf("%w: %q", ErrInvalidPricingType, in.Type)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if t == Free {
		return Pricing{Type: Free, Amount: decimal.Zero, Currency: currency}, nil
	}

	amount, err := in.Amount.decimal()
	if err == nil {
		amount = amount.Round(amountPlaces)
	}
	if err != nil || !amount.IsPositive() {
		if mode == Lenient {
			return Pricing{Type: t, Amount: decimal.Zero, Currency: currency}, nil
		}
		if err != nil {
			return Pricing{}, err
		}
		return Pricing{}, fmt.Errorf("%w: %s pricing requires amount > 0", ErrInvalidPricingAmount, t)
	}
	return Pricing{Type: t, Amount: amount, Currency: currency}, nil
}
