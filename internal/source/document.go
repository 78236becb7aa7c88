// Package source supplies typed billing documents to the recognition core.
// Retrieval mechanics (pagination, rate limits, field expansion) stay
// behind the Source interface; everything handed to the core is already a
// fully resolved, strongly typed document. Amounts arrive in minor units
// exactly as the provider reports them.
package source

import (
	"context"
	"strings"
	"time"

	"github.com/govalues/money"

	"github.com/datevrec/datevrec/internal/meta"
)

// Kind distinguishes the document families the exporter books.
type Kind string

const (
	KindInvoice Kind = "invoice"
	KindCharge  Kind = "charge"
	// KindPayout is the provider's sweep of the transit balance into the
	// company bank account. Payouts carry no customer and no lines.
	KindPayout Kind = "payout"
)

// Customer is the resolved customer profile attached to a document. The
// provider reference is already expanded; the core never fetches.
type Customer struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email,omitempty"`
	Country   string        `json:"country"`
	VatID     string        `json:"vat_id,omitempty"`
	TaxExempt string        `json:"tax_exempt,omitempty"`
	Metadata  meta.Metadata `json:"metadata,omitempty"`
}

// Line is one revenue-bearing position. The structured service period is
// optional; absent or degenerate periods fall back to text parsing.
type Line struct {
	Description string     `json:"description"`
	AmountMinor int64      `json:"amount_minor"`
	TaxMinor    int64      `json:"tax_minor,omitempty"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

// CreditNote records a post-payment partial or full refund of a document.
type CreditNote struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	AmountMinor int64     `json:"amount_minor"`
}

// Document is the source-of-truth record a run derives everything from.
// Created is the accounting date the document legally took effect
// (finalization or payment), not the creation timestamp.
type Document struct {
	ID       string `json:"id"`
	Number   string `json:"number,omitempty"`
	Kind     Kind   `json:"kind"`
	Status   string `json:"status"`
	Currency string `json:"currency"`

	Created       time.Time `json:"created"`
	TotalMinor    int64     `json:"total_minor"`
	TaxMinor      int64     `json:"tax_minor,omitempty"`
	SubtotalMinor int64     `json:"subtotal_minor,omitempty"`

	// FeeMinor is the provider's processing fee taken from the settled
	// amount, reported on the balance transaction of a charge.
	FeeMinor       int64  `json:"fee_minor,omitempty"`
	FeeDescription string `json:"fee_description,omitempty"`
	// Description annotates documents without lines, payouts mostly.
	Description string `json:"description,omitempty"`

	VoidedAt        *time.Time   `json:"voided_at,omitempty"`
	UncollectibleAt *time.Time   `json:"uncollectible_at,omitempty"`
	CreditNotes     []CreditNote `json:"credit_notes,omitempty"`

	Lines        []Line        `json:"lines"`
	Customer     Customer      `json:"customer"`
	Subscription string        `json:"subscription,omitempty"`
	Metadata     meta.Metadata `json:"metadata,omitempty"`
}

// Total returns the gross document amount as a currency value.
func (d Document) Total() (money.Amount, error) {
	return money.NewAmountFromMinorUnits(currencyCode(d.Currency), d.TotalMinor)
}

// Tax returns the document tax amount as a currency value.
func (d Document) Tax() (money.Amount, error) {
	return money.NewAmountFromMinorUnits(currencyCode(d.Currency), d.TaxMinor)
}

func currencyCode(c string) string {
	if c == "" {
		return "EUR"
	}
	// provider reports lowercase ISO codes
	return strings.ToUpper(c)
}

// Source yields documents whose legal date falls in the half-open window
// [from, to), in stable provider order.
type Source interface {
	Documents(ctx context.Context, from, to time.Time) ([]Document, error)
}
