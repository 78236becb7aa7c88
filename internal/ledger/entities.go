package ledger

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

// Side represents the posting marker of a ledger record (DATEV
// Soll/Haben-Kennzeichen). The amount of a record is always absolute;
// the side says whether Account is debited or credited against
// ContraAccount.
type Side string

const (
	// SideDebit books Account in Soll against ContraAccount.
	SideDebit Side = "S"
	// SideCredit books Account in Haben against ContraAccount.
	SideCredit Side = "H"
)

// Period is a closed interval [Start, End] in the accounting timezone,
// inclusive of both endpoints. A degenerate period (Start == End) stands
// for a point-in-time, non-recurring charge.
type Period struct {
	Start time.Time
	End   time.Time
}

// IsPoint reports whether the period covers a single instant.
func (p Period) IsPoint() bool { return p.Start.Equal(p.End) }

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool { return p.Start.IsZero() && p.End.IsZero() }

// Valid reports whether Start <= End.
func (p Period) Valid() bool { return !p.End.Before(p.Start) }

// At returns the degenerate period covering exactly t.
func At(t time.Time) Period { return Period{Start: t, End: t} }

// ReversalKind enumerates the legal events that undo part or all of a
// document's effect after finalization.
type ReversalKind string

const (
	ReversalVoided        ReversalKind = "voided"
	ReversalUncollectible ReversalKind = "uncollectible"
	ReversalCredited      ReversalKind = "credited"
)

// Reversal overlays a later correction on an otherwise immutable revenue
// item. At most one reversal may be present per item.
type Reversal struct {
	Kind ReversalKind
	At   time.Time
	// Amount is the gross amount undone. Equals the item's AmountWithTax for
	// voids and uncollectibles, and the credited portion for credit notes.
	Amount decimal.Decimal
}

// AccountingProps carries the country/entity specific account mapping for
// one revenue item. It is resolved by an external collaborator; the
// recognition core treats it as opaque input.
type AccountingProps struct {
	CustomerAccount string
	RevenueAccount  string
	TaxKeyInvoice   string
	TaxKeyPayment   string
	VatID           string
	Country         string
	VatRegion       string
	TaxExempt       string
}

// LineItem is one revenue-bearing line within a document.
type LineItem struct {
	Index         int
	Text          string
	Period        Period
	AmountNet     decimal.Decimal
	AmountWithTax decimal.Decimal
}

// RevenueItem is the unit the recognition engine operates on. It is derived
// fresh from its source document on every run; AmountWithTax is immutable
// once created and only Reversal overlays a correction.
type RevenueItem struct {
	ID      string
	Number  string
	Created time.Time
	Text    string

	AmountNet     decimal.Decimal
	AmountWithTax decimal.Decimal
	Currency      string

	Props    AccountingProps
	Lines    []LineItem
	Reversal *Reversal

	// RevenueType is "Prepaid" when recognition extends more than a day past
	// Created, else "PayPerUse". Reporting only, no effect on recognition.
	RevenueType string
	Recurring   bool
}

// Ref returns the human-readable document reference used in posting texts.
func (r RevenueItem) Ref() string {
	if r.Number != "" {
		return r.Number
	}
	return r.ID
}

// Entry is a single double-entry posting. Records are produced in matched
// pairs by construction: Account and ContraAccount always balance at Date.
type Entry struct {
	ID            uuid.UUID
	Date          time.Time
	Amount        decimal.Decimal
	Side          Side
	Account       string
	ContraAccount string
	TaxKey        string
	Text          string
	DocumentRef   string
	Currency      string
}

// Normalized returns the entry with a non-negative amount, flipping the
// posting side when the amount is negative.
func (e Entry) Normalized() Entry {
	if !e.Amount.IsNeg() {
		return e
	}
	e.Amount = e.Amount.Abs()
	if e.Side == SideDebit {
		e.Side = SideCredit
	} else {
		e.Side = SideDebit
	}
	return e
}

// MonthKey returns the calendar month of the posting date as "2006-01".
func (e Entry) MonthKey() string { return e.Date.Format("2006-01") }

// entryNamespace seeds deterministic posting GUIDs so re-exports of the
// same documents are byte identical.
var entryNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("datevrec/entry"))

// StampID assigns a deterministic GUID derived from the document reference
// and the entry's sequence number within that document.
func (e *Entry) StampID(seq int) {
	e.ID = uuid.NewSHA1(entryNamespace, []byte(e.DocumentRef+"#"+strconv.Itoa(seq)))
}

// TruncateText shortens a posting text to the DATEV limit.
func TruncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.ToValidUTF8(s[:max], "")
}
