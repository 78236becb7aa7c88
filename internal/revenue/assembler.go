// Package revenue normalizes raw billing documents into the revenue items
// the recognition engine operates on. Periods are resolved from structured
// line data first, then from text parsing; anything still ambiguous
// degrades to immediate recognition with a visible warning rather than an
// aborted run.
package revenue

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/datevrec/datevrec/internal/accounts"
	"github.com/datevrec/datevrec/internal/dateparse"
	"github.com/datevrec/datevrec/internal/errs"
	"github.com/datevrec/datevrec/internal/ledger"
	"github.com/datevrec/datevrec/internal/report"
	"github.com/datevrec/datevrec/internal/source"
)

// Assembler maps documents to revenue items.
type Assembler struct {
	resolver accounts.Resolver
	zone     *time.Location
	log      *slog.Logger
}

func New(resolver accounts.Resolver, zone *time.Location, log *slog.Logger) *Assembler {
	if zone == nil {
		zone = time.UTC
	}
	return &Assembler{resolver: resolver, zone: zone, log: log}
}

// Assemble builds the revenue item for one document. Returned warnings
// mark degraded lines; an error wrapping errs.ErrUnsupportedDocument means
// the document must be skipped, one wrapping errs.ErrConfig aborts the run.
func (a *Assembler) Assemble(doc source.Document) (ledger.RevenueItem, []report.Warning, error) {
	if doc.Status == "draft" {
		return ledger.RevenueItem{}, nil, fmt.Errorf("draft document %s: %w", doc.ID, errs.ErrUnsupportedDocument)
	}

	total, err := doc.Total()
	if err != nil {
		return ledger.RevenueItem{}, nil, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	if total.Curr().Code() != "EUR" {
		return ledger.RevenueItem{}, nil, fmt.Errorf(
			"document %s in %s, only EUR is booked: %w", doc.ID, total.Curr().Code(), errs.ErrUnsupportedDocument)
	}
	totalDec, err := minorToDec(total)
	if err != nil {
		return ledger.RevenueItem{}, nil, err
	}
	taxDec, err := decFromMinor(doc.TaxMinor)
	if err != nil {
		return ledger.RevenueItem{}, nil, err
	}
	netDec, err := totalDec.Sub(taxDec)
	if err != nil {
		return ledger.RevenueItem{}, nil, err
	}

	reversal, err := a.reversal(doc, totalDec)
	if err != nil {
		return ledger.RevenueItem{}, nil, err
	}

	props, err := a.resolver.Resolve(doc.Customer, doc)
	if err != nil {
		return ledger.RevenueItem{}, nil, err
	}

	created := doc.Created.In(a.zone)
	prefix := docPrefix(doc)

	var warnings []report.Warning
	lines := make([]ledger.LineItem, 0, len(doc.Lines))
	for i, line := range doc.Lines {
		li, warn, err := a.line(doc, line, i, created, prefix, totalDec, netDec)
		if err != nil {
			return ledger.RevenueItem{}, nil, err
		}
		if warn != "" {
			warnings = append(warnings, report.Warning{DocumentID: doc.ID, Message: warn})
			if a.log != nil {
				a.log.Warn("unknown period for line item", "doc", doc.ID, "line", i, "text", line.Description)
			}
		}
		lines = append(lines, li)
	}

	item := ledger.RevenueItem{
		ID:            doc.ID,
		Number:        doc.Number,
		Created:       created,
		Text:          prefix,
		AmountNet:     netDec,
		AmountWithTax: totalDec,
		Currency:      "EUR",
		Props:         props,
		Lines:         lines,
		Reversal:      reversal,
		Recurring:     doc.Subscription != "",
		RevenueType:   "PayPerUse",
	}
	if n := len(lines); n > 0 {
		if lines[n-1].Period.End.After(created.Add(24 * time.Hour)) {
			item.RevenueType = "Prepaid"
		}
	}
	return item, warnings, nil
}

func (a *Assembler) line(doc source.Document, line source.Line, idx int, created time.Time, prefix string, totalDec, netDec decimal.Decimal) (ledger.LineItem, string, error) {
	text := prefix
	if line.Description != "" {
		text = prefix + " / " + line.Description
	}

	var (
		period ledger.Period
		warn   string
	)
	switch {
	case line.PeriodStart != nil && line.PeriodEnd != nil && !line.PeriodStart.Equal(*line.PeriodEnd):
		period = ledger.Period{Start: line.PeriodStart.In(a.zone), End: line.PeriodEnd.In(a.zone)}
	default:
		p, err := dateparse.Parse(line.Description, created, a.zone)
		if err == nil {
			period = p
		} else if errors.Is(err, errs.ErrAmbiguousPeriod) {
			warn = fmt.Sprintf("line %d: no service period in %q, recognizing at document date", idx, line.Description)
			period = ledger.At(created)
		} else {
			return ledger.LineItem{}, "", err
		}
	}

	amount, err := decFromMinor(line.AmountMinor)
	if err != nil {
		return ledger.LineItem{}, "", err
	}
	net, gross := amount, amount
	switch {
	case line.TaxMinor != 0:
		tax, err := decFromMinor(line.TaxMinor)
		if err != nil {
			return ledger.LineItem{}, "", err
		}
		gross, err = amount.Add(tax)
		if err != nil {
			return ledger.LineItem{}, "", err
		}
	case doc.SubtotalMinor != 0:
		subtotal, err := decFromMinor(doc.SubtotalMinor)
		if err != nil {
			return ledger.LineItem{}, "", err
		}
		net, err = proportion(amount, netDec, subtotal)
		if err != nil {
			return ledger.LineItem{}, "", err
		}
		gross, err = proportion(amount, totalDec, subtotal)
		if err != nil {
			return ledger.LineItem{}, "", err
		}
	}

	return ledger.LineItem{
		Index:         idx,
		Text:          text,
		Period:        period,
		AmountNet:     net,
		AmountWithTax: gross,
	}, warn, nil
}

// reversal derives the optional legal reversal event. A document carrying
// more than one reversal shape is not modeled and must be skipped.
func (a *Assembler) reversal(doc source.Document, totalDec decimal.Decimal) (*ledger.Reversal, error) {
	events := 0
	if doc.VoidedAt != nil {
		events++
	}
	if doc.UncollectibleAt != nil {
		events++
	}
	if len(doc.CreditNotes) > 0 {
		events++
	}
	if events == 0 {
		return nil, nil
	}
	if events > 1 {
		return nil, fmt.Errorf("document %s carries multiple reversal events: %w", doc.ID, errs.ErrUnsupportedDocument)
	}
	if len(doc.CreditNotes) > 1 {
		return nil, fmt.Errorf("document %s has %d credit notes, refund fan-out is not modeled: %w",
			doc.ID, len(doc.CreditNotes), errs.ErrUnsupportedDocument)
	}

	switch {
	case doc.VoidedAt != nil:
		return &ledger.Reversal{Kind: ledger.ReversalVoided, At: doc.VoidedAt.In(a.zone), Amount: totalDec}, nil
	case doc.UncollectibleAt != nil:
		return &ledger.Reversal{Kind: ledger.ReversalUncollectible, At: doc.UncollectibleAt.In(a.zone), Amount: totalDec}, nil
	default:
		note := doc.CreditNotes[0]
		credited, err := decFromMinor(note.AmountMinor)
		if err != nil {
			return nil, err
		}
		if credited.Cmp(totalDec) > 0 {
			return nil, fmt.Errorf("credit note %s exceeds document total: %w", note.ID, errs.ErrUnsupportedDocument)
		}
		return &ledger.Reversal{Kind: ledger.ReversalCredited, At: note.CreatedAt.In(a.zone), Amount: credited}, nil
	}
}

func docPrefix(doc source.Document) string {
	switch doc.Kind {
	case source.KindCharge:
		if doc.Number != "" {
			return "Receipt " + doc.Number
		}
		return "Charge " + doc.ID
	default:
		if doc.Number != "" {
			return "Invoice " + doc.Number
		}
		return "Invoice " + doc.ID
	}
}

// proportion computes amount * share / base, rounded to cents.
func proportion(amount, share, base decimal.Decimal) (decimal.Decimal, error) {
	prod, err := amount.Mul(share)
	if err != nil {
		return decimal.Decimal{}, err
	}
	q, err := prod.Quo(base)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return q.Round(2), nil
}

func minorToDec(a money.Amount) (decimal.Decimal, error) {
	units, ok := a.MinorUnits()
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("amount %s overflows minor units: %w", a, errs.ErrInvalid)
	}
	return decimal.New(units, 2)
}

func decFromMinor(minor int64) (decimal.Decimal, error) {
	return decimal.New(minor, 2)
}
