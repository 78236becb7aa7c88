// Package accrual derives double-entry postings from revenue items. The
// full amount is booked against the customer and revenue accounts on the
// legal document date; any portion earned in a later calendar month is
// parked in a deferred-revenue clearing account and released month by
// month, so the ledger stays consistent across accounting periods.
package accrual

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/govalues/decimal"

	"github.com/datevrec/datevrec/internal/ledger"
	"github.com/datevrec/datevrec/internal/recognition"
)

// Builder turns revenue items into ledger entries. Clearing names the
// deferred-revenue clearing account (SKR03: 990, passive RAP).
type Builder struct {
	clearing string
	log      *slog.Logger
}

func New(clearing string, log *slog.Logger) *Builder {
	return &Builder{clearing: clearing, log: log}
}

// Records produces all postings for one revenue item: the base posting at
// the created date, the optional document-level reversal posting, and the
// per-line deferral sub-ledger including its unwind when the item carries a
// reversal event. Output is pure and deterministic; entry IDs are stamped
// later, once run-wide ordering is fixed.
func (b *Builder) Records(item ledger.RevenueItem) ([]ledger.Entry, error) {
	var entries []ledger.Entry

	if !item.AmountWithTax.IsZero() {
		entries = append(entries, ledger.Entry{
			Date:          item.Created,
			Amount:        item.AmountWithTax,
			Side:          ledger.SideDebit,
			Account:       item.Props.CustomerAccount,
			ContraAccount: item.Props.RevenueAccount,
			TaxKey:        item.Props.TaxKeyInvoice,
			Text:          item.Text,
			DocumentRef:   item.ID,
			Currency:      item.Currency,
		})
	}

	if rev := item.Reversal; rev != nil && !rev.Amount.IsZero() {
		// Revenue reversal and deferred-revenue unwind are separate ledger
		// concerns; this posting reverses the base booking, the per-line
		// passes below unwind the parked forward months.
		entries = append(entries, ledger.Entry{
			Date:          rev.At,
			Amount:        rev.Amount,
			Side:          ledger.SideCredit,
			Account:       item.Props.CustomerAccount,
			ContraAccount: item.Props.RevenueAccount,
			TaxKey:        item.Props.TaxKeyInvoice,
			Text:          reversalLabel(rev.Kind) + " " + item.Text,
			DocumentRef:   item.ID,
			Currency:      item.Currency,
		})
	}

	for _, li := range item.Lines {
		deferral, err := b.deferral(item, li, item.Created, li.AmountWithTax)
		if err != nil {
			return nil, fmt.Errorf("line %d of %s: %w", li.Index, item.ID, err)
		}
		if rev := item.Reversal; rev != nil {
			share, err := reversedShare(item, li)
			if err != nil {
				return nil, fmt.Errorf("line %d of %s: %w", li.Index, item.ID, err)
			}
			unwind, err := b.deferral(item, li, rev.At, share.Neg())
			if err != nil {
				return nil, fmt.Errorf("unwind line %d of %s: %w", li.Index, item.ID, err)
			}
			deferral = append(deferral, unwind...)
		}
		entries = append(entries, suppressNoop(deferral)...)
	}
	return entries, nil
}

// deferral emits the park/release pair set for the portion of amount whose
// recognition month starts strictly after bookDate. A negated amount
// produces the mirror-image unwind pass.
func (b *Builder) deferral(item ledger.RevenueItem, li ledger.LineItem, bookDate time.Time, amount decimal.Decimal) ([]ledger.Entry, error) {
	if amount.IsZero() || li.Period.IsZero() {
		return nil, nil
	}
	slices, err := recognition.SplitMonths(li.Period, []decimal.Decimal{amount})
	if err != nil {
		return nil, err
	}

	baseSum := decimal.MustNew(0, 2)
	var forward []recognition.MonthSlice
	for _, s := range slices {
		if s.Start.After(bookDate) {
			forward = append(forward, s)
			continue
		}
		baseSum, err = baseSum.Add(s.Amounts[0])
		if err != nil {
			return nil, err
		}
	}
	forwardAmount, err := amount.Sub(baseSum)
	if err != nil {
		return nil, err
	}
	if len(forward) == 0 || forwardAmount.IsZero() {
		return nil, nil
	}
	if b.log != nil {
		b.log.Debug("parking deferred revenue",
			"doc", item.ID, "line", li.Index, "amount", forwardAmount.String(), "months", len(forward))
	}

	entries := []ledger.Entry{{
		Date:          bookDate,
		Amount:        forwardAmount,
		Side:          ledger.SideDebit,
		Account:       item.Props.RevenueAccount,
		ContraAccount: b.clearing,
		Text:          li.Text + " / Rueckstellung " + span(forward),
		DocumentRef:   item.ID,
		Currency:      item.Currency,
	}}
	for _, s := range forward {
		entries = append(entries, ledger.Entry{
			Date:          monthStart(s.Start),
			Amount:        s.Amounts[0],
			Side:          ledger.SideDebit,
			Account:       b.clearing,
			ContraAccount: item.Props.RevenueAccount,
			Text:          li.Text + " / Aufloesung Rueckstellung " + s.Start.Format("Jan 2006"),
			DocumentRef:   item.ID,
			Currency:      item.Currency,
		})
	}
	return entries, nil
}

// reversedShare is the gross amount of one line undone by the item's
// reversal: for partial credit notes on multi-line documents the credited
// amount prorated by the line's share of the document total, otherwise the
// full line amount.
func reversedShare(item ledger.RevenueItem, li ledger.LineItem) (decimal.Decimal, error) {
	rev := item.Reversal
	if rev.Kind != ledger.ReversalCredited || len(item.Lines) < 2 {
		return li.AmountWithTax, nil
	}
	if item.AmountWithTax.IsZero() {
		return decimal.MustNew(0, 2), nil
	}
	prod, err := li.AmountWithTax.Mul(rev.Amount)
	if err != nil {
		return decimal.Decimal{}, err
	}
	q, err := prod.Quo(item.AmountWithTax)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return q.Round(2), nil
}

// suppressNoop drops calendar months whose park/release entries net to
// exactly zero (forward postings fully offset by an unwind), and drops the
// whole sub-ledger when the surviving entries sit in a single month: then
// nothing crosses an accounting-period boundary and no parking was needed.
func suppressNoop(entries []ledger.Entry) []ledger.Entry {
	if len(entries) == 0 {
		return nil
	}

	type pair struct{ month, account, contra string }
	nets := make(map[pair]decimal.Decimal)
	for _, e := range entries {
		k := pair{e.MonthKey(), e.Account, e.ContraAccount}
		net, ok := nets[k]
		if !ok {
			net = decimal.MustNew(0, 2)
		}
		net, _ = net.Add(e.Amount)
		nets[k] = net
	}
	monthDead := make(map[string]bool)
	for _, e := range entries {
		m := e.MonthKey()
		if _, seen := monthDead[m]; !seen {
			monthDead[m] = true
		}
		if !nets[pair{m, e.Account, e.ContraAccount}].IsZero() {
			monthDead[m] = false
		}
	}

	var kept []ledger.Entry
	months := make(map[string]bool)
	for _, e := range entries {
		if monthDead[e.MonthKey()] {
			continue
		}
		kept = append(kept, e)
		months[e.MonthKey()] = true
	}
	if len(months) <= 1 {
		return nil
	}
	return kept
}

func reversalLabel(kind ledger.ReversalKind) string {
	if kind == ledger.ReversalCredited {
		return "Erstattung"
	}
	return "Storno"
}

func span(slices []recognition.MonthSlice) string {
	first := slices[0].Start.Format("Jan 2006")
	last := slices[len(slices)-1].Start.Format("Jan 2006")
	if first == last {
		return first
	}
	return first + " - " + last
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
