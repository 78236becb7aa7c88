package accrual

import (
	"fmt"
	"time"

	"github.com/govalues/decimal"

	"github.com/datevrec/datevrec/internal/errs"
	"github.com/datevrec/datevrec/internal/ledger"
)

// Schedule describes a manual accrual for a fixed-term contract without
// per-day period data: the amount is spread over a whole number of months
// starting at FirstRevenueDate.
type Schedule struct {
	InvoiceDate      time.Time
	FirstRevenueDate time.Time
	Months           int
	Amount           decimal.Decimal
	CustomerAccount  string
	RevenueAccount   string
	Text             string
	DocumentRef      string
	Currency         string
	// IncludeInvoice also emits the original customer/revenue posting.
	IncludeInvoice bool
}

// Manual builds the posting schedule. Monthly tranches are floored to the
// cent and the final month absorbs the remainder, so the released total
// always equals the parked amount exactly.
func (b *Builder) Manual(s Schedule) ([]ledger.Entry, error) {
	if s.Months < 1 {
		return nil, fmt.Errorf("accrual over %d months: %w", s.Months, errs.ErrInvalid)
	}
	if s.CustomerAccount == "" || s.RevenueAccount == "" {
		return nil, fmt.Errorf("accrual requires customer and revenue accounts: %w", errs.ErrConfig)
	}

	months, err := decimal.New(int64(s.Months), 0)
	if err != nil {
		return nil, err
	}
	q, err := s.Amount.Quo(months)
	if err != nil {
		return nil, err
	}
	perPeriod := q.Floor(2)

	var entries []ledger.Entry
	if s.IncludeInvoice {
		entries = append(entries, ledger.Entry{
			Date:          s.InvoiceDate,
			Amount:        s.Amount,
			Side:          ledger.SideDebit,
			Account:       s.CustomerAccount,
			ContraAccount: s.RevenueAccount,
			Text:          s.Text,
			DocumentRef:   s.DocumentRef,
			Currency:      s.Currency,
		})
	}

	var (
		accrue     decimal.Decimal
		accrueText string
		booked     int
		periodDate time.Time
	)
	if s.InvoiceDate.Before(s.FirstRevenueDate) {
		accrue = s.Amount
		accrueText = fmt.Sprintf("%s / Rueckstellung (%d Monate)", s.Text, s.Months)
		booked = 0
		periodDate = s.FirstRevenueDate
	} else {
		accrue, err = s.Amount.Sub(perPeriod)
		if err != nil {
			return nil, err
		}
		accrueText = fmt.Sprintf("%s / Rueckstellung Anteilig (%d/%d Monate)", s.Text, s.Months-1, s.Months)
		booked = 1
		periodDate = addMonth(s.FirstRevenueDate)
	}

	entries = append(entries, ledger.Entry{
		Date:          s.InvoiceDate,
		Amount:        accrue,
		Side:          ledger.SideDebit,
		Account:       s.RevenueAccount,
		ContraAccount: b.clearing,
		Text:          accrueText,
		DocumentRef:   s.DocumentRef,
		Currency:      s.Currency,
	})

	remaining := accrue
	for booked < s.Months {
		amount := perPeriod
		if booked == s.Months-1 {
			amount = remaining
		}
		entries = append(entries, ledger.Entry{
			Date:          periodDate,
			Amount:        amount,
			Side:          ledger.SideDebit,
			Account:       b.clearing,
			ContraAccount: s.RevenueAccount,
			Text:          fmt.Sprintf("%s / Aufloesung Rueckstellung Monat %d/%d", s.Text, booked+1, s.Months),
			DocumentRef:   s.DocumentRef,
			Currency:      s.Currency,
		})
		periodDate = addMonth(periodDate)
		booked++
		remaining, err = remaining.Sub(amount)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// addMonth advances one calendar month, clamping to the shorter month's
// last day (Jan 31 -> Feb 28).
func addMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	lastOfNext := time.Date(y, m+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastOfNext {
		d = lastOfNext
	}
	return time.Date(y, m+1, d, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}
