// Package payment derives the cash-side postings of a run. Settled charges
// move money into the provider's transit account against the customer,
// processing fees leave the transit account, refunds flow back to the
// customer, and payouts sweep the transit balance into the bank account.
// Revenue recognition never touches these accounts; the two sub-ledgers
// only meet on the customer account.
package payment

import (
	"fmt"
	"log/slog"

	"github.com/govalues/decimal"

	"github.com/datevrec/datevrec/internal/errs"
	"github.com/datevrec/datevrec/internal/ledger"
	"github.com/datevrec/datevrec/internal/source"
)

// Builder turns charge and payout documents into cash-side ledger entries.
// Transit names the provider clearing account (SKR03: 1201), Fees the
// processing fee expense account (70025) and Bank the company bank
// account (1360) payouts arrive on.
type Builder struct {
	transit string
	fees    string
	bank    string
	log     *slog.Logger
}

func New(transit, fees, bank string, log *slog.Logger) *Builder {
	return &Builder{transit: transit, fees: fees, bank: bank, log: log}
}

// Charge produces the settlement postings for one charge document: the
// payment into the transit account, the processing fee if the provider
// reported one, and one refund posting per credit note. Props must be the
// resolved accounting props of the document's customer.
func (b *Builder) Charge(doc source.Document, props ledger.AccountingProps) ([]ledger.Entry, error) {
	if b.transit == "" {
		return nil, fmt.Errorf("transit account not configured: %w", errs.ErrConfig)
	}
	if props.CustomerAccount == "" {
		return nil, fmt.Errorf("charge %s has no customer account: %w", doc.ID, errs.ErrConfig)
	}

	amount, err := decimal.New(doc.TotalMinor, 2)
	if err != nil {
		return nil, err
	}

	var entries []ledger.Entry
	if !amount.IsZero() {
		entries = append(entries, ledger.Entry{
			Date:          doc.Created,
			Amount:        amount,
			Side:          ledger.SideDebit,
			Account:       b.transit,
			ContraAccount: props.CustomerAccount,
			TaxKey:        props.TaxKeyPayment,
			Text:          "Zahlung (" + doc.ID + ")",
			DocumentRef:   doc.ID,
			Currency:      "EUR",
		})
	}

	if doc.FeeMinor != 0 {
		if b.fees == "" {
			return nil, fmt.Errorf("fee account not configured: %w", errs.ErrConfig)
		}
		fee, err := decimal.New(doc.FeeMinor, 2)
		if err != nil {
			return nil, err
		}
		text := doc.FeeDescription
		if text == "" {
			text = "Zahlungsgebuehr"
		}
		entries = append(entries, ledger.Entry{
			Date:          doc.Created,
			Amount:        fee,
			Side:          ledger.SideDebit,
			Account:       b.fees,
			ContraAccount: b.transit,
			Text:          text + " (" + doc.ID + ")",
			DocumentRef:   doc.ID,
			Currency:      "EUR",
		})
	}

	for _, note := range doc.CreditNotes {
		refunded, err := decimal.New(note.AmountMinor, 2)
		if err != nil {
			return nil, err
		}
		if refunded.IsZero() {
			continue
		}
		entries = append(entries, ledger.Entry{
			Date:          note.CreatedAt,
			Amount:        refunded,
			Side:          ledger.SideDebit,
			Account:       props.CustomerAccount,
			ContraAccount: b.transit,
			Text:          "Rueckzahlung (" + doc.ID + ")",
			DocumentRef:   doc.ID,
			Currency:      "EUR",
		})
	}
	return entries, nil
}

// Payout produces the sweep posting for one payout document: the paid-out
// amount leaves the transit account and arrives on the bank account at the
// arrival date. Unpaid payouts and foreign currencies are not booked.
func (b *Builder) Payout(doc source.Document) ([]ledger.Entry, error) {
	if doc.Status != "paid" {
		return nil, fmt.Errorf("payout %s is %s: %w", doc.ID, doc.Status, errs.ErrUnsupportedDocument)
	}
	total, err := doc.Total()
	if err != nil {
		return nil, fmt.Errorf("payout %s: %w", doc.ID, err)
	}
	if total.Curr().Code() != "EUR" {
		return nil, fmt.Errorf("payout %s in %s, only EUR is booked: %w",
			doc.ID, total.Curr().Code(), errs.ErrUnsupportedDocument)
	}
	if b.transit == "" || b.bank == "" {
		return nil, fmt.Errorf("transit and bank accounts are required for payouts: %w", errs.ErrConfig)
	}

	amount, err := decimal.New(doc.TotalMinor, 2)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, nil
	}

	text := "Auszahlung " + doc.ID
	if doc.Description != "" {
		text += " / " + doc.Description
	}
	if b.log != nil {
		b.log.Debug("booking payout sweep", "payout", doc.ID, "amount", amount.String())
	}
	return []ledger.Entry{{
		Date:          doc.Created,
		Amount:        amount,
		Side:          ledger.SideDebit,
		Account:       b.bank,
		ContraAccount: b.transit,
		Text:          text,
		DocumentRef:   doc.ID,
		Currency:      "EUR",
	}}, nil
}
