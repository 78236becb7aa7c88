package payment

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/datevrec/datevrec/internal/errs"
	"github.com/datevrec/datevrec/internal/ledger"
	"github.com/datevrec/datevrec/internal/source"
)

var testProps = ledger.AccountingProps{
	CustomerAccount: "10042",
	RevenueAccount:  "8400",
	TaxKeyPayment:   "0",
}

func testBuilder() *Builder {
	return New("1201", "70025", "1360", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func day(d int) time.Time {
	return time.Date(2021, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestChargePostsPaymentAndFee(t *testing.T) {
	doc := source.Document{
		ID:             "ch_1",
		Kind:           source.KindCharge,
		Status:         "paid",
		Currency:       "eur",
		Created:        day(10),
		TotalMinor:     5000,
		FeeMinor:       173,
		FeeDescription: "Stripe processing fees",
	}
	entries, err := testBuilder().Charge(doc, testProps)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	pay := entries[0]
	if pay.Account != "1201" || pay.ContraAccount != "10042" || pay.Side != ledger.SideDebit {
		t.Errorf("payment posting %+v", pay)
	}
	if pay.Amount.String() != "50.00" || !pay.Date.Equal(day(10)) {
		t.Errorf("payment amount %s at %s", pay.Amount, pay.Date)
	}
	if pay.Text != "Zahlung (ch_1)" {
		t.Errorf("payment text %q", pay.Text)
	}

	fee := entries[1]
	if fee.Account != "70025" || fee.ContraAccount != "1201" {
		t.Errorf("fee posting %+v", fee)
	}
	if fee.Amount.String() != "1.73" {
		t.Errorf("fee amount %s", fee.Amount)
	}
	if fee.Text != "Stripe processing fees (ch_1)" {
		t.Errorf("fee text %q", fee.Text)
	}
}

func TestChargeRefundFlowsBackToCustomer(t *testing.T) {
	refundedAt := time.Date(2021, time.February, 5, 0, 0, 0, 0, time.UTC)
	doc := source.Document{
		ID:         "ch_1",
		Kind:       source.KindCharge,
		Status:     "paid",
		Currency:   "eur",
		Created:    day(10),
		TotalMinor: 5000,
		CreditNotes: []source.CreditNote{{
			ID:          "re_1",
			CreatedAt:   refundedAt,
			AmountMinor: 2000,
		}},
	}
	entries, err := testBuilder().Charge(doc, testProps)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	refund := entries[1]
	if refund.Account != "10042" || refund.ContraAccount != "1201" {
		t.Errorf("refund posting %+v", refund)
	}
	if refund.Amount.String() != "20.00" || !refund.Date.Equal(refundedAt) {
		t.Errorf("refund amount %s at %s", refund.Amount, refund.Date)
	}
	if refund.Text != "Rueckzahlung (ch_1)" {
		t.Errorf("refund text %q", refund.Text)
	}
}

func TestChargeWithoutFeeSkipsFeePosting(t *testing.T) {
	doc := source.Document{
		ID:         "ch_1",
		Kind:       source.KindCharge,
		Status:     "paid",
		Currency:   "eur",
		Created:    day(10),
		TotalMinor: 5000,
	}
	entries, err := testBuilder().Charge(doc, testProps)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

func TestChargeRequiresConfiguredAccounts(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	doc := source.Document{ID: "ch_1", Created: day(10), TotalMinor: 5000, FeeMinor: 173}

	if _, err := New("", "70025", "1360", log).Charge(doc, testProps); !errors.Is(err, errs.ErrConfig) {
		t.Errorf("missing transit account: err = %v", err)
	}
	if _, err := New("1201", "", "1360", log).Charge(doc, testProps); !errors.Is(err, errs.ErrConfig) {
		t.Errorf("missing fee account: err = %v", err)
	}
	if _, err := testBuilder().Charge(doc, ledger.AccountingProps{}); !errors.Is(err, errs.ErrConfig) {
		t.Errorf("missing customer account: err = %v", err)
	}
}

func TestPayoutSweepsTransitToBank(t *testing.T) {
	doc := source.Document{
		ID:          "po_1",
		Kind:        source.KindPayout,
		Status:      "paid",
		Currency:    "eur",
		Created:     day(28),
		TotalMinor:  123456,
		Description: "weekly sweep",
	}
	entries, err := testBuilder().Payout(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Account != "1360" || e.ContraAccount != "1201" || e.Side != ledger.SideDebit {
		t.Errorf("payout posting %+v", e)
	}
	if e.Amount.String() != "1234.56" {
		t.Errorf("payout amount %s", e.Amount)
	}
	if e.Text != "Auszahlung po_1 / weekly sweep" {
		t.Errorf("payout text %q", e.Text)
	}
}

func TestPayoutRejectsUnpaidAndForeignCurrency(t *testing.T) {
	cases := map[string]source.Document{
		"unpaid": {ID: "po_1", Kind: source.KindPayout, Status: "in_transit",
			Currency: "eur", Created: day(28), TotalMinor: 1000},
		"foreign currency": {ID: "po_2", Kind: source.KindPayout, Status: "paid",
			Currency: "usd", Created: day(28), TotalMinor: 1000},
	}
	for name, doc := range cases {
		if _, err := testBuilder().Payout(doc); !errors.Is(err, errs.ErrUnsupportedDocument) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestPayoutZeroAmountBooksNothing(t *testing.T) {
	doc := source.Document{ID: "po_1", Kind: source.KindPayout, Status: "paid",
		Currency: "eur", Created: day(28)}
	entries, err := testBuilder().Payout(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}
