package export

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/datevrec/datevrec/internal/accounts"
	"github.com/datevrec/datevrec/internal/accrual"
	"github.com/datevrec/datevrec/internal/ledger"
	"github.com/datevrec/datevrec/internal/payment"
	"github.com/datevrec/datevrec/internal/report"
	"github.com/datevrec/datevrec/internal/revenue"
	"github.com/datevrec/datevrec/internal/source"
)

type captureSink struct {
	entries []ledger.Entry
}

func (c *captureSink) Write(_ context.Context, entries []ledger.Entry) error {
	c.entries = append(c.entries, entries...)
	return nil
}

var testProps = ledger.AccountingProps{
	CustomerAccount: "10001",
	RevenueAccount:  "8400",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testService(sink Sink, docs ...source.Document) *Service {
	log := discardLogger()
	asm := revenue.New(accounts.Static{Props: testProps}, time.UTC, log)
	builder := accrual.New("990", log)
	pay := payment.New("1201", "70025", "1360", log)
	return New(source.NewMemory(docs...), asm, builder, pay, sink, log)
}

func tptr(t time.Time) *time.Time { return &t }

func invoiceDoc(id string, created time.Time, totalMinor int64, periodEnd time.Time) source.Document {
	return source.Document{
		ID:         id,
		Kind:       source.KindInvoice,
		Status:     "paid",
		Currency:   "eur",
		Created:    created,
		TotalMinor: totalMinor,
		Lines: []source.Line{{
			Description: "Annual license",
			AmountMinor: totalMinor,
			PeriodStart: tptr(time.Date(created.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)),
			PeriodEnd:   tptr(periodEnd),
		}},
		Customer: source.Customer{ID: "cus_" + id, Country: "DE"},
	}
}

func window(y int) (time.Time, time.Time) {
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(y+1, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func TestRunOrdersByMonthThenDocument(t *testing.T) {
	// two overlapping annual invoices; their releases interleave by month
	doc1 := invoiceDoc("in_1", time.Date(2021, time.January, 15, 0, 0, 0, 0, time.UTC),
		12000, time.Date(2021, time.December, 31, 23, 59, 59, 0, time.UTC))
	doc2 := invoiceDoc("in_2", time.Date(2021, time.January, 20, 0, 0, 0, 0, time.UTC),
		6000, time.Date(2021, time.June, 30, 23, 59, 59, 0, time.UTC))

	sink := &captureSink{}
	from, to := window(2021)
	run, err := testService(sink, doc1, doc2).Run(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	if run.Entries != len(sink.entries) {
		t.Errorf("report counts %d entries, sink saw %d", run.Entries, len(sink.entries))
	}

	lastMonth := ""
	for i, e := range sink.entries {
		if m := e.MonthKey(); m < lastMonth {
			t.Fatalf("entry %d breaks month order: %s after %s", i, m, lastMonth)
		} else {
			lastMonth = m
		}
	}
	// within January, doc1's postings come before doc2's
	var janRefs []string
	for _, e := range sink.entries {
		if e.MonthKey() == "2021-01" {
			janRefs = append(janRefs, e.DocumentRef)
		}
	}
	if len(janRefs) < 4 {
		t.Fatalf("too few January entries: %v", janRefs)
	}
	for i := 1; i < len(janRefs); i++ {
		if janRefs[i-1] == "in_2" && janRefs[i] == "in_1" {
			t.Fatalf("document order broken in January: %v", janRefs)
		}
	}
}

func TestRunStampsDeterministicIDs(t *testing.T) {
	doc := invoiceDoc("in_1", time.Date(2021, time.January, 15, 0, 0, 0, 0, time.UTC),
		12000, time.Date(2021, time.December, 31, 23, 59, 59, 0, time.UTC))
	from, to := window(2021)

	first := &captureSink{}
	if _, err := testService(first, doc).Run(context.Background(), from, to); err != nil {
		t.Fatal(err)
	}
	second := &captureSink{}
	if _, err := testService(second, doc).Run(context.Background(), from, to); err != nil {
		t.Fatal(err)
	}
	if len(first.entries) == 0 || len(first.entries) != len(second.entries) {
		t.Fatalf("entry counts %d / %d", len(first.entries), len(second.entries))
	}
	for i := range first.entries {
		if first.entries[i].ID != second.entries[i].ID {
			t.Errorf("entry %d GUID differs between runs", i)
		}
	}
}

func TestRunSkipsUnsupportedDocuments(t *testing.T) {
	good := invoiceDoc("in_1", time.Date(2021, time.January, 15, 0, 0, 0, 0, time.UTC),
		12000, time.Date(2021, time.December, 31, 23, 59, 59, 0, time.UTC))
	bad := invoiceDoc("in_2", time.Date(2021, time.February, 1, 0, 0, 0, 0, time.UTC),
		5000, time.Date(2021, time.June, 30, 23, 59, 59, 0, time.UTC))
	bad.Currency = "usd"

	sink := &captureSink{}
	from, to := window(2021)
	run, err := testService(sink, good, bad).Run(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	processed, degraded, skipped := run.Counts()
	if processed != 1 || degraded != 0 || skipped != 1 {
		t.Errorf("counts %d/%d/%d", processed, degraded, skipped)
	}
	for _, e := range sink.entries {
		if e.DocumentRef == "in_2" {
			t.Error("skipped document leaked entries")
		}
	}
	if len(run.Warnings) != 1 {
		t.Errorf("got %d warnings, want 1", len(run.Warnings))
	}
}

func TestRunDegradedDocumentStillBooks(t *testing.T) {
	doc := invoiceDoc("in_1", time.Date(2021, time.January, 15, 0, 0, 0, 0, time.UTC),
		12000, time.Date(2021, time.December, 31, 23, 59, 59, 0, time.UTC))
	doc.Lines[0].PeriodStart = nil
	doc.Lines[0].PeriodEnd = nil
	doc.Lines[0].Description = "Consulting services"

	sink := &captureSink{}
	from, to := window(2021)
	run, err := testService(sink, doc).Run(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Outcomes) != 1 || run.Outcomes[0].Status != report.StatusDegraded {
		t.Fatalf("outcomes %+v", run.Outcomes)
	}
	// immediate recognition: just the base posting, no deferral
	if len(sink.entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(sink.entries))
	}
}

func TestRunBooksPaymentSidePostings(t *testing.T) {
	charge := source.Document{
		ID:             "ch_1",
		Kind:           source.KindCharge,
		Status:         "paid",
		Currency:       "eur",
		Created:        time.Date(2021, time.January, 10, 0, 0, 0, 0, time.UTC),
		TotalMinor:     5000,
		FeeMinor:       173,
		FeeDescription: "Stripe processing fees",
		CreditNotes: []source.CreditNote{{
			ID:          "cn_1",
			CreatedAt:   time.Date(2021, time.February, 5, 0, 0, 0, 0, time.UTC),
			AmountMinor: 2000,
		}},
		Customer: source.Customer{ID: "cus_1", Country: "DE"},
	}
	payout := source.Document{
		ID:          "po_1",
		Kind:        source.KindPayout,
		Status:      "paid",
		Currency:    "eur",
		Created:     time.Date(2021, time.February, 10, 0, 0, 0, 0, time.UTC),
		TotalMinor:  30000,
		Description: "weekly sweep",
	}

	sink := &captureSink{}
	from, to := window(2021)
	run, err := testService(sink, charge, payout).Run(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	processed, degraded, skipped := run.Counts()
	if processed != 2 || degraded != 0 || skipped != 0 {
		t.Fatalf("counts %d/%d/%d", processed, degraded, skipped)
	}

	// charge: base posting, credit reversal, payment, fee, refund; payout: sweep
	if len(sink.entries) != 6 {
		t.Fatalf("got %d entries, want 6", len(sink.entries))
	}
	onAccount := func(acc string) int {
		n := 0
		for _, e := range sink.entries {
			if e.Account == acc {
				n++
			}
		}
		return n
	}
	if got := onAccount("1201"); got != 1 {
		t.Errorf("transit debit postings = %d, want 1", got)
	}
	if got := onAccount("70025"); got != 1 {
		t.Errorf("fee postings = %d, want 1", got)
	}
	if got := onAccount("1360"); got != 1 {
		t.Errorf("bank postings = %d, want 1", got)
	}
	for _, e := range sink.entries {
		if e.Account == "1360" {
			if e.ContraAccount != "1201" || e.Amount.String() != "300.00" {
				t.Errorf("payout posting %+v", e)
			}
			if e.MonthKey() != "2021-02" {
				t.Errorf("payout booked in %s", e.MonthKey())
			}
		}
		if e.Account == "70025" && e.ContraAccount != "1201" {
			t.Errorf("fee posting %+v", e)
		}
	}
}

func TestRunSkipsUnpaidPayout(t *testing.T) {
	payout := source.Document{
		ID:         "po_1",
		Kind:       source.KindPayout,
		Status:     "in_transit",
		Currency:   "eur",
		Created:    time.Date(2021, time.February, 10, 0, 0, 0, 0, time.UTC),
		TotalMinor: 30000,
	}
	sink := &captureSink{}
	from, to := window(2021)
	run, err := testService(sink, payout).Run(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	processed, _, skipped := run.Counts()
	if processed != 0 || skipped != 1 {
		t.Errorf("counts %d processed, %d skipped", processed, skipped)
	}
	if len(sink.entries) != 0 {
		t.Errorf("unpaid payout leaked %d entries", len(sink.entries))
	}
}

func TestRunWindowFiltersDocuments(t *testing.T) {
	in := invoiceDoc("in_1", time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC),
		3000, time.Date(2021, time.March, 31, 23, 59, 59, 0, time.UTC))
	out := invoiceDoc("in_2", time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC),
		3000, time.Date(2022, time.March, 31, 23, 59, 59, 0, time.UTC))

	sink := &captureSink{}
	from, to := window(2021)
	run, err := testService(sink, in, out).Run(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Outcomes) != 1 || run.Outcomes[0].DocumentID != "in_1" {
		t.Errorf("outcomes %+v", run.Outcomes)
	}
}
