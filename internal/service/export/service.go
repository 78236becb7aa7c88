// Package export orchestrates one run: fetch documents for a window,
// assemble revenue items, derive ledger entries and hand them to the sink
// in deterministic order. Runs are pure recomputation; nothing is persisted
// between them, so re-running a window yields byte-identical output.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/datevrec/datevrec/internal/accrual"
	"github.com/datevrec/datevrec/internal/errs"
	"github.com/datevrec/datevrec/internal/ledger"
	"github.com/datevrec/datevrec/internal/payment"
	"github.com/datevrec/datevrec/internal/report"
	"github.com/datevrec/datevrec/internal/revenue"
	"github.com/datevrec/datevrec/internal/source"
)

// Sink consumes the ordered ledger records of a run.
type Sink interface {
	Write(ctx context.Context, entries []ledger.Entry) error
}

// Discard is a no-op sink.
type Discard struct{}

func (Discard) Write(context.Context, []ledger.Entry) error { return nil }

// Service wires source, assemblers, builders and sink into a run pipeline.
type Service struct {
	src     source.Source
	asm     *revenue.Assembler
	builder *accrual.Builder
	pay     *payment.Builder
	sink    Sink
	log     *slog.Logger
}

func New(src source.Source, asm *revenue.Assembler, builder *accrual.Builder, pay *payment.Builder, sink Sink, log *slog.Logger) *Service {
	return &Service{src: src, asm: asm, builder: builder, pay: pay, sink: sink, log: log}
}

// Run processes the half-open window [from, to). Unsupported documents are
// skipped with a warning; configuration gaps and recognition invariant
// failures abort before anything is written.
func (s *Service) Run(ctx context.Context, from, to time.Time) (*report.Run, error) {
	started := time.Now()
	run := report.NewRun(from, to)

	docs, err := s.src.Documents(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}

	type placed struct {
		entry  ledger.Entry
		docIdx int
		seq    int
	}
	var all []placed

	for docIdx, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Payouts have no revenue side, only the transit-to-bank sweep.
		if doc.Kind == source.KindPayout {
			entries, err := s.pay.Payout(doc)
			if err != nil {
				if errors.Is(err, errs.ErrUnsupportedDocument) {
					s.log.Warn("skipping document", "doc", doc.ID, "reason", err.Error())
					run.Skipped(doc.ID, err.Error())
					documentsTotal.WithLabelValues(string(report.StatusSkipped)).Inc()
					continue
				}
				return nil, err
			}
			for seq := range entries {
				entries[seq].StampID(seq)
				all = append(all, placed{entry: entries[seq], docIdx: docIdx, seq: seq})
			}
			run.Processed(doc.ID, len(entries), false)
			documentsTotal.WithLabelValues(string(report.StatusProcessed)).Inc()
			continue
		}

		item, warnings, err := s.asm.Assemble(doc)
		if err != nil {
			if errors.Is(err, errs.ErrUnsupportedDocument) {
				s.log.Warn("skipping document", "doc", doc.ID, "reason", err.Error())
				run.Skipped(doc.ID, err.Error())
				documentsTotal.WithLabelValues(string(report.StatusSkipped)).Inc()
				continue
			}
			return nil, err
		}
		for _, w := range warnings {
			run.Warn(w.DocumentID, w.Message)
		}

		entries, err := s.builder.Records(item)
		if err != nil {
			return nil, err
		}
		if doc.Kind == source.KindCharge {
			cash, err := s.pay.Charge(doc, item.Props)
			if err != nil {
				return nil, err
			}
			entries = append(entries, cash...)
		}
		for seq := range entries {
			entries[seq].StampID(seq)
			all = append(all, placed{entry: entries[seq], docIdx: docIdx, seq: seq})
		}

		degraded := len(warnings) > 0
		run.Processed(doc.ID, len(entries), degraded)
		if degraded {
			documentsTotal.WithLabelValues(string(report.StatusDegraded)).Inc()
		} else {
			documentsTotal.WithLabelValues(string(report.StatusProcessed)).Inc()
		}
	}

	// Entries group by calendar month first, then keep source-document
	// order and within-document sequence, so callers filtering by month get
	// stable results.
	sort.SliceStable(all, func(i, j int) bool {
		mi, mj := all[i].entry.MonthKey(), all[j].entry.MonthKey()
		if mi != mj {
			return mi < mj
		}
		if all[i].docIdx != all[j].docIdx {
			return all[i].docIdx < all[j].docIdx
		}
		return all[i].seq < all[j].seq
	})
	ordered := make([]ledger.Entry, len(all))
	for i, p := range all {
		ordered[i] = p.entry
	}

	if err := s.sink.Write(ctx, ordered); err != nil {
		return nil, fmt.Errorf("write ledger records: %w", err)
	}

	run.Finished = time.Now()
	entriesTotal.Add(float64(len(ordered)))
	warningsTotal.Add(float64(len(run.Warnings)))
	runDuration.Observe(time.Since(started).Seconds())

	s.log.Info("run complete",
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"),
		"documents", len(docs),
		"entries", len(ordered),
		"warnings", len(run.Warnings),
	)
	return run, nil
}
