// Package recognition apportions billed amounts across the calendar months
// a service period spans. All arithmetic is exact decimal; the split of an
// amount always sums back to that amount to the cent.
package recognition

import (
	"fmt"
	"time"

	"github.com/govalues/decimal"

	"github.com/datevrec/datevrec/internal/errs"
	"github.com/datevrec/datevrec/internal/ledger"
)

// MonthSlice is the portion of a period falling into one calendar month.
// Start is the first covered instant of the month (the period start for the
// first slice), End the last covered instant (the period end for the last
// slice). Amounts holds the per-month share of each input amount, index for
// index.
type MonthSlice struct {
	Start   time.Time
	End     time.Time
	Amounts []decimal.Decimal
}

// SplitMonths walks the calendar months overlapping the period and weighs
// each input amount by the month's share of the total duration, rounded
// half-even to cents. Rounding drift is folded into the last slice so that
// every amount is conserved exactly; a last slice driven to all-zero by the
// fold is dropped. All amounts share identical time weights, which lets net
// and gross views of one line item split in lock-step.
//
// Durations are measured on the local wall clock with an end-of-day of
// 23:59:59, so a calendar day always weighs 86400 seconds regardless of
// DST transitions.
func SplitMonths(period ledger.Period, amounts []decimal.Decimal) ([]MonthSlice, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("period end %s before start %s: %w",
			period.End.Format(time.RFC3339), period.Start.Format(time.RFC3339), errs.ErrInvalid)
	}
	if len(amounts) == 0 {
		return nil, fmt.Errorf("no amounts to split: %w", errs.ErrInvalid)
	}

	if period.IsPoint() {
		out := make([]decimal.Decimal, len(amounts))
		copy(out, amounts)
		return []MonthSlice{{Start: period.Start, End: period.End, Amounts: out}}, nil
	}

	totalSec := wallSeconds(period.Start, period.End)
	total, err := decimal.New(totalSec, 0)
	if err != nil {
		return nil, err
	}

	remaining := make([]decimal.Decimal, len(amounts))
	copy(remaining, amounts)

	var slices []MonthSlice
	cur := period.Start
	for !cur.After(period.End) {
		som := monthStart(cur)
		eom := monthEnd(cur)

		from := maxTime(period.Start, som)
		to := minTime(period.End, eom)
		overlap, err := decimal.New(wallSeconds(from, to)+1, 0)
		if err != nil {
			return nil, err
		}

		share := make([]decimal.Decimal, len(amounts))
		for i, amount := range amounts {
			prod, err := amount.Mul(overlap)
			if err != nil {
				return nil, err
			}
			q, err := prod.Quo(total)
			if err != nil {
				return nil, err
			}
			m := q.Round(2)
			share[i] = m
			remaining[i], err = remaining[i].Sub(m)
			if err != nil {
				return nil, err
			}
		}
		slices = append(slices, MonthSlice{Start: from, End: to, Amounts: share})

		cur = eom.Add(time.Second)
	}

	// fold the cumulative rounding error into the last month
	last := slices[len(slices)-1]
	for i := range last.Amounts {
		v, err := last.Amounts[i].Add(remaining[i])
		if err != nil {
			return nil, err
		}
		last.Amounts[i] = v
	}
	slices[len(slices)-1] = last

	if allZero(last.Amounts) {
		slices = slices[:len(slices)-1]
	}

	for i, amount := range amounts {
		sum, err := sumAt(slices, i)
		if err != nil {
			return nil, err
		}
		if sum.Cmp(amount) != 0 {
			return nil, fmt.Errorf("split of %s sums to %s: %w", amount, sum, errs.ErrInvariant)
		}
	}
	return slices, nil
}

// wallSeconds returns the seconds between two instants as read off the
// local calendar, ignoring DST shifts.
func wallSeconds(a, b time.Time) int64 {
	return int64(asUTC(b).Sub(asUTC(a)) / time.Second)
}

func asUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func monthEnd(t time.Time) time.Time {
	// day 0 of the next month is the last day of this one
	return time.Date(t.Year(), t.Month()+1, 0, 23, 59, 59, 0, t.Location())
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func allZero(ds []decimal.Decimal) bool {
	for _, d := range ds {
		if !d.IsZero() {
			return false
		}
	}
	return true
}

func sumAt(slices []MonthSlice, idx int) (decimal.Decimal, error) {
	sum := decimal.MustNew(0, 2)
	var err error
	for _, s := range slices {
		sum, err = sum.Add(s.Amounts[idx])
		if err != nil {
			return decimal.Decimal{}, err
		}
	}
	return sum, nil
}
