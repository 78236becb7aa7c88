// Package dateparse extracts a service period from free-form line item
// text, e.g. "Njord Player, SailGP, valid Jun 1st 2021 – Apr 30th 2022".
// It is a fallback oracle: tokens are scanned independently and composed
// by fixed rules, and anything ambiguous is rejected rather than guessed.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/datevrec/datevrec/internal/errs"
	"github.com/datevrec/datevrec/internal/ledger"
)

// Years outside this range are treated as arbitrary numbers, not dates.
const (
	MinYear = 2019
	MaxYear = 2026
)

var monthsByName = map[string]time.Month{
	"January": time.January, "February": time.February, "March": time.March,
	"April": time.April, "May": time.May, "June": time.June,
	"July": time.July, "August": time.August, "September": time.September,
	"October": time.October, "November": time.November, "December": time.December,
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "Jun": time.June, "Jul": time.July,
	"Aug": time.August, "Sep": time.September, "Oct": time.October,
	"Nov": time.November, "Dec": time.December,
}

var (
	yearRe = regexp.MustCompile(`\b(2019|2020|2021|2022|2023|2024|2025|2026)\b`)
	// Long names first so "Jan" does not shadow "January". Matching is
	// case sensitive on purpose: only exact tokens count.
	monthRe = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\b`)
	dayRe   = regexp.MustCompile(`\b([0-9]{1,2})(?:st|nd|rd|th)\b`)
)

// Parse extracts a closed period from text. The reference date supplies the
// year when the text carries none. Ambiguous input returns
// errs.ErrAmbiguousPeriod; Parse never guesses.
func Parse(text string, ref time.Time, zone *time.Location) (ledger.Period, error) {
	if zone == nil {
		zone = time.UTC
	}

	var years []int
	for _, m := range yearRe.FindAllStringSubmatch(text, -1) {
		y, _ := strconv.Atoi(m[1])
		years = append(years, y)
	}
	var months []time.Month
	for _, m := range monthRe.FindAllStringSubmatch(text, -1) {
		months = append(months, monthsByName[m[1]])
	}
	var days []int
	for _, m := range dayRe.FindAllStringSubmatch(text, -1) {
		d, _ := strconv.Atoi(m[1])
		days = append(days, d)
	}

	yearFound := true
	var year1, year2 int
	switch {
	case len(years) >= 2:
		year1, year2 = years[0], years[len(years)-1]
	case len(years) == 1:
		year1, year2 = years[0], years[0]
	default:
		if ref.IsZero() {
			return ledger.Period{}, fmt.Errorf("no year in %q and no reference date: %w", text, errs.ErrAmbiguousPeriod)
		}
		yearFound = false
		year1, year2 = ref.Year(), ref.Year()
	}

	var month1, month2 time.Month
	switch {
	case len(months) >= 2:
		month1, month2 = months[0], months[len(months)-1]
	case len(months) == 1:
		month1, month2 = months[0], months[0]
	default:
		if !yearFound {
			return ledger.Period{}, fmt.Errorf("no year or month in %q: %w", text, errs.ErrAmbiguousPeriod)
		}
		if len(days) > 0 {
			// A bare day number without a month cannot be anchored.
			return ledger.Period{}, fmt.Errorf("day without month in %q: %w", text, errs.ErrAmbiguousPeriod)
		}
		month1, month2 = time.January, time.December
	}

	var day1, day2 int
	switch {
	case len(days) >= 2:
		day1, day2 = days[0], days[len(days)-1]
	case len(days) == 1:
		day1, day2 = days[0], days[0]
	default:
		day1 = 1
		day2 = lastDay(year2, month2)
	}

	p := ledger.Period{
		Start: time.Date(year1, month1, day1, 0, 0, 0, 0, zone),
		End:   time.Date(year2, month2, day2, 23, 59, 59, 0, zone),
	}
	if !p.Valid() {
		return ledger.Period{}, fmt.Errorf("range in %q runs backwards: %w", text, errs.ErrAmbiguousPeriod)
	}
	return p, nil
}

func lastDay(year int, month time.Month) int {
	// day 0 of the next month normalizes to the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
