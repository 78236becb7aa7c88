// Package datev serializes ledger entries into DATEV EXTF Buchungsstapel
// files, one file per calendar month, Latin-1 encoded with CRLF line ends
// the way the DATEV importer expects them.
package datev

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/datevrec/datevrec/internal/ledger"
	"github.com/datevrec/datevrec/internal/slug"
	"github.com/govalues/decimal"
)

const textLimit = 60

// fields is the Buchungsstapel column subset the exporter fills. DATEV
// ignores trailing columns that stay empty, so the full 100+ column schema
// is not spelled out here.
var fields = []string{
	"Umsatz (ohne Soll/Haben-Kz)",
	"Soll/Haben-Kennzeichen",
	"WKZ Umsatz",
	"Konto",
	"Gegenkonto (ohne BU-Schlüssel)",
	"BU-Schlüssel",
	"Belegdatum",
	"Belegfeld 1",
	"Buchungstext",
	"Buchungs GUID",
}

// Writer writes one EXTF file per posting month into Dir. Output is a pure
// function of the entries: header timestamps derive from the batch dates,
// so re-exporting the same window is byte identical.
type Writer struct {
	Dir         string
	BeraterNr   int
	MandantenNr int
	Designation string
	Zone        *time.Location
}

// Write implements the run sink. Entries arrive ordered; they are bucketed
// by posting month, preserving order within each bucket.
func (w *Writer) Write(ctx context.Context, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	zone := w.Zone
	if zone == nil {
		zone = time.UTC
	}

	byMonth := make(map[string][]ledger.Entry)
	for _, e := range entries {
		key := e.Date.In(zone).Format("2006-01")
		byMonth[key] = append(byMonth[key], e)
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	for _, month := range months {
		if err := w.writeMonth(month, byMonth[month], zone); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeMonth(month string, entries []ledger.Entry, zone *time.Location) error {
	name := "EXTF_Buchungsstapel_" + month
	if w.Designation != "" {
		name += "_" + slug.Slugify(w.Designation)
	}
	path := filepath.Join(w.Dir, name+".csv")

	var buf bytes.Buffer
	w.render(&buf, entries, zone)
	enc := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	encoded, err := enc.Bytes(buf.Bytes())
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, encoded, 0o644)
}

func (w *Writer) render(buf *bytes.Buffer, entries []ledger.Entry, zone *time.Location) {
	minDate, maxDate := entries[0].Date, entries[0].Date
	for _, e := range entries {
		if e.Date.Before(minDate) {
			minDate = e.Date
		}
		if e.Date.After(maxDate) {
			maxDate = e.Date
		}
	}

	header := []string{
		`"EXTF"`, // written by third-party software, not DATEV itself
		"700",
		"21", // Datenkategorie Buchungsstapel
		"Buchungsstapel",
		"5",
		maxDate.In(zone).Format("20060102") + "000000", // deterministic creation stamp
		"",
		"BH",
		"",
		"",
		strconv.Itoa(w.BeraterNr),
		strconv.Itoa(w.MandantenNr),
		minDate.In(zone).Format("2006") + "0101", // fiscal year start
		"4",                                      // Sachkontenlänge
		minDate.In(zone).Format("20060102"),
		maxDate.In(zone).Format("20060102"),
		quoted(w.Designation),
		"",
		"1", // Buchungstyp
		"0",
		"0",
	}
	buf.WriteString(strings.Join(header, ";"))
	buf.WriteString("\r\n")
	buf.WriteString(strings.Join(fields, ";"))
	buf.WriteString("\r\n")

	for _, e := range entries {
		n := e.Normalized()
		row := []string{
			formatAmount(n.Amount),
			string(n.Side),
			n.Currency,
			n.Account,
			n.ContraAccount,
			n.TaxKey,
			n.Date.In(zone).Format("0201"), // DDMM
			n.DocumentRef,
			quoted(ledger.TruncateText(n.Text, textLimit)),
			n.ID.String(),
		}
		buf.WriteString(strings.Join(row, ";"))
		buf.WriteString("\r\n")
	}
}

// formatAmount renders a decimal in German notation without thousands
// separators: 1234.5 -> "1234,50".
func formatAmount(d decimal.Decimal) string {
	s := d.String()
	whole, frac, found := strings.Cut(s, ".")
	if !found {
		frac = ""
	}
	for len(frac) < 2 {
		frac += "0"
	}
	return whole + "," + frac
}

func quoted(s string) string {
	if s == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(s, `"`, "'") + `"`
}

