package cli

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/datevrec/datevrec/internal/accounts"
	"github.com/datevrec/datevrec/internal/accrual"
	"github.com/datevrec/datevrec/internal/config"
	"github.com/datevrec/datevrec/internal/export/datev"
	"github.com/datevrec/datevrec/internal/payment"
	"github.com/datevrec/datevrec/internal/revenue"
	"github.com/datevrec/datevrec/internal/service/export"
	"github.com/datevrec/datevrec/internal/source"
)

var exportCmd = &cobra.Command{
	Use:   "export <year> [month]",
	Short: "Export a billing window as DATEV Buchungsstapel files",
	Long: `Process all billing documents created in the given year (or
year and month), derive recognition and deferral records and write one
EXTF file per posting month. Re-running the same window yields
byte-identical files.`,
	Example: `  # Export all of 2021
  datevrec export 2021 --config datevrec.toml --input documents.json --out out/

  # Export October 2021 only
  datevrec export 2021 10 --config datevrec.toml --input documents.json --out out/`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("config", "datevrec.toml", "Path to the configuration file")
	exportCmd.Flags().String("input", "documents.json", "JSON dump of billing documents")
	exportCmd.Flags().String("out", "out", "Directory for the generated EXTF files")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	input, _ := cmd.Flags().GetString("input")
	out, _ := cmd.Flags().GetString("out")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	zone := cfg.Zone()

	from, to, err := parseWindow(args, zone)
	if err != nil {
		return err
	}

	log := slog.Default()
	asm := revenue.New(accounts.NewConfigResolver(cfg, log), zone, log)
	builder := accrual.New(cfg.Accounts.Clearing, log)
	pay := payment.New(cfg.Accounts.Transit, cfg.Accounts.Fees, cfg.Accounts.Bank, log)
	writer := &datev.Writer{
		Dir:         out,
		BeraterNr:   cfg.Datev.BeraterNr,
		MandantenNr: cfg.Datev.MandantenNr,
		Designation: cfg.Company.Name,
		Zone:        zone,
	}
	svc := export.New(source.NewFileSource(input, nil), asm, builder, pay, writer, log)

	run, err := svc.Run(cmd.Context(), from, to)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), run.Summary())
	return nil
}

// parseWindow turns "2021" or "2021 10" into the half-open window
// covering that year or month in the company timezone.
func parseWindow(args []string, zone *time.Location) (time.Time, time.Time, error) {
	year, err := strconv.Atoi(args[0])
	if err != nil || year < 2000 || year > 2100 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid year %q", args[0])
	}
	if len(args) == 1 {
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, zone)
		return from, from.AddDate(1, 0, 0), nil
	}
	month, err := strconv.Atoi(args[1])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q", args[1])
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, zone)
	return from, from.AddDate(0, 1, 0), nil
}
