package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/govalues/decimal"
	"github.com/spf13/cobra"

	"github.com/datevrec/datevrec/internal/accrual"
	"github.com/datevrec/datevrec/internal/config"
	"github.com/datevrec/datevrec/internal/export/datev"
)

var accrualCmd = &cobra.Command{
	Use:   "accrual",
	Short: "Book a manual accrual schedule",
	Long: `Spread a fixed amount over a whole number of months, parking it
on the deferral account at the invoice date and releasing one tranche
per month. Use this for contracts that carry no per-day service period
in the billing data.`,
	Example: `  # 1200 EUR over 12 months, service starting February
  datevrec accrual --config datevrec.toml --amount 1200 --months 12 \
    --invoice-date 2021-01-15 --first-revenue-date 2021-02-01 \
    --customer-account 10001 --text "Jahresvertrag" --document-ref RE-2021-17 \
    --out out/`,
	RunE: runAccrual,
}

func init() {
	rootCmd.AddCommand(accrualCmd)

	accrualCmd.Flags().String("config", "datevrec.toml", "Path to the configuration file")
	accrualCmd.Flags().String("amount", "", "Gross amount to spread, e.g. 1200.00")
	accrualCmd.Flags().Int("months", 0, "Number of monthly tranches")
	accrualCmd.Flags().String("invoice-date", "", "Invoice date (YYYY-MM-DD)")
	accrualCmd.Flags().String("first-revenue-date", "", "First service month (YYYY-MM-DD)")
	accrualCmd.Flags().String("customer-account", "", "Debitor account number")
	accrualCmd.Flags().String("revenue-account", "", "Revenue account (default from config)")
	accrualCmd.Flags().String("text", "", "Booking text")
	accrualCmd.Flags().String("document-ref", "", "Belegfeld 1 reference")
	accrualCmd.Flags().Bool("include-invoice", false, "Also emit the customer/revenue posting")
	accrualCmd.Flags().String("out", "out", "Directory for the generated EXTF files")
}

func runAccrual(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	zone := cfg.Zone()

	sched, err := scheduleFromFlags(cmd, cfg, zone)
	if err != nil {
		return err
	}

	log := slog.Default()
	builder := accrual.New(cfg.Accounts.Clearing, log)
	entries, err := builder.Manual(sched)
	if err != nil {
		return err
	}
	for i := range entries {
		entries[i].StampID(i)
	}

	out, _ := cmd.Flags().GetString("out")
	writer := &datev.Writer{
		Dir:         out,
		BeraterNr:   cfg.Datev.BeraterNr,
		MandantenNr: cfg.Datev.MandantenNr,
		Designation: cfg.Company.Name,
		Zone:        zone,
	}
	if err := writer.Write(cmd.Context(), entries); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "booked %d entries to %s\n", len(entries), out)
	return nil
}

func scheduleFromFlags(cmd *cobra.Command, cfg *config.Config, zone *time.Location) (accrual.Schedule, error) {
	var s accrual.Schedule

	amountStr, _ := cmd.Flags().GetString("amount")
	amount, err := decimal.Parse(amountStr)
	if err != nil {
		return s, fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}
	months, _ := cmd.Flags().GetInt("months")

	invoiceDate, err := parseDay(cmd, "invoice-date", zone)
	if err != nil {
		return s, err
	}
	firstRevenue, err := parseDay(cmd, "first-revenue-date", zone)
	if err != nil {
		return s, err
	}

	customer, _ := cmd.Flags().GetString("customer-account")
	revenueAcc, _ := cmd.Flags().GetString("revenue-account")
	if revenueAcc == "" {
		revenueAcc = cfg.Accounts.RevenueDomestic
	}
	text, _ := cmd.Flags().GetString("text")
	docRef, _ := cmd.Flags().GetString("document-ref")
	includeInvoice, _ := cmd.Flags().GetBool("include-invoice")

	return accrual.Schedule{
		InvoiceDate:      invoiceDate,
		FirstRevenueDate: firstRevenue,
		Months:           months,
		Amount:           amount,
		CustomerAccount:  customer,
		RevenueAccount:   revenueAcc,
		Text:             text,
		DocumentRef:      docRef,
		Currency:         "EUR",
		IncludeInvoice:   includeInvoice,
	}, nil
}

func parseDay(cmd *cobra.Command, flag string, zone *time.Location) (time.Time, error) {
	v, _ := cmd.Flags().GetString(flag)
	t, err := time.ParseInLocation("2006-01-02", v, zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: %w", flag, v, err)
	}
	return t, nil
}
