// Package cli defines the command-line surface: exporting a billing
// window to DATEV files, booking manual accrual schedules and serving
// the HTTP API.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "datevrec",
	Short: "Revenue recognition and DATEV export for payment-provider billing data",
	Long: `datevrec turns billing documents (invoices and charges) into
double-entry bookkeeping records: revenue is recognized pro rata over
the booked service period, deferred revenue is parked and released
month by month, and the result is written as DATEV Buchungsstapel
files ready for import.`,
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
