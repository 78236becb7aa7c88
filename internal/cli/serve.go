package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/datevrec/datevrec/internal/accounts"
	"github.com/datevrec/datevrec/internal/accrual"
	"github.com/datevrec/datevrec/internal/config"
	"github.com/datevrec/datevrec/internal/httpapi"
	"github.com/datevrec/datevrec/internal/payment"
	"github.com/datevrec/datevrec/internal/revenue"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run API over HTTP",
	Long: `Expose run execution and the account dictionary over HTTP.
Documents are posted per request; nothing is persisted between runs.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("config", "datevrec.toml", "Path to the configuration file")
	serveCmd.Flags().String("addr", ":8080", "Listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	addr, _ := cmd.Flags().GetString("addr")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := slog.Default()
	asm := revenue.New(accounts.NewConfigResolver(cfg, log), cfg.Zone(), log)
	builder := accrual.New(cfg.Accounts.Clearing, log)
	pay := payment.New(cfg.Accounts.Transit, cfg.Accounts.Fees, cfg.Accounts.Bank, log)
	api := httpapi.New(asm, builder, pay, log)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("datevrec api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			log.Error("server shutdown error", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
