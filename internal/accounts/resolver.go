// Package accounts resolves the country/entity specific bookkeeping
// properties of a document: customer account, revenue account and DATEV
// tax keys. The recognition core treats the result as opaque input and
// never computes tax jurisdiction itself.
package accounts

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/datevrec/datevrec/internal/config"
	"github.com/datevrec/datevrec/internal/errs"
	"github.com/datevrec/datevrec/internal/ledger"
	"github.com/datevrec/datevrec/internal/source"
)

// Resolver maps a customer plus document to accounting properties.
type Resolver interface {
	Resolve(cus source.Customer, doc source.Document) (ledger.AccountingProps, error)
}

var euCountries = map[string]bool{
	"AT": true, "BE": true, "BG": true, "CY": true, "CZ": true, "DK": true,
	"EE": true, "FI": true, "FR": true, "DE": true, "GR": true, "HU": true,
	"IE": true, "IT": true, "LV": true, "LT": true, "LU": true, "MT": true,
	"NL": true, "PL": true, "PT": true, "RO": true, "SK": true, "SI": true,
	"ES": true, "SE": true,
}

// ConfigResolver derives properties from the chart-of-accounts config:
// German customers book to the domestic VAT revenue account, EU customers
// with a VAT ID to the EU reverse-charge account, everyone else to the
// third-country reverse-charge account. Customer accounts come from
// provider metadata, with a collective debtor before the cutover date.
type ConfigResolver struct {
	cfg     *config.Config
	cutover time.Time
	log     *slog.Logger
}

func NewConfigResolver(cfg *config.Config, log *slog.Logger) *ConfigResolver {
	return &ConfigResolver{cfg: cfg, cutover: cfg.CustomerAccountCutover(), log: log}
}

func (r *ConfigResolver) Resolve(cus source.Customer, doc source.Document) (ledger.AccountingProps, error) {
	props := ledger.AccountingProps{
		Country:   cus.Country,
		VatID:     cus.VatID,
		TaxExempt: cus.TaxExempt,
		VatRegion: "World",
	}

	if acct, ok := cus.Metadata.AccountNumber(); ok && acct != "" {
		props.CustomerAccount = acct
	} else if !r.cutover.IsZero() && doc.Created.Before(r.cutover) {
		props.CustomerAccount = r.cfg.Accounts.SammelDebitor
	} else {
		return ledger.AccountingProps{}, fmt.Errorf(
			"customer %s has no accountNumber metadata: %w", cus.ID, errs.ErrConfig)
	}

	if cus.Country == "" {
		return ledger.AccountingProps{}, fmt.Errorf(
			"customer %s has no country: %w", cus.ID, errs.ErrConfig)
	}

	acc := r.cfg.Accounts
	if cus.Country == "DE" {
		if doc.TaxMinor == 0 && doc.TotalMinor > 0 {
			r.warn("domestic document without tax", "doc", doc.ID, "customer", cus.ID)
		}
		props.VatRegion = "DE"
		props.RevenueAccount = acc.RevenueDomestic
		props.TaxKeyInvoice = acc.TaxKeyDomesticInvoice
		props.TaxKeyPayment = acc.TaxKeyDomesticPayment
		return props, nil
	}

	if euCountries[cus.Country] {
		props.VatRegion = "EU"
	}

	if props.VatRegion == "EU" && cus.VatID == "" {
		r.warn("EU reverse charge customer without VAT ID", "customer", cus.ID)
	}
	if props.VatRegion == "EU" && cus.VatID != "" {
		props.RevenueAccount = acc.RevenueReverseEU
	} else {
		props.RevenueAccount = acc.RevenueReverseWorld
	}
	props.TaxKeyInvoice = acc.TaxKeyReverseInvoice
	props.TaxKeyPayment = acc.TaxKeyReversePayment
	return props, nil
}

func (r *ConfigResolver) warn(msg string, args ...any) {
	if r.log != nil {
		r.log.Warn(msg, args...)
	}
}

// Static is a fixed-output resolver for tests.
type Static struct {
	Props ledger.AccountingProps
	Err   error
}

func (s Static) Resolve(source.Customer, source.Document) (ledger.AccountingProps, error) {
	return s.Props, s.Err
}
