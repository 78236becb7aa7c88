// Package config loads the company-level settings the exporter needs:
// accounting timezone, DATEV client identifiers and the chart-of-accounts
// mapping. Settings live in a TOML file next to the working directory,
// secrets (API keys) stay in the environment.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/datevrec/datevrec/internal/errs"
)

type Company struct {
	Name     string `toml:"name"`
	Timezone string `toml:"timezone"`
}

type Datev struct {
	BeraterNr   int `toml:"berater_nr"`
	MandantenNr int `toml:"mandanten_nr"`
}

// Accounts maps the ledger roles to chart-of-accounts numbers. The zero
// value of any required field is a configuration error: postings must never
// fall back to a guessed account.
type Accounts struct {
	Clearing              string `toml:"prap"`
	SammelDebitor         string `toml:"sammel_debitor"`
	Transit               string `toml:"transit"`
	Fees                  string `toml:"fees"`
	Bank                  string `toml:"bank"`
	RevenueDomestic       string `toml:"revenue_german_vat"`
	RevenueReverseEU      string `toml:"revenue_reverse_charge_eu"`
	RevenueReverseWorld   string `toml:"revenue_reverse_charge_world"`
	TaxKeyDomesticInvoice string `toml:"datev_tax_key_germany_invoice"`
	TaxKeyDomesticPayment string `toml:"datev_tax_key_germany_payment"`
	TaxKeyReverseInvoice  string `toml:"datev_tax_key_reverse_invoice"`
	TaxKeyReversePayment  string `toml:"datev_tax_key_reverse_payment"`
	// CustomerAccountsFrom is the date from which every customer must carry
	// an individual account number; earlier documents book against the
	// Sammel-Debitor.
	CustomerAccountsFrom string `toml:"customer_accounts_from"`
}

type Config struct {
	Company  Company  `toml:"company"`
	Datev    Datev    `toml:"datev"`
	Accounts Accounts `toml:"accounts"`
}

// Load reads and validates the TOML config at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Company.Timezone == "" {
		return fmt.Errorf("company.timezone is required: %w", errs.ErrConfig)
	}
	if _, err := time.LoadLocation(c.Company.Timezone); err != nil {
		return fmt.Errorf("company.timezone %q: %v: %w", c.Company.Timezone, err, errs.ErrConfig)
	}
	required := map[string]string{
		"accounts.prap":                         c.Accounts.Clearing,
		"accounts.sammel_debitor":               c.Accounts.SammelDebitor,
		"accounts.revenue_german_vat":           c.Accounts.RevenueDomestic,
		"accounts.revenue_reverse_charge_eu":    c.Accounts.RevenueReverseEU,
		"accounts.revenue_reverse_charge_world": c.Accounts.RevenueReverseWorld,
	}
	for key, val := range required {
		if val == "" {
			return fmt.Errorf("%s is required: %w", key, errs.ErrConfig)
		}
	}
	if c.Accounts.CustomerAccountsFrom != "" {
		if _, err := time.Parse("2006-01-02", c.Accounts.CustomerAccountsFrom); err != nil {
			return fmt.Errorf("accounts.customer_accounts_from: %v: %w", err, errs.ErrConfig)
		}
	}
	return nil
}

// Zone returns the accounting timezone.
func (c *Config) Zone() *time.Location {
	loc, err := time.LoadLocation(c.Company.Timezone)
	if err != nil {
		// Validate catches this at load time.
		return time.UTC
	}
	return loc
}

// CustomerAccountCutover returns the date from which individual customer
// account numbers are mandatory. The zero time means: always mandatory.
func (c *Config) CustomerAccountCutover() time.Time {
	if c.Accounts.CustomerAccountsFrom == "" {
		return time.Time{}
	}
	t, _ := time.Parse("2006-01-02", c.Accounts.CustomerAccountsFrom)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.Zone())
}
