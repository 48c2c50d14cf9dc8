package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/aristath/riskmap/internal/domain"
)

// UniverseFile is the YAML asset registry plus analysis parameters.
// The order of Assets is the canonical output order.
type UniverseFile struct {
	ReportingCurrency string            `yaml:"reporting_currency" validate:"required,len=3"`
	ReferenceRates    map[string]string `yaml:"reference_rates"`
	Horizons          []int             `yaml:"horizons" validate:"required,min=1,dive,gt=0"`
	Frequency         int               `yaml:"frequency" validate:"gte=0"`
	Assets            []domain.Asset    `yaml:"assets" validate:"required,min=1,dive"`
}

// LoadUniverse reads and validates a universe file. An empty path or a
// missing file yields the built-in default universe.
func LoadUniverse(path string) (*UniverseFile, error) {
	if path == "" {
		return DefaultUniverse(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultUniverse(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	return ParseUniverse(data)
}

// ParseUniverse decodes and validates YAML universe data.
func ParseUniverse(data []byte) (*UniverseFile, error) {
	var f UniverseFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse universe file: %w", err)
	}
	if f.Frequency == 0 {
		f.Frequency = 12
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks field constraints and cross-field consistency.
func (f *UniverseFile) Validate() error {
	if err := validator.New().Struct(f); err != nil {
		return fmt.Errorf("invalid universe: %w", err)
	}

	ids := make(map[string]bool, len(f.Assets))
	for _, a := range f.Assets {
		if ids[a.ID] {
			return fmt.Errorf("invalid universe: duplicate asset id %q", a.ID)
		}
		ids[a.ID] = true
	}

	horizons := make(map[int]bool, len(f.Horizons))
	for _, h := range f.Horizons {
		if horizons[h] {
			return fmt.Errorf("invalid universe: duplicate horizon %d", h)
		}
		horizons[h] = true
	}

	u := f.Universe()
	for _, cur := range u.ForeignCurrencies() {
		if u.ReferenceRates[cur] == "" {
			return fmt.Errorf("invalid universe: no reference rate symbol for %s -> %s", cur, u.ReportingCurrency)
		}
	}
	return nil
}

// Universe converts the file into the domain registry.
func (f *UniverseFile) Universe() domain.Universe {
	rates := make(map[domain.Currency]string, len(f.ReferenceRates))
	for cur, sym := range f.ReferenceRates {
		rates[domain.Currency(strings.ToUpper(cur))] = sym
	}
	assets := make([]domain.Asset, len(f.Assets))
	for i, a := range f.Assets {
		a.Currency = domain.Currency(strings.ToUpper(string(a.Currency)))
		assets[i] = a
	}
	return domain.Universe{
		ReportingCurrency: domain.Currency(strings.ToUpper(f.ReportingCurrency)),
		ReferenceRates:    rates,
		Assets:            assets,
	}
}

// DefaultUniverse is the 24-asset JPY universe: domestic equities, bonds and
// REITs, US-listed equity, bond and commodity ETFs converted through USD/JPY,
// and BTC quoted in JPY. The domestic bond fund is extended to 20 years of
// history at 1.2% a year.
func DefaultUniverse() *UniverseFile {
	jpy := func(id, sym string) domain.Asset {
		return domain.Asset{ID: id, Symbol: sym, Currency: domain.CurrencyJPY}
	}
	usd := func(id, sym string) domain.Asset {
		return domain.Asset{ID: id, Symbol: sym, Currency: domain.CurrencyUSD}
	}

	bond := jpy("Bnd_JP", "2510.T")
	bond.Backfill = &domain.BackfillSpec{AnnualRate: 0.012, LookbackYears: 20}

	return &UniverseFile{
		ReportingCurrency: "JPY",
		ReferenceRates:    map[string]string{"USD": "JPY=X"},
		Horizons:          []int{1, 3, 5, 10, 20},
		Frequency:         12,
		Assets: []domain.Asset{
			jpy("Stk_JP_Topix", "1348.T"),
			jpy("Stk_JP_Nikkei", "1321.T"),
			jpy("Stk_JP_HighDiv", "1489.T"),
			jpy("Stk_JP_JPX400", "1591.T"),
			bond,
			jpy("Reit_JP", "1343.T"),
			usd("Stk_AllCountry", "ACWI"),
			usd("Stk_SP500", "SPY"),
			usd("Stk_Nasdaq", "QQQ"),
			usd("Stk_NYDow", "DIA"),
			usd("Stk_Kokusai", "EFA"),
			usd("Stk_US_HighDiv", "VIG"),
			usd("Stk_FangPlus", "FNGS"),
			usd("Stk_Emerging", "EEM"),
			usd("Stk_India", "EPI"),
			usd("Bnd_US_Short", "SHY"),
			usd("Bnd_US_Agg", "AGG"),
			usd("Bnd_US_20y", "TLT"),
			usd("Bnd_US_HighYld", "HYG"),
			usd("Reit_Global", "RWO"),
			usd("Cmdty_Gold", "GLD"),
			usd("Cmdty_Silver", "SLV"),
			usd("Cmdty_Oil", "USO"),
			jpy("Crypto_BTC", "BTC-JPY"),
		},
	}
}
