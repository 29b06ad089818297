package config

import (
	"cmp"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type MoneyValue struct {
	Currency string  `yaml:"currency"`
	Value    float64 `yaml:"value"`
}

type Account struct {
	ID       string       `yaml:"id"`
	Balances []MoneyValue `yaml:"balances"`
}

type Instruments struct {
	IDs []string `yaml:"ids"` // FIGIs or tickers
}

type SourceKind string

const (
	GRPCSource SourceKind = "grpc"
	RESTSource SourceKind = "rest"
)

type CandlesConfig struct {
	Source             SourceKind `yaml:"source"`
	RESTAddress        string     `yaml:"rest_address"`
	Cache              bool       `yaml:"cache"`
	EmptyDaysLimit     int        `yaml:"empty_days_limit"`
	EmptyYearsLimit    int        `yaml:"empty_years_limit"`
	RateLimitPerMinute int        `yaml:"rate_limit_per_minute"`
}

const (
	_sourceDefault             = GRPCSource
	_restAddressDefault        = "https://invest-public-api.tinkoff.ru/rest"
	_emptyDaysLimitDefault     = 62
	_emptyYearsLimitDefault    = 2
	_rateLimitPerMinuteDefault = 500 // 600 T/M allowed for market data
)

func (c *CandlesConfig) Setup() error {
	c.Source = cmp.Or(c.Source, _sourceDefault)
	if c.Source != GRPCSource && c.Source != RESTSource {
		return fmt.Errorf("unknown candles source %q", c.Source)
	}

	c.RESTAddress = cmp.Or(c.RESTAddress, _restAddressDefault)
	if _, err := url.Parse(c.RESTAddress); err != nil {
		return fmt.Errorf("%w: bad rest address", err)
	}

	if c.EmptyDaysLimit <= 0 {
		c.EmptyDaysLimit = _emptyDaysLimitDefault
	}
	if c.EmptyYearsLimit <= 0 {
		c.EmptyYearsLimit = _emptyYearsLimitDefault
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = _rateLimitPerMinuteDefault
	}

	return nil
}

type StrategyName string

const (
	Hold StrategyName = "hold"
)

type StrategyConfig struct {
	Name         StrategyName `yaml:"name"`
	BalanceShare float64      `yaml:"balance_share"` // part of the start balance to invest
}

func (c *StrategyConfig) Setup() error {
	c.Name = cmp.Or(c.Name, Hold)
	if c.Name != Hold {
		return fmt.Errorf("unknown strategy %q", c.Name)
	}
	if c.BalanceShare <= 0 || c.BalanceShare > 1 {
		c.BalanceShare = 1
	}
	return nil
}

type BacktestConfig struct {
	From           time.Time      `yaml:"from"`
	To             time.Time      `yaml:"to"`
	Exchange       string         `yaml:"exchange"`
	Accounts       []Account      `yaml:"accounts"`
	Instruments    Instruments    `yaml:"instruments"`
	Tariff         model.Tariff   `yaml:"tariff"`
	CommissionRate *float64       `yaml:"commission_rate"`
	Candles        CandlesConfig  `yaml:"candles"`
	Strategy       StrategyConfig `yaml:"strategy"`
	Persist        bool           `yaml:"persist"`
}

const (
	_exchangeDefault = "MOEX"
	_tariffDefault   = model.InvestorTariff
)

func (b *BacktestConfig) ValidateAndSetup() error {
	if b.From.IsZero() || b.To.IsZero() {
		return fmt.Errorf("from and to are required")
	}
	if b.From.After(b.To) {
		return fmt.Errorf("from after to")
	}
	b.From, b.To = b.From.UTC(), b.To.UTC()

	if len(b.Accounts) == 0 {
		return fmt.Errorf("empty accounts")
	}
	seen := make(map[string]struct{}, len(b.Accounts))
	for i := range b.Accounts {
		if b.Accounts[i].ID == "" {
			return fmt.Errorf("empty account id")
		}
		if _, ok := seen[b.Accounts[i].ID]; ok {
			return fmt.Errorf("duplicate account %s", b.Accounts[i].ID)
		}
		seen[b.Accounts[i].ID] = struct{}{}

		for j := range b.Accounts[i].Balances {
			balance := &b.Accounts[i].Balances[j]
			if balance.Currency == "" {
				return fmt.Errorf("empty currency for start amount of money")
			}
			balance.Currency = model.NormalizeCurrency(balance.Currency)
			if balance.Value < 0 {
				balance.Value = 0
			}
		}
	}

	if len(b.Instruments.IDs) == 0 {
		return fmt.Errorf("empty instruments")
	}

	b.Exchange = cmp.Or(b.Exchange, _exchangeDefault)
	b.Tariff = cmp.Or(b.Tariff, _tariffDefault)
	if !b.Tariff.IsValid() {
		return fmt.Errorf("unknown tariff %q", b.Tariff)
	}
	if b.CommissionRate != nil && (*b.CommissionRate < 0 || *b.CommissionRate >= 1) {
		return fmt.Errorf("commission rate %f out of [0, 1)", *b.CommissionRate)
	}

	if err := b.Candles.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup candles", err)
	}
	if err := b.Strategy.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup strategy", err)
	}

	return nil
}

func (b BacktestConfig) Commission() model.Commission {
	if b.CommissionRate != nil {
		return model.NewFlatCommission(decimal.NewFromFloat(*b.CommissionRate))
	}
	return model.NewTariffCommission(b.Tariff)
}

func (a Account) StartBalances() []model.Balance {
	balances := make([]model.Balance, 0, len(a.Balances))
	for _, b := range a.Balances {
		balances = append(balances, model.Balance{
			AccountID: a.ID,
			Currency:  b.Currency,
			Value:     decimal.NewFromFloat(b.Value),
		})
	}
	return balances
}

func LoadBacktestConfig(filename string) (BacktestConfig, error) {
	var cfg BacktestConfig
	input, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("%w: can't read file", err)
	}

	if err := yaml.Unmarshal(input, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: can't unmarshal config", err)
	}

	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, fmt.Errorf("%w: can't setup cfg", err)
	}

	return cfg, nil
}
