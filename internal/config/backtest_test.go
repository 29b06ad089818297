package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const _testConfig = `
from: 2024-01-01T00:00:00Z
to: 2024-03-01T00:00:00Z
accounts:
  - id: first
    balances:
      - currency: RUB
        value: 100000
  - id: second
    balances:
      - currency: rub
        value: 50000
instruments:
  ids: ["BBG004730N88", "SBER"]
candles:
  source: rest
  empty_days_limit: 10
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backtest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadBacktestConfig(t *testing.T) {
	cfg, err := LoadBacktestConfig(writeConfig(t, _testConfig))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.From)
	assert.Equal(t, "MOEX", cfg.Exchange)
	assert.Equal(t, model.InvestorTariff, cfg.Tariff)
	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "rub", cfg.Accounts[0].Balances[0].Currency)

	assert.Equal(t, RESTSource, cfg.Candles.Source)
	assert.Equal(t, 10, cfg.Candles.EmptyDaysLimit)
	assert.Equal(t, _emptyYearsLimitDefault, cfg.Candles.EmptyYearsLimit)
	assert.Equal(t, Hold, cfg.Strategy.Name)
	assert.Equal(t, 1.0, cfg.Strategy.BalanceShare)

	balances := cfg.Accounts[1].StartBalances()
	require.Len(t, balances, 1)
	assert.Equal(t, "second", balances[0].AccountID)
	assert.True(t, decimal.NewFromInt(50000).Equal(balances[0].Value))
}

func TestBacktestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"from after to", "from: 2024-03-01T00:00:00Z\nto: 2024-01-01T00:00:00Z\naccounts: [{id: a}]\ninstruments: {ids: [X]}\n"},
		{"no accounts", "from: 2024-01-01T00:00:00Z\nto: 2024-03-01T00:00:00Z\ninstruments: {ids: [X]}\n"},
		{"no instruments", "from: 2024-01-01T00:00:00Z\nto: 2024-03-01T00:00:00Z\naccounts: [{id: a}]\n"},
		{"duplicate account", "from: 2024-01-01T00:00:00Z\nto: 2024-03-01T00:00:00Z\naccounts: [{id: a}, {id: a}]\ninstruments: {ids: [X]}\n"},
		{"bad tariff", "from: 2024-01-01T00:00:00Z\nto: 2024-03-01T00:00:00Z\naccounts: [{id: a}]\ninstruments: {ids: [X]}\ntariff: vip\n"},
		{"bad source", "from: 2024-01-01T00:00:00Z\nto: 2024-03-01T00:00:00Z\naccounts: [{id: a}]\ninstruments: {ids: [X]}\ncandles: {source: ws}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBacktestConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestBacktestConfigCommission(t *testing.T) {
	cfg := BacktestConfig{Tariff: model.TraderTariff}
	assert.Equal(t, "0.0005", cfg.Commission().Rate(model.Share).String())
	assert.Equal(t, "0.005", cfg.Commission().Rate(model.Currency).String())

	rate := 0.003
	cfg.CommissionRate = &rate
	assert.Equal(t, "0.003", cfg.Commission().Rate(model.Currency).String())
}
