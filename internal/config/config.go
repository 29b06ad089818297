package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/russianinvestments/invest-api-go-sdk/investgo"
)

const (
	_sandboxEndpoint = "sandbox-invest-public-api.tinkoff.ru:443"
	_appName         = "sttm-invest-backtest"
)

// LoadInvestConfig reads the SDK config file; a missing file falls back to the sandbox endpoint.
func LoadInvestConfig(filename string) (investgo.Config, error) {
	cfg := investgo.Config{
		EndPoint: _sandboxEndpoint,
		AppName:  _appName,
	}

	if _, err := os.Stat(filename); err == nil {
		cfg, err = investgo.LoadConfig(filename)
		if err != nil {
			return investgo.Config{}, fmt.Errorf("%w: can't load config", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return investgo.Config{}, fmt.Errorf("%w: can't stat config", err)
	}

	cfg.Token = os.Getenv("T_INVEST_API_TOKEN")
	if cfg.Token == "" {
		return investgo.Config{}, fmt.Errorf("empty t-invest api token")
	}

	return cfg, nil
}
