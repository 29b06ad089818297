package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/STTM-NSU/invest-backtest/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	_investCfgFilePath   = "./configs/invest.yaml"
	_backtestCfgFilePath = "./configs/backtest.yaml"
)

var (
	investCfgPath string
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:           "backtest",
	Short:         "Backtest trading strategies against T-Invest historical market data",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&investCfgPath, "invest-config", _investCfgFilePath, "invest api sdk config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	rootCmd.AddCommand(runCmd, instrumentCmd)
}

func newLogger() (*logger.ZapLogger, func(), error) {
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return nil, nil, err
	}
	return logger.NewZapLogger(level)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("can't detect .env file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("%s", err)
		cancel()
		os.Exit(1)
	}
}
