package main

import (
	"fmt"
	"os"

	"github.com/STTM-NSU/invest-backtest/internal/config"
	"github.com/STTM-NSU/invest-backtest/internal/invest/instrument"
	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	"github.com/spf13/cobra"
)

var instrumentCmd = &cobra.Command{
	Use:   "instrument [figi or ticker]...",
	Short: "Look up figi, ticker, lot and currency of instruments",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		zapLogger, loggerSync, err := newLogger()
		if err != nil {
			return fmt.Errorf("%w: can't init logger", err)
		}
		defer loggerSync()

		investCfg, err := config.LoadInvestConfig(investCfgPath)
		if err != nil {
			return fmt.Errorf("%w: can't load invest cfg", err)
		}

		investClient, err := investgo.NewClient(cmd.Context(), investCfg, zapLogger)
		if err != nil {
			return fmt.Errorf("%w: can't create invest client", err)
		}
		defer func() {
			if err := investClient.Stop(); err != nil {
				zapLogger.Errorf("%s: can't stop invest client", err)
			}
		}()

		instrumentsService := instrument.NewInstrumentsService(investClient, zapLogger)
		for _, query := range args {
			info, err := instrumentsService.Resolve(query)
			if err != nil {
				return fmt.Errorf("%w: can't resolve %s", err, query)
			}
			fmt.Fprintf(os.Stdout, "%s\t%s\t%s\tlot %d\t%s\t%s\n",
				query, info.Figi, info.Ticker, info.Lot, info.Currency, info.InstrumentType)
		}
		return nil
	},
}
