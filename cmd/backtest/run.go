package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/backtest"
	"github.com/STTM-NSU/invest-backtest/internal/config"
	"github.com/STTM-NSU/invest-backtest/internal/invest/instrument"
	"github.com/STTM-NSU/invest-backtest/internal/invest/md"
	"github.com/STTM-NSU/invest-backtest/internal/logger"
	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/STTM-NSU/invest-backtest/internal/portfolio"
	"github.com/STTM-NSU/invest-backtest/internal/postgres"
	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var backtestCfgPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest for every configured account",
	RunE: func(cmd *cobra.Command, args []string) error {
		zapLogger, loggerSync, err := newLogger()
		if err != nil {
			return fmt.Errorf("%w: can't init logger", err)
		}
		defer loggerSync()

		return run(cmd.Context(), zapLogger)
	},
}

func init() {
	runCmd.Flags().StringVar(&backtestCfgPath, "config", _backtestCfgFilePath, "backtest config")
}

func run(ctx context.Context, zapLogger logger.Logger) error {
	cfg, err := config.LoadBacktestConfig(backtestCfgPath)
	if err != nil {
		return fmt.Errorf("%w: can't load backtest cfg", err)
	}

	investCfg, err := config.LoadInvestConfig(investCfgPath)
	if err != nil {
		return fmt.Errorf("%w: can't load invest cfg", err)
	}

	investClient, err := investgo.NewClient(ctx, investCfg, zapLogger)
	if err != nil {
		return fmt.Errorf("%w: can't create invest client", err)
	}
	defer func() {
		if err := investClient.Stop(); err != nil {
			zapLogger.Errorf("%s: can't stop invest client", err)
		}
	}()

	var db *sqlx.DB
	if cfg.Candles.Cache || cfg.Persist {
		pgConfig := postgres.NewConfigFromEnv().Setup()
		zapLogger.Debugf("trying to connect to db with: %s", pgConfig)
		db, err = postgres.NewDB(ctx, pgConfig)
		if err != nil {
			return fmt.Errorf("%w: can't connect to db", err)
		}
		defer db.Close()
	}

	instrumentsService := instrument.NewInstrumentsService(investClient, zapLogger)
	figis := make([]string, 0, len(cfg.Instruments.IDs))
	for _, id := range cfg.Instruments.IDs {
		info, err := instrumentsService.Resolve(id)
		if err != nil {
			return fmt.Errorf("%w: can't resolve instrument %s", err, id)
		}
		zapLogger.Infof("instrument %s: figi %s, ticker %s, lot %d, %s", id, info.Figi, info.Ticker, info.Lot, info.Currency)
		figis = append(figis, info.Figi)
	}

	source := newSource(cfg.Candles, investClient, investCfg.Token, db, zapLogger)
	runID := portfolio.NewRunID(time.Now())
	bar := initProgressBar()

	reports := make([]model.Report, len(cfg.Accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, account := range cfg.Accounts {
		g.Go(func() error {
			accountLogger := zapLogger.With("account", account.ID)

			ledger, err := backtest.NewLedger(cfg.From, account.StartBalances())
			if err != nil {
				return fmt.Errorf("%w: can't create ledger for %s", err, account.ID)
			}

			candlesService := md.NewCandlesService(source, ledger, cfg.Candles, accountLogger)
			executor := backtest.NewExecutor(ledger, candlesService, instrumentsService, cfg.Commission(), accountLogger)
			strategy := backtest.NewHoldStrategy(
				executor, ledger, candlesService, instrumentsService,
				cfg.Commission(), figis, cfg.Strategy.BalanceShare, accountLogger,
			)

			runner := backtest.NewRunner(backtest.RunConfig{
				RunID:     runID,
				AccountID: account.ID,
				Exchange:  cfg.Exchange,
				From:      cfg.From,
				To:        cfg.To,
			}, ledger, executor, strategy, instrumentsService, bar, accountLogger)

			report, err := runner.Run(gctx)
			if err != nil {
				return fmt.Errorf("%w: backtest for %s failed", err, account.ID)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	_ = bar.Finish()

	if cfg.Persist {
		store := portfolio.NewStore(db, zapLogger)
		for _, report := range reports {
			if err := store.Save(ctx, report); err != nil {
				return fmt.Errorf("%w: can't save report", err)
			}
		}
	}

	out, err := sonic.ConfigStd.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: can't marshal reports", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}

func newSource(cfg config.CandlesConfig, client *investgo.Client, token string, db *sqlx.DB, zapLogger logger.Logger) md.Source {
	var source md.Source
	switch cfg.Source {
	case config.RESTSource:
		source = md.NewRESTSource(cfg, token, zapLogger)
	default:
		source = md.NewAPISource(client, cfg, zapLogger)
	}

	if cfg.Cache && db != nil {
		source = md.NewDBSource(db, source, zapLogger)
	}
	return source
}

func initProgressBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
}
