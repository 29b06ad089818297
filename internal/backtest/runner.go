package backtest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/logger"
	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/shopspring/decimal"
)

type ScheduleProvider interface {
	TradingSchedule(exchange string, interval model.Interval) ([]model.TradingSchedule, error)
}

// Progress receives one unit per simulated minute. progressbar.ProgressBar satisfies it.
type Progress interface {
	Add(num int) error
}

type RunConfig struct {
	RunID     string
	AccountID string
	Exchange  string
	From      time.Time
	To        time.Time
}

// Runner drives the ledger clock through exchange trading minutes and feeds them to a strategy.
type Runner struct {
	cfg       RunConfig
	ledger    *Ledger
	executor  *Executor
	strategy  Strategy
	schedules ScheduleProvider
	progress  Progress
	logger    logger.Logger
}

func NewRunner(
	cfg RunConfig,
	ledger *Ledger,
	executor *Executor,
	strategy Strategy,
	schedules ScheduleProvider,
	progress Progress,
	logger logger.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		ledger:    ledger,
		executor:  executor,
		strategy:  strategy,
		schedules: schedules,
		progress:  progress,
		logger:    logger,
	}
}

func (r *Runner) Run(ctx context.Context) (model.Report, error) {
	if r.cfg.From.After(r.cfg.To) {
		return model.Report{}, fmt.Errorf("%w: from %s after to %s", model.ErrInvalidArgument, r.cfg.From, r.cfg.To)
	}

	schedule, err := r.schedules.TradingSchedule(r.cfg.Exchange, model.IntervalOf(r.cfg.From, r.cfg.To))
	if err != nil {
		return model.Report{}, fmt.Errorf("%w: can't get trading schedule", err)
	}

	account := r.cfg.AccountID
	startBalances := r.ledger.GetBalances(account)
	r.ledger.SetCurrentTime(r.cfg.From)

	r.logger.Infof("start backtest %s for %s from %s to %s", r.cfg.RunID, account, r.cfg.From, r.cfg.To)

	ticks := 0
	for {
		now, ok := r.ledger.NextScheduleMinute(schedule)
		if !ok || now.After(r.cfg.To) {
			break
		}
		if err := ctx.Err(); err != nil {
			return model.Report{}, err
		}

		if err := r.strategy.OnTick(ctx, account, now); err != nil {
			return model.Report{}, fmt.Errorf("%w: strategy failed on %s", err, now)
		}

		ticks++
		if r.progress != nil {
			_ = r.progress.Add(1)
		}
	}

	if err := r.sellOut(account); err != nil {
		return model.Report{}, err
	}

	report := model.Report{
		RunID:          r.cfg.RunID,
		AccountID:      account,
		From:           r.cfg.From,
		To:             r.cfg.To,
		StartBalances:  startBalances,
		Balances:       r.ledger.GetBalances(account),
		Positions:      r.ledger.GetPositions(account),
		OperationsDone: len(r.ledger.GetOperations(account)),
		Ticks:          ticks,
	}
	report.ProfitPercent = profitPercent(report.StartBalances, report.Balances)

	r.logger.Infof("finish backtest %s for %s: %d ticks, %d operations, profit %v",
		r.cfg.RunID, account, ticks, report.OperationsDone, report.ProfitPercent)

	return report, nil
}

// sellOut closes every position at the last known price. Positions without a price stay open.
func (r *Runner) sellOut(account string) error {
	for _, pos := range r.ledger.GetPositions(account) {
		_, err := r.executor.PostOrder(model.PostOrderRequest{
			AccountID: account,
			Figi:      pos.Figi,
			Quantity:  pos.Quantity,
			Direction: model.DirectionSell,
			Type:      model.OrderTypeMarket,
		})
		if errors.Is(err, model.ErrNotFound) {
			r.logger.Warnf("%s: position %s left open", err, pos.Figi)
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: can't sell out %s", err, pos.Figi)
		}
	}
	return nil
}

func profitPercent(start, end map[string]decimal.Decimal) map[string]decimal.Decimal {
	hundred := decimal.NewFromInt(100)

	res := make(map[string]decimal.Decimal, len(start))
	for currency := range maps.Keys(start) {
		from := start[currency]
		if from.IsZero() {
			continue
		}
		res[currency] = end[currency].Sub(from).Mul(hundred).DivRound(from, 4)
	}
	return res
}
