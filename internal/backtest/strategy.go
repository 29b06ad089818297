package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/logger"
	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/shopspring/decimal"
)

// Strategy is called on every simulated minute.
type Strategy interface {
	OnTick(ctx context.Context, account string, now time.Time) error
}

// HoldStrategy spends a share of the start balance equally on the configured instruments
// as soon as each of them has a price, then holds until the run ends.
type HoldStrategy struct {
	executor    *Executor
	ledger      *Ledger
	prices      LastPricer
	instruments InstrumentResolver
	commission  model.Commission
	share       decimal.Decimal
	logger      logger.Logger

	figis   []string
	budgets map[string]decimal.Decimal // figi -> money to spend
	pending map[string]struct{}
}

func NewHoldStrategy(
	executor *Executor,
	ledger *Ledger,
	prices LastPricer,
	instruments InstrumentResolver,
	commission model.Commission,
	figis []string,
	share float64,
	logger logger.Logger,
) *HoldStrategy {
	pending := make(map[string]struct{}, len(figis))
	for _, figi := range figis {
		pending[figi] = struct{}{}
	}

	return &HoldStrategy{
		executor:    executor,
		ledger:      ledger,
		prices:      prices,
		instruments: instruments,
		commission:  commission,
		share:       decimal.NewFromFloat(share),
		logger:      logger,
		figis:       figis,
		pending:     pending,
	}
}

func (h *HoldStrategy) OnTick(ctx context.Context, account string, now time.Time) error {
	if len(h.pending) == 0 {
		return nil
	}

	if h.budgets == nil {
		if err := h.splitBudget(account); err != nil {
			return err
		}
	}

	for _, figi := range h.figis {
		if _, ok := h.pending[figi]; !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		bought, err := h.buy(account, figi, now)
		if err != nil {
			return err
		}
		if bought {
			delete(h.pending, figi)
		}
	}

	return nil
}

// splitBudget divides the balance of each currency between instruments traded in it.
func (h *HoldStrategy) splitBudget(account string) error {
	byCurrency := make(map[string][]string)
	for _, figi := range h.figis {
		info, err := h.instruments.ShareInfo(figi)
		if err != nil {
			return fmt.Errorf("%w: can't get instrument %s", err, figi)
		}
		byCurrency[info.Currency] = append(byCurrency[info.Currency], figi)
	}

	h.budgets = make(map[string]decimal.Decimal, len(h.figis))
	for currency, figis := range byCurrency {
		total := h.ledger.GetBalance(account, currency).Mul(h.share)
		part := total.Div(decimal.NewFromInt(int64(len(figis)))).RoundDown(2)
		for _, figi := range figis {
			h.budgets[figi] = part
		}
	}

	return nil
}

func (h *HoldStrategy) buy(account, figi string, now time.Time) (bool, error) {
	price, err := h.prices.GetLastPrice(figi, now)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: can't get price for %s", err, figi)
	}

	info, err := h.instruments.ShareInfo(figi)
	if err != nil {
		return false, fmt.Errorf("%w: can't get instrument %s", err, figi)
	}

	lotCost := price.Mul(decimal.NewFromInt(info.Lot)).Mul(decimal.NewFromInt(1).Add(h.commission.Rate(info.InstrumentType)))
	if !lotCost.IsPositive() {
		h.logger.Warnf("skip %s: non positive price %s", figi, price)
		return true, nil
	}

	lots := h.budgets[figi].Div(lotCost).IntPart()
	if lots <= 0 {
		h.logger.Warnf("skip %s: budget %s is less than one lot %s", figi, h.budgets[figi], lotCost)
		return true, nil
	}

	_, err = h.executor.PostOrder(model.PostOrderRequest{
		AccountID: account,
		Figi:      figi,
		Quantity:  lots,
		Price:     &price,
		Direction: model.DirectionBuy,
		Type:      model.OrderTypeMarket,
	})
	if errors.Is(err, model.ErrInvalidOperation) {
		h.logger.Warnf("%s: can't buy %s", err, figi)
		return true, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
