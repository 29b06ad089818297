package backtest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/logger"
	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const _sber = "BBG004730N88"

type fakePrices struct {
	prices map[string]decimal.Decimal
	asOf   []time.Time
}

func (f *fakePrices) GetLastPrice(figi string, asOf time.Time) (decimal.Decimal, error) {
	f.asOf = append(f.asOf, asOf)
	p, ok := f.prices[figi]
	if !ok {
		return decimal.Zero, model.ErrNotFound
	}
	return p, nil
}

type fakeInstruments map[string]model.ShareInfo

func (f fakeInstruments) ShareInfo(figi string) (model.ShareInfo, error) {
	info, ok := f[figi]
	if !ok {
		return model.ShareInfo{}, model.ErrNotFound
	}
	return info, nil
}

func testInstruments() fakeInstruments {
	return fakeInstruments{
		_sber: {Figi: _sber, Ticker: "SBER", Currency: _rub, Lot: 1, InstrumentType: model.Share},
		"LOT10": {Figi: "LOT10", Ticker: "L10", Currency: _rub, Lot: 10, InstrumentType: model.Share},
	}
}

func newTestExecutor(t *testing.T, rub string, prices *fakePrices) (*Executor, *Ledger) {
	t.Helper()
	l := newTestLedger(t, rub)
	rate := dec("0.003")
	e := NewExecutor(l, prices, testInstruments(), model.NewFlatCommission(rate), logger.NewNop())
	return e, l
}

func order(direction model.OperationDirection, quantity int64, price string) model.PostOrderRequest {
	p := dec(price)
	return model.PostOrderRequest{
		AccountID: _account,
		Figi:      _sber,
		Quantity:  quantity,
		Price:     &p,
		Direction: direction,
		Type:      model.OrderTypeLimit,
	}
}

func TestExecutorScenario(t *testing.T) {
	e, l := newTestExecutor(t, "1000000", &fakePrices{})

	resp, err := e.PostOrder(order(model.DirectionBuy, 20, "1000"))
	require.NoError(t, err)
	assert.True(t, dec("979940").Equal(l.GetBalance(_account, _rub)))
	assert.True(t, dec("60").Equal(resp.Commission))
	assert.True(t, dec("20000").Equal(resp.TotalAmount))
	assert.Equal(t, int64(20), resp.ExecutedLots)

	_, err = e.PostOrder(order(model.DirectionBuy, 10, "4000"))
	require.NoError(t, err)
	assert.True(t, dec("939820").Equal(l.GetBalance(_account, _rub)))

	pos, ok := l.GetPosition(_account, _sber)
	require.True(t, ok)
	assert.Equal(t, int64(30), pos.Quantity)
	assert.True(t, dec("2000").Equal(pos.AveragePrice), pos.AveragePrice.String())
	assert.True(t, dec("60000").Equal(pos.ExpectedYield))
	assert.True(t, dec("4000").Equal(pos.CurrentPrice))
	assert.Equal(t, model.Share, pos.InstrumentType)

	_, err = e.PostOrder(order(model.DirectionSell, 30, "3000"))
	require.NoError(t, err)
	assert.True(t, dec("1029550").Equal(l.GetBalance(_account, _rub)))
	_, ok = l.GetPosition(_account, _sber)
	assert.False(t, ok)

	ops := l.GetOperations(_account)
	require.Len(t, ops, 3)
	assert.Equal(t, model.DirectionSell, ops[2].Direction)
	assert.True(t, dec("270").Equal(ops[2].Commission))
	assert.Equal(t, _start, ops[2].Time)
}

func TestExecutorPartialSell(t *testing.T) {
	e, l := newTestExecutor(t, "1000000", &fakePrices{})

	_, err := e.PostOrder(order(model.DirectionBuy, 10, "100"))
	require.NoError(t, err)
	_, err = e.PostOrder(order(model.DirectionSell, 4, "150"))
	require.NoError(t, err)

	pos, ok := l.GetPosition(_account, _sber)
	require.True(t, ok)
	assert.Equal(t, int64(6), pos.Quantity)
	assert.True(t, dec("100").Equal(pos.AveragePrice))
	assert.True(t, dec("300").Equal(pos.ExpectedYield))
	assert.True(t, dec("150").Equal(pos.CurrentPrice))
}

func TestExecutorInsufficientBalance(t *testing.T) {
	e, l := newTestExecutor(t, "1000", &fakePrices{})

	_, err := e.PostOrder(order(model.DirectionBuy, 1, "1000"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidOperation))
	assert.Contains(t, err.Error(), "balance can't be negative")

	assert.True(t, dec("1000").Equal(l.GetBalance(_account, _rub)))
	_, ok := l.GetPosition(_account, _sber)
	assert.False(t, ok)
	assert.Empty(t, l.GetOperations(_account))
}

func TestExecutorSellMoreThanHeld(t *testing.T) {
	e, l := newTestExecutor(t, "100000", &fakePrices{})

	_, err := e.PostOrder(order(model.DirectionSell, 1, "10"))
	assert.True(t, errors.Is(err, model.ErrInvalidOperation))
	assert.Contains(t, err.Error(), "quantity 1 can't be greater than existing position's quantity 0")

	_, err = e.PostOrder(order(model.DirectionBuy, 5, "10"))
	require.NoError(t, err)
	balance := l.GetBalance(_account, _rub)

	_, err = e.PostOrder(order(model.DirectionSell, 6, "10"))
	assert.True(t, errors.Is(err, model.ErrInvalidOperation))
	assert.Contains(t, err.Error(), "quantity 6 can't be greater than existing position's quantity 5")

	assert.True(t, balance.Equal(l.GetBalance(_account, _rub)))
	pos, _ := l.GetPosition(_account, _sber)
	assert.Equal(t, int64(5), pos.Quantity)
	assert.Len(t, l.GetOperations(_account), 1)
}

func TestExecutorMarketPrice(t *testing.T) {
	prices := &fakePrices{prices: map[string]decimal.Decimal{"LOT10": dec("12.5")}}
	e, l := newTestExecutor(t, "10000", prices)
	l.SetCurrentTime(_start.Add(time.Hour))

	resp, err := e.PostOrder(model.PostOrderRequest{
		AccountID: _account,
		Figi:      "LOT10",
		Quantity:  2,
		Direction: model.DirectionBuy,
	})
	require.NoError(t, err)

	assert.Equal(t, []time.Time{_start.Add(time.Hour)}, prices.asOf)
	assert.Equal(t, model.OrderTypeMarket, resp.Type)
	assert.True(t, dec("12.5").Equal(resp.ExecutedPrice))
	assert.True(t, dec("250").Equal(resp.TotalAmount))
	assert.True(t, dec("0.75").Equal(resp.Commission))
	assert.True(t, dec("9749.25").Equal(l.GetBalance(_account, _rub)))
	assert.True(t, strings.HasPrefix(resp.OrderID, _orderIdPrefix))

	pos, ok := l.GetPosition(_account, "LOT10")
	require.True(t, ok)
	assert.Equal(t, int64(2), pos.Quantity)
}

func TestExecutorRejects(t *testing.T) {
	e, _ := newTestExecutor(t, "10000", &fakePrices{})

	req := order(model.DirectionBuy, 0, "10")
	_, err := e.PostOrder(req)
	assert.True(t, errors.Is(err, model.ErrInvalidOperation))

	req = order(model.DirectionBuy, 1, "10")
	req.Figi = "UNKNOWN"
	_, err = e.PostOrder(req)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	req = order(model.DirectionBuy, 1, "10")
	req.Price = nil
	_, err = e.PostOrder(req)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestExecutorKeepsOrderID(t *testing.T) {
	e, _ := newTestExecutor(t, "10000", &fakePrices{})

	req := order(model.DirectionBuy, 1, "10")
	req.OrderID = "my-order"
	resp, err := e.PostOrder(req)
	require.NoError(t, err)
	assert.Equal(t, "my-order", resp.OrderID)
	assert.Equal(t, model.OrderTypeLimit, resp.Type)
}

func TestExecutorOrdersUnsupported(t *testing.T) {
	e, _ := newTestExecutor(t, "10000", &fakePrices{})

	assert.Empty(t, e.GetOrders(_account, _sber))

	err := e.CancelOrder(_account, "id")
	assert.True(t, errors.Is(err, model.ErrUnsupported))
	assert.Contains(t, err.Error(), "Back test does not support cancelling of orders")
}

func TestExecutorTariffCommission(t *testing.T) {
	l := newTestLedger(t, "100000")
	e := NewExecutor(l, &fakePrices{}, testInstruments(), model.NewTariffCommission(model.TraderTariff), logger.NewNop())

	resp, err := e.PostOrder(order(model.DirectionBuy, 10, "100"))
	require.NoError(t, err)
	assert.True(t, dec("0.5").Equal(resp.Commission))
}
