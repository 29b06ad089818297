package backtest

import (
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/logger"
	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/STTM-NSU/invest-backtest/internal/tools"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const _orderIdPrefix = "backtest-"

type LastPricer interface {
	GetLastPrice(figi string, asOf time.Time) (decimal.Decimal, error)
}

type InstrumentResolver interface {
	ShareInfo(figi string) (model.ShareInfo, error)
}

// Executor fills orders instantly against the ledger at the last known price.
type Executor struct {
	ledger      *Ledger
	prices      LastPricer
	instruments InstrumentResolver
	commission  model.Commission
	logger      logger.Logger
}

func NewExecutor(ledger *Ledger, prices LastPricer, instruments InstrumentResolver, commission model.Commission, logger logger.Logger) *Executor {
	return &Executor{
		ledger:      ledger,
		prices:      prices,
		instruments: instruments,
		commission:  commission,
		logger:      logger,
	}
}

// GetOrders is always empty: every order is filled or rejected when posted.
func (e *Executor) GetOrders(account, figi string) []model.Order {
	return []model.Order{}
}

func (e *Executor) CancelOrder(account, orderID string) error {
	return fmt.Errorf("%w: Back test does not support cancelling of orders", model.ErrUnsupported)
}

func (e *Executor) PostOrder(req model.PostOrderRequest) (model.PostOrderResponse, error) {
	if req.Quantity <= 0 {
		return model.PostOrderResponse{}, fmt.Errorf("%w: quantity %d must be positive", model.ErrInvalidOperation, req.Quantity)
	}
	if req.Direction != model.DirectionBuy && req.Direction != model.DirectionSell {
		return model.PostOrderResponse{}, fmt.Errorf("%w: unknown direction %q", model.ErrInvalidOperation, req.Direction)
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = _orderIdPrefix + uuid.NewString()
	}

	info, err := e.instruments.ShareInfo(req.Figi)
	if err != nil {
		return model.PostOrderResponse{}, fmt.Errorf("%w: can't get instrument %s", err, req.Figi)
	}

	now := e.ledger.CurrentTime()
	var price decimal.Decimal
	if req.Price != nil {
		price = *req.Price
	} else {
		price, err = e.prices.GetLastPrice(req.Figi, now)
		if err != nil {
			return model.PostOrderResponse{}, fmt.Errorf("%w: can't get price for %s", err, req.Figi)
		}
	}

	notional := price.Mul(decimal.NewFromInt(req.Quantity)).Mul(decimal.NewFromInt(info.Lot))
	commission := notional.Mul(e.commission.Rate(info.InstrumentType))

	switch req.Direction {
	case model.DirectionBuy:
		err = e.buy(req.AccountID, info, req.Quantity, price, notional.Add(commission))
	case model.DirectionSell:
		err = e.sell(req.AccountID, info, req.Quantity, price, notional.Sub(commission))
	}
	if err != nil {
		e.logger.Warnf("%s: order %s %s %d %s rejected", err, orderID, req.Direction, req.Quantity, req.Figi)
		return model.PostOrderResponse{}, err
	}

	e.ledger.AddOperation(req.AccountID, model.Operation{
		Figi:       req.Figi,
		Time:       now,
		Direction:  req.Direction,
		Price:      price,
		Quantity:   req.Quantity,
		Currency:   info.Currency,
		Commission: commission,
	})

	e.logger.Infof("%s %d %s at %s, commission %s %s on %s",
		req.Direction, req.Quantity, req.Figi, price, commission, info.Currency, now)

	orderType := req.Type
	if orderType == "" {
		orderType = model.OrderTypeMarket
	}

	return model.PostOrderResponse{
		OrderID:       orderID,
		Figi:          req.Figi,
		Direction:     req.Direction,
		Type:          orderType,
		ExecutedLots:  req.Quantity,
		ExecutedPrice: price,
		TotalAmount:   notional,
		Commission:    commission,
		Currency:      info.Currency,
	}, nil
}

func (e *Executor) buy(account string, info model.ShareInfo, quantity int64, price, cost decimal.Decimal) error {
	balance := e.ledger.GetBalance(account, info.Currency).Sub(cost)
	if balance.IsNegative() {
		return fmt.Errorf("%w: balance can't be negative", model.ErrInvalidOperation)
	}

	pos, ok := e.ledger.GetPosition(account, info.Figi)
	if !ok {
		pos = model.Position{
			Figi:           info.Figi,
			InstrumentType: info.InstrumentType,
			Currency:       info.Currency,
			Quantity:       quantity,
			AveragePrice:   price,
			CurrentPrice:   price,
			ExpectedYield:  decimal.Zero,
		}
	} else {
		held := decimal.NewFromInt(pos.Quantity)
		bought := decimal.NewFromInt(quantity)
		total := held.Add(bought)

		pos.ExpectedYield = held.Mul(price.Sub(pos.AveragePrice))
		pos.AveragePrice = pos.AveragePrice.Mul(held).Add(price.Mul(bought)).DivRound(total, tools.PriceScale)
		pos.Quantity += quantity
		pos.CurrentPrice = price
	}

	if err := e.ledger.SetBalance(account, info.Currency, balance); err != nil {
		return err
	}
	e.ledger.AddPosition(account, info.Figi, pos)
	return nil
}

func (e *Executor) sell(account string, info model.ShareInfo, quantity int64, price, proceeds decimal.Decimal) error {
	pos, ok := e.ledger.GetPosition(account, info.Figi)
	if !ok {
		pos = model.Position{Figi: info.Figi}
	}
	if quantity > pos.Quantity {
		return fmt.Errorf("%w: quantity %d can't be greater than existing position's quantity %d",
			model.ErrInvalidOperation, quantity, pos.Quantity)
	}

	balance := e.ledger.GetBalance(account, info.Currency).Add(proceeds)
	if err := e.ledger.SetBalance(account, info.Currency, balance); err != nil {
		return err
	}

	pos.Quantity -= quantity
	if pos.Quantity == 0 {
		e.ledger.RemovePosition(account, info.Figi)
		return nil
	}

	pos.CurrentPrice = price
	pos.ExpectedYield = price.Sub(pos.AveragePrice).Mul(decimal.NewFromInt(pos.Quantity))
	e.ledger.AddPosition(account, info.Figi, pos)
	return nil
}
