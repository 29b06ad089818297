package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Balance struct {
	AccountID string          `db:"account_id"`
	Currency  string          `db:"currency"`
	Value     decimal.Decimal `db:"value"`
}

type Investment struct {
	Time  time.Time
	Value decimal.Decimal
}

type Position struct {
	Figi           string          `json:"figi" db:"figi"`
	InstrumentType InstrumentType  `json:"instrument_type" db:"instrument_type"`
	Currency       string          `json:"currency" db:"currency"`
	Quantity       int64           `json:"quantity" db:"quantity"`
	AveragePrice   decimal.Decimal `json:"average_price" db:"average_price"`
	CurrentPrice   decimal.Decimal `json:"current_price" db:"current_price"`
	ExpectedYield  decimal.Decimal `json:"expected_yield" db:"expected_yield"`
}

type OperationDirection string

const (
	DirectionBuy  OperationDirection = "buy"
	DirectionSell OperationDirection = "sell"
)

type Operation struct {
	Figi       string             `json:"figi"`
	Time       time.Time          `json:"time"`
	Direction  OperationDirection `json:"direction"`
	Price      decimal.Decimal    `json:"price"`
	Quantity   int64              `json:"quantity"`
	Currency   string             `json:"currency"`
	Commission decimal.Decimal    `json:"commission"`
}

// Equal compares operations by value.
func (o Operation) Equal(other Operation) bool {
	return o.Figi == other.Figi &&
		o.Time.Equal(other.Time) &&
		o.Direction == other.Direction &&
		o.Price.Equal(other.Price) &&
		o.Quantity == other.Quantity &&
		o.Currency == other.Currency &&
		o.Commission.Equal(other.Commission)
}

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

type Order struct {
	OrderID   string
	Figi      string
	Direction OperationDirection
	Type      OrderType
	Quantity  int64
	Price     decimal.Decimal
}

type PostOrderRequest struct {
	AccountID string
	Figi      string
	Quantity  int64
	// Price is nil for market orders.
	Price     *decimal.Decimal
	Direction OperationDirection
	Type      OrderType
	OrderID   string
}

type PostOrderResponse struct {
	OrderID       string             `json:"order_id"`
	Figi          string             `json:"figi"`
	Direction     OperationDirection `json:"direction"`
	Type          OrderType          `json:"type"`
	ExecutedLots  int64              `json:"executed_lots"`
	ExecutedPrice decimal.Decimal    `json:"executed_price"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Commission    decimal.Decimal    `json:"commission"`
	Currency      string             `json:"currency"`
}

type WithdrawLimits struct {
	Money            []MoneyValue `json:"money"`
	Blocked          []MoneyValue `json:"blocked"`
	BlockedGuarantee []MoneyValue `json:"blocked_guarantee"`
}

type Report struct {
	RunID          string                     `json:"run_id"`
	AccountID      string                     `json:"account_id"`
	From           time.Time                  `json:"from"`
	To             time.Time                  `json:"to"`
	StartBalances  map[string]decimal.Decimal `json:"start_balances"`
	Balances       map[string]decimal.Decimal `json:"balances"`
	ProfitPercent  map[string]decimal.Decimal `json:"profit_percent"`
	Positions      []Position                 `json:"positions"`
	OperationsDone int                        `json:"operations_done"`
	Ticks          int                        `json:"ticks"`
}
