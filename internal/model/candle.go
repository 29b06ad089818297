package model

import (
	"time"

	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/shopspring/decimal"
)

type CandleInterval string

const (
	OneMinute      CandleInterval = "1min"
	FiveMinutes    CandleInterval = "5min"
	FifteenMinutes CandleInterval = "15min"
	Hour           CandleInterval = "hour"
	Day            CandleInterval = "day"
	Week           CandleInterval = "week"
	Month          CandleInterval = "month"
)

func (c CandleInterval) IsValid() bool {
	switch c {
	case OneMinute, FiveMinutes, FifteenMinutes, Hour, Day, Week, Month:
		return true
	default:
		return false
	}
}

// IsCoarse reports whether candles of this granularity are looked up in calendar year windows
// rather than day windows.
func (c CandleInterval) IsCoarse() bool {
	switch c {
	case Day, Week, Month:
		return true
	default:
		return false
	}
}

// End returns the moment a candle opened at start is complete.
func (c CandleInterval) End(start time.Time) time.Time {
	switch c {
	case OneMinute:
		return start.Add(time.Minute)
	case FiveMinutes:
		return start.Add(5 * time.Minute)
	case FifteenMinutes:
		return start.Add(15 * time.Minute)
	case Hour:
		return start.Add(time.Hour)
	case Day:
		return start.AddDate(0, 0, 1)
	case Week:
		return start.AddDate(0, 0, 7)
	case Month:
		return start.AddDate(0, 1, 0)
	default:
		return start
	}
}

func (c CandleInterval) ToInvestAPI() investapi.CandleInterval {
	switch c {
	case OneMinute:
		return investapi.CandleInterval_CANDLE_INTERVAL_1_MIN
	case FiveMinutes:
		return investapi.CandleInterval_CANDLE_INTERVAL_5_MIN
	case FifteenMinutes:
		return investapi.CandleInterval_CANDLE_INTERVAL_15_MIN
	case Hour:
		return investapi.CandleInterval_CANDLE_INTERVAL_HOUR
	case Day:
		return investapi.CandleInterval_CANDLE_INTERVAL_DAY
	case Week:
		return investapi.CandleInterval_CANDLE_INTERVAL_WEEK
	case Month:
		return investapi.CandleInterval_CANDLE_INTERVAL_MONTH
	default:
		return investapi.CandleInterval_CANDLE_INTERVAL_UNSPECIFIED
	}
}

type Candle struct {
	Figi     string          `db:"figi"`
	Interval CandleInterval  `db:"interval"`
	Time     time.Time       `db:"ts"`
	Open     decimal.Decimal `db:"open_price"`
	Close    decimal.Decimal `db:"close_price"`
	High     decimal.Decimal `db:"high_price"`
	Low      decimal.Decimal `db:"low_price"`
	Volume   int64           `db:"volume"`
}

// IsComplete reports whether the candle period has fully elapsed at now.
func (c Candle) IsComplete(now time.Time) bool {
	return !c.Interval.End(c.Time).After(now)
}

type TradingStatus struct {
	Figi                 string `json:"figi"`
	Status               string `json:"trading_status"`
	LimitOrderAvailable  bool   `json:"limit_order_available"`
	MarketOrderAvailable bool   `json:"market_order_available"`
	APITradeAvailable    bool   `json:"api_trade_available"`
}
