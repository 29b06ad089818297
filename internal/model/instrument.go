package model

import (
	"time"

	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
)

type InstrumentType string

const (
	Bond     InstrumentType = "bond"
	Share    InstrumentType = "share"
	Currency InstrumentType = "currency"
	Etf      InstrumentType = "etf"
)

func FromInvestAPIType(t investapi.InstrumentType) InstrumentType {
	switch t {
	case investapi.InstrumentType_INSTRUMENT_TYPE_BOND:
		return Bond
	case investapi.InstrumentType_INSTRUMENT_TYPE_SHARE:
		return Share
	case investapi.InstrumentType_INSTRUMENT_TYPE_CURRENCY:
		return Currency
	case investapi.InstrumentType_INSTRUMENT_TYPE_ETF:
		return Etf
	default:
		return ""
	}
}

// ShareInfo is the part of instrument data the order executor needs.
type ShareInfo struct {
	Figi           string
	Ticker         string
	Currency       string
	Lot            int64
	InstrumentType InstrumentType
}

type TradingSchedule struct {
	Date         time.Time `json:"date"`
	IsTradingDay bool      `json:"is_trading_day"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}
