package model

import (
	"testing"
	"time"

	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCandleIntervalEnd(t *testing.T) {
	start := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		interval CandleInterval
		want     time.Time
		coarse   bool
	}{
		{OneMinute, start.Add(time.Minute), false},
		{FiveMinutes, start.Add(5 * time.Minute), false},
		{FifteenMinutes, start.Add(15 * time.Minute), false},
		{Hour, start.Add(time.Hour), false},
		{Day, start.AddDate(0, 0, 1), true},
		{Week, start.AddDate(0, 0, 7), true},
		{Month, time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			assert.True(t, tt.interval.IsValid())
			assert.Equal(t, tt.want, tt.interval.End(start))
			assert.Equal(t, tt.coarse, tt.interval.IsCoarse())
			assert.NotEqual(t, investapi.CandleInterval_CANDLE_INTERVAL_UNSPECIFIED, tt.interval.ToInvestAPI())
		})
	}

	assert.False(t, CandleInterval("2min").IsValid())
}

func TestCandleIsComplete(t *testing.T) {
	c := Candle{Interval: Hour, Time: time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)}

	assert.False(t, c.IsComplete(time.Date(2024, 1, 10, 10, 59, 0, 0, time.UTC)))
	assert.True(t, c.IsComplete(time.Date(2024, 1, 10, 11, 0, 0, 0, time.UTC)))
}

func TestCommissionRate(t *testing.T) {
	investor := NewTariffCommission(InvestorTariff)
	assert.Equal(t, "0.003", investor.Rate(Share).String())
	assert.Equal(t, "0.009", investor.Rate(Currency).String())
	assert.Equal(t, "0.003", investor.Rate(InstrumentType("future")).String())

	flat := NewFlatCommission(decimal.RequireFromString("0.001"))
	assert.Equal(t, "0.001", flat.Rate(Currency).String())

	assert.True(t, Tariff("premium").IsValid())
	assert.False(t, Tariff("vip").IsValid())
}

func TestFromInvestAPIType(t *testing.T) {
	assert.Equal(t, Share, FromInvestAPIType(investapi.InstrumentType_INSTRUMENT_TYPE_SHARE))
	assert.Equal(t, Etf, FromInvestAPIType(investapi.InstrumentType_INSTRUMENT_TYPE_ETF))
	assert.Equal(t, InstrumentType(""), FromInvestAPIType(investapi.InstrumentType_INSTRUMENT_TYPE_UNSPECIFIED))
}
