package md

import (
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/model"
)

// Source is a market data provider. HistoricCandles may return an incomplete trailing candle.
type Source interface {
	HistoricCandles(figi string, from, to time.Time, interval model.CandleInterval) ([]model.Candle, error)
	TradingStatus(figi string) (model.TradingStatus, error)
}

// Clock supplies the current time: virtual in backtests, wall time live.
type Clock interface {
	CurrentTime() time.Time
}

type WallClock struct{}

func (WallClock) CurrentTime() time.Time {
	return time.Now().UTC()
}
