package md

import (
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/logger"
	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/jmoiron/sqlx"
)

const (
	_queryCandles = `SELECT figi, interval, ts, open_price, close_price, high_price, low_price, volume
		FROM candles WHERE figi = $1 AND interval = $2 AND ts >= $3 AND ts < $4 ORDER BY ts`
	_insertCandles = `INSERT INTO candles (figi, interval, ts, open_price, close_price, high_price, low_price, volume)
		VALUES (:figi, :interval, :ts, :open_price, :close_price, :high_price, :low_price, :volume)
		ON CONFLICT DO NOTHING`
	_queryWindowLoaded = `SELECT EXISTS (SELECT 1 FROM candle_windows WHERE figi = $1 AND interval = $2 AND window_start = $3)`
	_insertWindow      = `INSERT INTO candle_windows (figi, interval, window_start) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
)

// DBSource caches candles of the next source in postgres by whole day (or year) windows.
// A window is remembered as loaded only once it lies completely in the past.
type DBSource struct {
	db     *sqlx.DB
	next   Source
	logger logger.Logger
}

func NewDBSource(db *sqlx.DB, next Source, logger logger.Logger) *DBSource {
	return &DBSource{
		db:     db,
		next:   next,
		logger: logger,
	}
}

func (s *DBSource) HistoricCandles(figi string, from, to time.Time, interval model.CandleInterval) ([]model.Candle, error) {
	coarse := interval.IsCoarse()
	for _, start := range alignWindows(from, to, coarse) {
		if err := s.load(figi, interval, start, nextWindow(start, coarse)); err != nil {
			return nil, err
		}
	}

	var candles []model.Candle
	if err := s.db.Select(&candles, _queryCandles, figi, interval, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("%w: can't get candles from database", err)
	}
	for i := range candles {
		candles[i].Time = candles[i].Time.UTC()
	}

	return candles, nil
}

func (s *DBSource) TradingStatus(figi string) (model.TradingStatus, error) {
	return s.next.TradingStatus(figi)
}

func (s *DBSource) load(figi string, interval model.CandleInterval, start, end time.Time) error {
	var loaded bool
	if err := s.db.Get(&loaded, _queryWindowLoaded, figi, interval, start); err != nil {
		return fmt.Errorf("%w: can't check candles window", err)
	}
	if loaded {
		return nil
	}

	candles, err := s.next.HistoricCandles(figi, start, end, interval)
	if err != nil {
		return err
	}

	if len(candles) > 0 {
		if _, err := s.db.NamedExec(_insertCandles, candles); err != nil {
			return fmt.Errorf("%w: can't save candles", err)
		}
	}

	if !end.After(time.Now()) {
		if _, err := s.db.Exec(_insertWindow, figi, interval, start); err != nil {
			return fmt.Errorf("%w: can't save candles window", err)
		}
	}

	s.logger.Debugf("cached %d %s candles for %s from %s", len(candles), interval, figi, start)
	return nil
}

// alignWindows returns starts of the day (or year) windows covering [from, to).
func alignWindows(from, to time.Time, coarse bool) []time.Time {
	from, to = from.UTC(), to.UTC()

	var starts []time.Time
	start := model.StartOfDay(from)
	if coarse {
		start = model.StartOfYear(from)
	}
	for ; start.Before(to); start = nextWindow(start, coarse) {
		starts = append(starts, start)
	}
	return starts
}

func nextWindow(start time.Time, coarse bool) time.Time {
	if coarse {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 0, 1)
}
