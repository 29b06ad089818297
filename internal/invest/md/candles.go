package md

import (
	"fmt"
	"slices"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/config"
	"github.com/STTM-NSU/invest-backtest/internal/logger"
	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/shopspring/decimal"
)

// CandlesService locates historical candles over sparse trading calendars.
// Searches walk backwards window by window and give up after a bounded number
// of consecutive empty windows, so unknown or delisted instruments stay cheap.
type CandlesService struct {
	source Source
	clock  Clock
	cfg    config.CandlesConfig
	logger logger.Logger
}

func NewCandlesService(source Source, clock Clock, cfg config.CandlesConfig, logger logger.Logger) *CandlesService {
	return &CandlesService{
		source: source,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// GetCandles returns complete candles inside interval in chronological order.
// The interval start is required, the end defaults to the current time.
func (s *CandlesService) GetCandles(figi string, interval model.Interval, granularity model.CandleInterval) ([]model.Candle, error) {
	if !granularity.IsValid() {
		return nil, fmt.Errorf("%w: unknown candle interval %q", model.ErrInvalidArgument, granularity)
	}
	if interval.From == nil {
		return nil, fmt.Errorf("%w: interval start is required", model.ErrInvalidArgument)
	}

	now := s.clock.CurrentTime()
	interval = interval.WithDefaults(*interval.From, now)
	if interval.To.After(now) {
		interval.To = &now
	}
	if interval.From.After(*interval.To) {
		return nil, nil
	}

	windows, err := splitWindows(interval, granularity)
	if err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0)
	for _, w := range windows {
		// sources treat the end as exclusive, boundary duplicates are dropped by normalize
		part, err := s.source.HistoricCandles(figi, *w.From, w.To.Add(time.Nanosecond), granularity)
		if err != nil {
			return nil, fmt.Errorf("%w: can't get candles for %s on %s", err, figi, w)
		}
		candles = append(candles, part...)
	}

	return normalize(candles, func(c model.Candle) bool {
		return interval.Contains(c.Time) && c.IsComplete(now)
	}), nil
}

// GetLastPrice returns the close price of the latest complete candle at or before asOf.
func (s *CandlesService) GetLastPrice(figi string, asOf time.Time) (decimal.Decimal, error) {
	for _, granularity := range []model.CandleInterval{model.OneMinute, model.Day} {
		candles, err := s.lastCandles(figi, 1, granularity, asOf, true)
		if err != nil {
			return decimal.Zero, err
		}
		if len(candles) > 0 {
			return candles[0].Close, nil
		}
	}

	return decimal.Zero, fmt.Errorf("%w: not found last candle for figi %s", model.ErrNotFound, figi)
}

// GetLastCandles returns at most limit complete candles strictly before asOf in chronological order.
// An exhausted search budget is not an error: whatever was found is returned.
func (s *CandlesService) GetLastCandles(figi string, limit int, granularity model.CandleInterval, asOf time.Time) ([]model.Candle, error) {
	if !granularity.IsValid() {
		return nil, fmt.Errorf("%w: unknown candle interval %q", model.ErrInvalidArgument, granularity)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", model.ErrInvalidArgument, limit)
	}

	return s.lastCandles(figi, limit, granularity, asOf, false)
}

func (s *CandlesService) GetTradingStatus(figi string) (model.TradingStatus, error) {
	status, err := s.source.TradingStatus(figi)
	if err != nil {
		return model.TradingStatus{}, fmt.Errorf("%w: can't get trading status for %s", err, figi)
	}
	return status, nil
}

func (s *CandlesService) lastCandles(figi string, limit int, granularity model.CandleInterval, bound time.Time, inclusive bool) ([]model.Candle, error) {
	collected := make([]model.Candle, 0, limit)
	if limit == 0 {
		return collected, nil
	}

	now := s.clock.CurrentTime()
	coarse := granularity.IsCoarse()
	maxEmpty := s.cfg.EmptyDaysLimit
	if coarse {
		maxEmpty = s.cfg.EmptyYearsLimit
	}

	accept := func(c model.Candle) bool {
		if c.Time.After(bound) || (!inclusive && c.Time.Equal(bound)) {
			return false
		}
		return c.IsComplete(now)
	}

	end := bound
	if inclusive {
		end = bound.Add(time.Nanosecond)
	}

	empty := 0
	for len(collected) < limit {
		start := windowStart(end, coarse)

		part, err := s.source.HistoricCandles(figi, start, end, granularity)
		if err != nil {
			return nil, fmt.Errorf("%w: can't get candles for %s on %s", err, figi, model.IntervalOf(start, end))
		}

		part = normalize(part, accept)
		if len(part) == 0 {
			empty++
			if empty > maxEmpty {
				s.logger.Debugf("stop searching candles for %s: %d empty windows before %s", figi, empty, end)
				break
			}
		} else {
			empty = 0
			for i := len(part) - 1; i >= 0 && len(collected) < limit; i-- {
				collected = append(collected, part[i])
			}
		}

		end = start
	}

	slices.Reverse(collected)
	return collected, nil
}

func splitWindows(interval model.Interval, granularity model.CandleInterval) ([]model.Interval, error) {
	if granularity.IsCoarse() {
		return interval.SplitIntoYears()
	}
	return interval.SplitIntoDays()
}

// windowStart returns the calendar day (or year) start strictly before end.
func windowStart(end time.Time, coarse bool) time.Time {
	if coarse {
		start := model.StartOfYear(end)
		if !start.Before(end) {
			start = start.AddDate(-1, 0, 0)
		}
		return start
	}

	start := model.StartOfDay(end)
	if !start.Before(end) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

// normalize filters, sorts by time and drops duplicates of the same timestamp.
func normalize(candles []model.Candle, keep func(model.Candle) bool) []model.Candle {
	res := make([]model.Candle, 0, len(candles))
	for _, c := range candles {
		if keep(c) {
			res = append(res, c)
		}
	}

	slices.SortStableFunc(res, func(a, b model.Candle) int {
		return a.Time.Compare(b.Time)
	})

	return slices.CompactFunc(res, func(a, b model.Candle) bool {
		return a.Time.Equal(b.Time)
	})
}
