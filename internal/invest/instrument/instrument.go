package instrument

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/logger"
	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"go.uber.org/ratelimit"
)

// _scheduleChunk is the widest period a single TradingSchedules request may span.
const _scheduleChunk = 7 * 24 * time.Hour

type InstrumentsService struct {
	instrClient *investgo.InstrumentsServiceClient
	rateLimiter ratelimit.Limiter
	logger      logger.Logger

	mu          sync.RWMutex
	sharesCache map[string]model.ShareInfo // figi -> info
	figisCache  map[string]string          // query -> figi
}

func NewInstrumentsService(client *investgo.Client, logger logger.Logger) *InstrumentsService {
	return &InstrumentsService{
		instrClient: client.NewInstrumentsServiceClient(),
		rateLimiter: ratelimit.New(200, ratelimit.Per(1*time.Minute)),
		logger:      logger,
		sharesCache: make(map[string]model.ShareInfo),
		figisCache:  make(map[string]string),
	}
}

// Resolve accepts a figi or a ticker and returns the tradable instrument behind it.
func (s *InstrumentsService) Resolve(query string) (model.ShareInfo, error) {
	if info, ok := s.cachedShare(query); ok {
		return info, nil
	}

	figi, err := s.find(query)
	if err != nil {
		return model.ShareInfo{}, err
	}
	return s.ShareInfo(figi)
}

func (s *InstrumentsService) FigiForTicker(ticker string) (string, error) {
	return s.find(ticker)
}

func (s *InstrumentsService) TickerForFigi(figi string) (string, error) {
	info, err := s.ShareInfo(figi)
	if err != nil {
		return "", err
	}
	return info.Ticker, nil
}

func (s *InstrumentsService) ShareInfo(figi string) (model.ShareInfo, error) {
	if info, ok := s.cachedShare(figi); ok {
		return info, nil
	}

	s.rateLimiter.Take()
	resp, err := s.instrClient.InstrumentByFigi(figi)
	if err != nil {
		return model.ShareInfo{}, fmt.Errorf("%w: can't get instrument by figi %s", err, figi)
	}
	if resp.GetInstrument() == nil {
		return model.ShareInfo{}, fmt.Errorf("%w: instrument %s", model.ErrNotFound, figi)
	}

	info := shareInfoFromAPI(resp.GetInstrument())

	s.mu.Lock()
	s.sharesCache[figi] = info
	s.mu.Unlock()

	return info, nil
}

// TradingSchedule returns the exchange calendar for a bounded interval, requested week by week.
func (s *InstrumentsService) TradingSchedule(exchange string, interval model.Interval) ([]model.TradingSchedule, error) {
	if !interval.IsBounded() {
		return nil, fmt.Errorf("%w: trading schedule needs a bounded interval, got %s", model.ErrInvalidArgument, interval)
	}
	if exchange == "" {
		return nil, fmt.Errorf("%w: empty exchange", model.ErrInvalidArgument)
	}

	schedules := make([]model.TradingSchedule, 0)
	for _, chunk := range scheduleChunks(interval) {
		s.rateLimiter.Take()
		resp, err := s.instrClient.TradingSchedules(exchange, *chunk.From, *chunk.To)
		if err != nil {
			return nil, fmt.Errorf("%w: can't get trading schedules for %s on %s", err, exchange, chunk)
		}
		if len(resp.GetExchanges()) == 0 {
			return nil, fmt.Errorf("%w: empty trading schedules for %s", model.ErrNotFound, exchange)
		}

		schedules = mergeSchedules(schedules, schedulesFromAPI(resp.GetExchanges()[0].GetDays()))
	}

	return schedules, nil
}

func (s *InstrumentsService) find(query string) (string, error) {
	s.mu.RLock()
	figi, ok := s.figisCache[query]
	s.mu.RUnlock()
	if ok {
		return figi, nil
	}

	s.rateLimiter.Take()
	resp, err := s.instrClient.FindInstrument(query)
	if err != nil {
		return "", fmt.Errorf("%w: can't find instrument %s", err, query)
	}

	figi, ok = matchInstrument(query, resp.GetInstruments())
	if !ok {
		return "", fmt.Errorf("%w: instrument %s", model.ErrNotFound, query)
	}

	s.mu.Lock()
	s.figisCache[query] = figi
	s.mu.Unlock()

	return figi, nil
}

func (s *InstrumentsService) cachedShare(figi string) (model.ShareInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.sharesCache[figi]
	return info, ok
}

// matchInstrument picks the tradable instrument whose figi or ticker equals query.
// An exact figi match wins over a ticker one.
func matchInstrument(query string, instruments []*investapi.InstrumentShort) (string, bool) {
	var byTicker string
	for _, instrument := range instruments {
		if !instrument.GetApiTradeAvailableFlag() {
			continue
		}
		if strings.EqualFold(instrument.GetFigi(), query) {
			return instrument.GetFigi(), true
		}
		if byTicker == "" && strings.EqualFold(instrument.GetTicker(), query) {
			byTicker = instrument.GetFigi()
		}
	}
	return byTicker, byTicker != ""
}

func shareInfoFromAPI(info *investapi.Instrument) model.ShareInfo {
	lot := int64(info.GetLot())
	if lot <= 0 {
		lot = 1
	}
	return model.ShareInfo{
		Figi:           info.GetFigi(),
		Ticker:         info.GetTicker(),
		Currency:       model.NormalizeCurrency(info.GetCurrency()),
		Lot:            lot,
		InstrumentType: model.FromInvestAPIType(info.GetInstrumentKind()),
	}
}

func schedulesFromAPI(days []*investapi.TradingDay) []model.TradingSchedule {
	schedules := make([]model.TradingSchedule, 0, len(days))
	for _, day := range days {
		schedules = append(schedules, model.TradingSchedule{
			Date:         day.GetDate().AsTime(),
			IsTradingDay: day.GetIsTradingDay(),
			StartDate:    day.GetStartTime().AsTime(),
			EndDate:      day.GetEndTime().AsTime(),
		})
	}
	return schedules
}

// mergeSchedules appends days not already present; chunks share their boundary day.
func mergeSchedules(dst, days []model.TradingSchedule) []model.TradingSchedule {
	for _, day := range days {
		if n := len(dst); n > 0 && !day.Date.After(dst[n-1].Date) {
			continue
		}
		dst = append(dst, day)
	}
	return dst
}

func scheduleChunks(interval model.Interval) []model.Interval {
	from, to := *interval.From, *interval.To
	chunks := make([]model.Interval, 0, 1)
	for {
		end := from.Add(_scheduleChunk)
		if !end.Before(to) {
			return append(chunks, model.IntervalOf(from, to))
		}
		chunks = append(chunks, model.IntervalOf(from, end))
		from = end
	}
}
