package md

import (
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/config"
	"github.com/STTM-NSU/invest-backtest/internal/logger"
	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/STTM-NSU/invest-backtest/internal/tools"
	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"go.uber.org/ratelimit"
)

// APISource reads market data over the gRPC invest API.
type APISource struct {
	logger logger.Logger

	rateLimiter ratelimit.Limiter

	mdService *investgo.MarketDataServiceClient
}

func NewAPISource(c *investgo.Client, cfg config.CandlesConfig, logger logger.Logger) *APISource {
	return &APISource{
		mdService:   c.NewMarketDataServiceClient(),
		rateLimiter: ratelimit.New(cfg.RateLimitPerMinute, ratelimit.Per(1*time.Minute)),
		logger:      logger,
	}
}

func (s *APISource) HistoricCandles(figi string, from, to time.Time, interval model.CandleInterval) ([]model.Candle, error) {
	if !interval.IsValid() {
		return nil, fmt.Errorf("%w: unknown candle interval %q", model.ErrInvalidArgument, interval)
	}

	s.rateLimiter.Take()
	resp, err := s.mdService.GetCandles(figi, interval.ToInvestAPI(), from, to, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: can't get candles from api", err)
	}

	candles := make([]model.Candle, 0, len(resp.GetCandles()))
	for _, item := range resp.GetCandles() {
		candles = append(candles, candleFromAPI(figi, interval, item))
	}

	s.logger.Debugf("got %d %s candles for %s from %s to %s", len(candles), interval, figi, from, to)
	return candles, nil
}

func (s *APISource) TradingStatus(figi string) (model.TradingStatus, error) {
	s.rateLimiter.Take()
	resp, err := s.mdService.GetTradingStatus(figi)
	if err != nil {
		return model.TradingStatus{}, fmt.Errorf("%w: can't get trading status from api", err)
	}

	return model.TradingStatus{
		Figi:                 resp.GetFigi(),
		Status:               resp.GetTradingStatus().String(),
		LimitOrderAvailable:  resp.GetLimitOrderAvailableFlag(),
		MarketOrderAvailable: resp.GetMarketOrderAvailableFlag(),
		APITradeAvailable:    resp.GetApiTradeAvailableFlag(),
	}, nil
}

func candleFromAPI(figi string, interval model.CandleInterval, item *investapi.HistoricCandle) model.Candle {
	return model.Candle{
		Figi:     figi,
		Interval: interval,
		Time:     item.GetTime().AsTime().UTC(),
		Open:     tools.QuotationToDecimal(item.GetOpen()),
		Close:    tools.QuotationToDecimal(item.GetClose()),
		High:     tools.QuotationToDecimal(item.GetHigh()),
		Low:      tools.QuotationToDecimal(item.GetLow()),
		Volume:   item.GetVolume(),
	}
}
