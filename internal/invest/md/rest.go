package md

import (
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/config"
	"github.com/STTM-NSU/invest-backtest/internal/logger"
	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/STTM-NSU/invest-backtest/internal/tools"
	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const (
	_getCandlesURL       = "/tinkoff.public.invest.api.contract.v1.MarketDataService/GetCandles"
	_getTradingStatusURL = "/tinkoff.public.invest.api.contract.v1.MarketDataService/GetTradingStatus"

	_restTimeout = 30 * time.Second
)

type restQuotation struct {
	Units string `json:"units"`
	Nano  int32  `json:"nano"`
}

func (q restQuotation) decimal() (decimal.Decimal, error) {
	return tools.ParseQuotation(q.Units, q.Nano)
}

type restCandle struct {
	Open       restQuotation `json:"open"`
	High       restQuotation `json:"high"`
	Low        restQuotation `json:"low"`
	Close      restQuotation `json:"close"`
	Volume     int64         `json:"volume,string"`
	Time       time.Time     `json:"time"`
	IsComplete bool          `json:"isComplete"`
}

type restCandlesRequest struct {
	InstrumentID string `json:"instrumentId"`
	From         string `json:"from"`
	To           string `json:"to"`
	Interval     string `json:"interval"`
}

type restCandlesResponse struct {
	Candles []restCandle `json:"candles"`
}

type restTradingStatusRequest struct {
	InstrumentID string `json:"instrumentId"`
}

type restTradingStatusResponse struct {
	Figi                     string `json:"figi"`
	TradingStatus            string `json:"tradingStatus"`
	LimitOrderAvailableFlag  bool   `json:"limitOrderAvailableFlag"`
	MarketOrderAvailableFlag bool   `json:"marketOrderAvailableFlag"`
	APITradeAvailableFlag    bool   `json:"apiTradeAvailableFlag"`
}

type restErrorResponse struct {
	Code        int    `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// RESTSource reads market data through the REST gateway of the invest API.
type RESTSource struct {
	c *resty.Client

	rateLimiter ratelimit.Limiter

	logger logger.Logger
}

func NewRESTSource(cfg config.CandlesConfig, token string, logger logger.Logger) *RESTSource {
	client := resty.New().
		SetLogger(logger).
		SetBaseURL(cfg.RESTAddress).
		SetAuthToken(token).
		SetTimeout(_restTimeout)

	return &RESTSource{
		c:           client,
		rateLimiter: ratelimit.New(cfg.RateLimitPerMinute, ratelimit.Per(1*time.Minute)),
		logger:      logger,
	}
}

func (s *RESTSource) HistoricCandles(figi string, from, to time.Time, interval model.CandleInterval) ([]model.Candle, error) {
	if !interval.IsValid() {
		return nil, fmt.Errorf("%w: unknown candle interval %q", model.ErrInvalidArgument, interval)
	}

	body, err := sonic.Marshal(restCandlesRequest{
		InstrumentID: figi,
		From:         from.UTC().Format(time.RFC3339Nano),
		To:           to.UTC().Format(time.RFC3339Nano),
		Interval:     interval.ToInvestAPI().String(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: can't marshal candles request", err)
	}

	var result restCandlesResponse
	if err := s.post(_getCandlesURL, body, &result); err != nil {
		return nil, fmt.Errorf("%w: can't get candles for %s", err, figi)
	}

	candles := make([]model.Candle, 0, len(result.Candles))
	for _, item := range result.Candles {
		c, err := item.toModel(figi, interval)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}

	return candles, nil
}

func (s *RESTSource) TradingStatus(figi string) (model.TradingStatus, error) {
	body, err := sonic.Marshal(restTradingStatusRequest{InstrumentID: figi})
	if err != nil {
		return model.TradingStatus{}, fmt.Errorf("%w: can't marshal trading status request", err)
	}

	var result restTradingStatusResponse
	if err := s.post(_getTradingStatusURL, body, &result); err != nil {
		return model.TradingStatus{}, fmt.Errorf("%w: can't get trading status for %s", err, figi)
	}

	return model.TradingStatus{
		Figi:                 result.Figi,
		Status:               result.TradingStatus,
		LimitOrderAvailable:  result.LimitOrderAvailableFlag,
		MarketOrderAvailable: result.MarketOrderAvailableFlag,
		APITradeAvailable:    result.APITradeAvailableFlag,
	}, nil
}

func (s *RESTSource) post(url string, body []byte, result any) error {
	s.rateLimiter.Take()

	resp, err := s.c.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(result).
		SetError(&restErrorResponse{}).
		Post(url)
	if err != nil {
		return fmt.Errorf("%w: can't send request", err)
	}
	defer resp.Body.Close()

	s.logger.Debugf("got response %s status: %s, %s", resp.Request.URL, resp.Status(), resp.Duration())

	if resp.IsError() {
		if response, ok := resp.Error().(*restErrorResponse); ok && response.Message != "" {
			return fmt.Errorf("%w: %s (code %d)", model.ErrInvalidOperation, response.Message, response.Code)
		}
		return fmt.Errorf("%w: request error: %s", model.ErrInvalidOperation, resp.Status())
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("unexpected request error: %s", resp.Status())
	}

	return nil
}

func (c restCandle) toModel(figi string, interval model.CandleInterval) (model.Candle, error) {
	candle := model.Candle{
		Figi:     figi,
		Interval: interval,
		Time:     c.Time.UTC(),
		Volume:   c.Volume,
	}

	prices := []struct {
		q   restQuotation
		dst *decimal.Decimal
	}{
		{c.Open, &candle.Open},
		{c.Close, &candle.Close},
		{c.High, &candle.High},
		{c.Low, &candle.Low},
	}
	for _, p := range prices {
		v, err := p.q.decimal()
		if err != nil {
			return model.Candle{}, fmt.Errorf("%w: bad candle at %s", err, c.Time)
		}
		*p.dst = v
	}

	return candle, nil
}
