package instrument

import (
	"testing"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/model"
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestMatchInstrument(t *testing.T) {
	instruments := []*investapi.InstrumentShort{
		{Figi: "TCS00A0ZZAC4", Ticker: "SBER", ApiTradeAvailableFlag: false},
		{Figi: "BBG004730N88", Ticker: "SBER", ApiTradeAvailableFlag: true},
		{Figi: "BBG004730RP0", Ticker: "GAZP", ApiTradeAvailableFlag: true},
	}

	tests := []struct {
		query string
		figi  string
		ok    bool
	}{
		{"SBER", "BBG004730N88", true},
		{"sber", "BBG004730N88", true},
		{"BBG004730RP0", "BBG004730RP0", true},
		{"TCS00A0ZZAC4", "", false},
		{"LKOH", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			figi, ok := matchInstrument(tt.query, instruments)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.figi, figi)
		})
	}
}

func TestShareInfoFromAPI(t *testing.T) {
	info := shareInfoFromAPI(&investapi.Instrument{
		Figi:           "BBG004730N88",
		Ticker:         "SBER",
		Currency:       "RUB",
		Lot:            10,
		InstrumentKind: investapi.InstrumentType_INSTRUMENT_TYPE_SHARE,
	})

	assert.Equal(t, model.ShareInfo{
		Figi:           "BBG004730N88",
		Ticker:         "SBER",
		Currency:       "rub",
		Lot:            10,
		InstrumentType: model.Share,
	}, info)

	assert.Equal(t, int64(1), shareInfoFromAPI(&investapi.Instrument{}).Lot)
}

func TestScheduleChunks(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	chunks := scheduleChunks(model.IntervalOf(from, from.AddDate(0, 0, 17)))
	require.Len(t, chunks, 3)
	assert.Equal(t, from, *chunks[0].From)
	assert.Equal(t, from.AddDate(0, 0, 7), *chunks[0].To)
	assert.Equal(t, from.AddDate(0, 0, 7), *chunks[1].From)
	assert.Equal(t, from.AddDate(0, 0, 17), *chunks[2].To)

	assert.Len(t, scheduleChunks(model.IntervalOf(from, from.AddDate(0, 0, 7))), 1)
	assert.Len(t, scheduleChunks(model.IntervalOf(from, from)), 1)
}

func TestSchedulesMerge(t *testing.T) {
	day := func(d int) *investapi.TradingDay {
		date := time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
		return &investapi.TradingDay{
			Date:         timestamppb.New(date),
			IsTradingDay: d%7 != 6 && d%7 != 0,
			StartTime:    timestamppb.New(date.Add(7 * time.Hour)),
			EndTime:      timestamppb.New(date.Add(15*time.Hour + 40*time.Minute)),
		}
	}

	first := schedulesFromAPI([]*investapi.TradingDay{day(1), day(2), day(3)})
	second := schedulesFromAPI([]*investapi.TradingDay{day(3), day(4)})

	merged := mergeSchedules(first, second)
	require.Len(t, merged, 4)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), merged[3].Date)
	assert.Equal(t, time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC), merged[0].StartDate)
	assert.True(t, merged[0].IsTradingDay)
}
