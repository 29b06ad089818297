package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestNewInterval(t *testing.T) {
	from, to := date(2024, 1, 2, 0, 0), date(2024, 1, 1, 0, 0)

	_, err := NewInterval(&from, &to)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	i, err := NewInterval(&to, &from)
	require.NoError(t, err)
	assert.True(t, i.IsBounded())

	i, err = NewInterval(nil, nil)
	require.NoError(t, err)
	assert.False(t, i.IsBounded())
}

func TestIntervalContains(t *testing.T) {
	from, to := date(2024, 1, 1, 10, 0), date(2024, 1, 1, 12, 0)

	tests := []struct {
		name     string
		interval Interval
		ts       time.Time
		want     bool
	}{
		{"from bound included", IntervalOf(from, to), from, true},
		{"to bound included", IntervalOf(from, to), to, true},
		{"before", IntervalOf(from, to), from.Add(-time.Second), false},
		{"after", IntervalOf(from, to), to.Add(time.Second), false},
		{"open from", IntervalTo(to), date(1990, 1, 1, 0, 0), true},
		{"open to", IntervalFrom(from), date(2100, 1, 1, 0, 0), true},
		{"open both", Interval{}, from, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.interval.Contains(tt.ts))
		})
	}
}

func TestIntervalSplitIntoDays(t *testing.T) {
	i := IntervalOf(date(2024, 1, 1, 10, 0), date(2024, 1, 3, 5, 0))

	days, err := i.SplitIntoDays()
	require.NoError(t, err)
	require.Len(t, days, 3)

	assert.Equal(t, date(2024, 1, 1, 10, 0), *days[0].From)
	assert.Equal(t, date(2024, 1, 2, 0, 0), *days[0].To)
	assert.Equal(t, date(2024, 1, 2, 0, 0), *days[1].From)
	assert.Equal(t, date(2024, 1, 3, 0, 0), *days[1].To)
	assert.Equal(t, date(2024, 1, 3, 0, 0), *days[2].From)
	assert.Equal(t, date(2024, 1, 3, 5, 0), *days[2].To)

	_, err = IntervalFrom(date(2024, 1, 1, 0, 0)).SplitIntoDays()
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestIntervalSplitIntoYears(t *testing.T) {
	i := IntervalOf(date(2022, 6, 1, 0, 0), date(2024, 2, 1, 0, 0))

	years, err := i.SplitIntoYears()
	require.NoError(t, err)
	require.Len(t, years, 3)
	assert.Equal(t, date(2023, 1, 1, 0, 0), *years[0].To)
	assert.Equal(t, date(2024, 1, 1, 0, 0), *years[1].To)
	assert.Equal(t, date(2024, 2, 1, 0, 0), *years[2].To)
}

func TestIntervalSplitEmpty(t *testing.T) {
	ts := date(2024, 1, 1, 0, 0)
	days, err := IntervalOf(ts, ts).SplitIntoDays()
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

func TestIntervalDurationAndDefaults(t *testing.T) {
	from, to := date(2024, 1, 1, 0, 0), date(2024, 1, 1, 3, 0)

	d, ok := IntervalOf(from, to).Duration()
	assert.True(t, ok)
	assert.Equal(t, 3*time.Hour, d)

	_, ok = IntervalFrom(from).Duration()
	assert.False(t, ok)

	i := IntervalFrom(from).WithDefaults(date(2000, 1, 1, 0, 0), to)
	assert.Equal(t, from, *i.From)
	assert.Equal(t, to, *i.To)
}

func TestIntervalOfDay(t *testing.T) {
	i := IntervalOfDay(date(2024, 3, 5, 15, 30))
	assert.Equal(t, date(2024, 3, 5, 0, 0), *i.From)
	assert.True(t, i.Contains(date(2024, 3, 5, 23, 59)))
	assert.False(t, i.Contains(date(2024, 3, 6, 0, 0)))
}

func TestIntervalString(t *testing.T) {
	assert.Equal(t, "(-inf, +inf)", Interval{}.String())
	assert.Equal(t, "[2024-01-01T00:00:00Z, +inf)", IntervalFrom(date(2024, 1, 1, 0, 0)).String())
	assert.Equal(t, "[2024-01-01T00:00:00Z, 2024-01-02T00:00:00Z]",
		IntervalOf(date(2024, 1, 1, 0, 0), date(2024, 1, 2, 0, 0)).String())
}
