package model

import (
	"fmt"
	"time"
)

// Interval is a time range with optional bounds. A nil bound is unbounded on that side.
type Interval struct {
	From *time.Time
	To   *time.Time
}

func NewInterval(from, to *time.Time) (Interval, error) {
	if from != nil && to != nil && from.After(*to) {
		return Interval{}, fmt.Errorf("%w: interval from %s is after to %s", ErrInvalidArgument, from, to)
	}
	return Interval{From: copyTime(from), To: copyTime(to)}, nil
}

// IntervalOf builds a bounded interval, swapping reversed bounds.
func IntervalOf(from, to time.Time) Interval {
	if from.After(to) {
		from, to = to, from
	}
	return Interval{From: &from, To: &to}
}

func IntervalFrom(from time.Time) Interval {
	return Interval{From: &from}
}

func IntervalTo(to time.Time) Interval {
	return Interval{To: &to}
}

// IntervalOfDay covers the whole calendar day of t in t's location.
func IntervalOfDay(t time.Time) Interval {
	start := StartOfDay(t)
	return IntervalOf(start, start.AddDate(0, 0, 1).Add(-time.Nanosecond))
}

func (i Interval) Contains(t time.Time) bool {
	if i.From != nil && t.Before(*i.From) {
		return false
	}
	if i.To != nil && t.After(*i.To) {
		return false
	}
	return true
}

func (i Interval) IsBounded() bool {
	return i.From != nil && i.To != nil
}

func (i Interval) Duration() (time.Duration, bool) {
	if !i.IsBounded() {
		return 0, false
	}
	return i.To.Sub(*i.From), true
}

// WithDefaults substitutes missing bounds.
func (i Interval) WithDefaults(from, to time.Time) Interval {
	res := Interval{From: copyTime(i.From), To: copyTime(i.To)}
	if res.From == nil {
		res.From = &from
	}
	if res.To == nil {
		res.To = &to
	}
	return res
}

// SplitIntoDays splits a bounded interval at calendar day boundaries.
// Adjacent pieces share a boundary.
func (i Interval) SplitIntoDays() ([]Interval, error) {
	return i.split(func(t time.Time) time.Time {
		return StartOfDay(t).AddDate(0, 0, 1)
	})
}

// SplitIntoYears splits a bounded interval at calendar year boundaries.
func (i Interval) SplitIntoYears() ([]Interval, error) {
	return i.split(func(t time.Time) time.Time {
		return StartOfYear(t).AddDate(1, 0, 0)
	})
}

func (i Interval) split(next func(time.Time) time.Time) ([]Interval, error) {
	if !i.IsBounded() {
		return nil, fmt.Errorf("%w: can't split unbounded interval %s", ErrInvalidArgument, i)
	}

	from, to := *i.From, *i.To
	if from.Equal(to) {
		return []Interval{IntervalOf(from, to)}, nil
	}

	intervals := make([]Interval, 0, 1)
	for current := from; current.Before(to); {
		end := next(current)
		if end.After(to) {
			end = to
		}
		intervals = append(intervals, IntervalOf(current, end))
		current = end
	}

	return intervals, nil
}

func (i Interval) String() string {
	from, to := "(-inf", "+inf)"
	if i.From != nil {
		from = "[" + i.From.Format(time.RFC3339)
	}
	if i.To != nil {
		to = i.To.Format(time.RFC3339) + "]"
	}
	return from + ", " + to
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func StartOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
