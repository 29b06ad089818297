package backtest

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/shopspring/decimal"
)

type accountBook struct {
	balances    map[string]decimal.Decimal
	investments map[string][]model.Investment // sorted by time, one entry per timestamp
	operations  []model.Operation
	positions   map[string]model.Position
}

func newAccountBook() *accountBook {
	return &accountBook{
		balances:    make(map[string]decimal.Decimal),
		investments: make(map[string][]model.Investment),
		positions:   make(map[string]model.Position),
	}
}

// Ledger is the simulated broker state of a single backtest run: the virtual clock plus
// balances, investments, operations and positions of every account.
// It is not safe for concurrent use, parallel runs use separate ledgers.
// Every read returns a copy.
type Ledger struct {
	now      time.Time
	accounts map[string]*accountBook
}

func NewLedger(start time.Time, balances []model.Balance) (*Ledger, error) {
	l := &Ledger{
		now:      start,
		accounts: make(map[string]*accountBook),
	}

	for _, b := range balances {
		if b.Value.IsNegative() {
			return nil, fmt.Errorf("%w: start balance %s %s of %s is negative",
				model.ErrInvalidOperation, b.Value, b.Currency, b.AccountID)
		}
		book := l.book(b.AccountID)
		currency := model.NormalizeCurrency(b.Currency)
		book.balances[currency] = book.balances[currency].Add(b.Value)
	}

	return l, nil
}

func (l *Ledger) CurrentTime() time.Time {
	return l.now
}

func (l *Ledger) SetCurrentTime(t time.Time) {
	l.now = t
}

func (l *Ledger) NextMinute() time.Time {
	l.now = l.now.Add(time.Minute)
	return l.now
}

// NextScheduleMinute advances the clock by one minute inside the exchange trading windows.
// Before a window it jumps to the first complete minute of that window, at or after the end
// of the last trading day it reports false and leaves the clock untouched.
func (l *Ledger) NextScheduleMinute(schedule []model.TradingSchedule) (time.Time, bool) {
	for _, day := range schedule {
		if !day.IsTradingDay {
			continue
		}
		if l.now.Before(day.StartDate) {
			l.now = day.StartDate.Add(time.Minute)
			return l.now, true
		}
		if l.now.Before(day.EndDate) {
			l.now = l.now.Add(time.Minute)
			return l.now, true
		}
	}
	return l.now, false
}

func (l *Ledger) GetBalance(account, currency string) decimal.Decimal {
	book, ok := l.accounts[account]
	if !ok {
		return decimal.Zero
	}
	return book.balances[model.NormalizeCurrency(currency)]
}

// GetBalances returns a copy of every currency balance of the account.
func (l *Ledger) GetBalances(account string) map[string]decimal.Decimal {
	book, ok := l.accounts[account]
	if !ok {
		return map[string]decimal.Decimal{}
	}
	return maps.Clone(book.balances)
}

// SetBalance overwrites the balance without recording an investment.
func (l *Ledger) SetBalance(account, currency string, value decimal.Decimal) error {
	if value.IsNegative() {
		return fmt.Errorf("%w: balance can't be negative", model.ErrInvalidOperation)
	}
	l.book(account).balances[model.NormalizeCurrency(currency)] = value
	return nil
}

func (l *Ledger) AddInvestment(account string, ts time.Time, currency string, delta decimal.Decimal) error {
	return l.AddInvestments(account, ts, map[string]decimal.Decimal{currency: delta})
}

// AddInvestments records deposits (positive) and withdrawals (negative) at ts and applies them
// to the balances. Nothing is applied when any balance would become negative.
func (l *Ledger) AddInvestments(account string, ts time.Time, deltas map[string]decimal.Decimal) error {
	book := l.book(account)

	normalized := make(map[string]decimal.Decimal, len(deltas))
	for currency, delta := range deltas {
		c := model.NormalizeCurrency(currency)
		normalized[c] = normalized[c].Add(delta)
	}

	updated := make(map[string]decimal.Decimal, len(normalized))
	for currency, delta := range normalized {
		balance := book.balances[currency].Add(delta)
		if balance.IsNegative() {
			return fmt.Errorf("%w: balance can't be negative: %s %s", model.ErrInvalidOperation, balance, currency)
		}
		updated[currency] = balance
	}

	for _, currency := range slices.Sorted(maps.Keys(normalized)) {
		book.balances[currency] = updated[currency]
		book.investments[currency] = mergeInvestment(book.investments[currency], ts, normalized[currency])
	}

	return nil
}

// GetInvestments returns the investment history of a currency ordered by time.
func (l *Ledger) GetInvestments(account, currency string) []model.Investment {
	book, ok := l.accounts[account]
	if !ok {
		return []model.Investment{}
	}
	return slices.Clone(book.investments[model.NormalizeCurrency(currency)])
}

// AddOperation appends op unless an equal operation is already recorded.
func (l *Ledger) AddOperation(account string, op model.Operation) {
	book := l.book(account)
	if slices.ContainsFunc(book.operations, op.Equal) {
		return
	}
	book.operations = append(book.operations, op)
}

// GetOperations returns operations in insertion order.
func (l *Ledger) GetOperations(account string) []model.Operation {
	book, ok := l.accounts[account]
	if !ok {
		return []model.Operation{}
	}
	return slices.Clone(book.operations)
}

func (l *Ledger) AddPosition(account, figi string, pos model.Position) {
	l.book(account).positions[figi] = pos
}

func (l *Ledger) GetPosition(account, figi string) (model.Position, bool) {
	book, ok := l.accounts[account]
	if !ok {
		return model.Position{}, false
	}
	pos, ok := book.positions[figi]
	return pos, ok
}

// GetPositions returns open positions sorted by figi.
func (l *Ledger) GetPositions(account string) []model.Position {
	book, ok := l.accounts[account]
	if !ok {
		return []model.Position{}
	}

	positions := slices.Collect(maps.Values(book.positions))
	slices.SortFunc(positions, func(a, b model.Position) int {
		return strings.Compare(a.Figi, b.Figi)
	})
	return positions
}

func (l *Ledger) RemovePosition(account, figi string) {
	if book, ok := l.accounts[account]; ok {
		delete(book.positions, figi)
	}
}

func (l *Ledger) book(account string) *accountBook {
	book, ok := l.accounts[account]
	if !ok {
		book = newAccountBook()
		l.accounts[account] = book
	}
	return book
}

func mergeInvestment(history []model.Investment, ts time.Time, delta decimal.Decimal) []model.Investment {
	i, found := slices.BinarySearchFunc(history, ts, func(inv model.Investment, t time.Time) int {
		return inv.Time.Compare(t)
	})
	if found {
		history[i].Value = history[i].Value.Add(delta)
		return history
	}
	return slices.Insert(history, i, model.Investment{Time: ts, Value: delta})
}
