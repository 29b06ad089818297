package backtest

import (
	"maps"
	"slices"

	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/shopspring/decimal"
)

// OperationsService is the read side of the ledger shaped like the broker operations API.
type OperationsService struct {
	ledger *Ledger
}

func NewOperationsService(ledger *Ledger) *OperationsService {
	return &OperationsService{ledger: ledger}
}

// GetOperations returns operations inside interval ordered by time, figi "" matches every instrument.
func (s *OperationsService) GetOperations(account string, interval model.Interval, figi string) []model.Operation {
	ops := slices.DeleteFunc(s.ledger.GetOperations(account), func(op model.Operation) bool {
		return !interval.Contains(op.Time) || (figi != "" && op.Figi != figi)
	})
	slices.SortStableFunc(ops, func(a, b model.Operation) int {
		return a.Time.Compare(b.Time)
	})
	return ops
}

func (s *OperationsService) GetPositions(account string) []model.Position {
	return s.ledger.GetPositions(account)
}

// GetWithdrawLimits reports the whole balance as withdrawable, nothing is ever blocked in a backtest.
func (s *OperationsService) GetWithdrawLimits(account string) model.WithdrawLimits {
	balances := s.ledger.GetBalances(account)

	limits := model.WithdrawLimits{
		Money:            make([]model.MoneyValue, 0, len(balances)),
		Blocked:          make([]model.MoneyValue, 0, len(balances)),
		BlockedGuarantee: make([]model.MoneyValue, 0, len(balances)),
	}
	for _, currency := range slices.Sorted(maps.Keys(balances)) {
		limits.Money = append(limits.Money, model.MoneyValue{Currency: currency, Value: balances[currency]})
		limits.Blocked = append(limits.Blocked, model.MoneyValue{Currency: currency, Value: decimal.Zero})
		limits.BlockedGuarantee = append(limits.BlockedGuarantee, model.MoneyValue{Currency: currency, Value: decimal.Zero})
	}

	return limits
}
