package portfolio

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/STTM-NSU/invest-backtest/internal/logger"
	"github.com/STTM-NSU/invest-backtest/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const (
	_upsertRun = `INSERT INTO backtest_runs (run_id, account_id, from_ts, to_ts, operations)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, account_id) DO UPDATE SET
			from_ts = EXCLUDED.from_ts,
			to_ts = EXCLUDED.to_ts,
			operations = EXCLUDED.operations`
	_upsertBalance = `INSERT INTO backtest_balances (run_id, account_id, currency, start_value, value, profit_percent)
		VALUES (:run_id, :account_id, :currency, :start_value, :value, :profit_percent)
		ON CONFLICT (run_id, account_id, currency) DO UPDATE SET
			start_value = EXCLUDED.start_value,
			value = EXCLUDED.value,
			profit_percent = EXCLUDED.profit_percent`
	_deletePositions = `DELETE FROM backtest_positions WHERE run_id = $1 AND account_id = $2`
	_insertPosition  = `INSERT INTO backtest_positions (run_id, account_id, figi, instrument_type, currency,
			quantity, average_price, current_price, expected_yield)
		VALUES (:run_id, :account_id, :figi, :instrument_type, :currency,
			:quantity, :average_price, :current_price, :expected_yield)`

	_queryRun       = `SELECT run_id, account_id, from_ts, to_ts, operations FROM backtest_runs WHERE run_id = $1 AND account_id = $2`
	_queryBalances  = `SELECT run_id, account_id, currency, start_value, value, profit_percent FROM backtest_balances WHERE run_id = $1 AND account_id = $2`
	_queryPositions = `SELECT figi, instrument_type, currency, quantity, average_price, current_price, expected_yield
		FROM backtest_positions WHERE run_id = $1 AND account_id = $2 ORDER BY figi`
)

type runRow struct {
	RunID      string    `db:"run_id"`
	AccountID  string    `db:"account_id"`
	From       time.Time `db:"from_ts"`
	To         time.Time `db:"to_ts"`
	Operations int       `db:"operations"`
}

type balanceRow struct {
	RunID         string          `db:"run_id"`
	AccountID     string          `db:"account_id"`
	Currency      string          `db:"currency"`
	StartValue    decimal.Decimal `db:"start_value"`
	Value         decimal.Decimal `db:"value"`
	ProfitPercent decimal.Decimal `db:"profit_percent"`
}

type positionRow struct {
	RunID     string `db:"run_id"`
	AccountID string `db:"account_id"`
	model.Position
}

// Store keeps backtest reports in postgres.
type Store struct {
	db     *sqlx.DB
	logger logger.Logger
}

func NewStore(db *sqlx.DB, logger logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

func (s *Store) Save(ctx context.Context, report model.Report) error {
	if report.RunID == "" || report.AccountID == "" {
		return fmt.Errorf("%w: report without run or account id", model.ErrInvalidArgument)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: can't begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, _upsertRun,
		report.RunID, report.AccountID, report.From, report.To, report.OperationsDone); err != nil {
		return fmt.Errorf("%w: can't save backtest run", err)
	}

	for _, row := range balanceRows(report) {
		if _, err := tx.NamedExecContext(ctx, _upsertBalance, row); err != nil {
			return fmt.Errorf("%w: can't save backtest balance", err)
		}
	}

	if _, err := tx.ExecContext(ctx, _deletePositions, report.RunID, report.AccountID); err != nil {
		return fmt.Errorf("%w: can't clear backtest positions", err)
	}
	for _, row := range positionRows(report) {
		if _, err := tx.NamedExecContext(ctx, _insertPosition, row); err != nil {
			return fmt.Errorf("%w: can't save backtest position", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: can't commit backtest report", err)
	}

	s.logger.Infof("saved backtest report %s for %s", report.RunID, report.AccountID)
	return nil
}

func (s *Store) Load(ctx context.Context, runID, accountID string) (model.Report, error) {
	var run runRow
	if err := s.db.GetContext(ctx, &run, _queryRun, runID, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Report{}, fmt.Errorf("%w: backtest run %s for %s", model.ErrNotFound, runID, accountID)
		}
		return model.Report{}, fmt.Errorf("%w: can't query backtest run", err)
	}

	var balances []balanceRow
	if err := s.db.SelectContext(ctx, &balances, _queryBalances, runID, accountID); err != nil {
		return model.Report{}, fmt.Errorf("%w: can't query backtest balances", err)
	}

	var positions []model.Position
	if err := s.db.SelectContext(ctx, &positions, _queryPositions, runID, accountID); err != nil {
		return model.Report{}, fmt.Errorf("%w: can't query backtest positions", err)
	}

	return reportFromRows(run, balances, positions), nil
}

func balanceRows(report model.Report) []balanceRow {
	currencies := slices.Sorted(maps.Keys(report.Balances))
	rows := make([]balanceRow, 0, len(currencies))
	for _, currency := range currencies {
		rows = append(rows, balanceRow{
			RunID:         report.RunID,
			AccountID:     report.AccountID,
			Currency:      currency,
			StartValue:    report.StartBalances[currency],
			Value:         report.Balances[currency],
			ProfitPercent: report.ProfitPercent[currency],
		})
	}
	return rows
}

func positionRows(report model.Report) []positionRow {
	rows := make([]positionRow, 0, len(report.Positions))
	for _, pos := range report.Positions {
		rows = append(rows, positionRow{
			RunID:     report.RunID,
			AccountID: report.AccountID,
			Position:  pos,
		})
	}
	return rows
}

func reportFromRows(run runRow, balances []balanceRow, positions []model.Position) model.Report {
	report := model.Report{
		RunID:          run.RunID,
		AccountID:      run.AccountID,
		From:           run.From.UTC(),
		To:             run.To.UTC(),
		StartBalances:  make(map[string]decimal.Decimal, len(balances)),
		Balances:       make(map[string]decimal.Decimal, len(balances)),
		ProfitPercent:  make(map[string]decimal.Decimal, len(balances)),
		Positions:      positions,
		OperationsDone: run.Operations,
	}
	for _, b := range balances {
		report.StartBalances[b.Currency] = b.StartValue
		report.Balances[b.Currency] = b.Value
		report.ProfitPercent[b.Currency] = b.ProfitPercent
	}
	if report.Positions == nil {
		report.Positions = []model.Position{}
	}
	return report
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a lexicographically sortable run id.
func NewRunID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
