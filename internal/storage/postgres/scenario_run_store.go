package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// ScenarioRunStore implements storage.ScenarioRunStore using PostgreSQL.
type ScenarioRunStore struct {
	pool *Pool
}

// NewScenarioRunStore creates a new ScenarioRunStore.
func NewScenarioRunStore(pool *Pool) *ScenarioRunStore {
	return &ScenarioRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScenarioRunStore = (*ScenarioRunStore)(nil)

// Insert adds a run and its trades in one transaction. Fails entirely on
// any duplicate run_id or trade_id.
func (s *ScenarioRunStore) Insert(ctx context.Context, run *domain.ScenarioRun, trades []domain.RunTrade) (err error) {
	defer observeQuery("insert_run", time.Now(), &err)

	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	var result []byte
	if run.Result != nil {
		var err error
		result, err = json.Marshal(run.Result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}
	var request []byte
	if len(run.Request) > 0 {
		request = run.Request
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO scenario_runs (
			run_id, created_at, chain_mode, symbols, total_trades, request, result
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		run.RunID, run.CreatedAt, run.ChainMode, run.Symbols, run.TotalTrades, request, result,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert scenario run: %w", err)
	}

	query := `
		INSERT INTO scenario_trades (
			trade_id, run_id, step, symbol, tf, profile, fold_start, fold_end,
			entry_time, entry_price, exit_time, exit_price, pnl_pct, bars, reason
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15
		)
	`

	batch := &pgx.Batch{}
	for _, t := range trades {
		if t.TradeID == "" || t.RunID != run.RunID {
			return storage.ErrInvalidInput
		}
		batch.Queue(query,
			t.TradeID, t.RunID, t.Step, t.Symbol, t.Timeframe, t.Profile, t.FoldStart, t.FoldEnd,
			t.EntryTime, t.EntryPrice, t.ExitTime, t.ExitPrice, t.PnlPct, t.Bars, t.Reason,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert scenario trades: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ScenarioRunStore) GetByID(ctx context.Context, runID string) (_ *domain.ScenarioRun, err error) {
	defer observeQuery("get_run", time.Now(), &err)

	query := `
		SELECT run_id, created_at, chain_mode, symbols, total_trades, request, result
		FROM scenario_runs
		WHERE run_id = $1
	`

	run, err := scanScenarioRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get scenario run by id: %w", err)
	}
	return run, nil
}

// List returns runs newest first, at most limit (0 = all).
func (s *ScenarioRunStore) List(ctx context.Context, limit int) (_ []*domain.ScenarioRun, err error) {
	defer observeQuery("list_runs", time.Now(), &err)

	query := `
		SELECT run_id, created_at, chain_mode, symbols, total_trades, request, result
		FROM scenario_runs
		ORDER BY created_at DESC, run_id ASC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scenario runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ScenarioRun
	for rows.Next() {
		run, err := scanScenarioRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scenario run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario run rows: %w", err)
	}
	return runs, nil
}

// GetTrades retrieves the trades of a run in result-tree order.
// Returns ErrNotFound if the run does not exist.
func (s *ScenarioRunStore) GetTrades(ctx context.Context, runID string) (_ []domain.RunTrade, err error) {
	defer observeQuery("get_trades", time.Now(), &err)

	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM scenario_runs WHERE run_id = $1)`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check scenario run: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	query := `
		SELECT
			trade_id, run_id, step, symbol, tf, profile, fold_start, fold_end,
			entry_time, entry_price, exit_time, exit_price, pnl_pct, bars, reason
		FROM scenario_trades
		WHERE run_id = $1
		ORDER BY step ASC, symbol ASC, profile ASC, fold_start ASC, entry_time ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get scenario trades: %w", err)
	}
	defer rows.Close()

	trades := []domain.RunTrade{}
	for rows.Next() {
		var t domain.RunTrade
		err := rows.Scan(
			&t.TradeID, &t.RunID, &t.Step, &t.Symbol, &t.Timeframe, &t.Profile, &t.FoldStart, &t.FoldEnd,
			&t.EntryTime, &t.EntryPrice, &t.ExitTime, &t.ExitPrice, &t.PnlPct, &t.Bars, &t.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan scenario trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario trade rows: %w", err)
	}

	return trades, nil
}

// scanScenarioRun scans a single row into a ScenarioRun.
func scanScenarioRun(row pgx.Row) (*domain.ScenarioRun, error) {
	var run domain.ScenarioRun
	var request, result []byte

	err := row.Scan(
		&run.RunID, &run.CreatedAt, &run.ChainMode, &run.Symbols, &run.TotalTrades,
		&request, &result,
	)
	if err != nil {
		return nil, err
	}

	run.Request = request
	if len(result) > 0 {
		run.Result = &domain.ScenarioResult{}
		if err := json.Unmarshal(result, run.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return &run, nil
}
