package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

func TestScenarioRunStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioRunStore(pool)
	ctx := context.Background()

	run := &domain.ScenarioRun{
		RunID:       "run-1",
		CreatedAt:   1_700_000_000_000,
		ChainMode:   domain.ChainGated,
		Symbols:     1,
		TotalTrades: 1,
		Request:     []byte(`{"steps":[]}`),
		Result: &domain.ScenarioResult{
			OK:          true,
			UsedSymbols: []string{"BTC"},
			Summary:     domain.Summary{Symbols: 1, TotalTrades: 1, ChainMode: domain.ChainGated},
		},
	}
	trades := []domain.RunTrade{
		{
			TradeID: "t-1", RunID: "run-1", Step: 0, Symbol: "BTC", Timeframe: "1d", Profile: "base",
			FoldStart: 100, FoldEnd: 900,
			Trade: domain.Trade{EntryTime: 200, EntryPrice: 10, ExitTime: 300, ExitPrice: 11, PnlPct: 9.7, Bars: 1, Reason: domain.ExitReasonOppositeSignal},
		},
	}

	require.NoError(t, store.Insert(ctx, run, trades))

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainGated, got.ChainMode)
	require.NotNil(t, got.Result)
	assert.Equal(t, []string{"BTC"}, got.Result.UsedSymbols)
	assert.JSONEq(t, `{"steps":[]}`, string(got.Request))

	stored, err := store.GetTrades(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, trades[0], stored[0])
}

func TestScenarioRunStore_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioRunStore(pool)
	ctx := context.Background()

	run := &domain.ScenarioRun{RunID: "run-1", ChainMode: domain.ChainParallel}
	require.NoError(t, store.Insert(ctx, run, nil))

	err := store.Insert(ctx, run, nil)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// A duplicate trade rolls back the whole run
	dup := []domain.RunTrade{
		{TradeID: "t-1", RunID: "run-2", Profile: "base", Trade: domain.Trade{Reason: "x"}},
		{TradeID: "t-1", RunID: "run-2", Profile: "base", Trade: domain.Trade{Reason: "x"}},
	}
	err = store.Insert(ctx, &domain.ScenarioRun{RunID: "run-2", ChainMode: domain.ChainParallel}, dup)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "run-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestScenarioRunStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewScenarioRunStore(pool)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Insert(ctx, &domain.ScenarioRun{RunID: id, CreatedAt: int64(i), ChainMode: domain.ChainParallel}, nil))
	}

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)

	_, err = store.GetTrades(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
