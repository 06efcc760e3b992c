package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

func TestCandleStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandleStore(conn)
	ctx := context.Background()

	// Test empty insert
	err := store.InsertBulk(ctx, "BTC", "1d", nil)
	assert.NoError(t, err)

	candles := []domain.Candle{
		{Time: 1_700_086_400, Open: 2, High: 3, Low: 1.5, Close: 2.5, Volume: 20},
		{Time: 1_700_000_000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
	}
	err = store.InsertBulk(ctx, "BTC", "1d", candles)
	require.NoError(t, err)

	got, err := store.GetByTimeRange(ctx, "BTC", "1d", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1_700_000_000), got[0].Time)
	assert.Equal(t, 1.5, got[0].Close)
	assert.Equal(t, 20.0, got[1].Volume)
}

func TestCandleStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandleStore(conn)
	ctx := context.Background()

	candles := []domain.Candle{{Time: 100, Close: 1}}
	require.NoError(t, store.InsertBulk(ctx, "BTC", "1d", candles))

	err := store.InsertBulk(ctx, "BTC", "1d", candles)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same time under another timeframe is a different key
	assert.NoError(t, store.InsertBulk(ctx, "BTC", "1h", candles))
}

func TestCandleStore_GetByTimeRangeAndSymbols(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandleStore(conn)
	ctx := context.Background()

	for _, sym := range []string{"ETH", "BTC"} {
		err := store.InsertBulk(ctx, sym, "1d", []domain.Candle{
			{Time: 100, Close: 1}, {Time: 200, Close: 2}, {Time: 300, Close: 3},
		})
		require.NoError(t, err)
	}

	got, err := store.GetByTimeRange(ctx, "ETH", "1d", 150, 300)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(200), got[0].Time)

	symbols, err := store.Symbols(ctx, "1d")
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH"}, symbols)
}
