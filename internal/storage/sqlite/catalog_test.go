package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCatalog_Combos(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	combo := &domain.Combo{
		Name: "golden",
		Root: domain.ComboNode{Key: "ma_cross", Operator: "golden", Fast: 5, Slow: 20},
	}
	require.NoError(t, c.Save(ctx, combo))

	got, err := c.GetByName(ctx, "golden")
	require.NoError(t, err)
	assert.Equal(t, combo, got)

	_, err = c.GetByName(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Save replaces
	combo.Root.Fast = 10
	require.NoError(t, c.Save(ctx, combo))
	got, err = c.GetByName(ctx, "golden")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Root.Fast)

	names, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"golden"}, names)
}

func TestCatalog_Watchlists(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.SaveWatchlist(ctx, "favs", []string{"ETH", "BTC"}))
	got, err := c.GetWatchlist(ctx, "favs")
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH", "BTC"}, got)

	_, err = c.GetWatchlist(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, c.SetUniverse(ctx, []string{"XRP", "BTC", "ETH"}))
	all, err := c.AllSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"XRP", "BTC", "ETH"}, all)

	require.NoError(t, c.SetUniverse(ctx, []string{"ADA"}))
	all, err = c.AllSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ADA"}, all)
}

func TestCatalog_Themes(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.SetThemes(ctx, "BTC", []string{"store-of-value", "layer1"}))
	require.NoError(t, c.SetThemes(ctx, "ETH", []string{"layer1"}))

	got, err := c.Themes(ctx, []string{"BTC", "ETH", "DOGE"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"BTC": {"store-of-value", "layer1"},
		"ETH": {"layer1"},
	}, got)
}
