// Package sqlite implements the catalog stores (combos, watchlists, symbol
// universe and themes) on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/storage"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ storage.ComboStore = (*Catalog)(nil)
var _ storage.WatchlistStore = (*Catalog)(nil)
var _ storage.ThemeStore = (*Catalog)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS combos (
	name TEXT PRIMARY KEY,
	body TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS watchlists (
	name    TEXT PRIMARY KEY,
	symbols TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS universe (
	symbol TEXT PRIMARY KEY,
	pos    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS themes (
	symbol TEXT NOT NULL,
	theme  TEXT NOT NULL,
	pos    INTEGER NOT NULL,
	PRIMARY KEY (symbol, theme)
);
`

// Catalog implements ComboStore, WatchlistStore and ThemeStore backed by
// a SQLite database.
type Catalog struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// ---------------------------------------------------------------------------
// ComboStore implementation
// ---------------------------------------------------------------------------

// Save inserts or replaces a combo by name.
func (c *Catalog) Save(ctx context.Context, combo *domain.Combo) error {
	if combo == nil || combo.Name == "" {
		return storage.ErrInvalidInput
	}
	body, err := json.Marshal(combo)
	if err != nil {
		return fmt.Errorf("encode combo: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO combos (name, body) VALUES (?, ?)`, combo.Name, string(body))
	if err != nil {
		return fmt.Errorf("save combo: %w", err)
	}
	return nil
}

// GetByName returns ErrNotFound when no combo has that name.
func (c *Catalog) GetByName(ctx context.Context, name string) (*domain.Combo, error) {
	var body string
	err := c.db.QueryRowContext(ctx, `SELECT body FROM combos WHERE name = ?`, name).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get combo: %w", err)
	}

	var combo domain.Combo
	if err := json.Unmarshal([]byte(body), &combo); err != nil {
		return nil, fmt.Errorf("decode combo %s: %w", name, err)
	}
	return &combo, nil
}

// List returns combo names, sorted.
func (c *Catalog) List(ctx context.Context) ([]string, error) {
	return c.queryStrings(ctx, `SELECT name FROM combos ORDER BY name`)
}

// ---------------------------------------------------------------------------
// WatchlistStore implementation
// ---------------------------------------------------------------------------

// SaveWatchlist inserts or replaces a watchlist.
func (c *Catalog) SaveWatchlist(ctx context.Context, name string, symbols []string) error {
	if name == "" {
		return storage.ErrInvalidInput
	}
	if symbols == nil {
		symbols = []string{}
	}
	body, err := json.Marshal(symbols)
	if err != nil {
		return fmt.Errorf("encode watchlist: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO watchlists (name, symbols) VALUES (?, ?)`, name, string(body))
	if err != nil {
		return fmt.Errorf("save watchlist: %w", err)
	}
	return nil
}

// GetWatchlist returns the symbols in stored order. ErrNotFound if missing.
func (c *Catalog) GetWatchlist(ctx context.Context, name string) ([]string, error) {
	var body string
	err := c.db.QueryRowContext(ctx, `SELECT symbols FROM watchlists WHERE name = ?`, name).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get watchlist: %w", err)
	}

	var symbols []string
	if err := json.Unmarshal([]byte(body), &symbols); err != nil {
		return nil, fmt.Errorf("decode watchlist %s: %w", name, err)
	}
	return symbols, nil
}

// SetUniverse replaces the all-symbols list.
func (c *Catalog) SetUniverse(ctx context.Context, symbols []string) error {
	return c.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM universe`); err != nil {
			return err
		}
		for i, sym := range symbols {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO universe (symbol, pos) VALUES (?, ?)`, sym, i)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// AllSymbols returns the universe in stored order.
func (c *Catalog) AllSymbols(ctx context.Context) ([]string, error) {
	return c.queryStrings(ctx, `SELECT symbol FROM universe ORDER BY pos`)
}

// ---------------------------------------------------------------------------
// ThemeStore implementation
// ---------------------------------------------------------------------------

// SetThemes replaces the themes of symbol.
func (c *Catalog) SetThemes(ctx context.Context, symbol string, themes []string) error {
	if symbol == "" {
		return storage.ErrInvalidInput
	}
	return c.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM themes WHERE symbol = ?`, symbol); err != nil {
			return err
		}
		for i, theme := range themes {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO themes (symbol, theme, pos) VALUES (?, ?, ?)`, symbol, theme, i)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Themes returns the mapping for symbols. Unmapped symbols are absent.
func (c *Catalog) Themes(ctx context.Context, symbols []string) (map[string][]string, error) {
	out := make(map[string][]string, len(symbols))
	stmt, err := c.db.PrepareContext(ctx, `SELECT theme FROM themes WHERE symbol = ? ORDER BY pos`)
	if err != nil {
		return nil, fmt.Errorf("prepare themes query: %w", err)
	}
	defer stmt.Close()

	for _, sym := range symbols {
		rows, err := stmt.QueryContext(ctx, sym)
		if err != nil {
			return nil, fmt.Errorf("query themes of %s: %w", sym, err)
		}
		themes, err := scanStrings(rows)
		if err != nil {
			return nil, err
		}
		if len(themes) > 0 {
			out[sym] = themes
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func (c *Catalog) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (c *Catalog) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
