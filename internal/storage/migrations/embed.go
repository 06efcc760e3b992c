// Package migrations applies the embedded schema files of the run store
// (Postgres) and the candle store (ClickHouse).
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS

// Dialects with an embedded migration directory.
const (
	DialectPostgres   = "postgres"
	DialectClickhouse = "clickhouse"
)

// ErrBadMigration is returned for files that do not follow the
// NNN_name.sql convention or reuse a version.
var ErrBadMigration = errors.New("bad migration file")

// Migration is one embedded schema file.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// List returns the migrations of a dialect ordered by version. Empty
// files are skipped.
func List(dialect string) ([]Migration, error) {
	entries, err := fs.ReadDir(files, dialect)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dialect, err)
	}

	var out []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version, err := parseVersion(name)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("%w: %s and %s share version %d", ErrBadMigration, prev, name, version)
		}
		seen[version] = name

		data, err := fs.ReadFile(files, path.Join(dialect, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(data)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func parseVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("%w: %s has no version prefix", ErrBadMigration, name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s has version %q", ErrBadMigration, name, prefix)
	}
	return v, nil
}
