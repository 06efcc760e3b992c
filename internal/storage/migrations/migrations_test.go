package migrations

import (
	"errors"
	"strings"
	"testing"
)

func TestList(t *testing.T) {
	for _, dialect := range []string{DialectPostgres, DialectClickhouse} {
		ms, err := List(dialect)
		if err != nil {
			t.Fatalf("List(%s): %v", dialect, err)
		}
		if len(ms) == 0 {
			t.Fatalf("List(%s): no migrations", dialect)
		}
		for i, m := range ms {
			if i > 0 && m.Version <= ms[i-1].Version {
				t.Errorf("%s: versions not ascending at %s", dialect, m.Name)
			}
			if strings.TrimSpace(m.SQL) == "" {
				t.Errorf("%s: empty SQL in %s", dialect, m.Name)
			}
		}
	}

	if _, err := List("mysql"); err == nil {
		t.Error("Expected error for unknown dialect")
	}
}

func TestList_CandleTableFirst(t *testing.T) {
	ms, err := List(DialectClickhouse)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if ms[0].Version != 1 || !strings.Contains(ms[0].SQL, "CREATE TABLE IF NOT EXISTS candles") {
		t.Errorf("First clickhouse migration = %d %s", ms[0].Version, ms[0].Name)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"001_scenario_runs.sql", 1, false},
		{"012_add_index.sql", 12, false},
		{"scenario_runs.sql", 0, true},
		{"000_zero.sql", 0, true},
		{"candles.sql", 0, true},
	}

	for _, tt := range tests {
		got, err := parseVersion(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrBadMigration) {
				t.Errorf("parseVersion(%q) error = %v, want ErrBadMigration", tt.name, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseVersion(%q) = %d, %v; want %d", tt.name, got, err, tt.want)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	sql := `-- candles; with a comment
CREATE TABLE a (x String DEFAULT 'a;b');
-- second
ALTER TABLE a ADD COLUMN y String DEFAULT 'it''s; fine';

`
	got := splitStatements(sql)
	if len(got) != 2 {
		t.Fatalf("Expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (x String DEFAULT 'a;b')" {
		t.Errorf("stmt[0] = %q", got[0])
	}
	if !strings.HasSuffix(got[1], "DEFAULT 'it''s; fine'") {
		t.Errorf("stmt[1] = %q", got[1])
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/coinlab")
	if err != nil || db != "coinlab" {
		t.Errorf("databaseFromDSN = %q, %v", db, err)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("Expected error for DSN without database")
	}
}
