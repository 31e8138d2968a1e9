package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/campuspass/server/internal/campus/types"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

type schemaStep struct {
	version int
	name    string
	sql     string
}

// bootstrapSchema creates the tables on first initialization. Each embedded
// step is applied at most once and recorded in schema_versions.
func bootstrapSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_versions (
  version    INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL
);`); err != nil {
		return fmt.Errorf("ensure schema_versions: %w", err)
	}

	steps, err := loadSchemaSteps()
	if err != nil {
		return err
	}

	for _, st := range steps {
		var v int
		err := db.QueryRowContext(ctx,
			"SELECT version FROM schema_versions WHERE version = ?;", st.version,
		).Scan(&v)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check schema step %d: %w", st.version, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if _, err := tx.ExecContext(ctx, st.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", st.name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_versions(version, applied_at) VALUES(?, ?);",
			st.version, types.FormatTime(types.Now()),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", st.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", st.name, err)
		}
	}
	return nil
}

func loadSchemaSteps() ([]schemaStep, error) {
	entries, err := schemaFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}

	var steps []schemaStep
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		v, err := parseVersion(e.Name()) // 0001_init.sql -> 1
		if err != nil {
			return nil, err
		}
		b, err := schemaFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		steps = append(steps, schemaStep{version: v, name: e.Name(), sql: string(b)})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

func parseVersion(filename string) (int, error) {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, fmt.Errorf("bad schema filename: %s", filename)
	}
	s := strings.TrimLeft(prefix, "0")
	if s == "" {
		s = "0"
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad schema version %s: %w", filename, err)
	}
	return v, nil
}
