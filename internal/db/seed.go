package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/campuspass/server/internal/campus/types"
	"github.com/campuspass/server/internal/passwd"
)

const (
	DefaultAdminName     = "root"
	DefaultAdminPassword = "123456"
)

// seedAdmin inserts the default administrator unless a user with that name
// already exists.
func seedAdmin(ctx context.Context, db *sql.DB, name, password string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultAdminName
	}
	if password == "" {
		password = DefaultAdminPassword
	}
	now := types.FormatTime(types.Now())

	if _, err := db.ExecContext(ctx, `
INSERT INTO users(name, password, is_admin, created_at, updated_at)
SELECT ?, ?, 1, ?, ?
WHERE NOT EXISTS (SELECT 1 FROM users WHERE name = ?);
`, name, passwd.Hash(password), now, now, name); err != nil {
		return fmt.Errorf("seed admin %s: %w", name, err)
	}
	return nil
}
