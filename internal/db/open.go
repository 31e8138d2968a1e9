package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const DefaultPath = "./data/vehicle_db.db"

// openPhysical opens the single physical handle to the store file. Logical
// connections are drawn from it per session.
func openPhysical(ctx context.Context, path string, busyTimeoutMS int) (*sql.DB, error) {
	if busyTimeoutMS <= 0 {
		busyTimeoutMS = 5000
	}

	// Ensure DB parent directory exists.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	// modernc.org/sqlite DSN with per-connection PRAGMAs.
	// - WAL: many readers alongside the single writer
	// - busy_timeout: the driver waits this long on a held write lock before
	//   surfacing SQLITE_BUSY to the retry wrapper
	// - _txlock=immediate: write transactions take the write lock at BEGIN so
	//   a read-then-write never has to upgrade mid-transaction
	// foreign_keys stays off: cascades are repository logic and orphaned
	// passage records are allowed.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(%d)&_txlock=immediate",
		path, busyTimeoutMS,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}
