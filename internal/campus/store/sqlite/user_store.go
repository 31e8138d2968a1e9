package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/campuspass/server/internal/campus/store"
	"github.com/campuspass/server/internal/campus/types"
	dbpkg "github.com/campuspass/server/internal/db"
	"github.com/campuspass/server/internal/passwd"
)

type UserStore struct {
	mgr *dbpkg.Manager
}

func NewUserStore(mgr *dbpkg.Manager) *UserStore {
	return &UserStore{mgr: mgr}
}

func (s *UserStore) AddUser(ctx context.Context, name, password string, isAdmin bool) error {
	if strings.TrimSpace(name) == "" {
		return store.ErrEmptyName
	}
	if password == "" {
		return store.ErrEmptyPassword
	}
	now := types.FormatTime(types.Now())

	return s.mgr.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT 1 FROM users WHERE name = ?;`, name)
		if err != nil {
			return fmt.Errorf("AddUser lookup: %w", err)
		}
		if exists {
			return store.ErrDuplicateName
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO users(name, password, is_admin, created_at, updated_at)
VALUES (?, ?, ?, ?, ?);
`, name, passwd.Hash(password), boolInt(isAdmin), now, now); err != nil {
			return fmt.Errorf("AddUser insert: %w", err)
		}
		return nil
	})
}

// VerifyUser never distinguishes an unknown name from a wrong password.
func (s *UserStore) VerifyUser(ctx context.Context, name, password string) (types.Credential, error) {
	cred := types.NoCredential

	err := s.mgr.Read(ctx, func(ctx context.Context, q dbpkg.Querier) error {
		var (
			id      int64
			stored  string
			isAdmin bool
		)
		err := q.QueryRowContext(ctx, `
SELECT id, password, is_admin FROM users WHERE name = ?;
`, name).Scan(&id, &stored, &isAdmin)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("VerifyUser query: %w", err)
		}

		if passwd.Matches(stored, password) {
			cred = types.Credential{Matched: true, UserID: id, IsAdmin: isAdmin}
		}
		return nil
	})
	if err != nil {
		return types.NoCredential, err
	}
	return cred, nil
}

func (s *UserStore) ChangePassword(ctx context.Context, name string, oldPassword *string, newPassword string) error {
	if newPassword == "" {
		return store.ErrEmptyPassword
	}
	now := types.FormatTime(types.Now())

	return s.mgr.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		id, err := s.checkPassword(ctx, tx, name, oldPassword)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE users SET password = ?, updated_at = ? WHERE id = ?;
`, passwd.Hash(newPassword), now, id); err != nil {
			return fmt.Errorf("ChangePassword update: %w", err)
		}
		return nil
	})
}

// DeleteUser removes the user's vehicles and then the user in one
// transaction. Passage records of those vehicles are left in place.
func (s *UserStore) DeleteUser(ctx context.Context, name string, password *string) error {
	return s.mgr.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		id, err := s.checkPassword(ctx, tx, name, password)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM vehicles WHERE registered_by = ?;`, id); err != nil {
			return fmt.Errorf("DeleteUser vehicles: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?;`, id); err != nil {
			return fmt.Errorf("DeleteUser user: %w", err)
		}
		return nil
	})
}

// checkPassword resolves name and, when password is non-nil, requires it to
// match. A nil password is the administrative override.
func (s *UserStore) checkPassword(ctx context.Context, tx *sql.Tx, name string, password *string) (int64, error) {
	var (
		id     int64
		stored string
	)
	err := tx.QueryRowContext(ctx, `SELECT id, password FROM users WHERE name = ?;`, name).Scan(&id, &stored)
	if err == sql.ErrNoRows {
		return 0, store.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup user: %w", err)
	}
	if password != nil && !passwd.Matches(stored, *password) {
		return 0, store.ErrWrongPassword
	}
	return id, nil
}

func (s *UserStore) ListUsers(ctx context.Context, page types.PageRequest) ([]types.User, int, error) {
	page = page.Normalize()

	var (
		users []types.User
		total int
	)
	err := s.mgr.Read(ctx, func(ctx context.Context, q dbpkg.Querier) error {
		users = users[:0]

		var err error
		total, err = countRows(ctx, q, `SELECT COUNT(*) FROM users;`)
		if err != nil {
			return fmt.Errorf("ListUsers count: %w", err)
		}

		rows, err := q.QueryContext(ctx, `
SELECT id, name, is_admin, created_at, updated_at
FROM users
ORDER BY id
LIMIT ? OFFSET ?;
`, page.Limit, page.Offset)
		if err != nil {
			return fmt.Errorf("ListUsers query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				u                    types.User
				createdAt, updatedAt string
			)
			if err := rows.Scan(&u.ID, &u.Name, &u.IsAdmin, &createdAt, &updatedAt); err != nil {
				return fmt.Errorf("ListUsers scan: %w", err)
			}
			u.CreatedAt = parseStored(createdAt)
			u.UpdatedAt = parseStored(updatedAt)
			users = append(users, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
