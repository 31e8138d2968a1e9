package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/campuspass/server/internal/apperr"
)

// RetryPolicy bounds the contention retry loop.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // wait before attempt n+1 is BaseDelay*n
}

// DefaultRetryPolicy matches the store's historical behaviour.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// Retry runs fn until it succeeds, fails with anything other than a
// contention error, or the attempt budget is spent. Domain errors are
// returned on the first attempt.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	policy = policy.normalized()

	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !apperr.IsKind(err, apperr.KindContention) {
			return err
		}
		if attempt >= policy.MaxAttempts {
			return fmt.Errorf("store remained busy after %d attempts: %w", attempt, err)
		}

		timer := time.NewTimer(time.Duration(attempt) * policy.BaseDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Classify converts raw driver errors into apperr kinds. Errors that already
// carry a kind are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case isBusy(err):
		return apperr.Wrap(apperr.KindContention, "store_busy", "store busy", err)
	case isConstraint(err):
		return apperr.Wrap(apperr.KindDuplicate, "constraint", "record already exists", err)
	default:
		return apperr.Wrap(apperr.KindUnexpected, "storage", "storage failure", err)
	}
}

func isBusy(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// Extended codes (e.g. SQLITE_BUSY_SNAPSHOT) share the primary code's low byte.
	code := sqliteErr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

func isConstraint(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
