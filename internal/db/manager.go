package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/campuspass/server/internal/apperr"
)

// ErrNotInitialized is returned by every operation issued before Initialize
// or after Shutdown.
var ErrNotInitialized = apperr.New(apperr.KindUnexpected, "not_initialized", "store not initialized")

type Config struct {
	Path          string // e.g. "./data/vehicle_db.db"
	BusyTimeoutMS int
	Retry         RetryPolicy

	AdminName     string
	AdminPassword string
}

// InitError reports a failed Initialize. The manager stays uninitialized.
type InitError struct {
	Stage string // "open" | "schema" | "seed"
	Err   error
}

func (e *InitError) Error() string { return fmt.Sprintf("initialize store (%s): %v", e.Stage, e.Err) }
func (e *InitError) Unwrap() error { return e.Err }

// Manager owns the physical handle to the store file and the registry of
// live sessions.
type Manager struct {
	cfg Config

	mu          sync.Mutex // serializes Initialize and Shutdown
	db          *sql.DB
	path        string
	initialized atomic.Bool
	generation  atomic.Uint64 // bumped on every successful Initialize

	sessMu   sync.Mutex
	sessions map[*Session]*sql.Conn
}

func NewManager(cfg Config) *Manager {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[*Session]*sql.Conn),
	}
}

// Initialize opens the store at path (or the configured path when empty),
// creates the schema and seeds the administrator. Calling it again on an
// initialized manager is a no-op.
func (m *Manager) Initialize(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized.Load() {
		return nil
	}

	path = strings.TrimSpace(path)
	if path == "" {
		path = m.cfg.Path
	}
	if path == "" {
		path = DefaultPath
	}

	db, err := openPhysical(ctx, path, m.cfg.BusyTimeoutMS)
	if err != nil {
		return &InitError{Stage: "open", Err: err}
	}
	if err := bootstrapSchema(ctx, db); err != nil {
		_ = db.Close()
		return &InitError{Stage: "schema", Err: err}
	}
	if err := seedAdmin(ctx, db, m.cfg.AdminName, m.cfg.AdminPassword); err != nil {
		_ = db.Close()
		return &InitError{Stage: "seed", Err: err}
	}

	m.db = db
	m.path = path
	m.generation.Add(1)
	m.initialized.Store(true)
	return nil
}

func (m *Manager) Initialized() bool { return m.initialized.Load() }

// Path returns the file backing the store, or "" when uninitialized.
func (m *Manager) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized.Load() {
		return ""
	}
	return m.path
}

// Shutdown marks the manager uninitialized, closes every session connection
// still registered, then the physical handle. Sessions that are later
// released see their connection already closed and ignore it.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized.Swap(false) {
		return nil
	}

	m.sessMu.Lock()
	open := m.sessions
	m.sessions = make(map[*Session]*sql.Conn)
	m.sessMu.Unlock()

	for _, conn := range open {
		_ = conn.Close()
	}

	err := m.db.Close()
	m.db = nil
	return err
}

// OpenSessions reports how many sessions currently hold a connection.
func (m *Manager) OpenSessions() int {
	m.sessMu.Lock()
	defer m.sessMu.Unlock()
	return len(m.sessions)
}

// Session returns a new scoped handle. The handle must be used by one
// goroutine at a time and released when the caller's unit of work ends.
func (m *Manager) Session() *Session {
	return &Session{mgr: m}
}

func (m *Manager) handle() (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized.Load() {
		return nil, ErrNotInitialized
	}
	return m.db, nil
}

func (m *Manager) register(s *Session, conn *sql.Conn) {
	m.sessMu.Lock()
	m.sessions[s] = conn
	m.sessMu.Unlock()
}

func (m *Manager) unregister(s *Session) {
	m.sessMu.Lock()
	delete(m.sessions, s)
	m.sessMu.Unlock()
}

// Session holds one private logical connection, opened on first use and
// kept until Release.
type Session struct {
	mgr  *Manager
	conn *sql.Conn
	gen  uint64
}

// Conn resolves the session's connection, creating it on first use.
func (s *Session) Conn(ctx context.Context) (*sql.Conn, error) {
	if !s.mgr.initialized.Load() {
		return nil, ErrNotInitialized
	}
	if s.conn != nil {
		if s.gen == s.mgr.generation.Load() {
			return s.conn, nil
		}
		// Cached from a handle that has since been shut down.
		_ = s.Release()
	}

	db, err := s.mgr.handle()
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	s.conn = conn
	s.gen = s.mgr.generation.Load()
	s.mgr.register(s, conn)
	return conn, nil
}

// Release closes and discards the session's connection. Releasing a session
// with no connection is a no-op; the session may be used again afterwards.
func (s *Session) Release() error {
	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	s.mgr.unregister(s)

	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

type sessionKey struct{}

// WithSession scopes s to ctx so that every operation issued with the
// returned context reuses the same connection.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func sessionFrom(ctx context.Context, m *Manager) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	if !ok || s == nil || s.mgr != m {
		return nil, false
	}
	return s, true
}

// Read runs fn against the caller's connection inside the retry envelope.
func (m *Manager) Read(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	return m.run(ctx, func(ctx context.Context, conn *sql.Conn) error {
		return fn(ctx, conn)
	})
}

// Write runs fn in a transaction on the caller's connection inside the
// retry envelope. fn is re-run from scratch on each attempt.
func (m *Manager) Write(ctx context.Context, fn TxFn) error {
	return m.run(ctx, func(ctx context.Context, conn *sql.Conn) error {
		return inTx(ctx, conn, fn)
	})
}

// Ping runs a trivial query through the normal session and retry path.
func (m *Manager) Ping(ctx context.Context) error {
	return m.Read(ctx, func(ctx context.Context, q Querier) error {
		var one int
		return q.QueryRowContext(ctx, "SELECT 1;").Scan(&one)
	})
}

func (m *Manager) run(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	sess, scoped := sessionFrom(ctx, m)
	if !scoped {
		sess = m.Session()
		defer sess.Release()
	}

	return Retry(ctx, m.cfg.Retry, func(ctx context.Context) error {
		conn, err := sess.Conn(ctx)
		if err != nil {
			return Classify(err)
		}
		return Classify(fn(ctx, conn))
	})
}
