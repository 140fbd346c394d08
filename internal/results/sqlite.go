package results

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// #region store-struct

// SQLiteStore persists session records in SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// #endregion store-struct

// #region constructor

// OpenSQLite opens a SQLite database and applies pending migrations.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	// Pragmas in the DSN apply to every pooled connection.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	// m is not closed: closing it would close db.
	m.Log = migrateLogger{log: logrus.WithField("component", "migrate")}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

type migrateLogger struct {
	log *logrus.Entry
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debugf(strings.TrimSuffix(format, "\n"), v...)
}

func (l migrateLogger) Verbose() bool { return false }

// #endregion constructor

// #region close

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region sessions

// Session opens (creating if needed) the session id and returns a Store
// scoped to it.
func (s *SQLiteStore) Session(ctx context.Context, id string) (*SessionStore, error) {
	if id == "" {
		return nil, errors.New("session id is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, started_at) VALUES (?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		id, s.now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", id, err)
	}
	return &SessionStore{parent: s, id: id}, nil
}

// Existing returns the Store of a session already in the database.
func (s *SQLiteStore) Existing(ctx context.Context, id string) (*SessionStore, bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE session_id = ?`, id).Scan(&n); err != nil {
		return nil, false, fmt.Errorf("look up session %s: %w", id, err)
	}
	if n == 0 {
		return nil, false, nil
	}
	return &SessionStore{parent: s, id: id}, true, nil
}

// EndSession stamps the session as finished.
func (s *SQLiteStore) EndSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE session_id = ? AND ended_at IS NULL`,
		s.now().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("end session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE session_id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("session %s not found", id)
		}
	}
	return nil
}

// DeleteSession removes a session and all of its records.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Sessions returns the most recent sessions, newest first.
func (s *SQLiteStore) Sessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.session_id, s.started_at, s.ended_at, COALESCE(GROUP_CONCAT(r.result_key), '')
		 FROM sessions s LEFT JOIN results r ON r.session_id = s.session_id
		 GROUP BY s.session_id
		 ORDER BY s.started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var startedStr, keys string
		var endedStr sql.NullString
		if err := rows.Scan(&info.ID, &startedStr, &endedStr, &keys); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		info.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
		if endedStr.Valid {
			info.EndedAt, _ = time.Parse(time.RFC3339Nano, endedStr.String)
		}
		info.Keys = orderedKeys(keys)
		out = append(out, info)
	}
	return out, rows.Err()
}

// orderedKeys turns a GROUP_CONCAT list into Keys order.
func orderedKeys(csv string) []Key {
	if csv == "" {
		return nil
	}
	seen := make(map[Key]bool)
	for _, k := range strings.Split(csv, ",") {
		seen[Key(k)] = true
	}
	var out []Key
	for _, k := range Keys {
		if seen[k] {
			out = append(out, k)
		}
	}
	return out
}

// #endregion sessions

// #region session-store

// SessionStore is the Store view of one session in SQLite.
type SessionStore struct {
	parent *SQLiteStore
	id     string
}

// ID returns the session id.
func (s *SessionStore) ID() string { return s.id }

// Put upserts the record for key.
func (s *SessionStore) Put(ctx context.Context, key Key, payload []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	_, err := s.parent.db.ExecContext(ctx,
		`INSERT INTO results (session_id, result_key, payload, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, result_key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		s.id, string(key), string(payload), s.parent.now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Get reads the record for key. A missing row is found=false.
func (s *SessionStore) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	if err := validKey(key); err != nil {
		return nil, false, err
	}
	var payload string
	err := s.parent.db.QueryRowContext(ctx,
		`SELECT payload FROM results WHERE session_id = ? AND result_key = ?`,
		s.id, string(key),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select result: %w", err)
	}
	return []byte(payload), true, nil
}

// #endregion session-store
