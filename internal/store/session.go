// Package store persists the small amount of client state that survives a restart:
// the auth token, the signed-in user and the last task filter. Logout clears it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gmao-cli/internal/model"

	_ "modernc.org/sqlite"
)

const sqliteFileName = "session.sqlite"

const (
	keyToken   = "token"
	keyUser    = "user"
	keyFilter  = "task_status_filter"
	keySavedAt = "saved_at"
)

type Store struct {
	Dir string
}

func New(dir string) Store { return Store{Dir: dir} }

func (s Store) Ensure() error {
	if strings.TrimSpace(s.Dir) == "" {
		return errors.New("store: empty directory")
	}
	return os.MkdirAll(s.Dir, 0o700)
}

func (s Store) sqlitePath() string { return filepath.Join(s.Dir, sqliteFileName) }

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite registers as "sqlite".
	db, err := sql.Open("sqlite", s.sqlitePath())
	if err != nil {
		return nil, err
	}
	// A CLI command and the TUI may run side by side.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state_meta (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := os.Chmod(s.sqlitePath(), 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Persisted is what the last run left behind.
type Persisted struct {
	Token   string
	User    *model.Session
	Filter  model.Status
	SavedAt time.Time
}

// SignedIn reports whether a usable session was stored.
func (p Persisted) SignedIn() bool { return p.Token != "" && p.User != nil }

// Session returns the stored user with the stored token.
func (p Persisted) Session() (model.Session, bool) {
	if !p.SignedIn() {
		return model.Session{}, false
	}
	s := *p.User
	s.Token = p.Token
	return s, true
}

func (s Store) Load(ctx context.Context) (Persisted, error) {
	var out Persisted
	if _, err := os.Stat(s.sqlitePath()); errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return out, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT k, v FROM state_meta`)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	kv := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return out, err
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return out, err
	}

	out.Token = kv[keyToken]
	out.Filter = model.Status(kv[keyFilter])
	if v := kv[keyUser]; v != "" {
		var u model.Session
		// A corrupt user row reads as signed out.
		if err := json.Unmarshal([]byte(v), &u); err == nil {
			u.Token = ""
			out.User = &u
		}
	}
	if v := kv[keySavedAt]; v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			out.SavedAt = t
		}
	}
	return out, nil
}

// SaveSession stores the token and the user. The token is kept out of the user row.
func (s Store) SaveSession(ctx context.Context, sess model.Session) error {
	if strings.TrimSpace(sess.Token) == "" {
		return errors.New("store: session without token")
	}
	user := sess
	user.Token = ""
	b, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.put(ctx, map[string]string{
		keyToken:   sess.Token,
		keyUser:    string(b),
		keySavedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// SaveFilter stores the task-list status filter; "" means all statuses.
func (s Store) SaveFilter(ctx context.Context, st model.Status) error {
	return s.put(ctx, map[string]string{keyFilter: string(st)})
}

func (s Store) put(ctx context.Context, kv map[string]string) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for k, v := range kv {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES(?, ?)`, k, v); err != nil {
			return fmt.Errorf("store %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Clear forgets everything; used on logout.
func (s Store) Clear(ctx context.Context) error {
	if _, err := os.Stat(s.sqlitePath()); errors.Is(err, os.ErrNotExist) {
		return s.clearUIState()
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, `DELETE FROM state_meta`); err != nil {
		return err
	}
	return s.clearUIState()
}
