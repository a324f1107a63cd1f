// Package store persists conversations in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"marhaba/internal/domain"
)

// SQLiteConversationStore implements domain.ConversationStore using SQLite.
type SQLiteConversationStore struct {
	db  *sql.DB
	now func() time.Time

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var _ domain.ConversationStore = (*SQLiteConversationStore)(nil)

// Option configures a SQLiteConversationStore.
type Option func(*SQLiteConversationStore)

// WithClock overrides the time source for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteConversationStore) { s.now = now }
}

// NewSQLiteConversationStore opens (or creates) the database at dbPath and
// runs the schema migration. The parent directory is created if needed.
func NewSQLiteConversationStore(dbPath string, opts ...Option) (*SQLiteConversationStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open conversation db: %w", err)
	}
	// Writers serialize; one connection avoids SQLITE_BUSY between them.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate conversation db: %w", err)
	}
	s := &SQLiteConversationStore{
		db:      db,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS entries (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			id              TEXT NOT NULL UNIQUE,
			conversation_id TEXT NOT NULL,
			role            TEXT NOT NULL,
			text            TEXT NOT NULL DEFAULT '',
			messages        TEXT NOT NULL DEFAULT '[]',
			ts              TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS entries_conversation ON entries(conversation_id, seq);
		CREATE INDEX IF NOT EXISTS conversations_updated ON conversations(updated_at);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteConversationStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteConversationStore) newID(t time.Time) string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// timeLayout is fixed-width so stamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func stamp(t time.Time) string { return t.UTC().Format(timeLayout) }

func notFound(op, id string) error {
	return domain.NewSubSystemError("store", op, domain.ErrNotFound, id)
}

// Create starts an empty conversation with a fresh ULID.
func (s *SQLiteConversationStore) Create(ctx context.Context) (*domain.Conversation, error) {
	now := s.now().UTC()
	c := &domain.Conversation{
		ID:        s.newID(now),
		Title:     domain.DefaultConversationTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
		c.ID, c.Title, stamp(now), stamp(now),
	)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

// Get loads a conversation with its entries in insertion order.
func (s *SQLiteConversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	var createdStr, updatedStr string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?", id,
	).Scan(&c.ID, &c.Title, &createdStr, &updatedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("store.Get", id)
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, role, text, messages, ts FROM entries WHERE conversation_id = ? ORDER BY seq", id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e domain.ConversationEntry
		var msgStr, tsStr string
		if err := rows.Scan(&e.ID, &e.Role, &e.Text, &msgStr, &tsStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(msgStr), &e.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal entry %s messages: %w", e.ID, err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, tsStr)
		c.Entries = append(c.Entries, e)
	}
	return &c, rows.Err()
}

// List returns conversations without entries, most recently updated first.
func (s *SQLiteConversationStore) List(ctx context.Context) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, created_at, updated_at FROM conversations ORDER BY updated_at DESC, id DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var createdStr, updatedStr string
		if err := rows.Scan(&c.ID, &c.Title, &createdStr, &updatedStr); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Append adds entries in one transaction. Entries without an id or
// timestamp get one. The first user entry of an untitled conversation sets
// its title.
func (s *SQLiteConversationStore) Append(ctx context.Context, id string, entries ...domain.ConversationEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var title string
	err = tx.QueryRowContext(ctx, "SELECT title FROM conversations WHERE id = ?", id).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("store.Append", id)
	}
	if err != nil {
		return err
	}

	now := s.now().UTC()
	for _, e := range entries {
		if e.ID == "" {
			e.ID = s.newID(now)
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		msgs := e.Messages
		if msgs == nil {
			msgs = []domain.Message{}
		}
		msgJSON, err := json.Marshal(msgs)
		if err != nil {
			return fmt.Errorf("marshal entry messages: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO entries (id, conversation_id, role, text, messages, ts) VALUES (?, ?, ?, ?, ?, ?)",
			e.ID, id, e.Role, e.Text, string(msgJSON), stamp(e.Timestamp),
		); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		if e.Role == domain.RoleUser && title == domain.DefaultConversationTitle && e.Text != "" {
			title = domain.ConversationTitle(e.Text)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?", title, stamp(now), id,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a conversation and its entries.
func (s *SQLiteConversationStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("store.Delete", id)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE conversation_id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// Clear removes every conversation.
func (s *SQLiteConversationStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM conversations"); err != nil {
		return err
	}
	return tx.Commit()
}

// Prune keeps the keep most recently updated conversations and deletes the
// rest. It returns how many were deleted.
func (s *SQLiteConversationStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, domain.NewSubSystemError("store", "store.Prune", domain.ErrInvalidInput, fmt.Sprintf("keep=%d", keep))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	const stale = `SELECT id FROM conversations ORDER BY updated_at DESC, id DESC LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM entries WHERE conversation_id IN ("+stale+")", keep,
	); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id IN ("+stale+")", keep)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}
