// Package remote provides the hosted journal_entries table the sync
// engine pushes to and pulls from.
//
// The table lives in a libSQL database. Two modes are supported:
//
//   - Hosted: a libsql:// URL connects to a Turso-hosted database.
//   - Embedded: any other DSN opens a local SQLite file with WAL mode,
//     used for development and tests.
//
// One row exists per (user, day). Inserts generate the row id and
// created_at; updates are keyed by id; bulk fetch is filtered by user.
package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/daybook-sh/daybook/internal/journal"
)

// Row is one journal_entries row.
type Row struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	Date      string               `json:"date"`
	Title     string               `json:"title"`
	Content   string               `json:"content"`
	Moods     []string             `json:"moods"`
	Files     []journal.Attachment `json:"files"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Entry converts the row to the local entry shape, marked synced.
func (r Row) Entry() journal.Entry {
	return journal.Entry{
		Content:   r.Content,
		Title:     r.Title,
		Moods:     r.Moods,
		Files:     r.Files,
		RemoteID:  r.ID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Synced:    true,
	}
}

// Table is the remote store contract the sync engine depends on.
// It is satisfied by *DB and by test fakes.
type Table interface {
	// Insert creates a row for (row.UserID, row.Date), filling in the
	// generated id and created_at on the passed row. If a row for that
	// user and day already exists (another device inserted first), the
	// existing row is updated instead and its id is returned.
	Insert(ctx context.Context, row *Row) error

	// Update rewrites the row identified by row.ID.
	Update(ctx context.Context, row *Row) error

	// FetchAll returns every row owned by userID.
	FetchAll(ctx context.Context, userID string) ([]Row, error)

	// Delete removes the row with the given id. Deleting a missing row
	// is not an error (idempotent).
	Delete(ctx context.Context, id string) error
}

// DB wraps the libSQL connection to the journal_entries table.
type DB struct {
	conn *sql.DB
	dsn  string
}

var _ Table = (*DB)(nil)

// Open connects to the remote table. A libsql:// DSN selects the
// hosted Turso driver; anything else is treated as a local SQLite
// file path and opened in embedded mode with WAL.
//
// The caller MUST call Close() when done.
func Open(dsn string) (*DB, error) {
	var conn *sql.DB
	var err error

	if strings.HasPrefix(dsn, "libsql://") {
		conn, err = sql.Open("libsql", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open hosted database: %w", err)
		}
	} else {
		path := strings.TrimPrefix(dsn, "file:")
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		conn, err = sql.Open("sqlite3", "file:"+path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, dsn: dsn}

	if !strings.HasPrefix(dsn, "libsql://") {
		// Embedded mode: WAL for concurrent readers.
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
		if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.conn = nil
	return nil
}

// InitSchema creates the journal_entries table if it doesn't exist.
// Idempotent, safe to call on every startup.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		moods TEXT NOT NULL DEFAULT '[]',  -- JSON array
		files TEXT NOT NULL DEFAULT '[]',  -- JSON array
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,

		UNIQUE (user_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_user ON journal_entries(user_id);
	CREATE INDEX IF NOT EXISTS idx_entries_user_date ON journal_entries(user_id, date);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Insert implements Table.Insert.
func (db *DB) Insert(ctx context.Context, row *Row) error {
	moodsJSON, filesJSON, err := encodeLists(row)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	updated := row.UpdatedAt
	if updated.IsZero() {
		updated = now
	}

	// Two devices may race to create the same (user, day); the second
	// insert lands as an update and adopts the existing row id.
	query := `
	INSERT INTO journal_entries (
		id, user_id, date, title, content, moods, files, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, date) DO UPDATE SET
		title = excluded.title,
		content = excluded.content,
		moods = excluded.moods,
		files = excluded.files,
		updated_at = excluded.updated_at
	RETURNING id, created_at
	`

	var gotID, createdAt string
	err = db.conn.QueryRowContext(ctx, query,
		id,
		row.UserID,
		row.Date,
		row.Title,
		row.Content,
		moodsJSON,
		filesJSON,
		now.Format(time.RFC3339),
		updated.Format(time.RFC3339),
	).Scan(&gotID, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert entry for %s: %w", row.Date, err)
	}

	row.ID = gotID
	row.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	row.UpdatedAt = updated
	return nil
}

// Update implements Table.Update.
func (db *DB) Update(ctx context.Context, row *Row) error {
	if row.ID == "" {
		return fmt.Errorf("update requires a row id")
	}

	moodsJSON, filesJSON, err := encodeLists(row)
	if err != nil {
		return err
	}

	updated := row.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	query := `
	UPDATE journal_entries
	SET title = ?, content = ?, moods = ?, files = ?, updated_at = ?
	WHERE id = ?
	`

	res, err := db.conn.ExecContext(ctx, query,
		row.Title,
		row.Content,
		moodsJSON,
		filesJSON,
		updated.Format(time.RFC3339),
		row.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry %s: %w", row.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("entry %s not found", row.ID)
	}
	return nil
}

// FetchAll implements Table.FetchAll.
func (db *DB) FetchAll(ctx context.Context, userID string) ([]Row, error) {
	query := `
	SELECT id, user_id, date, title, content, moods, files, created_at, updated_at
	FROM journal_entries
	WHERE user_id = ?
	ORDER BY date
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var moodsJSON, filesJSON, createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Date, &r.Title, &r.Content,
			&moodsJSON, &filesJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}

		if err := json.Unmarshal([]byte(moodsJSON), &r.Moods); err != nil {
			return nil, fmt.Errorf("failed to decode moods for %s: %w", r.Date, err)
		}
		if err := json.Unmarshal([]byte(filesJSON), &r.Files); err != nil {
			return nil, fmt.Errorf("failed to decode files for %s: %w", r.Date, err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at for %s: %w", r.Date, err)
		}
		if r.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at for %s: %w", r.Date, err)
		}

		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return out, nil
}

// Delete implements Table.Delete.
func (db *DB) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM journal_entries WHERE id = ?`
	if _, err := db.conn.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", id, err)
	}
	return nil
}

// CountForUser returns the number of rows owned by userID.
func (db *DB) CountForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM journal_entries WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

func encodeLists(row *Row) (moodsJSON, filesJSON string, err error) {
	moods := row.Moods
	if moods == nil {
		moods = []string{}
	}
	files := row.Files
	if files == nil {
		files = []journal.Attachment{}
	}

	m, err := json.Marshal(moods)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal moods: %w", err)
	}
	f, err := json.Marshal(files)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal files: %w", err)
	}
	return string(m), string(f), nil
}
