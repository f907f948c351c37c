package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Database owns the sqlite connection and the schema
type Database struct {
	db *sql.DB
}

func NewDatabase(dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Verify we can actually connect to the database
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("ping failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	// Try to create tables - if this fails, the database is not usable
	if err := createTables(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("create tables failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	return &Database{db: db}, nil
}

// GetDB exposes the underlying connection for the repositories
func (d *Database) GetDB() *sql.DB {
	return d.db
}

func (d *Database) Close() error {
	if d == nil {
		return errors.New("database is nil")
	}

	if d.db == nil {
		return errors.New("database already closed")
	}

	err := d.db.Close()
	d.db = nil
	return err
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		provider TEXT NOT NULL,
		status TEXT NOT NULL,
		phone_number TEXT,
		qr_code TEXT,
		last_activity INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider_msg_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		contact_phone TEXT NOT NULL,
		contact_name TEXT,
		from_me BOOLEAN NOT NULL DEFAULT 0,
		type TEXT NOT NULL,
		body TEXT,
		caption TEXT,
		media_url TEXT,
		status TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		UNIQUE (session_id, provider_msg_id),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE (tenant_id, name)
	);

	CREATE TABLE IF NOT EXISTS conversation_tags (
		session_id TEXT NOT NULL,
		contact_phone TEXT NOT NULL,
		tag_id TEXT NOT NULL,
		attached_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, contact_phone, tag_id),
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_tenant ON sessions(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
	CREATE INDEX IF NOT EXISTS idx_messages_session_contact ON messages(session_id, contact_phone, timestamp);
	CREATE INDEX IF NOT EXISTS idx_conversation_tags_key ON conversation_tags(session_id, contact_phone);
`
