package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection with thread-safe access.
type DB struct {
	conn *sql.DB
	mu   sync.Mutex
}

// New creates and initializes a new SQLite database connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		event_id TEXT PRIMARY KEY,
		camera_id TEXT NOT NULL,
		state TEXT NOT NULL,
		recording_filename TEXT NOT NULL,
		snapshot_filename TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		duration_seconds REAL DEFAULT 0,
		frames_processed INTEGER DEFAULT 0,
		detections_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS event_detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL,
		class_name TEXT NOT NULL,
		confidence REAL NOT NULL,
		x1 INTEGER NOT NULL,
		y1 INTEGER NOT NULL,
		x2 INTEGER NOT NULL,
		y2 INTEGER NOT NULL,
		FOREIGN KEY (event_id) REFERENCES events(event_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS ai_context (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL,
		camera_id TEXT NOT NULL,
		context_text TEXT NOT NULL,
		detected_classes TEXT NOT NULL,
		source_model TEXT NOT NULL,
		prompt_used TEXT NOT NULL,
		response_time_seconds REAL DEFAULT 0,
		is_valid INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (event_id) REFERENCES events(event_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_events_camera_id ON events(camera_id);
	CREATE INDEX IF NOT EXISTS idx_events_started_at ON events(started_at);
	CREATE INDEX IF NOT EXISTS idx_event_detections_event_id ON event_detections(event_id);
	CREATE INDEX IF NOT EXISTS idx_ai_context_event_id ON ai_context(event_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}
