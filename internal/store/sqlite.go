package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS import_queue (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL UNIQUE,
	prefer_ai    INTEGER NOT NULL DEFAULT 1,
	force_update INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	note         TEXT NOT NULL DEFAULT '',
	listing_id   TEXT NOT NULL DEFAULT '',
	submitted_by TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_import_queue_status ON import_queue (status, id);

CREATE TABLE IF NOT EXISTS job_listings (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	company          TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	location         TEXT NOT NULL DEFAULT '',
	salary           TEXT NOT NULL DEFAULT '',
	employment_type  TEXT NOT NULL DEFAULT '',
	type             TEXT NOT NULL DEFAULT 'external',
	experience_level TEXT NOT NULL DEFAULT '',
	market_demand    TEXT NOT NULL DEFAULT '',
	tech_stack       TEXT NOT NULL DEFAULT '[]',
	requirements     TEXT NOT NULL DEFAULT '[]',
	responsibilities TEXT NOT NULL DEFAULT '[]',
	benefits         TEXT NOT NULL DEFAULT '[]',
	required_skills  TEXT NOT NULL DEFAULT '[]',
	applicants       TEXT NOT NULL DEFAULT '[]',
	status           TEXT NOT NULL,
	external_url     TEXT NOT NULL DEFAULT '',
	posted_by        TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_listings_external_url ON job_listings (external_url);
CREATE INDEX IF NOT EXISTS idx_job_listings_title_company ON job_listings (title, company);
`

// SQLiteStore holds the import queue and job listings in one SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the import_queue and job_listings tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", withBusyTimeout(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Queue returns the import queue backed by this database.
func (s *SQLiteStore) Queue() *QueueStore {
	return &QueueStore{db: s.db}
}

// Listings returns the job listing store backed by this database.
func (s *SQLiteStore) Listings() *ListingStore {
	return &ListingStore{db: s.db}
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withBusyTimeout makes writers wait for a held lock instead of failing
// with SQLITE_BUSY when the API and a scheduled batch write together.
func withBusyTimeout(dbPath string) string {
	if strings.Contains(dbPath, "_pragma=busy_timeout") {
		return dbPath
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)"
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
