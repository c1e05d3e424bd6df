// Package ledger keeps a local record of submissions and downloads, one row
// per invocation, in a SQLite database under the tool's config directory.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Record is one submission or download.
type Record struct {
	ID          string
	Operation   string
	JobID       string
	Host        string
	OutputName  string
	AdapterPath string
	CreatedAt   time.Time
}

// Store wraps the ledger database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the ledger location under dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "submissions.db")
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func initSchema(db *sql.DB) error {
	const createSubmissions = `
CREATE TABLE IF NOT EXISTS submissions (
  id          TEXT PRIMARY KEY,
  operation   TEXT,
  job_id      TEXT,
  host        TEXT,
  output_name TEXT,
  created_at  TEXT
);`
	if _, err := db.Exec(createSubmissions); err != nil {
		return err
	}
	migrations := []string{
		`ALTER TABLE submissions ADD COLUMN adapter_path TEXT`,
	}
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "duplicate column name") {
				continue
			}
			return err
		}
	}
	return nil
}

// Append records one invocation. A missing id or timestamp is filled in.
func (s *Store) Append(rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO submissions (id, operation, job_id, host, output_name, adapter_path, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Operation, rec.JobID, rec.Host, rec.OutputName, rec.AdapterPath,
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return Record{}, fmt.Errorf("record submission: %w", err)
	}
	return rec, nil
}

// List returns all records, newest first.
func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, operation, job_id, host, output_name, adapter_path, created_at
         FROM submissions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Get returns one record by id.
func (s *Store) Get(id string) (*Record, error) {
	row := s.db.QueryRow(
		`SELECT id, operation, job_id, host, output_name, adapter_path, created_at
         FROM submissions WHERE id = ?`, id)
	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no submission with id %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanRecord(scan func(...any) error) (Record, error) {
	var rec Record
	var adapter sql.NullString
	var created string
	if err := scan(&rec.ID, &rec.Operation, &rec.JobID, &rec.Host,
		&rec.OutputName, &adapter, &created); err != nil {
		return Record{}, err
	}
	rec.AdapterPath = adapter.String
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}
