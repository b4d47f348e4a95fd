// Package journal persists sweep history in SQLite, so past runs can
// be reviewed and a label's cleanup progress tracked over time.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/labelsweep/labelsweep/internal/archive"
)

// Store persists finished sweep reports.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal database at path, creating parent
// directories and running migrations as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sweeps (
			id          TEXT PRIMARY KEY,
			label       TEXT NOT NULL,
			archive_box TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			candidates  INTEGER NOT NULL,
			attempted   INTEGER NOT NULL,
			archived    INTEGER NOT NULL,
			failed      INTEGER NOT NULL,
			marked_read INTEGER NOT NULL
		)
	`)
	return err
}

// Record stores one finished sweep.
func (s *Store) Record(rep *archive.Report) error {
	_, err := s.db.Exec(`
		INSERT INTO sweeps (id, label, archive_box, started_at, finished_at,
			candidates, attempted, archived, failed, marked_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.SweepID, rep.Label, rep.ArchiveBox,
		rep.Started.Unix(), rep.Finished.Unix(),
		rep.Candidates, rep.Attempted, rep.Archived, rep.Failed, rep.MarkedRead,
	)
	if err != nil {
		return fmt.Errorf("record sweep %s: %w", rep.SweepID, err)
	}
	return nil
}

// Entry is one journaled sweep.
type Entry struct {
	SweepID    string
	Label      string
	ArchiveBox string
	Started    time.Time
	Finished   time.Time
	Candidates int
	Attempted  int
	Archived   int
	Failed     int
	MarkedRead int
}

// Recent returns up to limit sweeps, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, label, archive_box, started_at, finished_at,
			candidates, attempted, archived, failed, marked_read
		FROM sweeps ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, finished int64
		if err := rows.Scan(&e.SweepID, &e.Label, &e.ArchiveBox, &started, &finished,
			&e.Candidates, &e.Attempted, &e.Archived, &e.Failed, &e.MarkedRead); err != nil {
			return nil, err
		}
		e.Started = time.Unix(started, 0)
		e.Finished = time.Unix(finished, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
