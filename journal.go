package rplace

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Journal is a SQLite log of every write attempt made by a Bot. It
// implements Recorder.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// OpenJournal opens, creating if necessary, the journal stored in file.
func OpenJournal(file string) (*Journal, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS attempt (id INTEGER PRIMARY KEY NOT NULL, x INTEGER NOT NULL, y INTEGER NOT NULL, color INTEGER NOT NULL, wait REAL NOT NULL, created INTEGER NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS attempt_pixel ON attempt (x, y)"); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{
		db:  db,
		now: time.Now,
	}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores one write attempt of color at canvas position (x, y). wait
// is the cooldown the server asked for, zero if the pixel was written.
func (j *Journal) Record(x, y, color int, wait time.Duration) error {
	if _, err := j.db.Exec("INSERT INTO attempt (x, y, color, wait, created) VALUES (?, ?, ?, ?, ?)", x, y, color, wait.Seconds(), j.now().Unix()); err != nil {
		return err
	}
	return nil
}

// Summary aggregates the journal.
type Summary struct {
	Attempts  int
	Written   int
	Throttled int
	// Pixels is the number of distinct canvas positions written
	Pixels int
	// Waited is the sum of every cooldown requested by the server
	Waited time.Duration
	// Last is the time of the most recent attempt, zero if there is none
	Last time.Time
}

// Summary returns totals over every recorded attempt.
func (j *Journal) Summary() (Summary, error) {
	var s Summary
	var waited float64
	var last sql.NullInt64
	if err := j.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(wait = 0), 0), COALESCE(SUM(wait > 0), 0), COALESCE(SUM(wait), 0), MAX(created) FROM attempt").Scan(&s.Attempts, &s.Written, &s.Throttled, &waited, &last); err != nil {
		return Summary{}, err
	}
	if err := j.db.QueryRow("SELECT COUNT(*) FROM (SELECT DISTINCT x, y FROM attempt WHERE wait = 0)").Scan(&s.Pixels); err != nil {
		return Summary{}, err
	}
	s.Waited = time.Duration(waited * float64(time.Second))
	if last.Valid {
		s.Last = time.Unix(last.Int64, 0)
	}
	return s, nil
}

var _ Recorder = (*Journal)(nil)
