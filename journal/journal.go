// Package journal records program runs and the lifecycle of every thread
// they spawn in a SQLite database.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/xrt/vm"
)

// ErrRunNotFound indicates the requested run doesn't exist.
var ErrRunNotFound = errors.New("run not found")

var schema = []string{`
CREATE TABLE IF NOT EXISTS runs (
	id        TEXT PRIMARY KEY,
	program   TEXT NOT NULL,
	hash      TEXT NOT NULL,
	entry     TEXT NOT NULL,
	started   INTEGER NOT NULL,
	finished  INTEGER,
	exit_code INTEGER,
	error     TEXT
)`, `
CREATE TABLE IF NOT EXISTS threads (
	id       TEXT PRIMARY KEY,
	run_id   TEXT NOT NULL REFERENCES runs(id),
	method   TEXT NOT NULL,
	state    TEXT NOT NULL,
	started  INTEGER NOT NULL,
	finished INTEGER,
	error    TEXT
)`,
	`CREATE INDEX IF NOT EXISTS threads_run ON threads(run_id)`,
}

// Journal is the run journal.
type Journal struct {
	db  *sql.DB
	mu  sync.Mutex
	log commonlog.Logger
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}

	return &Journal{db: db, log: commonlog.GetLogger("xrt.journal")}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// BeginRun records the start of a run. The returned Run observes the
// threads of the VM it is attached to with vm.WithObserver.
func (j *Journal) BeginRun(program, hash, entry string) (*Run, error) {
	r := &Run{ID: uuid.New(), journal: j}

	j.mu.Lock()
	defer j.mu.Unlock()
	_, err := j.db.Exec(
		"INSERT INTO runs (id, program, hash, entry, started) VALUES (?, ?, ?, ?, ?)",
		r.ID.String(), program, hash, entry, time.Now().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}
	return r, nil
}

// Run is one recorded run.
type Run struct {
	ID      uuid.UUID
	journal *Journal
}

// Finish records the exit code and failure, if any.
func (r *Run) Finish(code int, runErr error) error {
	j := r.journal
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err := j.db.Exec(
		"UPDATE runs SET finished = ?, exit_code = ?, error = ? WHERE id = ?",
		time.Now().UnixNano(), code, errText(runErr), r.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// ThreadStarted implements vm.Observer.
func (r *Run) ThreadStarted(t *vm.Thread) {
	j := r.journal
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err := j.db.Exec(
		"INSERT INTO threads (id, run_id, method, state, started) VALUES (?, ?, ?, ?, ?)",
		t.ID().String(), r.ID.String(), t.Method().Method.QualifiedName(),
		vm.ThreadRunning.String(), t.Started().UnixNano(),
	)
	if err != nil {
		j.log.Errorf("recording %s: %s", t, err)
	}
}

// ThreadFinished implements vm.Observer.
func (r *Run) ThreadFinished(t *vm.Thread) {
	j := r.journal
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err := j.db.Exec(
		"UPDATE threads SET state = ?, finished = ?, error = ? WHERE id = ?",
		t.State().String(), time.Now().UnixNano(), errText(t.Err()), t.ID().String(),
	)
	if err != nil {
		j.log.Errorf("recording %s: %s", t, err)
	}
}

func errText(err error) sql.NullString {
	if err == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: err.Error(), Valid: true}
}
