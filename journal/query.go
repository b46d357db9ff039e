package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunRecord is a row of the runs table.
type RunRecord struct {
	ID       string
	Program  string
	Hash     string
	Entry    string
	Started  time.Time
	Finished time.Time // zero while running
	ExitCode int
	Error    string
}

// ThreadRecord is a row of the threads table.
type ThreadRecord struct {
	ID       string
	RunID    string
	Method   string
	State    string
	Started  time.Time
	Finished time.Time
	Error    string
}

// Runs returns the most recent runs, newest first. A non-positive limit
// returns all of them.
func (j *Journal) Runs(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.Query(
		`SELECT id, program, hash, entry, started, finished, exit_code, error
		 FROM runs ORDER BY started DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID.
func (j *Journal) GetRun(id string) (RunRecord, error) {
	row := j.db.QueryRow(
		`SELECT id, program, hash, entry, started, finished, exit_code, error
		 FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrRunNotFound
	}
	return r, err
}

// Threads returns the threads of a run in spawn order.
func (j *Journal) Threads(runID string) ([]ThreadRecord, error) {
	rows, err := j.db.Query(
		`SELECT id, run_id, method, state, started, finished, error
		 FROM threads WHERE run_id = ? ORDER BY started`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying threads: %w", err)
	}
	defer rows.Close()

	var threads []ThreadRecord
	for rows.Next() {
		var (
			t        ThreadRecord
			started  int64
			finished sql.NullInt64
			errMsg   sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.RunID, &t.Method, &t.State, &started, &finished, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning thread: %w", err)
		}
		t.Started = time.Unix(0, started)
		if finished.Valid {
			t.Finished = time.Unix(0, finished.Int64)
		}
		t.Error = errMsg.String
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		r        RunRecord
		started  int64
		finished sql.NullInt64
		code     sql.NullInt64
		errMsg   sql.NullString
	)
	if err := s.Scan(&r.ID, &r.Program, &r.Hash, &r.Entry, &started, &finished, &code, &errMsg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning run: %w", err)
	}
	r.Started = time.Unix(0, started)
	if finished.Valid {
		r.Finished = time.Unix(0, finished.Int64)
	}
	r.ExitCode = int(code.Int64)
	r.Error = errMsg.String
	return r, nil
}
