/*
	Package ledger records runs and per-timestep outcomes in a SQLite database
	so that coverage gaps in a container can be found after the fact.
*/
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		variable TEXT NOT NULL,
		selector TEXT NOT NULL,
		container TEXT NOT NULL,
		num_timesteps INTEGER NOT NULL,
		offset_x INTEGER NOT NULL,
		offset_y INTEGER NOT NULL,
		consistent INTEGER NOT NULL,
		window_desc TEXT NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER,
		status TEXT NOT NULL DEFAULT 'running'
	);
	CREATE TABLE IF NOT EXISTS timesteps (
		run_id TEXT NOT NULL,
		timestep INTEGER NOT NULL,
		status TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		output TEXT NOT NULL,
		bytes INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		recorded INTEGER NOT NULL,
		PRIMARY KEY (run_id, timestep),
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);
`

// Status of a timestep.
type Status string

const (
	StatusImported     Status = "imported"
	StatusImportFailed Status = "import_failed"
	StatusFailed       Status = "failed"
	StatusMissing      Status = "missing"
)

// Run is one invocation of the pipeline.
type Run struct {
	ID           string
	Variable     string
	Selector     string
	Container    string
	NumTimesteps int
	OffsetX      int32
	OffsetY      int32
	Consistent   bool
	Window       string
	Started      time.Time
	Finished     time.Time
	Status       string
}

// Timestep is the outcome of one timestep.
type Timestep struct {
	RunID    string
	Timestep int
	Status   Status
	ExitCode int
	Output   string
	Bytes    int64
	Duration time.Duration
}

// Ledger is a handle on the ledger database.  It is safe for concurrent use.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open opens or creates the ledger at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping ledger database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger tables: %w", err)
	}
	return &Ledger{db: db, path: path}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// StartRun records the start of a run.
func (l *Ledger) StartRun(ctx context.Context, r Run) error {
	if r.Started.IsZero() {
		r.Started = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `INSERT INTO runs
		(run_id, variable, selector, container, num_timesteps, offset_x, offset_y, consistent, window_desc, started)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Variable, r.Selector, r.Container, r.NumTimesteps,
		r.OffsetX, r.OffsetY, boolToInt(r.Consistent), r.Window, r.Started.UnixNano())
	if err != nil {
		return fmt.Errorf("recording run %s: %w", r.ID, err)
	}
	return nil
}

// FinishRun marks a run as finished with the given status.
func (l *Ledger) FinishRun(ctx context.Context, runID, status string) error {
	res, err := l.db.ExecContext(ctx, `UPDATE runs SET finished = ?, status = ? WHERE run_id = ?`,
		time.Now().UnixNano(), status, runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no run %s in ledger %s", runID, l.path)
	}
	return nil
}

// RecordTimestep stores the outcome of a timestep, replacing any earlier one.
func (l *Ledger) RecordTimestep(ctx context.Context, ts Timestep) error {
	_, err := l.db.ExecContext(ctx, `INSERT OR REPLACE INTO timesteps
		(run_id, timestep, status, exit_code, output, bytes, duration_ns, recorded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.RunID, ts.Timestep, string(ts.Status), ts.ExitCode, ts.Output, ts.Bytes,
		int64(ts.Duration), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("recording timestep %d of run %s: %w", ts.Timestep, ts.RunID, err)
	}
	return nil
}

// GetRun returns a recorded run.
func (l *Ledger) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var started int64
	var finished sql.NullInt64
	var consistent int
	err := l.db.QueryRowContext(ctx, `SELECT run_id, variable, selector, container, num_timesteps,
		offset_x, offset_y, consistent, window_desc, started, finished, status FROM runs WHERE run_id = ?`, runID).
		Scan(&r.ID, &r.Variable, &r.Selector, &r.Container, &r.NumTimesteps,
			&r.OffsetX, &r.OffsetY, &consistent, &r.Window, &started, &finished, &r.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no run %s in ledger %s", runID, l.path)
	}
	if err != nil {
		return nil, err
	}
	r.Consistent = consistent != 0
	r.Started = time.Unix(0, started)
	if finished.Valid {
		r.Finished = time.Unix(0, finished.Int64)
	}
	return &r, nil
}

// Timesteps returns the recorded timesteps of a run in order.
func (l *Ledger) Timesteps(ctx context.Context, runID string) ([]Timestep, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT timestep, status, exit_code, output, bytes, duration_ns
		FROM timesteps WHERE run_id = ? ORDER BY timestep`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Timestep
	for rows.Next() {
		ts := Timestep{RunID: runID}
		var status string
		var duration int64
		if err := rows.Scan(&ts.Timestep, &status, &ts.ExitCode, &ts.Output, &ts.Bytes, &duration); err != nil {
			return nil, err
		}
		ts.Status = Status(status)
		ts.Duration = time.Duration(duration)
		out = append(out, ts)
	}
	return out, rows.Err()
}

// Gaps returns every timestep of a run that was not imported, including
// timesteps never recorded.
func (l *Ledger) Gaps(ctx context.Context, runID string) ([]Timestep, error) {
	run, err := l.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	recorded, err := l.Timesteps(ctx, runID)
	if err != nil {
		return nil, err
	}
	byStep := make(map[int]Timestep, len(recorded))
	for _, ts := range recorded {
		byStep[ts.Timestep] = ts
	}
	var gaps []Timestep
	for t := 0; t < run.NumTimesteps; t++ {
		ts, found := byStep[t]
		if !found {
			gaps = append(gaps, Timestep{RunID: runID, Timestep: t, Status: StatusMissing})
			continue
		}
		if ts.Status != StatusImported {
			gaps = append(gaps, ts)
		}
	}
	return gaps, nil
}
