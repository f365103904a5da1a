package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sugawarayuuta/sonnet"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/neuromapp/eventpassing/sim"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// aggregateRank marks the rank_stats row holding the merged stats.
const aggregateRank = -1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	label      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	num_ranks  INTEGER NOT NULL,
	num_groups INTEGER NOT NULL,
	min_delay  INTEGER NOT NULL,
	sim_time   INTEGER NOT NULL,
	protocol   TEXT NOT NULL,
	queue      TEXT NOT NULL,
	generator  TEXT NOT NULL,
	seed       INTEGER NOT NULL,
	trace_json TEXT
);

CREATE TABLE IF NOT EXISTS rank_stats (
	run_id            INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank              INTEGER NOT NULL,
	spikes_sent       INTEGER NOT NULL,
	ite_sent          INTEGER NOT NULL,
	local_sent        INTEGER NOT NULL,
	spikes_received   INTEGER NOT NULL,
	relevant_spikes   INTEGER NOT NULL,
	spikes_forwarded  INTEGER NOT NULL,
	ite_received      INTEGER NOT NULL,
	local_received    INTEGER NOT NULL,
	spike_received    INTEGER NOT NULL,
	enqueued          INTEGER NOT NULL,
	delivered         INTEGER NOT NULL,
	remaining         INTEGER NOT NULL,
	epochs            INTEGER NOT NULL,
	final_time        INTEGER NOT NULL,
	overlapped_epochs INTEGER NOT NULL,
	polls             INTEGER NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(label);
`

// statsColumns lists rank_stats columns in statsValues/statsDest order.
var statsColumns = []string{
	"rank", "spikes_sent", "ite_sent", "local_sent",
	"spikes_received", "relevant_spikes", "spikes_forwarded",
	"ite_received", "local_received", "spike_received", "enqueued", "delivered", "remaining",
	"epochs", "final_time", "overlapped_epochs", "polls",
}

func statsValues(s *sim.RunStats) []any {
	return []any{
		s.Rank, s.SpikesSent, s.ITESent, s.LocalSent,
		s.SpikesReceived, s.RelevantSpikes, s.SpikesForwarded,
		s.ITEReceived, s.LocalReceived, s.SpikeReceived, s.Enqueued, s.Delivered, s.Remaining,
		s.Epochs, s.FinalTime, s.OverlappedEpochs, s.Polls,
	}
}

func statsDest(s *sim.RunStats) []any {
	return []any{
		&s.Rank, &s.SpikesSent, &s.ITESent, &s.LocalSent,
		&s.SpikesReceived, &s.RelevantSpikes, &s.SpikesForwarded,
		&s.ITEReceived, &s.LocalReceived, &s.SpikeReceived, &s.Enqueued, &s.Delivered, &s.Remaining,
		&s.Epochs, &s.FinalTime, &s.OverlappedEpochs, &s.Polls,
	}
}

// RunRecord is a stored run.
type RunRecord struct {
	ID        int64
	CreatedAt time.Time
	Summary
}

// Store keeps run summaries in a SQLite database.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and initializes the
// schema. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection also keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)

	if err := initSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	switch {
	case !version.Valid:
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	case version.Int64 > SchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported version %d", version.Int64, SchemaVersion)
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string { return s.path }

// SaveRun inserts rec with its aggregate and per-rank stats in one
// transaction and sets rec.ID. A zero CreatedAt is set to now.
func (s *Store) SaveRun(ctx context.Context, rec *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var traceJSON sql.NullString
	if rec.Trace != nil {
		data, err := sonnet.Marshal(rec.Trace)
		if err != nil {
			return fmt.Errorf("failed to encode trace report: %w", err)
		}
		traceJSON = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (label, created_at, num_ranks, num_groups, min_delay, sim_time,
			protocol, queue, generator, seed, trace_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Label, rec.CreatedAt.Format(time.RFC3339Nano), rec.NumRanks, rec.NumGroups, rec.MinDelay, rec.SimTime,
		rec.Protocol, rec.Queue, rec.Generator, rec.Seed, traceJSON)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get run id: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO rank_stats (run_id, %s) VALUES (?%s)`,
		strings.Join(statsColumns, ", "), strings.Repeat(", ?", len(statsColumns)))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare rank stats insert: %w", err)
	}
	defer stmt.Close()

	agg := rec.Aggregate
	agg.Rank = aggregateRank
	rows := append([]sim.RunStats{agg}, rec.Ranks...)
	for i := range rows {
		args := append([]any{id}, statsValues(&rows[i])...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert stats for rank %d: %w", rows[i].Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	rec.ID = id
	return nil
}

// ErrRunNotFound is returned by LoadRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// LoadRun reads the run with the given id.
func (s *Store) LoadRun(ctx context.Context, id int64) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &RunRecord{ID: id}
	var createdAt string
	var traceJSON sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT label, created_at, num_ranks, num_groups, min_delay, sim_time,
			protocol, queue, generator, seed, trace_json
		FROM runs WHERE id = ?`, id).Scan(
		&rec.Label, &createdAt, &rec.NumRanks, &rec.NumGroups, &rec.MinDelay, &rec.SimTime,
		&rec.Protocol, &rec.Queue, &rec.Generator, &rec.Seed, &traceJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", id, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("run %d: bad created_at %q: %w", id, createdAt, err)
	}
	if traceJSON.Valid {
		rec.Trace = &TraceReport{}
		if err := sonnet.Unmarshal([]byte(traceJSON.String), rec.Trace); err != nil {
			return nil, fmt.Errorf("run %d: failed to decode trace report: %w", id, err)
		}
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM rank_stats WHERE run_id = ? ORDER BY rank`, strings.Join(statsColumns, ", ")), id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for run %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var st sim.RunStats
		if err := rows.Scan(statsDest(&st)...); err != nil {
			return nil, fmt.Errorf("failed to scan stats for run %d: %w", id, err)
		}
		if st.Rank == aggregateRank {
			rec.Aggregate = st
			continue
		}
		rec.Ranks = append(rec.Ranks, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stats for run %d: %w", id, err)
	}
	return rec, nil
}

// ListRuns returns the ids of stored runs with the given label, newest
// first. An empty label matches every run.
func (s *Store) ListRuns(ctx context.Context, label string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id FROM runs ORDER BY id DESC`
	var args []any
	if label != "" {
		query = `SELECT id FROM runs WHERE label = ? ORDER BY id DESC`
		args = append(args, label)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
