package sink

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/voterfile/propensity/internal/domain/model"
	"github.com/voterfile/propensity/pkg/metrics"
)

// Default sqlite sink configuration constants.
const (
	defaultBatchSize = 1_000
)

const createScoresTableSQL = `
CREATE TABLE IF NOT EXISTS scores (
	run_id             TEXT    NOT NULL,
	voter_id           TEXT    NOT NULL,
	cohort             TEXT    NOT NULL,
	raw_score          REAL    NOT NULL,
	normalized_score   REAL,
	final_score        REAL    NOT NULL,
	imputed            INTEGER NOT NULL,
	uncertainty        REAL    NOT NULL,
	eligible_elections INTEGER NOT NULL,
	participations     INTEGER NOT NULL,
	state              TEXT    NOT NULL,
	PRIMARY KEY (run_id, voter_id)
);
CREATE INDEX IF NOT EXISTS idx_scores_final ON scores (run_id, final_score DESC);
`

const insertScoreSQL = `
INSERT INTO scores (
	run_id, voter_id, cohort, raw_score, normalized_score, final_score,
	imputed, uncertainty, eligible_elections, participations, state
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectScoresSQL = `
SELECT voter_id, cohort, raw_score, normalized_score, final_score,
	imputed, uncertainty, eligible_elections, participations
FROM scores WHERE run_id = ? ORDER BY voter_id`

// SQLiteSink persists results into a scores table. Each Write lands in one
// or more transactions of at most the configured batch size, so a crash
// mid-run never leaves a torn batch.
type SQLiteSink struct {
	db        *sql.DB
	batchSize int

	mu     sync.Mutex
	closed bool
}

// NewSQLiteSink opens (or creates) the results database at path and ensures
// the scores schema exists.
func NewSQLiteSink(path string, opts ...SQLiteOption) (*SQLiteSink, error) {
	if path == "" {
		return nil, ErrNoDatabasePath
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening results database %s: %w", path, err)
	}
	if _, err := db.Exec(createScoresTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating scores schema: %w", err)
	}

	s := &SQLiteSink{
		db:        db,
		batchSize: defaultBatchSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Write delivers one batch of results for a run, committing in chunks.
func (s *SQLiteSink) Write(ctx context.Context, runID string, batch []model.Result) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.mu.Unlock()

	for start := 0; start < len(batch); start += s.batchSize {
		end := start + s.batchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := s.flush(ctx, runID, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// flush writes one chunk inside a single transaction.
func (s *SQLiteSink) flush(ctx context.Context, runID string, chunk []model.Result) error {
	start := time.Now()

	stmt, err := s.db.PrepareContext(ctx, insertScoreSQL)
	if err != nil {
		metrics.RecordSinkWriteError()
		return fmt.Errorf("preparing score insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // close error on a prepared stmt is unactionable

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordSinkWriteError()
		return fmt.Errorf("beginning score transaction: %w", err)
	}

	for _, r := range chunk {
		var norm sql.NullFloat64
		if r.NormalizedScore != nil {
			norm = sql.NullFloat64{Float64: *r.NormalizedScore, Valid: true}
		}
		if _, err := tx.Stmt(stmt).ExecContext(ctx,
			runID, r.VoterID, string(r.Cohort), r.RawScore, norm, r.FinalScore,
			r.Imputed, r.Uncertainty, r.EligibleElections, r.Participations,
			r.State.String(),
		); err != nil {
			_ = tx.Rollback()
			metrics.RecordSinkWriteError()
			return fmt.Errorf("inserting score for voter %s: %w", r.VoterID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordSinkWriteError()
		return fmt.Errorf("committing score transaction: %w", err)
	}

	for range chunk {
		metrics.RecordSinkWrite()
	}
	metrics.RecordSinkFlushDuration(float64(time.Since(start).Milliseconds()))
	return nil
}

// Results reads one run's persisted tuples back, sorted by voter id. The
// terminal state is reconstructed from the imputed flag; only terminal
// results are ever written.
func (s *SQLiteSink) Results(ctx context.Context, runID string) ([]model.Result, error) {
	rows, err := s.db.QueryContext(ctx, selectScoresSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("querying scores for run %s: %w", runID, err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below

	var out []model.Result
	for rows.Next() {
		var (
			r      model.Result
			cohort string
			norm   sql.NullFloat64
		)
		if err := rows.Scan(&r.VoterID, &cohort, &r.RawScore, &norm, &r.FinalScore,
			&r.Imputed, &r.Uncertainty, &r.EligibleElections, &r.Participations); err != nil {
			return nil, fmt.Errorf("scanning score row: %w", err)
		}
		r.Cohort = model.CohortKey(cohort)
		if norm.Valid {
			v := norm.Float64
			r.NormalizedScore = &v
		}
		if r.Imputed {
			r.State = model.StateImputedFinal
		} else {
			r.State = model.StateFinal
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading score rows: %w", err)
	}
	return out, nil
}

// Close flushes and releases the database handle. No writes may follow.
func (s *SQLiteSink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
