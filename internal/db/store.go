// Package db provides database connectivity and migration logic for inquest.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kestrelab/inquest/internal/budget"
	"github.com/kestrelab/inquest/internal/research"
)

// Store provides persistence for research runs and their goal trees.
type Store struct {
	db *sql.DB
}

// NewStore creates a store for run persistence.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateRun inserts the run record in the running state.
func (s *Store) CreateRun(ctx context.Context, runID, question string) error {
	createdAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `INSERT INTO runs(run_id, created_at, question, status)
		VALUES(?, ?, ?, ?)`,
		runID, createdAt, question, "running"); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun persists the completed goal tree and closes the run record
// in a single transaction. Goals are stored in preorder; parent_index
// links each goal to its parent's preorder position.
func (s *Store) FinishRun(ctx context.Context, runID string, root research.GoalResult, usage budget.Usage) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin finish run: %w", err)
	}

	if err := s.insertTree(ctx, tx, runID, root); err != nil {
		_ = tx.Rollback()
		return err
	}

	finishedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET finished_at=?, status=?, synthesis=?, confidence=?, cost_spent=?, goals_attempted=?, duration_ms=? WHERE run_id=?`,
		finishedAt, string(root.Status), nullableString(root.Synthesis), root.Confidence,
		usage.CostSpent, usage.GoalsAttempted, root.Duration.Milliseconds(), runID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish run: %w", err)
	}
	return nil
}

func (s *Store) insertTree(ctx context.Context, tx *sql.Tx, runID string, root research.GoalResult) error {
	next := 0
	var insert func(r research.GoalResult, parent any) error
	insert = func(r research.GoalResult, parent any) error {
		idx := next
		next++
		if _, err := tx.ExecContext(ctx, `INSERT INTO goals(run_id, goal_index, parent_index, depth, description, rationale, status, synthesis, confidence, reason, cost, duration_ms)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, idx, parent, r.Goal.Depth, r.Goal.Description, nullableString(r.Goal.Rationale),
			string(r.Status), nullableString(r.Synthesis), r.Confidence, nullableString(r.Reason),
			r.Cost, r.Duration.Milliseconds()); err != nil {
			return fmt.Errorf("insert goal: %w", err)
		}
		for _, ev := range r.Evidence {
			if _, err := tx.ExecContext(ctx, `INSERT INTO evidence(run_id, goal_index, source_id, title, url, snippet, published, relevance)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, idx, ev.SourceID, nullableString(ev.Title), nullableString(ev.URL),
				nullableString(ev.Snippet), nullableString(ev.Date), ev.Relevance); err != nil {
				return fmt.Errorf("insert evidence: %w", err)
			}
		}
		for _, sub := range r.SubResults {
			if err := insert(sub, idx); err != nil {
				return err
			}
		}
		return nil
	}
	return insert(root, nil)
}

// RunRecord is one row of the runs table, as listed by `inquest runs`.
type RunRecord struct {
	RunID          string
	CreatedAt      string
	Question       string
	Status         string
	Confidence     float64
	CostSpent      float64
	GoalsAttempted int
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, created_at, question, status, confidence, cost_spent, goals_attempted
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &r.Question, &r.Status, &r.Confidence, &r.CostSpent, &r.GoalsAttempted); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneRuns removes old runs per the retention policy. Either limit may
// be zero to disable it. Returns the number of runs deleted.
func (s *Store) PruneRuns(ctx context.Context, keepLast, keepDays int) (int, error) {
	deleted := 0
	if keepLast > 0 {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id NOT IN (
			SELECT run_id FROM runs ORDER BY created_at DESC LIMIT ?)`, keepLast)
		if err != nil {
			return deleted, fmt.Errorf("prune runs by count: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += int(n)
	}
	if keepDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -keepDays).Format(time.RFC3339)
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
		if err != nil {
			return deleted, fmt.Errorf("prune runs by age: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += int(n)
	}
	return deleted, nil
}

// GetRunStatus returns the status for a run id, or empty if missing.
func (s *Store) GetRunStatus(ctx context.Context, runID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT status FROM runs WHERE run_id=?`, runID)
	var status string
	if err := row.Scan(&status); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("read run status: %w", err)
	}
	return status, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
