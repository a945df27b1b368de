// Package outcomes implements the append-only OutcomeTracker: every
// completed pipeline run is persisted to SQLite, and a handful of
// analytics queries over that history feed the profile adapter and the
// adaptive strategy's longer-term tuning.
package outcomes

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"qwencode/internal/logging"
	"qwencode/internal/types"
)

// Tracker owns the single SQLite connection backing the outcomes table.
// Reads take the read lock; the append-only write path takes the write
// lock, mirroring the single-connection contract of a mutex-guarded
// local store.
type Tracker struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewTracker opens (creating if necessary) the SQLite database at path
// and ensures the schema and indexes exist.
func NewTracker(path string) (*Tracker, error) {
	timer := logging.StartTimer(logging.CategoryOutcomes, "NewTracker")
	defer timer.Stop()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create outcomes directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open outcomes database: %w", err)
	}
	db.SetMaxOpenConns(1)

	t := &Tracker{db: db, dbPath: path}
	if err := t.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Outcomes("opened outcomes tracker at %s", path)
	return t, nil
}

func (t *Tracker) initialize() error {
	const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	query_hash TEXT NOT NULL,
	task_type TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	validation_profile TEXT NOT NULL,
	complexity TEXT NOT NULL,
	n_candidates INTEGER NOT NULL,
	best_score REAL NOT NULL,
	all_passed INTEGER NOT NULL,
	generation_time_ms INTEGER NOT NULL,
	validation_time_ms INTEGER NOT NULL,
	total_time_ms INTEGER NOT NULL,
	rules_run TEXT NOT NULL,
	rules_passed TEXT NOT NULL,
	rules_failed TEXT NOT NULL,
	n_rules_run INTEGER NOT NULL,
	n_rules_passed INTEGER NOT NULL,
	n_rules_failed INTEGER NOT NULL,
	swecas_code INTEGER NOT NULL DEFAULT 0,
	has_swecas INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_outcomes_task_type ON outcomes(task_type);
CREATE INDEX IF NOT EXISTS idx_outcomes_profile ON outcomes(validation_profile);
CREATE INDEX IF NOT EXISTS idx_outcomes_timestamp ON outcomes(timestamp);
`
	_, err := t.db.Exec(schema)
	return err
}

// Close releases the underlying connection.
func (t *Tracker) Close() error {
	return t.db.Close()
}

// Record appends one outcome row. Never updated or deleted except by
// Cleanup's TTL sweep.
func (t *Tracker) Record(ctx context.Context, rec *types.OutcomeRecord) error {
	timer := logging.StartTimer(logging.CategoryOutcomes, "Record")
	defer timer.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()

	rulesRun, _ := json.Marshal(rec.RulesRun)
	rulesPassed, _ := json.Marshal(rec.RulesPassed)
	rulesFailed, _ := json.Marshal(rec.RulesFailed)

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Unix(0, 0)
	}

	_, err := t.db.ExecContext(ctx, `
INSERT INTO outcomes (
	timestamp, query_hash, task_type, risk_level, validation_profile, complexity,
	n_candidates, best_score, all_passed, generation_time_ms, validation_time_ms, total_time_ms,
	rules_run, rules_passed, rules_failed, n_rules_run, n_rules_passed, n_rules_failed,
	swecas_code, has_swecas
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.Unix(), rec.QueryHash, string(rec.TaskType), string(rec.RiskLevel), string(rec.ValidationProfile), string(rec.Complexity),
		rec.NCandidates, rec.BestScore, boolToInt(rec.AllPassed),
		rec.GenerationTime.Milliseconds(), rec.ValidationTime.Milliseconds(), rec.TotalTime.Milliseconds(),
		string(rulesRun), string(rulesPassed), string(rulesFailed),
		rec.NRulesRun, rec.NRulesPassed, rec.NRulesFailed,
		rec.SWECASCode, boolToInt(rec.HasSWECAS),
	)
	if err != nil {
		logging.OutcomesError("failed to record outcome: %v", err)
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Cleanup deletes outcomes older than ttl and returns the number of rows
// removed.
func (t *Tracker) Cleanup(ctx context.Context, ttl time.Duration) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-ttl).Unix()
	res, err := t.db.ExecContext(ctx, `DELETE FROM outcomes WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup outcomes: %w", err)
	}
	n, _ := res.RowsAffected()
	logging.Outcomes("cleanup removed %d outcomes older than %s", n, ttl)
	return n, nil
}
