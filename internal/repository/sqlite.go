package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			node_id TEXT NOT NULL,
			project_id TEXT NOT NULL,
			status TEXT NOT NULL,
			queued_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			started_at DATETIME,
			ended_at DATETIME,
			current_tick INTEGER NOT NULL DEFAULT 0,
			total_ticks INTEGER NOT NULL,
			actual_seed INTEGER NOT NULL DEFAULT 0,
			metrics TEXT,
			telemetry_bucket TEXT, telemetry_key TEXT,
			results_bucket TEXT, results_key TEXT,
			state_bucket TEXT, state_key TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_node ON runs(node_id, queued_at)`,
		`CREATE TABLE IF NOT EXISTS telemetry (
			run_id TEXT PRIMARY KEY,
			total_ticks INTEGER NOT NULL,
			keyframe_count INTEGER NOT NULL DEFAULT 0,
			delta_count INTEGER NOT NULL DEFAULT 0,
			sealed INTEGER NOT NULL DEFAULT 0,
			tracked_agents INTEGER NOT NULL DEFAULT 0,
			event_count INTEGER NOT NULL DEFAULT 0,
			mean_activity_rate REAL,
			last_delta_tick INTEGER NOT NULL DEFAULT -1,
			idx TEXT,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE TABLE IF NOT EXISTS keyframes (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			state TEXT NOT NULL,
			forced INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, tick),
			FOREIGN KEY (run_id) REFERENCES telemetry(run_id)
		)`,
		`CREATE TABLE IF NOT EXISTS deltas (
			run_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			target_id TEXT NOT NULL,
			field_path TEXT NOT NULL,
			value REAL NOT NULL,
			metric TEXT,
			PRIMARY KEY (run_id, ordinal),
			FOREIGN KEY (run_id) REFERENCES telemetry(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deltas_tick ON deltas(run_id, tick)`,
		`CREATE TABLE IF NOT EXISTS nodes (
			node_id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			parent_id TEXT,
			is_baseline INTEGER NOT NULL DEFAULT 0,
			patch TEXT NOT NULL,
			probability REAL NOT NULL DEFAULT 0,
			telemetry_ref TEXT,
			results_ref TEXT,
			state_ref TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_project ON nodes(project_id)`,
		`CREATE TABLE IF NOT EXISTS branch_groups (
			parent_id TEXT PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS audit_entries (
			audit_id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			action TEXT NOT NULL,
			detail TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_entries(entity_type, entity_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun creates a new run together with its telemetry header.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, node_id, project_id, status, queued_at, total_ticks) VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.NodeID, run.ProjectID, run.Status, run.QueuedAt, run.TotalTicks)
	if err != nil {
		return err
	}
	return s.CreateTelemetry(ctx, run.RunID, run.TotalTicks)
}

func scanRun(scan func(dest ...any) error) (*domain.Run, error) {
	var run domain.Run
	var startedAt, endedAt sql.NullTime
	var metrics sql.NullString
	var tb, tk, rb, rk, sb, sk sql.NullString
	err := scan(&run.RunID, &run.NodeID, &run.ProjectID, &run.Status, &run.QueuedAt,
		&startedAt, &endedAt, &run.CurrentTick, &run.TotalTicks, &run.ActualSeed,
		&metrics, &tb, &tk, &rb, &rk, &sb, &sk)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	if metrics.Valid && metrics.String != "" {
		if err := json.Unmarshal([]byte(metrics.String), &run.Metrics); err != nil {
			return nil, fmt.Errorf("corrupt metrics for run %s: %w", run.RunID, err)
		}
	}
	run.TelemetryRef = domain.StorageRef{Bucket: tb.String, Key: tk.String}
	run.ResultsRef = domain.StorageRef{Bucket: rb.String, Key: rk.String}
	run.StateRef = domain.StorageRef{Bucket: sb.String, Key: sk.String}
	return &run, nil
}

const runColumns = `run_id, node_id, project_id, status, queued_at, started_at, ended_at,
	current_tick, total_ticks, actual_seed, metrics,
	telemetry_bucket, telemetry_key, results_bucket, results_key, state_bucket, state_key`

// GetRun retrieves a run by ID. Returns nil when the run does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRunsByNode lists all runs for a node, oldest first.
func (s *SQLiteStore) ListRunsByNode(ctx context.Context, nodeID string) ([]domain.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE node_id = ? ORDER BY queued_at ASC, run_id ASC`, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// UpdateRunStatus updates the status of a run. When seed is non-nil the
// run's actual seed and start time are also set (transition to RUNNING).
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus, seed *int64) error {
	if seed != nil {
		now := time.Now()
		_, err := s.db.ExecContext(ctx,
			`UPDATE runs SET status = ?, actual_seed = ?, started_at = ? WHERE run_id = ?`,
			status, *seed, now, runID)
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ? WHERE run_id = ?`, status, runID)
	return err
}

// UpdateRunProgress advances the run's current tick.
func (s *SQLiteStore) UpdateRunProgress(ctx context.Context, runID string, currentTick int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET current_tick = ? WHERE run_id = ?`, currentTick, runID)
	return err
}

// CompleteRun moves a run to a terminal state and records its outcome.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status domain.RunStatus, metrics map[string]float64, telemetryRef, resultsRef, stateRef domain.StorageRef) error {
	now := time.Now()
	var metricsJSON sql.NullString
	if len(metrics) > 0 {
		b, err := json.Marshal(metrics)
		if err != nil {
			return err
		}
		metricsJSON = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ?, metrics = ?,
			telemetry_bucket = ?, telemetry_key = ?,
			results_bucket = ?, results_key = ?,
			state_bucket = ?, state_key = ?
		 WHERE run_id = ?`,
		status, now, metricsJSON,
		telemetryRef.Bucket, telemetryRef.Key,
		resultsRef.Bucket, resultsRef.Key,
		stateRef.Bucket, stateRef.Key,
		runID)
	return err
}

// CreateTelemetry creates the telemetry header row for a run.
func (s *SQLiteStore) CreateTelemetry(ctx context.Context, runID string, totalTicks int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO telemetry (run_id, total_ticks) VALUES (?, ?)`, runID, totalTicks)
	return err
}

// GetTelemetryMeta retrieves the telemetry header. Returns nil when absent.
func (s *SQLiteStore) GetTelemetryMeta(ctx context.Context, runID string) (*domain.TelemetryMeta, error) {
	var meta domain.TelemetryMeta
	var sealed int
	var rate sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, total_ticks, keyframe_count, delta_count, sealed, tracked_agents, event_count, mean_activity_rate
		 FROM telemetry WHERE run_id = ?`, runID).
		Scan(&meta.RunID, &meta.TotalTicks, &meta.KeyframeCount, &meta.DeltaCount,
			&sealed, &meta.TrackedAgents, &meta.EventCount, &rate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	meta.Sealed = sealed != 0
	if rate.Valid {
		meta.MeanActivityRate = &rate.Float64
	}
	return &meta, nil
}

// AppendKeyframe appends one keyframe to an unsealed recording.
func (s *SQLiteStore) AppendKeyframe(ctx context.Context, runID string, kf *domain.Keyframe) error {
	sealed, err := s.isSealed(ctx, runID)
	if err != nil {
		return err
	}
	if sealed {
		return domain.ErrSealed
	}
	state, err := json.Marshal(kf.State)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	forced := 0
	if kf.Forced {
		forced = 1
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO keyframes (run_id, tick, state, forced) VALUES (?, ?, ?, ?)`,
		runID, kf.Tick, string(state), forced); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE telemetry SET keyframe_count = keyframe_count + 1 WHERE run_id = ?`, runID); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendDeltas appends a batch of deltas in stored order.
func (s *SQLiteStore) AppendDeltas(ctx context.Context, runID string, deltas []domain.Delta) error {
	sealed, err := s.isSealed(ctx, runID)
	if err != nil {
		return err
	}
	if sealed {
		return domain.ErrSealed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	var lastTick int64
	if err := tx.QueryRowContext(ctx,
		`SELECT delta_count, last_delta_tick FROM telemetry WHERE run_id = ?`, runID).
		Scan(&next, &lastTick); err != nil {
		return err
	}
	for i := range deltas {
		d := &deltas[i]
		var metric sql.NullString
		if d.Metric != "" {
			metric = sql.NullString{String: d.Metric, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO deltas (run_id, ordinal, tick, target_id, field_path, value, metric) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, next, d.Tick, d.TargetID, d.FieldPath, d.Value, metric); err != nil {
			return err
		}
		next++
		if d.Tick > lastTick {
			lastTick = d.Tick
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE telemetry SET delta_count = ?, event_count = event_count + ?, last_delta_tick = ? WHERE run_id = ?`,
		next, len(deltas), lastTick, runID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetKeyframes returns all keyframes for a run ordered by tick.
func (s *SQLiteStore) GetKeyframes(ctx context.Context, runID string) ([]domain.Keyframe, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, state, forced FROM keyframes WHERE run_id = ? ORDER BY tick ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kfs []domain.Keyframe
	for rows.Next() {
		var kf domain.Keyframe
		var state string
		var forced int
		if err := rows.Scan(&kf.Tick, &state, &forced); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(state), &kf.State); err != nil {
			return nil, fmt.Errorf("corrupt keyframe at tick %d: %w", kf.Tick, err)
		}
		kf.Forced = forced != 0
		kfs = append(kfs, kf)
	}
	return kfs, rows.Err()
}

// GetDeltas returns all deltas for a run in stored order.
func (s *SQLiteStore) GetDeltas(ctx context.Context, runID string) ([]domain.Delta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, target_id, field_path, value, metric FROM deltas WHERE run_id = ? ORDER BY ordinal ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deltas []domain.Delta
	for rows.Next() {
		var d domain.Delta
		var metric sql.NullString
		if err := rows.Scan(&d.Tick, &d.TargetID, &d.FieldPath, &d.Value, &metric); err != nil {
			return nil, err
		}
		if metric.Valid {
			d.Metric = metric.String
		}
		deltas = append(deltas, d)
	}
	return deltas, rows.Err()
}

// LastDeltaTick returns the highest tick appended so far, -1 when none.
func (s *SQLiteStore) LastDeltaTick(ctx context.Context, runID string) (int64, error) {
	var tick int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_delta_tick FROM telemetry WHERE run_id = ?`, runID).Scan(&tick)
	if err == sql.ErrNoRows {
		return -1, domain.ErrNotFound
	}
	return tick, err
}

// SealTelemetry marks the recording immutable and persists its index and
// derived summary fields.
func (s *SQLiteStore) SealTelemetry(ctx context.Context, meta *domain.TelemetryMeta, index *domain.TelemetryIndex) error {
	idx, err := json.Marshal(index)
	if err != nil {
		return err
	}
	var rate sql.NullFloat64
	if meta.MeanActivityRate != nil {
		rate = sql.NullFloat64{Float64: *meta.MeanActivityRate, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE telemetry SET sealed = 1, tracked_agents = ?, mean_activity_rate = ?, idx = ? WHERE run_id = ?`,
		meta.TrackedAgents, rate, string(idx), meta.RunID)
	return err
}

// GetTelemetryIndex loads the sealed index. Returns nil when the recording
// is unsealed or has no index.
func (s *SQLiteStore) GetTelemetryIndex(ctx context.Context, runID string) (*domain.TelemetryIndex, error) {
	var idx sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT idx FROM telemetry WHERE run_id = ?`, runID).Scan(&idx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !idx.Valid || idx.String == "" {
		return nil, nil
	}
	var index domain.TelemetryIndex
	if err := json.Unmarshal([]byte(idx.String), &index); err != nil {
		return nil, fmt.Errorf("corrupt telemetry index for run %s: %w", runID, err)
	}
	return &index, nil
}

func (s *SQLiteStore) isSealed(ctx context.Context, runID string) (bool, error) {
	var sealed int
	err := s.db.QueryRowContext(ctx,
		`SELECT sealed FROM telemetry WHERE run_id = ?`, runID).Scan(&sealed)
	if err == sql.ErrNoRows {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return sealed != 0, nil
}

// CreateNode inserts a new node. Forks only ever create rows; parents are
// never rewritten here.
func (s *SQLiteStore) CreateNode(ctx context.Context, node *domain.Node) error {
	patch, err := json.Marshal(node.Patch)
	if err != nil {
		return err
	}
	var parent sql.NullString
	if node.ParentID != nil {
		parent = sql.NullString{String: *node.ParentID, Valid: true}
	}
	baseline := 0
	if node.IsBaseline {
		baseline = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO nodes (node_id, project_id, parent_id, is_baseline, patch, probability, telemetry_ref, results_ref, state_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		node.NodeID, node.ProjectID, parent, baseline, string(patch), node.Probability,
		node.TelemetryRef, node.ResultsRef, node.StateRef, node.CreatedAt)
	return err
}

func scanNode(scan func(dest ...any) error) (*domain.Node, error) {
	var node domain.Node
	var parent sql.NullString
	var baseline int
	var patch string
	var tref, rref, sref sql.NullString
	err := scan(&node.NodeID, &node.ProjectID, &parent, &baseline, &patch,
		&node.Probability, &tref, &rref, &sref, &node.CreatedAt)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		node.ParentID = &parent.String
	}
	node.IsBaseline = baseline != 0
	if err := json.Unmarshal([]byte(patch), &node.Patch); err != nil {
		return nil, fmt.Errorf("corrupt patch for node %s: %w", node.NodeID, err)
	}
	node.TelemetryRef = tref.String
	node.ResultsRef = rref.String
	node.StateRef = sref.String
	return &node, nil
}

const nodeColumns = `node_id, project_id, parent_id, is_baseline, patch, probability, telemetry_ref, results_ref, state_ref, created_at`

// GetNode retrieves a node by ID. Returns nil when absent.
func (s *SQLiteStore) GetNode(ctx context.Context, nodeID string) (*domain.Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE node_id = ?`, nodeID)
	node, err := scanNode(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return node, nil
}

// ListChildren returns all children of a parent node. Children are computed
// by an indexed scan on parent_id, never a denormalized back-pointer.
func (s *SQLiteStore) ListChildren(ctx context.Context, parentID string) ([]domain.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE parent_id = ? ORDER BY created_at ASC, node_id ASC`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		node, err := scanNode(rows.Scan)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}
	return nodes, rows.Err()
}

// ListNodesByProject returns every node in a project's forest.
func (s *SQLiteStore) ListNodesByProject(ctx context.Context, projectID string) ([]domain.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE project_id = ? ORDER BY created_at ASC, node_id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		node, err := scanNode(rows.Scan)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}
	return nodes, rows.Err()
}

// GetGroupVersion returns the optimistic version of a sibling group,
// creating the group row at version 0 if it does not exist yet.
func (s *SQLiteStore) GetGroupVersion(ctx context.Context, parentID string) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO branch_groups (parent_id, version) VALUES (?, 0)`, parentID); err != nil {
		return 0, err
	}
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT version FROM branch_groups WHERE parent_id = ?`, parentID).Scan(&version)
	return version, err
}

// UpdateSiblingProbabilities rewrites a sibling group's probabilities under
// an optimistic version check. Returns false when the version moved.
func (s *SQLiteStore) UpdateSiblingProbabilities(ctx context.Context, parentID string, version int64, probs map[string]float64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE branch_groups SET version = version + 1 WHERE parent_id = ? AND version = ?`,
		parentID, version)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	for nodeID, p := range probs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE nodes SET probability = ? WHERE node_id = ? AND parent_id = ?`,
			p, nodeID, parentID); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// CreateAuditEntry appends an audit record.
func (s *SQLiteStore) CreateAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_entries (audit_id, entity_type, entity_id, action, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.AuditID, entry.EntityType, entry.EntityID, entry.Action, entry.Detail, entry.CreatedAt)
	return err
}

// ListAuditEntries lists audit records for one entity, oldest first.
func (s *SQLiteStore) ListAuditEntries(ctx context.Context, entityType domain.AuditEntityType, entityID string) ([]domain.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT audit_id, entity_type, entity_id, action, detail, created_at
		 FROM audit_entries WHERE entity_type = ? AND entity_id = ? ORDER BY created_at ASC`,
		entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var detail sql.NullString
		if err := rows.Scan(&e.AuditID, &e.EntityType, &e.EntityID, &e.Action, &detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Detail = detail.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
