package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
)

// ObservationWindow bounds how far before a query's StartTime an observation may start.
const ObservationWindow = 24 * time.Hour

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", withForeignKeys(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is its own database.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// withForeignKeys enables foreign key enforcement on every pooled connection.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS traces (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			name TEXT,
			timestamp DATETIME NOT NULL,
			input TEXT,
			output TEXT,
			metadata TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_traces_project ON traces(project_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS observations (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			trace_id TEXT,
			type TEXT NOT NULL,
			name TEXT,
			start_time DATETIME NOT NULL,
			end_time DATETIME,
			parent_observation_id TEXT,
			level TEXT NOT NULL DEFAULT 'DEFAULT',
			status_message TEXT,
			model TEXT,
			input TEXT,
			output TEXT,
			metadata TEXT,
			usage_input INTEGER,
			usage_output INTEGER,
			usage_total INTEGER,
			total_cost REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_project ON observations(project_id, start_time)`,
		`CREATE TABLE IF NOT EXISTS datasets (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (project_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS dataset_items (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			dataset_id TEXT NOT NULL,
			input TEXT,
			expected_output TEXT,
			metadata TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (dataset_id) REFERENCES datasets(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dataset_items_dataset ON dataset_items(project_id, dataset_id)`,
		`CREATE TABLE IF NOT EXISTS dataset_runs (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			dataset_id TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (dataset_id) REFERENCES datasets(id)
		)`,
		`CREATE TABLE IF NOT EXISTS dataset_run_items (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			dataset_run_id TEXT NOT NULL,
			dataset_item_id TEXT NOT NULL,
			trace_id TEXT NOT NULL,
			observation_id TEXT,
			latency REAL,
			total_cost REAL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (dataset_run_id) REFERENCES dataset_runs(id),
			FOREIGN KEY (dataset_item_id) REFERENCES dataset_items(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dataset_run_items_run ON dataset_run_items(project_id, dataset_run_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			trace_id TEXT NOT NULL,
			observation_id TEXT,
			name TEXT NOT NULL,
			data_type TEXT NOT NULL,
			value REAL,
			string_value TEXT,
			timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_trace ON scores(project_id, trace_id)`,
		`CREATE TABLE IF NOT EXISTS remote_experiment_configs (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			dataset_id TEXT NOT NULL,
			url TEXT NOT NULL,
			default_payload TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (project_id, dataset_id),
			FOREIGN KEY (dataset_id) REFERENCES datasets(id)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Columns added after the first release (SQLite has limited ALTER TABLE support).
	if err := s.ensureColumn("observations", "internal_model_id", "ALTER TABLE observations ADD COLUMN internal_model_id TEXT"); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTrace inserts a trace.
func (s *SQLiteStore) CreateTrace(ctx context.Context, trace *domain.Trace) error {
	cols, err := encodeJSONColumns(trace.Input, trace.Output, trace.Metadata)
	if err != nil {
		return fmt.Errorf("encode trace %s: %w", trace.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO traces (id, project_id, name, timestamp, input, output, metadata) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trace.ID, trace.ProjectID, nullString(trace.Name), trace.Timestamp.UTC(), cols[0], cols[1], cols[2])
	return err
}

// ListTraces returns the traces with the given ids. Unknown ids are skipped.
func (s *SQLiteStore) ListTraces(ctx context.Context, projectID string, traceIDs []string) ([]domain.Trace, error) {
	if len(traceIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id, project_id, name, timestamp, input, output, metadata FROM traces WHERE project_id = ? AND id IN (` + placeholders(len(traceIDs)) + `)`
	args := append([]interface{}{projectID}, stringArgs(traceIDs)...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var traces []domain.Trace
	for rows.Next() {
		var t domain.Trace
		var name, input, output, metadata sql.NullString
		if err := rows.Scan(&t.ID, &t.ProjectID, &name, &t.Timestamp, &input, &output, &metadata); err != nil {
			return nil, err
		}
		t.Name = name.String
		t.Input = decodeJSON(input)
		t.Output = decodeJSON(output)
		t.Metadata = decodeJSON(metadata)
		traces = append(traces, t)
	}
	return traces, rows.Err()
}

// CreateObservation inserts an observation.
func (s *SQLiteStore) CreateObservation(ctx context.Context, obs *domain.Observation) error {
	cols, err := encodeJSONColumns(obs.Input, obs.Output, obs.Metadata)
	if err != nil {
		return fmt.Errorf("encode observation %s: %w", obs.ID, err)
	}
	level := obs.Level
	if level == "" {
		level = domain.ObservationLevelDefault
	}
	var endTime sql.NullTime
	if obs.EndTime != nil {
		endTime = sql.NullTime{Time: obs.EndTime.UTC(), Valid: true}
	}
	var usageIn, usageOut, usageTotal sql.NullInt64
	if obs.Usage != nil {
		usageIn = sql.NullInt64{Int64: int64(obs.Usage.Input), Valid: true}
		usageOut = sql.NullInt64{Int64: int64(obs.Usage.Output), Valid: true}
		usageTotal = sql.NullInt64{Int64: int64(obs.Usage.Total), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO observations (id, project_id, trace_id, type, name, start_time, end_time, parent_observation_id, level, status_message, model, internal_model_id, input, output, metadata, usage_input, usage_output, usage_total, total_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID, obs.ProjectID, nullString(obs.TraceID), obs.Type, nullString(obs.Name), obs.StartTime.UTC(), endTime,
		nullString(obs.ParentObservationID), level, nullString(obs.StatusMessage), nullString(obs.Model), nullString(obs.InternalModelID),
		cols[0], cols[1], cols[2], usageIn, usageOut, usageTotal, nullFloat(obs.TotalCost))
	return err
}

// GetObservation retrieves an observation. TraceID and StartTime narrow the match when set.
func (s *SQLiteStore) GetObservation(ctx context.Context, q domain.ObservationQuery) (*domain.Observation, error) {
	query := `SELECT id, project_id, trace_id, type, name, start_time, end_time, parent_observation_id, level, status_message, model, internal_model_id, input, output, metadata, usage_input, usage_output, usage_total, total_cost
		FROM observations WHERE project_id = ? AND id = ?`
	args := []interface{}{q.ProjectID, q.ID}
	if q.TraceID != "" {
		query += ` AND trace_id = ?`
		args = append(args, q.TraceID)
	}
	if q.StartTime != nil {
		query += ` AND start_time >= ?`
		args = append(args, q.StartTime.UTC().Add(-ObservationWindow))
	}

	var obs domain.Observation
	var traceID, name, parentID, statusMessage, model, internalModelID sql.NullString
	var input, output, metadata sql.NullString
	var endTime sql.NullTime
	var usageIn, usageOut, usageTotal sql.NullInt64
	var totalCost sql.NullFloat64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&obs.ID, &obs.ProjectID, &traceID, &obs.Type, &name, &obs.StartTime, &endTime, &parentID, &obs.Level,
		&statusMessage, &model, &internalModelID, &input, &output, &metadata, &usageIn, &usageOut, &usageTotal, &totalCost)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	obs.TraceID = traceID.String
	obs.Name = name.String
	obs.ParentObservationID = parentID.String
	obs.StatusMessage = statusMessage.String
	obs.Model = model.String
	obs.InternalModelID = internalModelID.String
	obs.Input = decodeJSON(input)
	obs.Output = decodeJSON(output)
	obs.Metadata = decodeJSON(metadata)
	if endTime.Valid {
		obs.EndTime = &endTime.Time
	}
	if usageIn.Valid || usageOut.Valid || usageTotal.Valid {
		obs.Usage = &domain.Usage{Input: int(usageIn.Int64), Output: int(usageOut.Int64), Total: int(usageTotal.Int64)}
	}
	obs.TotalCost = floatPtr(totalCost)
	return &obs, nil
}

// CreateDataset inserts a dataset.
func (s *SQLiteStore) CreateDataset(ctx context.Context, dataset *domain.Dataset) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, project_id, name, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		dataset.ID, dataset.ProjectID, dataset.Name, nullString(dataset.Description), dataset.CreatedAt.UTC())
	return err
}

// GetDataset retrieves a dataset by ID.
func (s *SQLiteStore) GetDataset(ctx context.Context, projectID, datasetID string) (*domain.Dataset, error) {
	var d domain.Dataset
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, description, created_at FROM datasets WHERE project_id = ? AND id = ?`,
		projectID, datasetID).Scan(&d.ID, &d.ProjectID, &d.Name, &description, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Description = description.String
	return &d, nil
}

// CreateDatasetItem inserts a dataset item.
func (s *SQLiteStore) CreateDatasetItem(ctx context.Context, item *domain.DatasetItem) error {
	cols, err := encodeJSONColumns(item.Input, item.ExpectedOutput, item.Metadata)
	if err != nil {
		return fmt.Errorf("encode dataset item %s: %w", item.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dataset_items (id, project_id, dataset_id, input, expected_output, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ProjectID, item.DatasetID, cols[0], cols[1], cols[2], item.CreatedAt.UTC())
	return err
}

// ListDatasetItems returns a dataset's items, oldest first.
func (s *SQLiteStore) ListDatasetItems(ctx context.Context, projectID, datasetID string) ([]domain.DatasetItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, dataset_id, input, expected_output, metadata, created_at FROM dataset_items
		WHERE project_id = ? AND dataset_id = ? ORDER BY created_at ASC, id ASC`,
		projectID, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.DatasetItem
	for rows.Next() {
		var item domain.DatasetItem
		var input, expected, metadata sql.NullString
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.DatasetID, &input, &expected, &metadata, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.Input = decodeJSON(input)
		item.ExpectedOutput = decodeJSON(expected)
		item.Metadata = decodeJSON(metadata)
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreateDatasetRun inserts a dataset run.
func (s *SQLiteStore) CreateDatasetRun(ctx context.Context, run *domain.DatasetRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dataset_runs (id, project_id, dataset_id, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.ProjectID, run.DatasetID, run.Name, run.CreatedAt.UTC())
	return err
}

// GetDatasetRun retrieves a run of the given dataset.
func (s *SQLiteStore) GetDatasetRun(ctx context.Context, projectID, datasetID, runID string) (*domain.DatasetRun, error) {
	var r domain.DatasetRun
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, dataset_id, name, created_at FROM dataset_runs WHERE project_id = ? AND dataset_id = ? AND id = ?`,
		projectID, datasetID, runID).Scan(&r.ID, &r.ProjectID, &r.DatasetID, &r.Name, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateDatasetRunItem inserts a run item.
func (s *SQLiteStore) CreateDatasetRunItem(ctx context.Context, item *domain.DatasetRunItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dataset_run_items (id, project_id, dataset_run_id, dataset_item_id, trace_id, observation_id, latency, total_cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ProjectID, item.DatasetRunID, item.DatasetItemID, item.TraceID, nullString(item.ObservationID),
		nullFloat(item.Latency), nullFloat(item.TotalCost), item.CreatedAt.UTC())
	return err
}

// ListDatasetRunItems returns a run's items, newest first.
func (s *SQLiteStore) ListDatasetRunItems(ctx context.Context, projectID, runID string) ([]domain.DatasetRunItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, dataset_run_id, dataset_item_id, trace_id, observation_id, latency, total_cost, created_at
		FROM dataset_run_items WHERE project_id = ? AND dataset_run_id = ? ORDER BY created_at DESC, id ASC`,
		projectID, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.DatasetRunItem
	for rows.Next() {
		var item domain.DatasetRunItem
		var observationID sql.NullString
		var latency, totalCost sql.NullFloat64
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.DatasetRunID, &item.DatasetItemID, &item.TraceID,
			&observationID, &latency, &totalCost, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.ObservationID = observationID.String
		item.Latency = floatPtr(latency)
		item.TotalCost = floatPtr(totalCost)
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreateScore inserts a score.
func (s *SQLiteStore) CreateScore(ctx context.Context, score *domain.Score) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (id, project_id, trace_id, observation_id, name, data_type, value, string_value, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		score.ID, score.ProjectID, score.TraceID, nullString(score.ObservationID), score.Name, score.DataType,
		nullFloat(score.Value), nullString(score.StringValue), score.Timestamp.UTC())
	return err
}

// ListScores returns the scores attached to the given traces in timestamp order.
func (s *SQLiteStore) ListScores(ctx context.Context, projectID string, traceIDs []string) ([]domain.Score, error) {
	if len(traceIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id, project_id, trace_id, observation_id, name, data_type, value, string_value, timestamp
		FROM scores WHERE project_id = ? AND trace_id IN (` + placeholders(len(traceIDs)) + `) ORDER BY timestamp ASC, id ASC`
	args := append([]interface{}{projectID}, stringArgs(traceIDs)...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []domain.Score
	for rows.Next() {
		var sc domain.Score
		var observationID, stringValue sql.NullString
		var value sql.NullFloat64
		if err := rows.Scan(&sc.ID, &sc.ProjectID, &sc.TraceID, &observationID, &sc.Name, &sc.DataType,
			&value, &stringValue, &sc.Timestamp); err != nil {
			return nil, err
		}
		sc.ObservationID = observationID.String
		sc.StringValue = stringValue.String
		sc.Value = floatPtr(value)
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// UpsertRemoteExperimentConfig inserts or replaces the config of cfg's dataset.
// On return cfg carries the stored ID and CreatedAt.
func (s *SQLiteStore) UpsertRemoteExperimentConfig(ctx context.Context, cfg *domain.RemoteExperimentConfig) error {
	now := time.Now().UTC()
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO remote_experiment_configs (id, project_id, dataset_id, url, default_payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, dataset_id) DO UPDATE SET
			url = excluded.url,
			default_payload = excluded.default_payload,
			updated_at = excluded.updated_at`,
		cfg.ID, cfg.ProjectID, cfg.DatasetID, cfg.URL, cfg.DefaultPayload, now, now)
	if err != nil {
		return err
	}

	stored, err := s.GetRemoteExperimentConfig(ctx, cfg.ProjectID, cfg.DatasetID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("remote experiment config for dataset %s vanished after upsert", cfg.DatasetID)
	}
	*cfg = *stored
	return nil
}

// GetRemoteExperimentConfig retrieves a dataset's remote experiment config.
func (s *SQLiteStore) GetRemoteExperimentConfig(ctx context.Context, projectID, datasetID string) (*domain.RemoteExperimentConfig, error) {
	var cfg domain.RemoteExperimentConfig
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, dataset_id, url, default_payload, created_at, updated_at
		FROM remote_experiment_configs WHERE project_id = ? AND dataset_id = ?`,
		projectID, datasetID).Scan(&cfg.ID, &cfg.ProjectID, &cfg.DatasetID, &cfg.URL, &cfg.DefaultPayload, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DeleteRemoteExperimentConfig removes a dataset's config. It reports whether a row was removed.
func (s *SQLiteStore) DeleteRemoteExperimentConfig(ctx context.Context, projectID, datasetID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM remote_experiment_configs WHERE project_id = ? AND dataset_id = ?`,
		projectID, datasetID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []interface{} {
	args := make([]interface{}, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

func encodeJSONColumns(values ...any) ([]sql.NullString, error) {
	cols := make([]sql.NullString, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		cols[i] = sql.NullString{String: string(b), Valid: true}
	}
	return cols, nil
}

// decodeJSON turns a stored JSON column back into a value.
// Text written by other producers that is not JSON comes back as the raw string.
func decodeJSON(ns sql.NullString) any {
	if !ns.Valid {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(ns.String), &v); err != nil {
		return ns.String
	}
	return v
}
