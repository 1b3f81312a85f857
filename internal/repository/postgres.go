package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jackc/tern/v2/migrate"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationVersionTable = "schema_version"

// PostgresOptions configures the event store connection.
type PostgresOptions struct {
	Logger zerolog.Logger
	// NewRelic records queries as datastore segments instead of logging them.
	NewRelic bool
}

// PostgresEventStore reads observations from the append-only events table.
// The newest non-deleted event of an observation wins.
type PostgresEventStore struct {
	pool *pgxpool.Pool
}

// NewPostgresEventStore connects to Postgres and applies pending migrations.
func NewPostgresEventStore(ctx context.Context, url string, opts PostgresOptions) (*PostgresEventStore, error) {
	if err := Migrate(ctx, url); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if opts.NewRelic {
		cfg.ConnConfig.Tracer = nrpgx5.NewTracer()
	} else {
		cfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   zerologadapter.NewLogger(opts.Logger),
			LogLevel: tracelog.LogLevelWarn,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresEventStore{pool: pool}, nil
}

// Migrate brings the events schema up to date.
func Migrate(ctx context.Context, url string) error {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return fmt.Errorf("connect for migrations: %w", err)
	}
	defer conn.Close(ctx)

	m, err := migrate.NewMigrator(ctx, conn, migrationVersionTable)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return err
	}
	if err := m.LoadMigrations(sub); err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresEventStore) Close() {
	s.pool.Close()
}

// AppendObservation records a new event for obs.
func (s *PostgresEventStore) AppendObservation(ctx context.Context, obs *domain.Observation) error {
	cols, err := encodeJSONColumns(obs.Input, obs.Output, obs.Metadata)
	if err != nil {
		return fmt.Errorf("encode observation %s: %w", obs.ID, err)
	}
	level := obs.Level
	if level == "" {
		level = domain.ObservationLevelDefault
	}
	var usageIn, usageOut, usageTotal *int
	if obs.Usage != nil {
		usageIn, usageOut, usageTotal = &obs.Usage.Input, &obs.Usage.Output, &obs.Usage.Total
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO events (id, project_id, trace_id, type, name, start_time, end_time, parent_observation_id, level,
			status_message, provided_model_name, internal_model_id, input, output, metadata,
			usage_input, usage_output, usage_total, total_cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		obs.ID, obs.ProjectID, textPtr(obs.TraceID), string(obs.Type), textPtr(obs.Name), obs.StartTime, obs.EndTime,
		textPtr(obs.ParentObservationID), string(level), textPtr(obs.StatusMessage), textPtr(obs.Model),
		textPtr(obs.InternalModelID), cols[0], cols[1], cols[2], usageIn, usageOut, usageTotal, obs.TotalCost)
	return err
}

// GetObservation returns the latest state of an observation, or domain.ErrNotFound.
func (s *PostgresEventStore) GetObservation(ctx context.Context, q domain.ObservationQuery) (*domain.Observation, error) {
	query := `
		SELECT id, project_id, trace_id, type, name, start_time, end_time, parent_observation_id, level,
			status_message, provided_model_name, internal_model_id, input, output, metadata,
			usage_input, usage_output, usage_total, total_cost
		FROM events
		WHERE project_id = $1 AND id = $2 AND NOT is_deleted`
	args := []any{q.ProjectID, q.ID}
	if q.TraceID != "" {
		args = append(args, q.TraceID)
		query += fmt.Sprintf(" AND trace_id = $%d", len(args))
	}
	if q.StartTime != nil {
		args = append(args, q.StartTime.Add(-ObservationWindow))
		query += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	query += " ORDER BY event_ts DESC, seq DESC LIMIT 1"

	var (
		obs                                                       domain.Observation
		obsType, level                                            string
		traceID, name, parentID, statusMessage, model, internalID *string
		input, output, metadata                                   *string
		endTime                                                   *time.Time
		usageIn, usageOut, usageTotal                             *int32
	)
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&obs.ID, &obs.ProjectID, &traceID, &obsType, &name, &obs.StartTime, &endTime, &parentID, &level,
		&statusMessage, &model, &internalID, &input, &output, &metadata,
		&usageIn, &usageOut, &usageTotal, &obs.TotalCost)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	obs.Type = domain.ObservationType(obsType)
	obs.Level = domain.ObservationLevel(level)
	obs.TraceID = deref(traceID)
	obs.Name = deref(name)
	obs.ParentObservationID = deref(parentID)
	obs.StatusMessage = deref(statusMessage)
	obs.Model = deref(model)
	obs.InternalModelID = deref(internalID)
	obs.EndTime = endTime
	obs.Input = decodeJSON(nullFromPtr(input))
	obs.Output = decodeJSON(nullFromPtr(output))
	obs.Metadata = decodeJSON(nullFromPtr(metadata))
	if usageIn != nil || usageOut != nil || usageTotal != nil {
		obs.Usage = &domain.Usage{Input: int32Val(usageIn), Output: int32Val(usageOut), Total: int32Val(usageTotal)}
	}
	return &obs, nil
}

func textPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func int32Val(v *int32) int {
	if v == nil {
		return 0
	}
	return int(*v)
}

func nullFromPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
