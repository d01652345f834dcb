package eventdef

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"alert-wizard/internal/engine"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS event_definitions (
	id               UUID PRIMARY KEY,
	title            TEXT NOT NULL UNIQUE,
	description      TEXT NOT NULL DEFAULT '',
	priority         INTEGER NOT NULL,
	alert            BOOLEAN NOT NULL,
	config_type      TEXT NOT NULL,
	config           JSONB NOT NULL,
	notifications    TEXT[] NOT NULL DEFAULT '{}',
	grace_period_ms  BIGINT NOT NULL DEFAULT 0,
	backlog_size     BIGINT NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
)`

const selectColumns = `id, title, description, priority, alert, config, notifications,
	grace_period_ms, backlog_size, created_at, updated_at`

// PostgresStore stores event definitions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// PoolOptions sizes the connection pool. Zero values keep the defaults.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenPostgres opens and pings a PostgreSQL connection pool.
func OpenPostgres(ctx context.Context, dsn string, pool PoolOptions) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if pool.MaxOpenConns <= 0 {
		pool.MaxOpenConns = 10
	}
	if pool.MaxIdleConns <= 0 {
		pool.MaxIdleConns = 5
	}
	if pool.ConnMaxLifetime <= 0 {
		pool.ConnMaxLifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("connected to PostgreSQL")
	return db, nil
}

// Migrate creates the event_definitions table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate event_definitions: %w", err)
	}
	return nil
}

// Insert implements Store.
func (s *PostgresStore) Insert(ctx context.Context, def *Definition) error {
	config, err := engine.MarshalConfig(def.Config)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	query := `
		INSERT INTO event_definitions (id, title, description, priority, alert, config_type, config,
			notifications, grace_period_ms, backlog_size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		def.ID,
		def.Title,
		def.Description,
		def.Priority,
		def.Alert,
		def.Config.Type(),
		config,
		pq.Array(def.Notifications),
		def.NotificationSettings.GracePeriodMs,
		def.NotificationSettings.BacklogSize,
		def.CreatedAt,
		def.UpdatedAt,
	)
	if err != nil {
		return translateError("insert", def.Title, err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Definition, error) {
	query := `SELECT ` + selectColumns + ` FROM event_definitions WHERE id = $1`
	def, err := scanDefinition(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: event definition %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event definition: %w", err)
	}
	return def, nil
}

// GetByTitle implements Store.
func (s *PostgresStore) GetByTitle(ctx context.Context, title string) (*Definition, error) {
	query := `SELECT ` + selectColumns + ` FROM event_definitions WHERE title = $1`
	def, err := scanDefinition(s.db.QueryRowContext(ctx, query, title))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: event definition titled %q", ErrNotFound, title)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event definition: %w", err)
	}
	return def, nil
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, def *Definition) error {
	config, err := engine.MarshalConfig(def.Config)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	query := `
		UPDATE event_definitions
		SET title = $2,
		    description = $3,
		    config_type = $4,
		    config = $5,
		    updated_at = $6
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		def.ID,
		def.Title,
		def.Description,
		def.Config.Type(),
		config,
		def.UpdatedAt,
	)
	if err != nil {
		return translateError("update", def.Title, err)
	}
	return requireRow(result, def.ID)
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM event_definitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event definition: %w", err)
	}
	return requireRow(result, id)
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context) ([]*Definition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM event_definitions ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list event definitions: %w", err)
	}
	defer rows.Close()

	defs := []*Definition{}
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*Definition, error) {
	var (
		def    Definition
		config []byte
	)
	err := row.Scan(
		&def.ID,
		&def.Title,
		&def.Description,
		&def.Priority,
		&def.Alert,
		&config,
		pq.Array(&def.Notifications),
		&def.NotificationSettings.GracePeriodMs,
		&def.NotificationSettings.BacklogSize,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	def.Config, err = engine.UnmarshalConfig(config)
	if err != nil {
		return nil, fmt.Errorf("definition %s: %w", def.ID, err)
	}
	def.Notifications = nonNil(def.Notifications)
	return &def, nil
}

func translateError(op, title string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %q", ErrDuplicateTitle, title)
	}
	return fmt.Errorf("failed to %s event definition: %w", op, err)
}

func requireRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: event definition %s", ErrNotFound, id)
	}
	return nil
}
