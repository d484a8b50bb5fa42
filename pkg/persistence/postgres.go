package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/danztee/cctv-eventd/pkg/detection"
)

//go:embed migrations
var migrationsFS embed.FS

// PoolConfig holds connection pool tuning, mirroring the knobs a production
// deployment needs beyond the bare DSN.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns conservative defaults suitable for a
// single-pipeline-instance deployment.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}
}

// PostgresStore is the EventStore backed by a single event_logs table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens databaseURL via the pgx driver, applies the
// embedded migration, and returns a ready store. Callers own the
// PostgresStore for the lifetime of the process; each Insert, List or Get
// call draws a connection from the *sql.DB's own pool rather than opening
// a new connection.
func NewPostgresStore(ctx context.Context, databaseURL string, pool PoolConfig) (*PostgresStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// runMigrations applies the embedded SQL migration with golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "event_logs", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Close only the migration source, not the shared *sql.DB: m.Close()
	// would close the postgres driver's database handle along with it.
	return sourceDriver.Close()
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Insert writes one event row and returns its assigned event_id.
func (s *PostgresStore) Insert(ctx context.Context, result detection.Result) (int64, error) {
	const q = `
		INSERT INTO event_logs
			(event_timestamp, event_code, event_description, event_video_url, event_detection_explanation_by_ai)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING event_id`

	var id int64
	err := s.db.QueryRowContext(ctx, q,
		result.EventTimestamp,
		result.EventCode,
		result.EventDescription,
		result.EventVideoURL,
		result.EventDetectionExplanationByAI,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

// List returns up to limit events ordered by event_timestamp descending.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]detection.Persisted, error) {
	const q = `
		SELECT event_id, event_timestamp, event_code, event_description, event_video_url, event_detection_explanation_by_ai
		FROM event_logs
		ORDER BY event_timestamp DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []detection.Persisted
	for rows.Next() {
		var e detection.Persisted
		if err := rows.Scan(&e.EventID, &e.EventTimestamp, &e.EventCode, &e.EventDescription, &e.EventVideoURL, &e.EventDetectionExplanationByAI); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Get returns the event with the given id, or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id int64) (detection.Persisted, error) {
	const q = `
		SELECT event_id, event_timestamp, event_code, event_description, event_video_url, event_detection_explanation_by_ai
		FROM event_logs
		WHERE event_id = $1`

	var e detection.Persisted
	err := s.db.QueryRowContext(ctx, q, id).Scan(&e.EventID, &e.EventTimestamp, &e.EventCode, &e.EventDescription, &e.EventVideoURL, &e.EventDetectionExplanationByAI)
	if errors.Is(err, sql.ErrNoRows) {
		return detection.Persisted{}, ErrNotFound
	}
	if err != nil {
		return detection.Persisted{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}
