package payload

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Connect opens a pool on url and checks it with a ping.
func Connect(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// PostgresStore keeps payloads in the payloads table. Rows older than
// twice the TTL are deleted on every Put.
type PostgresStore struct {
	policy
	pool *pgxpool.Pool
}

// NewPostgresStore returns a store on pool. Call Migrate first.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	return &PostgresStore{policy: newPolicy(opts), pool: pool}
}

// Put implements Store.
func (s *PostgresStore) Put(ctx context.Context, p *Payload) (*Stored, error) {
	data, err := s.seal(p)
	if err != nil {
		return nil, err
	}
	stored := s.stored(p, data)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO payloads (id, label, source, created_at, digest, body)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET label = EXCLUDED.label, source = EXCLUDED.source,
		    created_at = EXCLUDED.created_at, digest = EXCLUDED.digest, body = EXCLUDED.body`,
		p.Meta.ID, p.Meta.Label, p.Meta.Source, p.Meta.Created(), stored.ETag, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store payload %s: %w", p.Meta.ID, err)
	}

	if _, err := s.Purge(ctx, s.now().Add(-2*s.ttl)); err != nil {
		return nil, err
	}
	return stored, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Stored, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM payloads WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payload %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payload %s: %w", id, err)
	}
	return s.open(id, data)
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM payloads WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete payload %s: %w", id, err)
	}
	return nil
}

// Purge deletes rows created before cutoff.
func (s *PostgresStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM payloads WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge payloads: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
