package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/limeking/psa-next-hts-coin/internal/observability"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// Pool is the connection pool shared by the run store and migrations.
type Pool struct {
	*pgxpool.Pool
}

// Pool defaults applied when the DSN leaves them unset.
const (
	defaultMaxConns       = 8
	defaultConnectTimeout = 10 * time.Second
)

// NewPool parses dsn, connects and pings. pool_max_conns and
// connect_timeout in the DSN override the defaults.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if !strings.Contains(dsn, "pool_max_conns") {
		config.MaxConns = defaultMaxConns
	}
	if config.ConnConfig.ConnectTimeout == 0 {
		config.ConnConfig.ConnectTimeout = defaultConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505" // unique_violation
)

// isDuplicateKeyError reports a unique violation on run_id or trade_id.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// observeQuery records the latency and outcome of one store operation.
// ErrNotFound is not counted as a failure.
func observeQuery(op string, start time.Time, errp *error) {
	var err error
	if errp != nil && *errp != nil && !errors.Is(*errp, storage.ErrNotFound) {
		err = *errp
	}
	observability.RecordDBQuery("postgres", op, time.Since(start).Seconds(), err)
}
