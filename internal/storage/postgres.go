package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spice-ingest/internal/common"

	_ "github.com/lib/pq" // Postgres driver
)

// PostgresStore keeps transaction history in a shared Postgres database.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore connects to dsn, retrying the initial ping while the
// database comes up.
func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	err = common.Retry(ctx, common.RetryOptions{
		Logger:       logger,
		Name:         "postgres ping",
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}, db.PingContext)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{
		sqlStore: newSQLStore(db, postgresDialect{}, common.LoggerOrDefault(logger)),
	}, nil
}

// postgresDialect rewrites ? placeholders and tracks the schema version in
// a schema_migrations table.
type postgresDialect struct{}

func (postgresDialect) bind(query string) string {
	return rebindDollar(query)
}

func (postgresDialect) normalizeTime(t time.Time) time.Time { return t.UTC() }

func (postgresDialect) currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return 0, err
	}

	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

func (postgresDialect) setVersion(ctx context.Context, tx *sql.Tx, version int) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version)
	return err
}

// rebindDollar replaces each ? with $1, $2, ... in order.
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
