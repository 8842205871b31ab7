// Package sqldb stores wire documents in a SQL database through
// database/sql, with SQLite and Postgres dialects.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/mattn/go-sqlite3"

	"github.com/example/flowide/internal/log"
	"github.com/example/flowide/internal/observability"
	"github.com/example/flowide/internal/storage"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

type dialect struct {
	driver    string
	timestamp string
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
	// single connection, file options in the DSN
	sqlite bool
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, "sqlite", "":
		return dialect{driver: DriverSQLite, timestamp: "DATETIME", sqlite: true}, nil
	case DriverPostgres, "postgres":
		return dialect{driver: DriverPostgres, timestamp: "TIMESTAMPTZ", numbered: true}, nil
	}
	return dialect{}, fmt.Errorf("unsupported driver %q", driver)
}

func (d dialect) dsn(dsn string) string {
	if d.sqlite && !strings.Contains(dsn, "?") {
		return dsn + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
	}
	return dsn
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
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

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// Store implements storage.Storage.
type Store struct {
	db      *sql.DB
	dialect dialect
	metrics *observability.Metrics
	logger  log.Logger
}

var _ storage.Storage = (*Store)(nil)

type Option func(*Store)

// WithMetrics records transaction and query timings.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func WithLogger(l log.Logger) Option {
	return func(s *Store) { s.logger = log.Or(l) }
}

// Open opens a database with the sqlite3 or pgx driver. For sqlite3 the
// DSN is a file path.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, d.dsn(dsn))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	if d.sqlite {
		// SQLite works best with a single connection for writes
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &Store{db: db, dialect: d, logger: log.Root}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewSQLite opens the SQLite database at path.
func NewSQLite(path string, opts ...Option) (*Store, error) {
	return Open(DriverSQLite, path, opts...)
}

// Begin starts a new transaction.
func (s *Store) Begin(ctx context.Context) (storage.UnitOfWork, error) {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.DBTransactionBegin().Since(start)
		s.metrics.DBActiveTransactions().Inc()
	}
	return &unitOfWork{
		tx:        tx,
		store:     s,
		documents: &documentRepo{tx: tx, store: s},
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := migrate(ctx, s.db, s.dialect); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	s.logger.Debug("migrated", "driver", s.dialect.driver)
	return nil
}

func (s *Store) observe(query string, start time.Time) {
	if s.metrics != nil {
		s.metrics.DBQueryDuration().WithLabels(query).Since(start)
	}
}

// unitOfWork implements storage.UnitOfWork.
type unitOfWork struct {
	tx        *sql.Tx
	store     *Store
	documents *documentRepo
	done      bool
}

func (u *unitOfWork) Documents() storage.DocumentRepository {
	return u.documents
}

func (u *unitOfWork) Commit() error {
	start := time.Now()
	err := u.tx.Commit()
	u.finish()
	if err == nil && u.store.metrics != nil {
		u.store.metrics.DBTransactionCommit().Since(start)
	}
	return err
}

// Rollback is a no-op after Commit, so callers can defer it.
func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	err := u.tx.Rollback()
	u.finish()
	return err
}

func (u *unitOfWork) finish() {
	if !u.done && u.store.metrics != nil {
		u.store.metrics.DBActiveTransactions().Dec()
	}
	u.done = true
}
