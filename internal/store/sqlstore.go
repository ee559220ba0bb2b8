// ABOUTME: SQL implementation of the gradebook store on top of sqlx
// ABOUTME: Opens SQLite (modernc.org/sqlite) or PostgreSQL (pgx stdlib) and creates the schema

package store

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLStore persists schools, accounts, periods and scores.
// Reads go straight to the connection pool. Every write runs inside withTx,
// which holds the single writer lock for the lifetime of the transaction.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	writer sync.Locker
	logger *slog.Logger
}

// Open connects to the configured driver. dsn is a file path for sqlite and
// a connection URL for postgres.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "", DriverSQLite:
		return NewSQLiteStore(dsn)
	case DriverPostgres:
		return NewPostgresStore(ctx, dsn)
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// NewSQLiteStore creates a new SQLite store at the given path.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLStore{db: db, driver: DriverSQLite, writer: &sync.Mutex{}, logger: logger}
	if err := s.createSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// NewPostgresStore connects to PostgreSQL through the pgx database/sql driver.
func NewPostgresStore(ctx context.Context, url string) (*SQLStore, error) {
	logger := slog.Default().With("component", "store")

	db, err := sqlx.ConnectContext(ctx, "pgx", url)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := &SQLStore{db: db, driver: DriverPostgres, writer: &sync.Mutex{}, logger: logger}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("PostgreSQL store initialized")
	return s, nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB exposes the sqlx handle for seeding and tests.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

// withTx runs fn inside a transaction while holding the writer lock.
// The transaction is rolled back if fn returns an error or panics.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	s.writer.Lock()
	defer s.writer.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) createSchema(ctx context.Context) error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		pk = "BIGSERIAL PRIMARY KEY"
	}
	schema := strings.ReplaceAll(schemaTemplate, "{{pk}}", pk)

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}

const schemaTemplate = `
	CREATE TABLE IF NOT EXISTS schools (
		id           {{pk}},
		name         TEXT NOT NULL UNIQUE,
		manager_name TEXT,
		username     TEXT UNIQUE,
		password     TEXT
	);

	CREATE TABLE IF NOT EXISTS grades (
		id        {{pk}},
		name      TEXT NOT NULL,
		school_id BIGINT NOT NULL REFERENCES schools(id),
		UNIQUE (name, school_id)
	);

	CREATE TABLE IF NOT EXISTS classes (
		id       {{pk}},
		name     TEXT NOT NULL,
		grade_id BIGINT NOT NULL REFERENCES grades(id),
		UNIQUE (name, grade_id)
	);

	CREATE TABLE IF NOT EXISTS teachers (
		id        {{pk}},
		name      TEXT NOT NULL,
		username  TEXT UNIQUE,
		password  TEXT,
		school_id BIGINT REFERENCES schools(id)
	);

	CREATE TABLE IF NOT EXISTS students (
		id       {{pk}},
		name     TEXT NOT NULL,
		username TEXT UNIQUE,
		password TEXT,
		class_id BIGINT REFERENCES classes(id)
	);

	CREATE INDEX IF NOT EXISTS idx_students_class ON students(class_id);

	CREATE TABLE IF NOT EXISTS subjects (
		id          {{pk}},
		name        TEXT NOT NULL,
		class_id    BIGINT NOT NULL REFERENCES classes(id),
		teacher_id  BIGINT NOT NULL REFERENCES teachers(id),
		coefficient INTEGER NOT NULL DEFAULT 1,
		UNIQUE (name, class_id)
	);

	CREATE INDEX IF NOT EXISTS idx_subjects_teacher ON subjects(teacher_id);

	CREATE TABLE IF NOT EXISTS report_periods (
		id         {{pk}},
		school_id  BIGINT NOT NULL REFERENCES schools(id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date   TEXT,
		approved   INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_report_periods_school ON report_periods(school_id, start_date);

	CREATE TABLE IF NOT EXISTS scores (
		id               {{pk}},
		student_id       BIGINT NOT NULL REFERENCES students(id),
		subject_id       BIGINT NOT NULL REFERENCES subjects(id),
		report_period_id BIGINT NOT NULL REFERENCES report_periods(id),
		score            DOUBLE PRECISION,
		description      TEXT,
		updated_at       TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_scores_triple
		ON scores(student_id, subject_id, report_period_id);
	CREATE INDEX IF NOT EXISTS idx_scores_period ON scores(report_period_id);

	CREATE TABLE IF NOT EXISTS user_contacts (
		id         {{pk}},
		role       TEXT NOT NULL,
		user_id    BIGINT NOT NULL,
		contact    TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (role, user_id),
		CHECK (role IN ('manager', 'teacher', 'student'))
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		audit_id    TEXT PRIMARY KEY,
		actor_role  TEXT NOT NULL,
		actor_id    BIGINT NOT NULL,
		action      TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id   TEXT NOT NULL,
		ts          TEXT NOT NULL,
		detail_json TEXT,

		CHECK (action IN ('change_password', 'register_contact'))
	);

	CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_log(actor_role, actor_id);
`

// timestamp formats t the way every TEXT time column is stored.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTimestamp reverses timestamp, returning the zero time for bad input.
func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// round2 rounds to two decimals. Rounding happens here rather than in SQL
// so both drivers agree on the result.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
