package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vehiclemonitoring/authstore/internal/auth"
	"github.com/vehiclemonitoring/authstore/internal/obs"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store implements auth.Store on PostgreSQL. All queries are hand-written
// parameterized SQL against the auth schema; the database's own isolation
// is the only concurrency control.
type Store struct {
	db *sql.DB
}

var _ auth.Store = (*Store)(nil)

// Open connects to PostgreSQL and tunes the connection pool.
func Open(dsn string) (*Store, error) {
	obs.Init()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Clients() auth.ClientStore         { return &clientStore{db: s.db} }
func (s *Store) Users() auth.UserStore             { return &userStore{db: s.db} }
func (s *Store) Roles() auth.RoleStore             { return &roleStore{db: s.db} }
func (s *Store) Permissions() auth.PermissionStore { return &permissionStore{db: s.db} }
func (s *Store) Tokens() auth.TokenStore           { return &tokenStore{db: s.db} }

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// observe reports one finished operation. sql.ErrNoRows is an absent
// result, not a storage fault, and is not counted as an error.
func observe(op string, start time.Time, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	obs.ObserveQuery(op, time.Since(start), err)
}

func queryBool(ctx context.Context, db *sql.DB, op, query string, args ...any) (bool, error) {
	start := time.Now()
	var v bool
	err := db.QueryRowContext(ctx, query, args...).Scan(&v)
	observe(op, start, err)
	if err != nil {
		return false, err
	}
	return v, nil
}

func queryCount(ctx context.Context, db *sql.DB, op, query string, args ...any) (int64, error) {
	start := time.Now()
	var n int64
	err := db.QueryRowContext(ctx, query, args...).Scan(&n)
	observe(op, start, err)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// execRows runs a statement and returns the number of rows it touched.
func execRows(ctx context.Context, db *sql.DB, op, query string, args ...any) (int64, error) {
	start := time.Now()
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		observe(op, start, err)
		return 0, err
	}
	aff, err := res.RowsAffected()
	observe(op, start, err)
	return aff, err
}

// deleteByID maps "nothing deleted" to ErrNotFound.
func deleteByID(ctx context.Context, db *sql.DB, op, query string, args ...any) error {
	aff, err := execRows(ctx, db, op, query, args...)
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// storageFaultOnly filters the sentinel taxonomy out of the error metric;
// absent rows and constraint violations are caller-visible outcomes, not
// storage faults.
func storageFaultOnly(err error) error {
	if errors.Is(err, auth.ErrNotFound) || errors.Is(err, auth.ErrConflict) || errors.Is(err, auth.ErrInvalidInput) {
		return nil
	}
	return err
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapWriteError translates constraint violations into the sentinel
// taxonomy: duplicate keys become ErrConflict, dangling references become
// ErrNotFound. Anything else passes through as a storage fault.
func mapWriteError(err error) error {
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return auth.ErrConflict
		case pgErrForeignKeyViolation:
			return auth.ErrNotFound
		}
	}
	return err
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// emptyObjectIfNil keeps the jsonb columns' empty-object default intact.
func emptyObjectIfNil(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

// likePattern wraps a search term for case-insensitive substring matching.
func likePattern(text string) string {
	return "%" + text + "%"
}
