package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vehiclemonitoring/authstore/internal/auth"
	"github.com/vehiclemonitoring/authstore/internal/ids"
)

const tokenCols = `id, jti, token_type, user_id, client_id, issued_at, expires_at, revoked_at, revoked_by, replaced_by_jti, metadata`

// tokenActive and tokenExpired are the canonical lifecycle conditions;
// every active/expired query below uses them verbatim.
const (
	tokenActive  = `revoked_at is null and (expires_at is null or expires_at > now())`
	tokenExpired = `expires_at is not null and expires_at <= now()`
)

type tokenStore struct {
	db *sql.DB
}

var _ auth.TokenStore = (*tokenStore)(nil)

func scanToken(rs rowScanner) (*auth.JwtToken, error) {
	var (
		t         auth.JwtToken
		expiresAt sql.NullTime
		revokedAt sql.NullTime
		revokedBy uuid.NullUUID
		replaced  sql.NullString
		meta      []byte
	)
	if err := rs.Scan(&t.ID, &t.JTI, &t.TokenType, &t.UserID, &t.ClientID,
		&t.IssuedAt, &expiresAt, &revokedAt, &revokedBy, &replaced, &meta); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		v := expiresAt.Time
		t.ExpiresAt = &v
	}
	if revokedAt.Valid {
		v := revokedAt.Time
		t.RevokedAt = &v
	}
	if revokedBy.Valid {
		v := revokedBy.UUID
		t.RevokedBy = &v
	}
	if replaced.Valid {
		t.ReplacedByJTI = replaced.String
	}
	t.Metadata = meta
	return &t, nil
}

func collectTokens(rows *sql.Rows) ([]*auth.JwtToken, error) {
	defer rows.Close()
	var out []*auth.JwtToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *tokenStore) one(ctx context.Context, op, query string, args ...any) (*auth.JwtToken, error) {
	start := time.Now()
	t, err := scanToken(s.db.QueryRowContext(ctx, query, args...))
	observe(op, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *tokenStore) list(ctx context.Context, op, query string, args ...any) ([]*auth.JwtToken, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(op, start, err)
		return nil, err
	}
	out, err := collectTokens(rows)
	observe(op, start, err)
	return out, err
}

func (s *tokenStore) Create(ctx context.Context, t *auth.JwtToken) error {
	if t.ID == uuid.Nil {
		t.ID = ids.New()
	}
	if t.JTI == "" {
		t.JTI = ids.NewJTI()
	}
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `
		insert into auth.jwt_tokens (id, jti, token_type, user_id, client_id, expires_at, metadata)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning issued_at
	`, t.ID, t.JTI, t.TokenType, t.UserID, t.ClientID, t.ExpiresAt,
		emptyObjectIfNil(t.Metadata)).Scan(&t.IssuedAt)
	observe("tokens.create", start, err)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *tokenStore) FindByJTI(ctx context.Context, jti string) (*auth.JwtToken, error) {
	return s.one(ctx, "tokens.find_by_jti",
		`select `+tokenCols+` from auth.jwt_tokens where jti = $1`, jti)
}

func (s *tokenStore) ExistsByJTI(ctx context.Context, jti string) (bool, error) {
	return queryBool(ctx, s.db, "tokens.exists_by_jti",
		`select exists (select 1 from auth.jwt_tokens where jti = $1)`, jti)
}

func (s *tokenStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*auth.JwtToken, error) {
	return s.list(ctx, "tokens.list_by_user",
		`select `+tokenCols+` from auth.jwt_tokens where user_id = $1 order by issued_at`, userID)
}

func (s *tokenStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*auth.JwtToken, error) {
	return s.list(ctx, "tokens.list_by_client",
		`select `+tokenCols+` from auth.jwt_tokens where client_id = $1 order by issued_at`, clientID)
}

func (s *tokenStore) ListByType(ctx context.Context, tokenType string) ([]*auth.JwtToken, error) {
	return s.list(ctx, "tokens.list_by_type",
		`select `+tokenCols+` from auth.jwt_tokens where token_type = $1 order by issued_at`, tokenType)
}

func (s *tokenStore) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*auth.JwtToken, error) {
	return s.list(ctx, "tokens.list_active_by_user",
		`select `+tokenCols+` from auth.jwt_tokens where user_id = $1 and `+tokenActive, userID)
}

func (s *tokenStore) ListActiveByUserAndType(ctx context.Context, userID uuid.UUID, tokenType string) ([]*auth.JwtToken, error) {
	return s.list(ctx, "tokens.list_active_by_user_and_type",
		`select `+tokenCols+` from auth.jwt_tokens where user_id = $1 and token_type = $2 and `+tokenActive,
		userID, tokenType)
}

func (s *tokenStore) ListRevokedByUser(ctx context.Context, userID uuid.UUID) ([]*auth.JwtToken, error) {
	return s.list(ctx, "tokens.list_revoked_by_user",
		`select `+tokenCols+` from auth.jwt_tokens where user_id = $1 and revoked_at is not null`, userID)
}

func (s *tokenStore) ListExpired(ctx context.Context) ([]*auth.JwtToken, error) {
	return s.list(ctx, "tokens.list_expired",
		`select `+tokenCols+` from auth.jwt_tokens where `+tokenExpired)
}

func (s *tokenStore) ListExpiredByClient(ctx context.Context, clientID uuid.UUID) ([]*auth.JwtToken, error) {
	return s.list(ctx, "tokens.list_expired_by_client",
		`select `+tokenCols+` from auth.jwt_tokens where client_id = $1 and `+tokenExpired, clientID)
}

func (s *tokenStore) ListExpiringBefore(ctx context.Context, before time.Time) ([]*auth.JwtToken, error) {
	return s.list(ctx, "tokens.list_expiring_before",
		`select `+tokenCols+` from auth.jwt_tokens where expires_at is not null and expires_at <= $1`,
		before)
}

func (s *tokenStore) ListIssuedSince(ctx context.Context, since time.Time, clientID uuid.UUID) ([]*auth.JwtToken, error) {
	return s.list(ctx, "tokens.list_issued_since",
		`select `+tokenCols+` from auth.jwt_tokens where client_id = $1 and issued_at >= $2`, clientID, since)
}

func (s *tokenStore) ListReplacedByClient(ctx context.Context, clientID uuid.UUID) ([]*auth.JwtToken, error) {
	return s.list(ctx, "tokens.list_replaced_by_client",
		`select `+tokenCols+` from auth.jwt_tokens where client_id = $1 and replaced_by_jti is not null`, clientID)
}

func (s *tokenStore) FindReplaced(ctx context.Context, newJTI string) (*auth.JwtToken, error) {
	return s.one(ctx, "tokens.find_replaced",
		`select `+tokenCols+` from auth.jwt_tokens where replaced_by_jti = $1`, newJTI)
}

func (s *tokenStore) ListByUserNewestFirst(ctx context.Context, userID uuid.UUID) ([]*auth.JwtToken, error) {
	return s.list(ctx, "tokens.list_by_user_newest_first",
		`select `+tokenCols+` from auth.jwt_tokens where user_id = $1 order by issued_at desc`, userID)
}

func (s *tokenStore) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return queryCount(ctx, s.db, "tokens.count_active_by_user",
		`select count(*) from auth.jwt_tokens where user_id = $1 and `+tokenActive, userID)
}

func (s *tokenStore) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	return queryCount(ctx, s.db, "tokens.count_by_client",
		`select count(*) from auth.jwt_tokens where client_id = $1`, clientID)
}

func (s *tokenStore) MarkRevoked(ctx context.Context, jti string, by uuid.UUID) error {
	aff, err := execRows(ctx, s.db, "tokens.mark_revoked",
		`update auth.jwt_tokens set revoked_at = now(), revoked_by = $2 where jti = $1`, jti, by)
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// MarkReplaced links the old token to its successor and revokes it in the
// same statement.
func (s *tokenStore) MarkReplaced(ctx context.Context, jti, newJTI string) error {
	aff, err := execRows(ctx, s.db, "tokens.mark_replaced",
		`update auth.jwt_tokens set replaced_by_jti = $2, revoked_at = now() where jti = $1`, jti, newJTI)
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *tokenStore) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	return execRows(ctx, s.db, "tokens.delete_expired_before",
		`delete from auth.jwt_tokens where expires_at is not null and expires_at <= $1`, before)
}

func (s *tokenStore) DeleteRevokedBefore(ctx context.Context, before time.Time) (int64, error) {
	return execRows(ctx, s.db, "tokens.delete_revoked_before",
		`delete from auth.jwt_tokens where revoked_at is not null and revoked_at <= $1`, before)
}
