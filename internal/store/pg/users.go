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

const (
	userCols  = `id, client_id, email, full_name, password_hash, is_active, is_email_verified, last_login, created_at`
	userColsU = `u.id, u.client_id, u.email, u.full_name, u.password_hash, u.is_active, u.is_email_verified, u.last_login, u.created_at`
)

type userStore struct {
	db *sql.DB
}

var _ auth.UserStore = (*userStore)(nil)

func scanUser(rs rowScanner) (*auth.User, error) {
	var (
		u         auth.User
		fullName  sql.NullString
		lastLogin sql.NullTime
	)
	if err := rs.Scan(&u.ID, &u.ClientID, &u.Email, &fullName, &u.PasswordHash,
		&u.IsActive, &u.IsEmailVerified, &lastLogin, &u.CreatedAt); err != nil {
		return nil, err
	}
	if fullName.Valid {
		u.FullName = fullName.String
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func collectUsers(rows *sql.Rows) ([]*auth.User, error) {
	defer rows.Close()
	var out []*auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *userStore) one(ctx context.Context, op, query string, args ...any) (*auth.User, error) {
	start := time.Now()
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	observe(op, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userStore) list(ctx context.Context, op, query string, args ...any) ([]*auth.User, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(op, start, err)
		return nil, err
	}
	out, err := collectUsers(rows)
	observe(op, start, err)
	return out, err
}

func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	if u.ID == uuid.Nil {
		u.ID = ids.New()
	}
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `
		insert into auth.users (id, client_id, email, full_name, password_hash, is_active, is_email_verified)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning created_at
	`, u.ID, u.ClientID, u.Email, nullIfEmpty(u.FullName), u.PasswordHash,
		u.IsActive, u.IsEmailVerified).Scan(&u.CreatedAt)
	observe("users.create", start, err)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *userStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.one(ctx, "users.find_by_id",
		`select `+userCols+` from auth.users where id = $1`, id)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.one(ctx, "users.find_by_email",
		`select `+userCols+` from auth.users where email = $1`, email)
}

func (s *userStore) FindByEmailAndClient(ctx context.Context, email string, clientID uuid.UUID) (*auth.User, error) {
	return s.one(ctx, "users.find_by_email_and_client",
		`select `+userCols+` from auth.users where email = $1 and client_id = $2`, email, clientID)
}

func (s *userStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return queryBool(ctx, s.db, "users.exists_by_email",
		`select exists (select 1 from auth.users where email = $1)`, email)
}

func (s *userStore) ExistsByEmailAndClient(ctx context.Context, email string, clientID uuid.UUID) (bool, error) {
	return queryBool(ctx, s.db, "users.exists_by_email_and_client",
		`select exists (select 1 from auth.users where email = $1 and client_id = $2)`, email, clientID)
}

func (s *userStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*auth.User, error) {
	return s.list(ctx, "users.list_by_client",
		`select `+userCols+` from auth.users where client_id = $1 order by created_at`, clientID)
}

func (s *userStore) ListActiveByClient(ctx context.Context, clientID uuid.UUID) ([]*auth.User, error) {
	return s.list(ctx, "users.list_active_by_client",
		`select `+userCols+` from auth.users where client_id = $1 and is_active order by created_at`, clientID)
}

func (s *userStore) ListActive(ctx context.Context) ([]*auth.User, error) {
	return s.list(ctx, "users.list_active",
		`select `+userCols+` from auth.users where is_active order by created_at`)
}

func (s *userStore) ListEmailVerifiedByClient(ctx context.Context, clientID uuid.UUID) ([]*auth.User, error) {
	return s.list(ctx, "users.list_email_verified_by_client",
		`select `+userCols+` from auth.users where client_id = $1 and is_email_verified order by created_at`, clientID)
}

func (s *userStore) ListByRoleName(ctx context.Context, roleName string, clientID uuid.UUID) ([]*auth.User, error) {
	return s.list(ctx, "users.list_by_role_name", `
		select `+userColsU+`
		from auth.users u
		join auth.user_roles ur on ur.user_id = u.id
		join auth.roles r on r.id = ur.role_id
		where r.name = $1 and u.client_id = $2
	`, roleName, clientID)
}

func (s *userStore) ListByPermissionName(ctx context.Context, permissionName string, clientID uuid.UUID) ([]*auth.User, error) {
	return s.list(ctx, "users.list_by_permission_name", `
		select distinct `+userColsU+`
		from auth.users u
		join auth.user_roles ur on ur.user_id = u.id
		join auth.role_permissions rp on rp.role_id = ur.role_id
		join auth.permissions p on p.id = rp.permission_id
		where p.name = $1 and u.client_id = $2
	`, permissionName, clientID)
}

func (s *userStore) Search(ctx context.Context, text string, clientID uuid.UUID) ([]*auth.User, error) {
	return s.list(ctx, "users.search", `
		select `+userCols+`
		from auth.users
		where client_id = $1 and (email ilike $2 or full_name ilike $2)
	`, clientID, likePattern(text))
}

func (s *userStore) ListByLastLoginSince(ctx context.Context, since time.Time, clientID uuid.UUID) ([]*auth.User, error) {
	return s.list(ctx, "users.list_by_last_login_since",
		`select `+userCols+` from auth.users where client_id = $1 and last_login >= $2`, clientID, since)
}

func (s *userStore) ListNeverLoggedIn(ctx context.Context, clientID uuid.UUID) ([]*auth.User, error) {
	return s.list(ctx, "users.list_never_logged_in",
		`select `+userCols+` from auth.users where client_id = $1 and last_login is null`, clientID)
}

func (s *userStore) ListByClientNewestFirst(ctx context.Context, clientID uuid.UUID) ([]*auth.User, error) {
	return s.list(ctx, "users.list_by_client_newest_first",
		`select `+userCols+` from auth.users where client_id = $1 order by created_at desc`, clientID)
}

func (s *userStore) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	return queryCount(ctx, s.db, "users.count_by_client",
		`select count(*) from auth.users where client_id = $1`, clientID)
}

func (s *userStore) CountActiveByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	return queryCount(ctx, s.db, "users.count_active_by_client",
		`select count(*) from auth.users where client_id = $1 and is_active`, clientID)
}

func (s *userStore) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	aff, err := execRows(ctx, s.db, "users.record_login",
		`update auth.users set last_login = $2 where id = $1`, id, at)
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *userStore) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, "users.delete",
		`delete from auth.users where id = $1`, id)
}
