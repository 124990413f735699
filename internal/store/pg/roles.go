package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vehiclemonitoring/authstore/internal/auth"
	"github.com/vehiclemonitoring/authstore/internal/ids"
)

const (
	roleCols  = `id, client_id, name, description, is_system, created_at`
	roleColsR = `r.id, r.client_id, r.name, r.description, r.is_system, r.created_at`
)

type roleStore struct {
	db *sql.DB
}

var _ auth.RoleStore = (*roleStore)(nil)

func scanRole(rs rowScanner) (*auth.Role, error) {
	var (
		r    auth.Role
		desc sql.NullString
	)
	if err := rs.Scan(&r.ID, &r.ClientID, &r.Name, &desc, &r.IsSystem, &r.CreatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		r.Description = desc.String
	}
	return &r, nil
}

func collectRoles(rows *sql.Rows) ([]*auth.Role, error) {
	defer rows.Close()
	var out []*auth.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *roleStore) one(ctx context.Context, op, query string, args ...any) (*auth.Role, error) {
	start := time.Now()
	r, err := scanRole(s.db.QueryRowContext(ctx, query, args...))
	observe(op, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *roleStore) list(ctx context.Context, op, query string, args ...any) ([]*auth.Role, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(op, start, err)
		return nil, err
	}
	out, err := collectRoles(rows)
	observe(op, start, err)
	return out, err
}

func (s *roleStore) Create(ctx context.Context, r *auth.Role) error {
	if r.ID == uuid.Nil {
		r.ID = ids.New()
	}
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `
		insert into auth.roles (id, client_id, name, description, is_system)
		values ($1, $2, $3, $4, $5)
		returning created_at
	`, r.ID, r.ClientID, r.Name, nullIfEmpty(r.Description), r.IsSystem).Scan(&r.CreatedAt)
	observe("roles.create", start, err)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *roleStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.Role, error) {
	return s.one(ctx, "roles.find_by_id",
		`select `+roleCols+` from auth.roles where id = $1`, id)
}

func (s *roleStore) FindByNameAndClient(ctx context.Context, name string, clientID uuid.UUID) (*auth.Role, error) {
	return s.one(ctx, "roles.find_by_name_and_client",
		`select `+roleCols+` from auth.roles where name = $1 and client_id = $2`, name, clientID)
}

func (s *roleStore) ExistsByNameAndClient(ctx context.Context, name string, clientID uuid.UUID) (bool, error) {
	return queryBool(ctx, s.db, "roles.exists_by_name_and_client",
		`select exists (select 1 from auth.roles where name = $1 and client_id = $2)`, name, clientID)
}

func (s *roleStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*auth.Role, error) {
	return s.list(ctx, "roles.list_by_client",
		`select `+roleCols+` from auth.roles where client_id = $1 order by created_at`, clientID)
}

func (s *roleStore) ListByClientOrderedByName(ctx context.Context, clientID uuid.UUID) ([]*auth.Role, error) {
	return s.list(ctx, "roles.list_by_client_ordered_by_name",
		`select `+roleCols+` from auth.roles where client_id = $1 order by name asc`, clientID)
}

func (s *roleStore) ListSystemByClient(ctx context.Context, clientID uuid.UUID) ([]*auth.Role, error) {
	return s.list(ctx, "roles.list_system_by_client",
		`select `+roleCols+` from auth.roles where client_id = $1 and is_system`, clientID)
}

func (s *roleStore) ListCustomByClient(ctx context.Context, clientID uuid.UUID) ([]*auth.Role, error) {
	return s.list(ctx, "roles.list_custom_by_client",
		`select `+roleCols+` from auth.roles where client_id = $1 and not is_system`, clientID)
}

func (s *roleStore) ListByNamesAndClient(ctx context.Context, names []string, clientID uuid.UUID) ([]*auth.Role, error) {
	return s.list(ctx, "roles.list_by_names_and_client",
		`select `+roleCols+` from auth.roles where client_id = $1 and name = any($2)`, clientID, names)
}

func (s *roleStore) ListByPermissionNameAndClient(ctx context.Context, permissionName string, clientID uuid.UUID) ([]*auth.Role, error) {
	return s.list(ctx, "roles.list_by_permission_name_and_client", `
		select `+roleColsR+`
		from auth.roles r
		join auth.role_permissions rp on rp.role_id = r.id
		join auth.permissions p on p.id = rp.permission_id
		where p.name = $1 and r.client_id = $2
	`, permissionName, clientID)
}

func (s *roleStore) ListByUserAndClient(ctx context.Context, userID, clientID uuid.UUID) ([]*auth.Role, error) {
	return s.list(ctx, "roles.list_by_user_and_client", `
		select `+roleColsR+`
		from auth.roles r
		join auth.user_roles ur on ur.role_id = r.id
		where ur.user_id = $1 and r.client_id = $2
	`, userID, clientID)
}

func (s *roleStore) ListUnassignedByClient(ctx context.Context, clientID uuid.UUID) ([]*auth.Role, error) {
	return s.list(ctx, "roles.list_unassigned_by_client", `
		select `+roleColsR+`
		from auth.roles r
		where r.client_id = $1
		  and not exists (select 1 from auth.user_roles ur where ur.role_id = r.id)
	`, clientID)
}

func (s *roleStore) Search(ctx context.Context, text string, clientID uuid.UUID) ([]*auth.Role, error) {
	return s.list(ctx, "roles.search", `
		select `+roleCols+`
		from auth.roles
		where client_id = $1 and (name ilike $2 or description ilike $2)
	`, clientID, likePattern(text))
}

func (s *roleStore) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	return queryCount(ctx, s.db, "roles.count_by_client",
		`select count(*) from auth.roles where client_id = $1`, clientID)
}

func (s *roleStore) CountSystemByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	return queryCount(ctx, s.db, "roles.count_system_by_client",
		`select count(*) from auth.roles where client_id = $1 and is_system`, clientID)
}

func (s *roleStore) CountUsersByRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	return queryCount(ctx, s.db, "roles.count_users_by_role",
		`select count(*) from auth.user_roles where role_id = $1`, roleID)
}

// AssignUser records the user/role edge. The user and role must belong to
// the same client; assigning an already-assigned role is a no-op.
func (s *roleStore) AssignUser(ctx context.Context, roleID, userID uuid.UUID) error {
	start := time.Now()
	err := s.assignUser(ctx, roleID, userID)
	observe("roles.assign_user", start, storageFaultOnly(err))
	return err
}

func (s *roleStore) assignUser(ctx context.Context, roleID, userID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var roleClient uuid.UUID
	if err := tx.QueryRowContext(ctx,
		`select client_id from auth.roles where id = $1`, roleID).Scan(&roleClient); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrNotFound
		}
		return err
	}

	var userClient uuid.UUID
	if err := tx.QueryRowContext(ctx,
		`select client_id from auth.users where id = $1`, userID).Scan(&userClient); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrNotFound
		}
		return err
	}

	if roleClient != userClient {
		return fmt.Errorf("%w: user and role belong to different clients", auth.ErrInvalidInput)
	}

	if _, err := tx.ExecContext(ctx, `
		insert into auth.user_roles (user_id, role_id)
		values ($1, $2)
		on conflict do nothing
	`, userID, roleID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *roleStore) RemoveUser(ctx context.Context, roleID, userID uuid.UUID) error {
	aff, err := execRows(ctx, s.db, "roles.remove_user",
		`delete from auth.user_roles where role_id = $1 and user_id = $2`, roleID, userID)
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *roleStore) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, "roles.delete",
		`delete from auth.roles where id = $1`, id)
}
