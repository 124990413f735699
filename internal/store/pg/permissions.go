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
	permCols  = `id, name, description, created_at`
	permColsP = `p.id, p.name, p.description, p.created_at`
)

type permissionStore struct {
	db *sql.DB
}

var _ auth.PermissionStore = (*permissionStore)(nil)

func scanPermission(rs rowScanner) (*auth.Permission, error) {
	var (
		p    auth.Permission
		desc sql.NullString
	)
	if err := rs.Scan(&p.ID, &p.Name, &desc, &p.CreatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		p.Description = desc.String
	}
	return &p, nil
}

func collectPermissions(rows *sql.Rows) ([]*auth.Permission, error) {
	defer rows.Close()
	var out []*auth.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *permissionStore) one(ctx context.Context, op, query string, args ...any) (*auth.Permission, error) {
	start := time.Now()
	p, err := scanPermission(s.db.QueryRowContext(ctx, query, args...))
	observe(op, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *permissionStore) list(ctx context.Context, op, query string, args ...any) ([]*auth.Permission, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(op, start, err)
		return nil, err
	}
	out, err := collectPermissions(rows)
	observe(op, start, err)
	return out, err
}

func (s *permissionStore) Create(ctx context.Context, p *auth.Permission) error {
	if p.ID == uuid.Nil {
		p.ID = ids.New()
	}
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `
		insert into auth.permissions (id, name, description)
		values ($1, $2, $3)
		returning created_at
	`, p.ID, p.Name, nullIfEmpty(p.Description)).Scan(&p.CreatedAt)
	observe("permissions.create", start, err)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *permissionStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.Permission, error) {
	return s.one(ctx, "permissions.find_by_id",
		`select `+permCols+` from auth.permissions where id = $1`, id)
}

func (s *permissionStore) FindByName(ctx context.Context, name string) (*auth.Permission, error) {
	return s.one(ctx, "permissions.find_by_name",
		`select `+permCols+` from auth.permissions where name = $1`, name)
}

func (s *permissionStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	return queryBool(ctx, s.db, "permissions.exists_by_name",
		`select exists (select 1 from auth.permissions where name = $1)`, name)
}

func (s *permissionStore) List(ctx context.Context) ([]*auth.Permission, error) {
	return s.list(ctx, "permissions.list",
		`select `+permCols+` from auth.permissions order by name asc`)
}

func (s *permissionStore) ListByNames(ctx context.Context, names []string) ([]*auth.Permission, error) {
	return s.list(ctx, "permissions.list_by_names",
		`select `+permCols+` from auth.permissions where name = any($1)`, names)
}

func (s *permissionStore) ListByPrefix(ctx context.Context, prefix string) ([]*auth.Permission, error) {
	return s.list(ctx, "permissions.list_by_prefix",
		`select `+permCols+` from auth.permissions where name like $1`, prefix+"%")
}

func (s *permissionStore) ListByRole(ctx context.Context, roleID uuid.UUID) ([]*auth.Permission, error) {
	return s.list(ctx, "permissions.list_by_role", `
		select `+permColsP+`
		from auth.permissions p
		join auth.role_permissions rp on rp.permission_id = p.id
		where rp.role_id = $1
	`, roleID)
}

func (s *permissionStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*auth.Permission, error) {
	return s.list(ctx, "permissions.list_by_client", `
		select distinct `+permColsP+`
		from auth.permissions p
		join auth.role_permissions rp on rp.permission_id = p.id
		join auth.roles r on r.id = rp.role_id
		where r.client_id = $1
	`, clientID)
}

func (s *permissionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*auth.Permission, error) {
	return s.list(ctx, "permissions.list_by_user", `
		select distinct `+permColsP+`
		from auth.permissions p
		join auth.role_permissions rp on rp.permission_id = p.id
		join auth.user_roles ur on ur.role_id = rp.role_id
		where ur.user_id = $1
	`, userID)
}

func (s *permissionStore) ListByUserAndClient(ctx context.Context, userID, clientID uuid.UUID) ([]*auth.Permission, error) {
	return s.list(ctx, "permissions.list_by_user_and_client", `
		select distinct `+permColsP+`
		from auth.permissions p
		join auth.role_permissions rp on rp.permission_id = p.id
		join auth.roles r on r.id = rp.role_id
		join auth.user_roles ur on ur.role_id = r.id
		where ur.user_id = $1 and r.client_id = $2
	`, userID, clientID)
}

func (s *permissionStore) ListUnassigned(ctx context.Context) ([]*auth.Permission, error) {
	return s.list(ctx, "permissions.list_unassigned", `
		select `+permColsP+`
		from auth.permissions p
		where not exists (select 1 from auth.role_permissions rp where rp.permission_id = p.id)
	`)
}

func (s *permissionStore) ListUnassignedByClient(ctx context.Context, clientID uuid.UUID) ([]*auth.Permission, error) {
	return s.list(ctx, "permissions.list_unassigned_by_client", `
		select `+permColsP+`
		from auth.permissions p
		where not exists (
			select 1
			from auth.role_permissions rp
			join auth.roles r on r.id = rp.role_id
			where rp.permission_id = p.id and r.client_id = $1
		)
	`, clientID)
}

func (s *permissionStore) MostUsed(ctx context.Context, limit int) ([]*auth.Permission, error) {
	return s.list(ctx, "permissions.most_used", `
		select `+permColsP+`
		from auth.permissions p
		join auth.role_permissions rp on rp.permission_id = p.id
		group by p.id, p.name, p.description, p.created_at
		order by count(rp.role_id) desc
		limit $1
	`, limit)
}

func (s *permissionStore) Search(ctx context.Context, text string) ([]*auth.Permission, error) {
	return s.list(ctx, "permissions.search",
		`select `+permCols+` from auth.permissions where name ilike $1 or description ilike $1`,
		likePattern(text))
}

func (s *permissionStore) Count(ctx context.Context) (int64, error) {
	return queryCount(ctx, s.db, "permissions.count",
		`select count(*) from auth.permissions`)
}

func (s *permissionStore) CountRolesByPermission(ctx context.Context, permissionID uuid.UUID) (int64, error) {
	return queryCount(ctx, s.db, "permissions.count_roles_by_permission",
		`select count(*) from auth.role_permissions where permission_id = $1`, permissionID)
}

// AssignToRole grants the permission to the role; granting twice is a
// no-op.
func (s *permissionStore) AssignToRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		insert into auth.role_permissions (role_id, permission_id)
		values ($1, $2)
		on conflict do nothing
	`, roleID, permissionID)
	observe("permissions.assign_to_role", start, err)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *permissionStore) RemoveFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	aff, err := execRows(ctx, s.db, "permissions.remove_from_role",
		`delete from auth.role_permissions where role_id = $1 and permission_id = $2`, roleID, permissionID)
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// SetForRole replaces the role's grants with exactly the named
// permissions, in one transaction.
func (s *permissionStore) SetForRole(ctx context.Context, roleID uuid.UUID, names []string) error {
	start := time.Now()
	err := s.setForRole(ctx, roleID, names)
	observe("permissions.set_for_role", start, storageFaultOnly(err))
	return err
}

func (s *permissionStore) setForRole(ctx context.Context, roleID uuid.UUID, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from auth.roles where id = $1`, roleID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `delete from auth.role_permissions where role_id = $1`, roleID); err != nil {
		return err
	}

	for _, name := range names {
		var permID uuid.UUID
		err := tx.QueryRowContext(ctx, `select id from auth.permissions where name = $1`, name).Scan(&permID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: permission %s", auth.ErrNotFound, name)
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			insert into auth.role_permissions (role_id, permission_id)
			values ($1, $2)
		`, roleID, permID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *permissionStore) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, "permissions.delete",
		`delete from auth.permissions where id = $1`, id)
}
