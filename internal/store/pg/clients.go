package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vehiclemonitoring/authstore/internal/auth"
	"github.com/vehiclemonitoring/authstore/internal/ids"
)

const clientCols = `id, name, slug, metadata, is_active, created_at`

type clientStore struct {
	db *sql.DB
}

var _ auth.ClientStore = (*clientStore)(nil)

func scanClient(rs rowScanner) (*auth.Client, error) {
	var (
		c    auth.Client
		meta []byte
	)
	if err := rs.Scan(&c.ID, &c.Name, &c.Slug, &meta, &c.IsActive, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Metadata = meta
	return &c, nil
}

func collectClients(rows *sql.Rows) ([]*auth.Client, error) {
	defer rows.Close()
	var out []*auth.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *clientStore) one(ctx context.Context, op, query string, args ...any) (*auth.Client, error) {
	start := time.Now()
	c, err := scanClient(s.db.QueryRowContext(ctx, query, args...))
	observe(op, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *clientStore) list(ctx context.Context, op, query string, args ...any) ([]*auth.Client, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(op, start, err)
		return nil, err
	}
	out, err := collectClients(rows)
	observe(op, start, err)
	return out, err
}

func (s *clientStore) Create(ctx context.Context, c *auth.Client) error {
	if c.ID == uuid.Nil {
		c.ID = ids.New()
	}
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `
		insert into auth.clients (id, name, slug, metadata, is_active)
		values ($1, $2, $3, $4, $5)
		returning created_at
	`, c.ID, c.Name, c.Slug, emptyObjectIfNil(c.Metadata), c.IsActive).Scan(&c.CreatedAt)
	observe("clients.create", start, err)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *clientStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.Client, error) {
	return s.one(ctx, "clients.find_by_id",
		`select `+clientCols+` from auth.clients where id = $1`, id)
}

func (s *clientStore) FindBySlug(ctx context.Context, slug string) (*auth.Client, error) {
	return s.one(ctx, "clients.find_by_slug",
		`select `+clientCols+` from auth.clients where slug = $1`, slug)
}

func (s *clientStore) FindByName(ctx context.Context, name string) (*auth.Client, error) {
	return s.one(ctx, "clients.find_by_name",
		`select `+clientCols+` from auth.clients where name = $1`, name)
}

func (s *clientStore) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	return queryBool(ctx, s.db, "clients.exists_by_slug",
		`select exists (select 1 from auth.clients where slug = $1)`, slug)
}

func (s *clientStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	return queryBool(ctx, s.db, "clients.exists_by_name",
		`select exists (select 1 from auth.clients where name = $1)`, name)
}

func (s *clientStore) List(ctx context.Context) ([]*auth.Client, error) {
	return s.list(ctx, "clients.list",
		`select `+clientCols+` from auth.clients order by name asc`)
}

func (s *clientStore) ListActive(ctx context.Context) ([]*auth.Client, error) {
	return s.list(ctx, "clients.list_active",
		`select `+clientCols+` from auth.clients where is_active order by name asc`)
}

func (s *clientStore) ListByActive(ctx context.Context, active bool) ([]*auth.Client, error) {
	return s.list(ctx, "clients.list_by_active",
		`select `+clientCols+` from auth.clients where is_active = $1`, active)
}

func (s *clientStore) Search(ctx context.Context, text string) ([]*auth.Client, error) {
	return s.list(ctx, "clients.search",
		`select `+clientCols+` from auth.clients where name ilike $1 or slug ilike $1`,
		likePattern(text))
}

func (s *clientStore) SearchActive(ctx context.Context, text string) ([]*auth.Client, error) {
	return s.list(ctx, "clients.search_active",
		`select `+clientCols+` from auth.clients where is_active and (name ilike $1 or slug ilike $1)`,
		likePattern(text))
}

func (s *clientStore) CountActive(ctx context.Context) (int64, error) {
	return queryCount(ctx, s.db, "clients.count_active",
		`select count(*) from auth.clients where is_active`)
}

func (s *clientStore) Update(ctx context.Context, id uuid.UUID, upd auth.ClientUpdate) (*auth.Client, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Slug != nil {
		sets = append(sets, fmt.Sprintf("slug = $%d", idx))
		args = append(args, *upd.Slug)
		idx++
	}
	if upd.Metadata != nil {
		sets = append(sets, fmt.Sprintf("metadata = $%d", idx))
		args = append(args, []byte(upd.Metadata))
		idx++
	}
	if upd.IsActive != nil {
		sets = append(sets, fmt.Sprintf("is_active = $%d", idx))
		args = append(args, *upd.IsActive)
		idx++
	}
	if len(sets) > 0 {
		query := fmt.Sprintf(`update auth.clients set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		aff, err := execRows(ctx, s.db, "clients.update", query, args...)
		if err != nil {
			return nil, mapWriteError(err)
		}
		if aff == 0 {
			return nil, auth.ErrNotFound
		}
	}
	return s.FindByID(ctx, id)
}

func (s *clientStore) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, s.db, "clients.delete",
		`delete from auth.clients where id = $1`, id)
}
