package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vehiclemonitoring/authstore/internal/auth"
	"github.com/vehiclemonitoring/authstore/internal/ids"
)

var clientColumns = []string{"id", "name", "slug", "metadata", "is_active", "created_at"}

func TestClientFindBySlug(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := ids.New()
	now := time.Now()
	mock.ExpectQuery("select id, name, slug, metadata, is_active, created_at from auth.clients where slug").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(clientColumns).
			AddRow(id.String(), "Acme Fleet", "acme", []byte(`{}`), true, now))

	c, err := New(db).Clients().FindBySlug(context.Background(), "acme")
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if c.ID != id || c.Name != "Acme Fleet" || !c.IsActive {
		t.Fatalf("unexpected client: %+v", c)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClientFindBySlugNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("from auth.clients where slug").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(clientColumns))

	_, err = New(db).Clients().FindBySlug(context.Background(), "ghost")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientCreateDuplicateSlug(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("insert into auth.clients").
		WithArgs(sqlmock.AnyArg(), "Acme Fleet", "acme", []byte(`{}`), true).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err = New(db).Clients().Create(context.Background(), auth.NewClient("Acme Fleet", "acme"))
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestClientSearchActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("from auth.clients where is_active and").
		WithArgs("%ali%").
		WillReturnRows(sqlmock.NewRows(clientColumns).
			AddRow(ids.New().String(), "Alice Logistics", "alice", []byte(`{}`), true, time.Now()))

	out, err := New(db).Clients().SearchActive(context.Background(), "ali")
	if err != nil {
		t.Fatalf("SearchActive: %v", err)
	}
	if len(out) != 1 || out[0].Slug != "alice" {
		t.Fatalf("unexpected result: %+v", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClientUpdatePartial(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := ids.New()
	name := "Acme Fleet EU"
	mock.ExpectExec("update auth.clients set name").
		WithArgs(name, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("from auth.clients where id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(clientColumns).
			AddRow(id.String(), name, "acme", []byte(`{}`), true, time.Now()))

	c, err := New(db).Clients().Update(context.Background(), id, auth.ClientUpdate{Name: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if c.Name != name {
		t.Fatalf("name not updated: %+v", c)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClientDeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := ids.New()
	mock.ExpectExec("delete from auth.clients where id").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = New(db).Clients().Delete(context.Background(), id)
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
