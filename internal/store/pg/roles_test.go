package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/vehiclemonitoring/authstore/internal/auth"
	"github.com/vehiclemonitoring/authstore/internal/ids"
)

var roleColumns = []string{"id", "client_id", "name", "description", "is_system", "created_at"}

func TestRoleFindByNameAndClient(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	roleID := ids.New()
	clientID := ids.New()
	mock.ExpectQuery("from auth.roles where name").
		WithArgs("admin", clientID).
		WillReturnRows(sqlmock.NewRows(roleColumns).
			AddRow(roleID.String(), clientID.String(), "admin", "Full tenant access", true, time.Now()))

	r, err := New(db).Roles().FindByNameAndClient(context.Background(), "admin", clientID)
	if err != nil {
		t.Fatalf("FindByNameAndClient: %v", err)
	}
	if r.ID != roleID || !r.IsSystem {
		t.Fatalf("unexpected role: %+v", r)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleAssignUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	roleID := ids.New()
	userID := ids.New()
	clientID := ids.New()

	mock.ExpectBegin()
	mock.ExpectQuery("select client_id from auth.roles where id").
		WithArgs(roleID).
		WillReturnRows(sqlmock.NewRows([]string{"client_id"}).AddRow(clientID.String()))
	mock.ExpectQuery("select client_id from auth.users where id").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"client_id"}).AddRow(clientID.String()))
	mock.ExpectExec("insert into auth.user_roles").
		WithArgs(userID, roleID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := New(db).Roles().AssignUser(context.Background(), roleID, userID); err != nil {
		t.Fatalf("AssignUser: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleAssignUserClientMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	roleID := ids.New()
	userID := ids.New()

	mock.ExpectBegin()
	mock.ExpectQuery("select client_id from auth.roles where id").
		WithArgs(roleID).
		WillReturnRows(sqlmock.NewRows([]string{"client_id"}).AddRow(ids.New().String()))
	mock.ExpectQuery("select client_id from auth.users where id").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"client_id"}).AddRow(ids.New().String()))
	mock.ExpectRollback()

	err = New(db).Roles().AssignUser(context.Background(), roleID, userID)
	if !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleAssignUserMissingRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	roleID := ids.New()
	userID := ids.New()

	mock.ExpectBegin()
	mock.ExpectQuery("select client_id from auth.roles where id").
		WithArgs(roleID).
		WillReturnRows(sqlmock.NewRows([]string{"client_id"}))
	mock.ExpectRollback()

	err = New(db).Roles().AssignUser(context.Background(), roleID, userID)
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoleRemoveUserNotAssigned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	roleID := ids.New()
	userID := ids.New()
	mock.ExpectExec("delete from auth.user_roles").
		WithArgs(roleID, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = New(db).Roles().RemoveUser(context.Background(), roleID, userID)
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoleListCustomByClient(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	clientID := ids.New()
	mock.ExpectQuery("from auth.roles where client_id .* not is_system").
		WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows(roleColumns).
			AddRow(ids.New().String(), clientID.String(), "dispatcher", nil, false, time.Now()))

	out, err := New(db).Roles().ListCustomByClient(context.Background(), clientID)
	if err != nil {
		t.Fatalf("ListCustomByClient: %v", err)
	}
	if len(out) != 1 || out[0].Name != "dispatcher" || out[0].IsSystem {
		t.Fatalf("unexpected result: %+v", out)
	}
	if out[0].Description != "" {
		t.Fatalf("expected empty description, got %q", out[0].Description)
	}
}
