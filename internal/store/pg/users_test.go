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

var userColumns = []string{"id", "client_id", "email", "full_name", "password_hash",
	"is_active", "is_email_verified", "last_login", "created_at"}

func TestUserFindByEmailAndClient(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	userID := ids.New()
	clientID := ids.New()
	mock.ExpectQuery("from auth.users where email").
		WithArgs("ops@acme.test", clientID).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID.String(), clientID.String(), "ops@acme.test", "Ops Admin", "hash",
				true, true, nil, time.Now()))

	u, err := New(db).Users().FindByEmailAndClient(context.Background(), "ops@acme.test", clientID)
	if err != nil {
		t.Fatalf("FindByEmailAndClient: %v", err)
	}
	if u.ID != userID || u.ClientID != clientID {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.LastLogin != nil {
		t.Fatalf("expected nil last login, got %v", u.LastLogin)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserListByPermissionName(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	clientID := ids.New()
	mock.ExpectQuery("select distinct .*from auth.users u.*join auth.role_permissions").
		WithArgs("vehicles:read", clientID).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(ids.New().String(), clientID.String(), "driver@acme.test", nil, "hash",
				true, false, time.Now(), time.Now()))

	out, err := New(db).Users().ListByPermissionName(context.Background(), "vehicles:read", clientID)
	if err != nil {
		t.Fatalf("ListByPermissionName: %v", err)
	}
	if len(out) != 1 || out[0].Email != "driver@acme.test" {
		t.Fatalf("unexpected result: %+v", out)
	}
	if out[0].FullName != "" {
		t.Fatalf("expected empty full name, got %q", out[0].FullName)
	}
	if out[0].LastLogin == nil {
		t.Fatalf("expected last login to be set")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserSearchScopedToClient(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	clientID := ids.New()
	mock.ExpectQuery("from auth.users.*where client_id").
		WithArgs(clientID, "%smith%").
		WillReturnRows(sqlmock.NewRows(userColumns))

	out, err := New(db).Users().Search(context.Background(), "smith", clientID)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %+v", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRecordLoginMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := ids.New()
	at := time.Now()
	mock.ExpectExec("update auth.users set last_login").
		WithArgs(id, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = New(db).Users().RecordLogin(context.Background(), id, at)
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserCountActiveByClient(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	clientID := ids.New()
	mock.ExpectQuery("select count.* from auth.users where client_id").
		WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := New(db).Users().CountActiveByClient(context.Background(), clientID)
	if err != nil {
		t.Fatalf("CountActiveByClient: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}
}
