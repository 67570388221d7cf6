package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"tenauth.org/internal/identity"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func TestUserStoreCreate(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectExec("insert into users").
		WithArgs("u1", "bob", "hash", true, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into user_roles").
		WithArgs("u1", "ROLE_ACME_LOCAL_USER").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Users().Create(context.Background(), &identity.User{
		ID:           "u1",
		Login:        "bob",
		PasswordHash: "hash",
		Enabled:      true,
		Roles:        []string{"role_acme_local_user"},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserStoreCreateMapsUniqueViolation(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.Users().Create(context.Background(), &identity.User{ID: "u1", Login: "bob"})
	if !errors.Is(err, identity.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
}

func TestUserStoreCreateMapsForeignKeyViolation(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectExec("insert into users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into user_roles").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := store.Users().Create(context.Background(), &identity.User{
		ID: "u1", Login: "bob", Roles: []string{"ROLE_GONE_LOCAL_USER"},
		CreatedAt: now, UpdatedAt: now,
	})
	if !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUserStoreFindByID(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("from users where id").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "password_hash", "enabled", "created_at", "updated_at"}).
			AddRow("u1", "bob", "hash", true, now, now))
	mock.ExpectQuery("select role_name from user_roles").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"role_name"}).
			AddRow("ROLE_ACME_LOCAL_USER").
			AddRow("ROLE_OTHER_LOCAL_USER"))

	u, err := store.Users().FindByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if u.Login != "bob" || len(u.Roles) != 2 {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserStoreFindByLoginMissing(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("from users where login").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "password_hash", "enabled", "created_at", "updated_at"}))

	if _, err := store.Users().FindByLogin(context.Background(), "ghost"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUserStoreListAssemblesRoles(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("left join user_roles").
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "password_hash", "enabled", "created_at", "updated_at", "role_name"}).
			AddRow("u1", "alice", "h1", true, now, now, "ROLE_ACME_LOCAL_ADMIN").
			AddRow("u1", "alice", "h1", true, now, now, "ROLE_ACME_LOCAL_USER").
			AddRow("u2", "bob", "h2", false, now, now, nil))

	users, err := store.Users().List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}
	if len(users[0].Roles) != 2 {
		t.Fatalf("alice roles = %v", users[0].Roles)
	}
	if len(users[1].Roles) != 0 || users[1].Enabled {
		t.Fatalf("bob = %+v", users[1])
	}
}

func TestUserStoreUpdate(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectExec("update users set password_hash").
		WithArgs("u1", "newhash", false, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Users().Update(context.Background(), &identity.User{
		ID: "u1", PasswordHash: "newhash", Enabled: false, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	mock.ExpectExec("update users set password_hash").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = store.Users().Update(context.Background(), &identity.User{ID: "nope"})
	if !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUserStoreDelete(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("delete from users").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Users().Delete(context.Background(), "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	mock.ExpectExec("delete from users").
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.Users().Delete(context.Background(), "nope"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestStoreWithinTx(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("insert into users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(st identity.Store) error {
		return st.Users().Create(context.Background(), &identity.User{
			ID: "u1", Login: "bob", CreatedAt: now, UpdatedAt: now,
		})
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreWithinTxRollsBackOnError(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(identity.Store) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
