package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/ekinsu/auth-service/internal/model"
)

func testUser() *model.User {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &model.User{
		ID:           "7b7f2f3c-0000-0000-0000-000000000001",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "$2a$04$hash",
		PhoneNumber:  "5551234567",
		Roles:        []model.Role{model.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    "ada@example.com",
		UpdatedBy:    "ada@example.com",
	}
}

func dupEmailErr() error {
	return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ada@example.com' for key 'uq_users_email'"}
}

func TestSaveInsertsNewUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewUserRepo(db)
	u := testUser()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs(u.ID).
		WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(false))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM user_roles").WithArgs(u.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO user_roles").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Save(context.Background(), u); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// A racing sign-up that passed the existence pre-check must lose to the
// unique email index: the insert errors, nothing is written, and the
// row already holding the email is never touched.
func TestSaveNewIDTakenEmailFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewUserRepo(db)
	u := testUser()
	u.ID = "7b7f2f3c-0000-0000-0000-000000000002"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs(u.ID).
		WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(false))
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(dupEmailErr())
	mock.ExpectRollback()

	if err := repo.Save(context.Background(), u); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("save err = %v, want ErrEmailExists", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveUpdatesExistingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewUserRepo(db)
	u := testUser()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs(u.ID).
		WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))
	mock.ExpectExec("UPDATE users SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM user_roles").WithArgs(u.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_roles").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Save(context.Background(), u); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveUpdateToTakenEmailFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewUserRepo(db)
	u := testUser()
	u.Email = "taken@example.com"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs(u.ID).
		WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))
	mock.ExpectExec("UPDATE users SET").
		WillReturnError(dupEmailErr())
	mock.ExpectRollback()

	if err := repo.Save(context.Background(), u); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("save err = %v, want ErrEmailExists", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !isDuplicateKey(dupEmailErr()) {
		t.Fatal("1062 not recognized as duplicate key")
	}
	if isDuplicateKey(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}) {
		t.Fatal("non-duplicate MySQL error recognized as duplicate key")
	}
	if isDuplicateKey(errors.New("boom")) {
		t.Fatal("plain error recognized as duplicate key")
	}
}
