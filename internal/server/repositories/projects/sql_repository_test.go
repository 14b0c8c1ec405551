package projects

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/threelizards/safe-variables/internal/common"
	"github.com/threelizards/safe-variables/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db), mock, db
}

func testProject() *models.Project {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &models.Project{
		ID:        "p-1",
		UserID:    "u-1",
		Name:      "backend",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+projects`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), testProject()); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestListByOwner_DerivedCounts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	p := testProject()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "name", "description", "created_at", "updated_at", "count", "sum",
	}).AddRow(p.ID, p.UserID, p.Name, p.Description, p.CreatedAt, p.UpdatedAt, 3, 1)

	mock.ExpectQuery(`(?s)^SELECT\s+.*COUNT\(v\.id\).*FROM\s+projects\s+p\s+LEFT\s+JOIN\s+variables`).
		WithArgs("u-1").
		WillReturnRows(rows)

	got, err := repo.ListByOwner(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 project, got %d", len(got))
	}
	if got[0].VariableCount != 3 || got[0].SecretCount != 1 {
		t.Fatalf("unexpected counts: %+v", got[0])
	}
}

func TestGetForOwner_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+.*FROM\s+projects`).
		WithArgs("p-1", "someone-else").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetForOwner(context.Background(), "p-1", "someone-else")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestUpdate_ZeroRowsIsNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+projects`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), testProject())
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestDelete_ScopedToOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+projects`).
		WithArgs("p-1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "p-1", "u-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+projects`).
		WithArgs("p-1", "someone-else").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "p-1", "someone-else"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+projects`).
		WillReturnError(errors.New("connection reset"))

	if err := repo.Create(context.Background(), testProject()); err == nil {
		t.Fatal("expected error")
	}
}
