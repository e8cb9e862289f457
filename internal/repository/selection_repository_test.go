package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/camp-school-api/internal/models"
)

func TestSelectionCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSelectionRepository(db)

	mock.ExpectExec("INSERT INTO selected_classes").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.SelectedClass{ClassID: "c-1", Email: "s@x.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectionListByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSelectionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "class_id", "email", "class_name", "instructor_email", "price", "image", "created_at"}).
		AddRow("sel-1", "c-1", "s@x.com", "Pottery 101", "i@x.com", 50.0, "", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM selected_classes WHERE email = LOWER($1) ORDER BY created_at ASC")).
		WithArgs("S@x.com").
		WillReturnRows(rows)

	list, err := repo.ListByEmail(context.Background(), "S@x.com")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c-1", list[0].ClassID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectionDeleteAbsentIsNotAnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSelectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM selected_classes WHERE id = $1")).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.DeleteByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
