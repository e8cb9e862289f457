package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/camp-school-api/internal/dto"
	"github.com/noah-isme/camp-school-api/internal/models"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
)

func newSelectionFixture() (*SelectionService, *memStore) {
	store := newMemStore()
	store.addClass(models.ClassOffering{ID: "open", ClassName: "Pottery", InstructorEmail: "i@x.com", Price: 50, AvailableSeat: 2, Status: models.ClassStatusApproved})
	store.addClass(models.ClassOffering{ID: "full", ClassName: "Glazing", InstructorEmail: "i@x.com", AvailableSeat: 0, Status: models.ClassStatusApproved})
	store.addClass(models.ClassOffering{ID: "pending", ClassName: "Kiln", InstructorEmail: "i@x.com", AvailableSeat: 5, Status: models.ClassStatusPending})
	return NewSelectionService(memSelections{store}, memClasses{store}, nil, nil), store
}

func TestSelectCopiesClassFields(t *testing.T) {
	svc, _ := newSelectionFixture()

	sel, err := svc.Select(context.Background(), dto.SelectClassRequest{ClassID: "open"}, studentClaims("s@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "open", sel.ClassID)
	assert.Equal(t, "s@x.com", sel.Email)
	assert.Equal(t, "Pottery", sel.ClassName)
	assert.Equal(t, "i@x.com", sel.InstructorEmail)
	assert.Equal(t, 50.0, sel.Price)
}

func TestSelectRejections(t *testing.T) {
	cases := []struct {
		name    string
		classID string
		want    *appErrors.Error
	}{
		{name: "missing id", classID: "", want: appErrors.ErrValidation},
		{name: "unknown class", classID: "nope", want: appErrors.ErrClassNotFound},
		{name: "full class", classID: "full", want: appErrors.ErrSeatUnavailable},
		{name: "not approved", classID: "pending", want: appErrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newSelectionFixture()
			_, err := svc.Select(context.Background(), dto.SelectClassRequest{ClassID: tc.classID}, studentClaims("s@x.com"))
			assertAppError(t, err, tc.want)
			assert.Zero(t, store.selectionCount("s@x.com"))
		})
	}
}

func TestSelectTwiceConflicts(t *testing.T) {
	svc, store := newSelectionFixture()
	_, err := svc.Select(context.Background(), dto.SelectClassRequest{ClassID: "open"}, studentClaims("s@x.com"))
	require.NoError(t, err)

	_, err = svc.Select(context.Background(), dto.SelectClassRequest{ClassID: "open"}, studentClaims("s@x.com"))
	assertAppError(t, err, appErrors.ErrConflict)
	assert.Equal(t, 1, store.selectionCount("s@x.com"))
}

func TestListSelectionsOwnerOnly(t *testing.T) {
	svc, store := newSelectionFixture()
	store.addSelection(models.SelectedClass{ClassID: "open", Email: "s@x.com"})

	list, err := svc.List(context.Background(), "s@x.com", studentClaims("s@x.com"))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.List(context.Background(), "", studentClaims("s@x.com"))
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.List(context.Background(), "s@x.com", studentClaims("other@x.com"))
	appErr := assertAppError(t, err, appErrors.ErrForbidden)
	assert.Equal(t, "Forbidden Access", appErr.Message)
}

func TestRemoveSelection(t *testing.T) {
	svc, store := newSelectionFixture()
	store.addSelection(models.SelectedClass{ID: "sel-1", ClassID: "open", Email: "s@x.com"})

	_, err := svc.Remove(context.Background(), "sel-1", studentClaims("other@x.com"))
	assertAppError(t, err, appErrors.ErrForbidden)
	assert.Equal(t, 1, store.selectionCount("s@x.com"))

	res, err := svc.Remove(context.Background(), "sel-1", studentClaims("s@x.com"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Deleted)

	res, err = svc.Remove(context.Background(), "sel-1", studentClaims("s@x.com"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Deleted)
}

func TestGetSelection(t *testing.T) {
	svc, store := newSelectionFixture()
	store.addSelection(models.SelectedClass{ID: "sel-1", ClassID: "open", Email: "s@x.com"})

	sel, err := svc.Get(context.Background(), "sel-1", studentClaims("S@X.com"))
	require.NoError(t, err)
	assert.Equal(t, "open", sel.ClassID)

	_, err = svc.Get(context.Background(), "sel-1", studentClaims("other@x.com"))
	assertAppError(t, err, appErrors.ErrForbidden)

	_, err = svc.Get(context.Background(), "missing", studentClaims("s@x.com"))
	assertAppError(t, err, appErrors.ErrNotFound)
}
