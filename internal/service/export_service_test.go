package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/camp-school-api/internal/models"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
	"github.com/noah-isme/camp-school-api/pkg/export"
)

func newExportFixture() (*ExportService, *memStore) {
	f := newEnrollmentFixture()
	svc := NewExportService(f.svc, export.NewCSVExporter(), export.NewPDFExporter("Camp School"), "usd", nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	return svc, f.store
}

func TestReceiptForEnrolledPayment(t *testing.T) {
	svc, store := newExportFixture()
	classID, txID := "c1", "pi_1"
	store.addPayment(models.Payment{ID: "p1", Email: "s@x.com", ClassID: &classID, ClassName: "Pottery", InstructorEmail: "i@x.com", Price: 50, TransactionID: &txID, Status: models.PaymentStatusEnrolled})

	file, err := svc.Receipt(context.Background(), "p1", studentClaims("s@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "receipt-p1.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

func TestReceiptRequiresEnrollment(t *testing.T) {
	svc, store := newExportFixture()
	store.addPayment(models.Payment{ID: "p1", Email: "s@x.com", ClassName: "Pottery", Price: 50, Status: models.PaymentStatusNeedsReview})

	_, err := svc.Receipt(context.Background(), "p1", studentClaims("s@x.com"))
	appErr := assertAppError(t, err, appErrors.ErrConflict)
	assert.Equal(t, models.PaymentStatusNeedsReview, appErr.Details["status"])

	_, err = svc.Receipt(context.Background(), "p1", studentClaims("other@x.com"))
	assertAppError(t, err, appErrors.ErrForbidden)
}

func TestPaymentsCSVWalksAllPages(t *testing.T) {
	svc, store := newExportFixture()
	for i := 0; i < 150; i++ {
		store.addPayment(models.Payment{Email: fmt.Sprintf("s%d@x.com", i), ClassName: "Pottery", Price: 19.5, Status: models.PaymentStatusEnrolled})
	}
	store.addPayment(models.Payment{Email: "late@x.com", ClassName: "Pottery", Price: 19.5, Status: models.PaymentStatusPending})

	status := models.PaymentStatusEnrolled
	file, err := svc.PaymentsCSV(context.Background(), models.PaymentFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "payments-20240501-093000.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 151)
	assert.Equal(t, "Payment ID", records[0][0])
	assert.Equal(t, "19.50", records[1][5])
	assert.Equal(t, "ENROLLED", records[1][7])
}

func TestPaymentsCSVEmpty(t *testing.T) {
	svc, _ := newExportFixture()
	file, err := svc.PaymentsCSV(context.Background(), models.PaymentFilter{})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
