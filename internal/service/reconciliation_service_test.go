package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/camp-school-api/internal/models"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
	"github.com/noah-isme/camp-school-api/pkg/jobs"
)

func newReconcileFixture(queue jobQueue) (*ReconciliationService, *enrollmentFixture) {
	f := newEnrollmentFixture()
	svc := NewReconciliationService(memPayments{f.store}, f.svc, queue, f.metrics, nil, ReconciliationConfig{GracePeriod: time.Minute, BatchSize: 10})
	svc.now = func() time.Time { return time.Unix(10_000, 0) }
	return svc, f
}

func flagged(reason string) *string { return &reason }

func TestReconcileEnrollsAfterSeatFreed(t *testing.T) {
	svc, f := newReconcileFixture(nil)
	class := f.store.addClass(models.ClassOffering{ClassName: "Pottery 101", InstructorEmail: "i@x.com", AvailableSeat: 0, Enrolled: 5})
	f.store.addSelection(models.SelectedClass{ClassID: class.ID, Email: "s@x.com", ClassName: "Pottery 101", InstructorEmail: "i@x.com"})

	_, err := f.svc.Finalize(context.Background(), potteryRequest("s@x.com"), studentClaims("s@x.com"))
	appErr := assertAppError(t, err, appErrors.ErrSeatUnavailable)
	paymentID := appErr.Details["payment_id"].(string)

	resp, err := svc.Reconcile(context.Background(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentStatusNeedsReview), resp.Status)
	assert.Equal(t, models.ReviewReasonSeatUnavailable, resp.Reason)

	f.store.mu.Lock()
	f.store.classes[class.ID].AvailableSeat = 1
	f.store.mu.Unlock()

	resp, err = svc.Reconcile(context.Background(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentStatusEnrolled), resp.Status)
	assert.Empty(t, resp.Reason)

	stored := f.store.class(class.ID)
	assert.Equal(t, 0, stored.AvailableSeat)
	assert.Equal(t, 6, stored.Enrolled)
	assert.Zero(t, f.store.selectionCount("s@x.com"))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.reconciliations.WithLabelValues(OutcomeEnrolled)))
}

func TestReconcileEnrolledPaymentIsNoop(t *testing.T) {
	svc, f := newReconcileFixture(nil)
	class := f.store.addClass(models.ClassOffering{ClassName: "Pottery 101", InstructorEmail: "i@x.com", AvailableSeat: 3})
	p, err := f.svc.Finalize(context.Background(), potteryRequest("s@x.com"), studentClaims("s@x.com"))
	require.NoError(t, err)

	resp, err := svc.Reconcile(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentStatusEnrolled), resp.Status)
	assert.Equal(t, 2, f.store.class(class.ID).AvailableSeat)
}

func TestReconcileMissingPayment(t *testing.T) {
	svc, _ := newReconcileFixture(nil)
	_, err := svc.Reconcile(context.Background(), "missing")
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestReconcileStorageFailureIsReturned(t *testing.T) {
	svc, f := newReconcileFixture(nil)
	f.store.addClass(models.ClassOffering{ID: "c1", ClassName: "Pottery 101", InstructorEmail: "i@x.com", AvailableSeat: 1})
	f.store.addPayment(models.Payment{ID: "p1", Email: "s@x.com", ClassName: "Pottery 101", InstructorEmail: "i@x.com", Price: 50, Status: models.PaymentStatusNeedsReview, ReviewReason: flagged(models.ReviewReasonStorageFailure)})
	f.store.commitErr = errors.New("connection reset")

	resp, err := svc.Reconcile(context.Background(), "p1")
	assertAppError(t, err, appErrors.ErrTransientStorage)
	require.NotNil(t, resp)
	assert.Equal(t, "p1", resp.PaymentID)
}

func TestSweepEnqueuesCandidates(t *testing.T) {
	queue := &fakeQueue{}
	svc, f := newReconcileFixture(queue)
	f.store.addPayment(models.Payment{ID: "review", Status: models.PaymentStatusNeedsReview, CreatedAt: time.Unix(9_990, 0)})
	f.store.addPayment(models.Payment{ID: "stale", Status: models.PaymentStatusPending, CreatedAt: time.Unix(9_000, 0)})
	f.store.addPayment(models.Payment{ID: "fresh", Status: models.PaymentStatusPending, CreatedAt: time.Unix(9_999, 0)})
	f.store.addPayment(models.Payment{ID: "done", Status: models.PaymentStatusEnrolled, CreatedAt: time.Unix(1, 0)})

	n, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, queue.jobs, 2)
	assert.Equal(t, "stale", queue.jobs[0].ID)
	assert.Equal(t, "review", queue.jobs[1].ID)
	assert.Equal(t, JobTypeReconcilePayment, queue.jobs[0].Type)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.reviewBacklog))
}

func TestSweepSkipsJobsInFlight(t *testing.T) {
	queue := &fakeQueue{err: jobs.ErrDuplicate}
	svc, f := newReconcileFixture(queue)
	f.store.addPayment(models.Payment{ID: "review", Status: models.PaymentStatusNeedsReview, CreatedAt: time.Unix(1, 0)})

	n, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepInlineWithoutQueue(t *testing.T) {
	svc, f := newReconcileFixture(nil)
	f.store.addClass(models.ClassOffering{ID: "c1", ClassName: "Pottery 101", InstructorEmail: "i@x.com", AvailableSeat: 1})
	f.store.addPayment(models.Payment{ID: "p1", Email: "s@x.com", ClassName: "Pottery 101", InstructorEmail: "i@x.com", Price: 50, Status: models.PaymentStatusPending, CreatedAt: time.Unix(1, 0)})

	n, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, ok := f.store.payment("p1")
	require.True(t, ok)
	assert.Equal(t, models.PaymentStatusEnrolled, p.Status)
}

func TestSweepListFailure(t *testing.T) {
	svc, f := newReconcileFixture(&fakeQueue{})
	f.store.listErr = errors.New("timeout")
	_, err := svc.Sweep(context.Background())
	assertAppError(t, err, appErrors.ErrTransientStorage)
}

func TestHandleJobReconciles(t *testing.T) {
	svc, f := newReconcileFixture(nil)
	f.store.addClass(models.ClassOffering{ID: "c1", ClassName: "Pottery 101", InstructorEmail: "i@x.com", AvailableSeat: 1})
	f.store.addPayment(models.Payment{ID: "p1", Email: "s@x.com", ClassName: "Pottery 101", InstructorEmail: "i@x.com", Price: 50, Status: models.PaymentStatusNeedsReview})

	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: "p1", Type: JobTypeReconcilePayment}))
	p, _ := f.store.payment("p1")
	assert.Equal(t, models.PaymentStatusEnrolled, p.Status)
}
