package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/camp-school-api/internal/dto"
	"github.com/noah-isme/camp-school-api/internal/models"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
	"github.com/noah-isme/camp-school-api/pkg/jobs"
)

// JobTypeReconcilePayment identifies reconciliation jobs on the queue.
const JobTypeReconcilePayment = "payment.reconcile"

type reconcilePaymentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	ListForReconciliation(ctx context.Context, staleBefore time.Time, limit int) ([]models.Payment, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// ReconciliationConfig tunes the background sweep.
type ReconciliationConfig struct {
	Interval    time.Duration
	GracePeriod time.Duration
	BatchSize   int
}

// ReconciliationService retries enrollment for payments that were recorded without a seat.
type ReconciliationService struct {
	payments   reconcilePaymentRepository
	enrollment *EnrollmentService
	queue      jobQueue
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        ReconciliationConfig
	now        func() time.Time
}

// NewReconciliationService constructs the service. With a nil queue, Sweep reconciles inline.
func NewReconciliationService(payments reconcilePaymentRepository, enrollment *EnrollmentService, queue jobQueue, metrics *MetricsService, logger *zap.Logger, cfg ReconciliationConfig) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 10 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &ReconciliationService{
		payments:   payments,
		enrollment: enrollment,
		queue:      queue,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Reconcile re-runs the seat commit for one payment. Business outcomes such as a still-full class
// are reported in the response; only storage failures are returned as errors.
func (s *ReconciliationService) Reconcile(ctx context.Context, paymentID string) (*dto.ReconcileResponse, error) {
	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Transient(err, "failed to fetch payment")
	}
	if p.Status == models.PaymentStatusEnrolled {
		s.metrics.RecordReconciliation(OutcomeAlreadyEnrolled)
		return &dto.ReconcileResponse{PaymentID: p.ID, Status: string(p.Status)}, nil
	}

	outcome, err := s.enrollment.settle(ctx, p)
	s.metrics.RecordReconciliation(outcome)
	s.logger.Info("payment reconciled", zap.String("payment_id", p.ID), zap.String("outcome", outcome))

	resp := &dto.ReconcileResponse{PaymentID: p.ID, Status: string(p.Status)}
	if p.ReviewReason != nil {
		resp.Reason = *p.ReviewReason
	}
	if outcome == OutcomeStorageError {
		return resp, err
	}
	return resp, nil
}

// HandleJob is the queue handler for reconciliation jobs.
func (s *ReconciliationService) HandleJob(ctx context.Context, job jobs.Job) error {
	_, err := s.Reconcile(ctx, job.ID)
	return err
}

// Sweep picks up payments awaiting review and pending payments older than the grace period.
// It returns how many payments were scheduled or processed.
func (s *ReconciliationService) Sweep(ctx context.Context) (int, error) {
	staleBefore := s.now().UTC().Add(-s.cfg.GracePeriod)
	candidates, err := s.payments.ListForReconciliation(ctx, staleBefore, s.cfg.BatchSize)
	if err != nil {
		return 0, appErrors.Transient(err, "failed to list payments for reconciliation")
	}
	s.metrics.SetReviewBacklog(len(candidates))

	scheduled := 0
	for _, p := range candidates {
		if s.queue == nil {
			if _, err := s.Reconcile(ctx, p.ID); err != nil {
				s.logger.Warn("inline reconciliation failed", zap.String("payment_id", p.ID), zap.Error(err))
				continue
			}
			scheduled++
			continue
		}
		err := s.queue.Enqueue(jobs.Job{ID: p.ID, Type: JobTypeReconcilePayment})
		switch {
		case err == nil:
			scheduled++
		case errors.Is(err, jobs.ErrDuplicate):
		default:
			s.logger.Warn("failed to enqueue reconciliation", zap.String("payment_id", p.ID), zap.Error(err))
		}
	}
	if len(candidates) > 0 {
		s.logger.Info("reconciliation sweep", zap.Int("candidates", len(candidates)), zap.Int("scheduled", scheduled))
	}
	return scheduled, nil
}

// StartScheduler runs Sweep every interval until ctx is cancelled.
func (s *ReconciliationService) StartScheduler(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					s.logger.Warn("reconciliation sweep failed", zap.Error(err))
				}
			}
		}
	}()
	s.logger.Info("reconciliation scheduler started", zap.Duration("interval", s.cfg.Interval))
}
