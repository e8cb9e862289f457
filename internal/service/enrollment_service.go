package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/camp-school-api/internal/dto"
	"github.com/noah-isme/camp-school-api/internal/models"
	"github.com/noah-isme/camp-school-api/internal/repository"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
	"github.com/noah-isme/camp-school-api/pkg/events"
)

type paymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	ListByEmail(ctx context.Context, email string) ([]models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	MarkNeedsReview(ctx context.Context, id, reason string) error
}

type classResolver interface {
	FindByID(ctx context.Context, id string) (*models.ClassOffering, error)
	FindByNameAndInstructor(ctx context.Context, className, instructorEmail string) ([]models.ClassOffering, error)
}

type enrollmentCommitter interface {
	Commit(ctx context.Context, in repository.EnrollmentCommit) (int64, error)
}

type catalogInvalidator interface {
	InvalidateCatalog(ctx context.Context)
}

// EnrollmentEvent is the payload published for enrollment outcomes.
type EnrollmentEvent struct {
	PaymentID         string               `json:"payment_id"`
	Email             string               `json:"email"`
	ClassID           string               `json:"class_id,omitempty"`
	ClassName         string               `json:"class_name"`
	InstructorEmail   string               `json:"instructor_email"`
	Price             float64              `json:"price"`
	Status            models.PaymentStatus `json:"status"`
	Reason            string               `json:"reason,omitempty"`
	SelectionsCleared int64                `json:"selections_cleared"`
}

// EnrollmentService turns confirmed payments into seats.
type EnrollmentService struct {
	payments    paymentRepository
	classes     classResolver
	enrollments enrollmentCommitter
	catalog     catalogInvalidator
	publisher   events.Publisher
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// EnrollmentDeps groups the collaborators of EnrollmentService.
type EnrollmentDeps struct {
	Payments    paymentRepository
	Classes     classResolver
	Enrollments enrollmentCommitter
	Catalog     catalogInvalidator
	Publisher   events.Publisher
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(deps EnrollmentDeps) *EnrollmentService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	return &EnrollmentService{
		payments:    deps.Payments,
		classes:     deps.Classes,
		enrollments: deps.Enrollments,
		catalog:     deps.Catalog,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		validator:   deps.Validator,
		logger:      deps.Logger,
	}
}

// Finalize records the payment, then takes a seat and clears the payer's selection. The payment
// row is written first and is kept whatever happens afterwards; failures after it leave the
// payment in NEEDS_REVIEW and carry its id in the error details.
func (s *EnrollmentService) Finalize(ctx context.Context, req dto.FinalizePaymentRequest, claims *models.JWTClaims) (*models.Payment, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid payment payload")
	}
	if !sameEmail(req.Email, claims.Email) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "payer email does not match the authenticated user")
	}

	txID := strings.TrimSpace(req.TransactionID)
	if txID != "" {
		existing, err := s.payments.FindByTransactionID(ctx, txID)
		switch {
		case err == nil:
			return nil, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrConflict, "transaction already recorded"),
				map[string]interface{}{"payment_id": existing.ID},
			)
		case !errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Transient(err, "failed to check transaction")
		}
	}

	p := &models.Payment{
		Email:           req.Email,
		ClassName:       strings.TrimSpace(req.ClassName),
		InstructorEmail: req.InstructorEmail,
		Price:           req.Price,
		Status:          models.PaymentStatusPending,
		Metadata:        paymentMetadata(req),
	}
	if id := strings.TrimSpace(req.ClassID); id != "" {
		p.ClassID = &id
	}
	if txID != "" {
		p.TransactionID = &txID
	}
	if err := s.payments.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "transaction already recorded")
		}
		s.metrics.RecordFinalization(OutcomeStorageError)
		return nil, appErrors.Transient(err, "failed to record payment")
	}
	s.logger.Info("payment recorded", zap.String("payment_id", p.ID), zap.String("email", p.Email))

	outcome, err := s.settle(ctx, p)
	s.metrics.RecordFinalization(outcome)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// settle resolves the class of p and commits the enrollment. p is updated in place to reflect
// the stored status. The returned outcome is one of the Outcome* labels.
func (s *EnrollmentService) settle(ctx context.Context, p *models.Payment) (string, error) {
	class, outcome, err := s.resolveClass(ctx, p)
	if err != nil {
		return outcome, err
	}

	removed, err := s.enrollments.Commit(ctx, repository.EnrollmentCommit{
		PaymentID:       p.ID,
		ClassID:         class.ID,
		Email:           p.Email,
		ClassName:       p.ClassName,
		InstructorEmail: p.InstructorEmail,
	})
	switch {
	case err == nil:
		classID := class.ID
		p.ClassID = &classID
		p.Status = models.PaymentStatusEnrolled
		p.ReviewReason = nil
		if s.catalog != nil {
			s.catalog.InvalidateCatalog(ctx)
		}
		s.publish(ctx, events.EventEnrollmentFinalized, p, removed)
		s.logger.Info("enrollment committed", zap.String("payment_id", p.ID), zap.String("class_id", class.ID), zap.Int64("selections_cleared", removed))
		return OutcomeEnrolled, nil
	case errors.Is(err, repository.ErrAlreadyEnrolled):
		if stored, ferr := s.payments.FindByID(ctx, p.ID); ferr == nil {
			*p = *stored
		} else {
			p.Status = models.PaymentStatusEnrolled
		}
		return OutcomeAlreadyEnrolled, nil
	case errors.Is(err, repository.ErrSeatUnavailable):
		s.markReview(ctx, p, models.ReviewReasonSeatUnavailable)
		return OutcomeSeatUnavailable, withPaymentID(appErrors.Clone(appErrors.ErrSeatUnavailable, "no seat available for this class"), p.ID)
	default:
		s.logger.Error("enrollment commit failed", zap.String("payment_id", p.ID), zap.Error(err))
		s.markReview(ctx, p, models.ReviewReasonStorageFailure)
		return OutcomeStorageError, withPaymentID(appErrors.Transient(err, "failed to commit enrollment"), p.ID)
	}
}

func (s *EnrollmentService) resolveClass(ctx context.Context, p *models.Payment) (*models.ClassOffering, string, error) {
	if p.ClassID != nil && *p.ClassID != "" {
		class, err := s.classes.FindByID(ctx, *p.ClassID)
		switch {
		case err == nil:
			return class, "", nil
		case errors.Is(err, sql.ErrNoRows):
			s.markReview(ctx, p, models.ReviewReasonClassNotFound)
			return nil, OutcomeClassNotFound, withPaymentID(appErrors.Clone(appErrors.ErrClassNotFound, "class not found"), p.ID)
		default:
			s.markReview(ctx, p, models.ReviewReasonStorageFailure)
			return nil, OutcomeStorageError, withPaymentID(appErrors.Transient(err, "failed to look up class"), p.ID)
		}
	}

	matches, err := s.classes.FindByNameAndInstructor(ctx, p.ClassName, p.InstructorEmail)
	if err != nil {
		s.markReview(ctx, p, models.ReviewReasonStorageFailure)
		return nil, OutcomeStorageError, withPaymentID(appErrors.Transient(err, "failed to look up class"), p.ID)
	}
	switch len(matches) {
	case 0:
		s.markReview(ctx, p, models.ReviewReasonClassNotFound)
		return nil, OutcomeClassNotFound, withPaymentID(appErrors.Clone(appErrors.ErrClassNotFound, "class not found"), p.ID)
	case 1:
		return &matches[0], "", nil
	default:
		s.markReview(ctx, p, models.ReviewReasonAmbiguousClass)
		return nil, OutcomeAmbiguousClass, withPaymentID(appErrors.Clone(appErrors.ErrConflict, "class reference matches more than one class"), p.ID)
	}
}

func (s *EnrollmentService) markReview(ctx context.Context, p *models.Payment, reason string) {
	if err := s.payments.MarkNeedsReview(ctx, p.ID, reason); err != nil {
		s.logger.Error("failed to flag payment for review", zap.String("payment_id", p.ID), zap.String("reason", reason), zap.Error(err))
		return
	}
	p.Status = models.PaymentStatusNeedsReview
	r := reason
	p.ReviewReason = &r
	s.publish(ctx, events.EventEnrollmentNeedsReview, p, 0)
}

func (s *EnrollmentService) publish(ctx context.Context, eventType string, p *models.Payment, removed int64) {
	payload := EnrollmentEvent{
		PaymentID:         p.ID,
		Email:             p.Email,
		ClassName:         p.ClassName,
		InstructorEmail:   p.InstructorEmail,
		Price:             p.Price,
		Status:            p.Status,
		SelectionsCleared: removed,
	}
	if p.ClassID != nil {
		payload.ClassID = *p.ClassID
	}
	if p.ReviewReason != nil {
		payload.Reason = *p.ReviewReason
	}
	if err := s.publisher.Publish(ctx, eventType, p.ID, payload); err != nil {
		s.logger.Warn("failed to publish enrollment event", zap.String("event_type", eventType), zap.String("payment_id", p.ID), zap.Error(err))
	}
}

// ListEnrolled returns every payment of email, newest first. Only the payer may read them.
func (s *EnrollmentService) ListEnrolled(ctx context.Context, email string, claims *models.JWTClaims) ([]models.Payment, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if !sameEmail(email, claims.Email) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Forbidden Access")
	}
	list, err := s.payments.ListByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.Transient(err, "failed to list payments")
	}
	return list, nil
}

// GetPayment returns a payment readable by its payer or an admin.
func (s *EnrollmentService) GetPayment(ctx context.Context, id string, claims *models.JWTClaims) (*models.Payment, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	p, err := s.payments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Transient(err, "failed to fetch payment")
	}
	if !sameEmail(p.Email, claims.Email) && claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "payment belongs to another user")
	}
	return p, nil
}

// ListPayments lists payments for administrators.
func (s *EnrollmentService) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment status")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	list, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Transient(err, "failed to list payments")
	}
	return list, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func withPaymentID(err *appErrors.Error, paymentID string) *appErrors.Error {
	return appErrors.WithDetails(err, map[string]interface{}{"payment_id": paymentID})
}

func paymentMetadata(req dto.FinalizePaymentRequest) types.NullJSONText {
	if len(req.Raw) > 0 && json.Valid(req.Raw) {
		return types.NullJSONText{JSONText: types.JSONText(req.Raw), Valid: true}
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return types.NullJSONText{}
	}
	return types.NullJSONText{JSONText: types.JSONText(raw), Valid: true}
}
