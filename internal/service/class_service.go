package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/camp-school-api/internal/dto"
	"github.com/noah-isme/camp-school-api/internal/models"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
)

// CatalogCachePattern matches every cached catalog listing.
const CatalogCachePattern = "classes:*"

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassOffering, error)
	FindByID(ctx context.Context, id string) (*models.ClassOffering, error)
	Create(ctx context.Context, class *models.ClassOffering) error
	Update(ctx context.Context, class *models.ClassOffering) error
	UpdateStatus(ctx context.Context, id string, status models.ClassStatus, feedback string) error
}

// ClassService manages the class catalog.
type ClassService struct {
	repo      classRepository
	users     authUserRepository
	audit     auditRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService. cache may be nil.
func NewClassService(repo classRepository, users authUserRepository, audit auditRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, users: users, audit: audit, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

func catalogKey(status *models.ClassStatus) string {
	if status == nil {
		return "classes:all"
	}
	return "classes:status:" + string(*status)
}

// List returns the catalog, optionally filtered by status. The second value reports a cache hit.
func (s *ClassService) List(ctx context.Context, status *models.ClassStatus) ([]models.ClassOffering, bool, error) {
	if status != nil && !status.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "unknown class status")
	}
	var cached []models.ClassOffering
	value, hit, err := s.cache.Remember(ctx, catalogKey(status), s.cacheTTL, &cached, func(ctx context.Context) (interface{}, error) {
		return s.repo.List(ctx, models.ClassFilter{Status: status})
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	if hit {
		return cached, true, nil
	}
	return value.([]models.ClassOffering), false, nil
}

// ListByInstructor returns the classes offered by an instructor. An empty email yields an empty list.
func (s *ClassService) ListByInstructor(ctx context.Context, instructorEmail string) ([]models.ClassOffering, error) {
	instructorEmail = strings.TrimSpace(instructorEmail)
	if instructorEmail == "" {
		return []models.ClassOffering{}, nil
	}
	classes, err := s.repo.List(ctx, models.ClassFilter{InstructorEmail: instructorEmail})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor classes")
	}
	return classes, nil
}

// Get returns a single class offering.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassOffering, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrClassNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	return class, nil
}

// Create adds a class for the calling instructor. New classes start pending with nobody enrolled.
func (s *ClassService) Create(ctx context.Context, req dto.CreateClassRequest, claims *models.JWTClaims) (*models.ClassOffering, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}

	name := strings.TrimSpace(req.InstructorName)
	if name == "" && s.users != nil {
		if user, err := s.users.FindByEmail(ctx, claims.Email); err == nil {
			name = user.Name
		}
	}
	class := &models.ClassOffering{
		ClassName:       strings.TrimSpace(req.ClassName),
		InstructorName:  name,
		InstructorEmail: claims.Email,
		Image:           req.Image,
		Price:           req.Price,
		AvailableSeat:   req.AvailableSeat,
		Enrolled:        0,
		Status:          models.ClassStatusPending,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.invalidate(ctx)
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("instructor", class.InstructorEmail))
	return class, nil
}

// Update edits descriptive fields of a class owned by the caller.
func (s *ClassService) Update(ctx context.Context, id string, req dto.UpdateClassRequest, claims *models.JWTClaims) (*models.ClassOffering, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sameEmail(class.InstructorEmail, claims.Email) && claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class belongs to another instructor")
	}

	if req.ClassName != nil {
		class.ClassName = strings.TrimSpace(*req.ClassName)
	}
	if req.Image != nil {
		class.Image = *req.Image
	}
	if req.Price != nil {
		class.Price = *req.Price
	}
	if err := s.repo.Update(ctx, class); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrClassNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	s.invalidate(ctx)
	return class, nil
}

// UpdateStatus moderates a class and records the decision.
func (s *ClassService) UpdateStatus(ctx context.Context, id string, req dto.UpdateClassStatusRequest, actor *models.JWTClaims, meta RequestMeta) (*models.ClassOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status payload")
	}
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := class.Status
	if err := s.repo.UpdateStatus(ctx, id, req.Status, req.Feedback); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrClassNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class status")
	}
	class.Status = req.Status
	class.Feedback = req.Feedback

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditLog{
		Action:     models.AuditActionClassStatus,
		Resource:   "classes",
		ResourceID: &class.ID,
	}, map[string]interface{}{"status": previous}, map[string]interface{}{"status": req.Status, "feedback": req.Feedback}, meta)
	s.invalidate(ctx)
	return class, nil
}

// InvalidateCatalog drops cached catalog listings.
func (s *ClassService) InvalidateCatalog(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *ClassService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, CatalogCachePattern)
}
