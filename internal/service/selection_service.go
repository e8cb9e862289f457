package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/camp-school-api/internal/dto"
	"github.com/noah-isme/camp-school-api/internal/models"
	"github.com/noah-isme/camp-school-api/internal/repository"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
)

type selectionRepository interface {
	Create(ctx context.Context, sel *models.SelectedClass) error
	FindByID(ctx context.Context, id string) (*models.SelectedClass, error)
	ListByEmail(ctx context.Context, email string) ([]models.SelectedClass, error)
	DeleteByID(ctx context.Context, id string) (int64, error)
}

type classFinder interface {
	FindByID(ctx context.Context, id string) (*models.ClassOffering, error)
}

// SelectionService manages the pre-enrollment selection list of students.
type SelectionService struct {
	repo      selectionRepository
	classes   classFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSelectionService constructs a SelectionService.
func NewSelectionService(repo selectionRepository, classes classFinder, validate *validator.Validate, logger *zap.Logger) *SelectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SelectionService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// Select adds an approved class with a free seat to the caller's list. The class id is carried on
// the selection so enrollment can match it exactly.
func (s *SelectionService) Select(ctx context.Context, req dto.SelectClassRequest, claims *models.JWTClaims) (*models.SelectedClass, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid selection payload")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrClassNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	if class.Status != models.ClassStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class is not open for selection")
	}
	if !class.HasSeat() {
		return nil, appErrors.Clone(appErrors.ErrSeatUnavailable, "class is full")
	}

	sel := &models.SelectedClass{
		ClassID:         class.ID,
		Email:           claims.Email,
		ClassName:       class.ClassName,
		InstructorEmail: class.InstructorEmail,
		Price:           class.Price,
		Image:           class.Image,
	}
	if err := s.repo.Create(ctx, sel); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class already selected")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save selection")
	}
	return sel, nil
}

// List returns the selections of email, which must be the caller's own.
func (s *SelectionService) List(ctx context.Context, email string, claims *models.JWTClaims) ([]models.SelectedClass, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if email == "" {
		return []models.SelectedClass{}, nil
	}
	if !sameEmail(email, claims.Email) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Forbidden Access")
	}
	list, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list selections")
	}
	return list, nil
}

// Get returns one selection owned by the caller.
func (s *SelectionService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.SelectedClass, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	sel, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "selection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch selection")
	}
	if !sameEmail(sel.Email, claims.Email) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "selection belongs to another user")
	}
	return sel, nil
}

// Remove deletes a selection by id. A missing id succeeds with zero deletions; a selection
// owned by someone else is forbidden.
func (s *SelectionService) Remove(ctx context.Context, id string, claims *models.JWTClaims) (*dto.DeleteResult, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	sel, err := s.repo.FindByID(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return &dto.DeleteResult{Deleted: 0}, nil
	case err != nil:
		return nil, appErrors.Transient(err, "failed to fetch selection")
	}
	if !sameEmail(sel.Email, claims.Email) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "selection belongs to another user")
	}
	removed, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return nil, appErrors.Transient(err, "failed to delete selection")
	}
	return &dto.DeleteResult{Deleted: removed}, nil
}
