package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/camp-school-api/internal/dto"
	"github.com/noah-isme/camp-school-api/internal/models"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
)

const userExistsMessage = "User Already Existed"

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	CreateIfAbsent(ctx context.Context, user *models.User) (bool, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	ListInstructors(ctx context.Context) ([]models.Instructor, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService implements registration, role probes and role transitions.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown role filter")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Register creates the user on first sign-in. Existing emails are reported, not rewritten.
func (s *UserService) Register(ctx context.Context, req dto.CreateUserRequest, meta RequestMeta) (*dto.CreateUserResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.PhotoURL = strings.TrimSpace(req.PhotoURL)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid user payload")
	}

	user := &models.User{
		Email:    req.Email,
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
		Role:     models.RoleStudent,
	}
	created, err := s.repo.CreateIfAbsent(ctx, user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	if !created {
		return &dto.CreateUserResponse{Created: false, Message: userExistsMessage}, nil
	}

	recordAudit(ctx, s.repo, s.logger, nil, models.AuditLog{
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: &user.ID,
	}, nil, map[string]interface{}{"email": user.Email, "role": user.Role}, meta)
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return &dto.CreateUserResponse{User: user, Created: true}, nil
}

// HasRole reports whether email holds role. Callers can only probe their own email; any other
// email answers false.
func (s *UserService) HasRole(ctx context.Context, email string, role models.UserRole, claims *models.JWTClaims) (bool, error) {
	if err := requireClaims(claims); err != nil {
		return false, err
	}
	if !sameEmail(email, claims.Email) {
		return false, nil
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	return user.Role == role, nil
}

// ChangeRole applies a role transition. Re-applying the current role succeeds without writing.
func (s *UserService) ChangeRole(ctx context.Context, id string, next models.UserRole, actor *models.JWTClaims, meta RequestMeta) (*dto.RoleChangeResponse, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	previous := user.Role
	if !previous.CanTransitionTo(next) {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrConflict, "role transition not allowed"),
			map[string]interface{}{"from": previous, "to": next},
		)
	}
	if previous == next {
		return &dto.RoleChangeResponse{User: user, Previous: previous, Changed: false}, nil
	}

	if err := s.repo.UpdateRole(ctx, id, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}
	user.Role = next

	recordAudit(ctx, s.repo, s.logger, actor, models.AuditLog{
		Action:     models.AuditActionRoleChange,
		Resource:   "users",
		ResourceID: &user.ID,
	}, map[string]interface{}{"role": previous}, map[string]interface{}{"role": next}, meta)
	s.logger.Info("user role changed", zap.String("user_id", id), zap.String("from", string(previous)), zap.String("to", string(next)))
	return &dto.RoleChangeResponse{User: user, Previous: previous, Changed: true}, nil
}

// ListInstructors returns instructors with their class counts.
func (s *UserService) ListInstructors(ctx context.Context) ([]models.Instructor, error) {
	list, err := s.repo.ListInstructors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	if list == nil {
		list = []models.Instructor{}
	}
	return list, nil
}
