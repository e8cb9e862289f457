package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/camp-school-api/internal/dto"
	"github.com/noah-isme/camp-school-api/internal/models"
	"github.com/noah-isme/camp-school-api/internal/service"
	"github.com/noah-isme/camp-school-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	Register(ctx context.Context, req dto.CreateUserRequest, meta service.RequestMeta) (*dto.CreateUserResponse, error)
	HasRole(ctx context.Context, email string, role models.UserRole, claims *models.JWTClaims) (bool, error)
	ChangeRole(ctx context.Context, id string, next models.UserRole, actor *models.JWTClaims, meta service.RequestMeta) (*dto.RoleChangeResponse, error)
	ListInstructors(ctx context.Context) ([]models.Instructor, error)
}

// UserHandler handles user registration, role probes and role changes.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "Role filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var filter models.UserFilter
	filter.Page, filter.PageSize = pageQuery(c)
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}
	filter.Search = strings.TrimSpace(c.Query("search"))

	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Register godoc
// @Summary Register user
// @Description Create the user on first sign-in; existing users are left untouched
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.CreateUserRequest true "User payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindJSON(c, &req, "invalid user payload") {
		return
	}
	res, err := h.service.Register(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if res.Created {
		response.Created(c, res)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// IsAdmin godoc
// @Summary Check admin role
// @Tags Users
// @Produce json
// @Param email path string true "Email"
// @Success 200 {object} response.Envelope
// @Router /users/admin/{email} [get]
func (h *UserHandler) IsAdmin(c *gin.Context) {
	ok, err := h.service.HasRole(c.Request.Context(), c.Param("email"), models.RoleAdmin, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RoleCheckResponse{Admin: &ok}, nil)
}

// IsInstructor godoc
// @Summary Check instructor role
// @Tags Users
// @Produce json
// @Param email path string true "Email"
// @Success 200 {object} response.Envelope
// @Router /users/instructor/{email} [get]
func (h *UserHandler) IsInstructor(c *gin.Context) {
	ok, err := h.service.HasRole(c.Request.Context(), c.Param("email"), models.RoleInstructor, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RoleCheckResponse{Instructor: &ok}, nil)
}

// PromoteAdmin godoc
// @Summary Promote user to admin
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/admin/{id} [patch]
func (h *UserHandler) PromoteAdmin(c *gin.Context) {
	h.changeRole(c, models.RoleAdmin)
}

// PromoteInstructor godoc
// @Summary Promote user to instructor
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/instructor/{id} [patch]
func (h *UserHandler) PromoteInstructor(c *gin.Context) {
	h.changeRole(c, models.RoleInstructor)
}

func (h *UserHandler) changeRole(c *gin.Context, role models.UserRole) {
	res, err := h.service.ChangeRole(c.Request.Context(), c.Param("id"), role, claimsFromContext(c), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ListInstructors godoc
// @Summary List instructors
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /instructors [get]
func (h *UserHandler) ListInstructors(c *gin.Context) {
	list, err := h.service.ListInstructors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}
