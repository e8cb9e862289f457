package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/camp-school-api/internal/dto"
	"github.com/noah-isme/camp-school-api/internal/middleware"
	"github.com/noah-isme/camp-school-api/internal/models"
	"github.com/noah-isme/camp-school-api/internal/service"
	"github.com/noah-isme/camp-school-api/pkg/response"
)

type classService interface {
	List(ctx context.Context, status *models.ClassStatus) ([]models.ClassOffering, bool, error)
	ListByInstructor(ctx context.Context, instructorEmail string) ([]models.ClassOffering, error)
	Get(ctx context.Context, id string) (*models.ClassOffering, error)
	Create(ctx context.Context, req dto.CreateClassRequest, claims *models.JWTClaims) (*models.ClassOffering, error)
	Update(ctx context.Context, id string, req dto.UpdateClassRequest, claims *models.JWTClaims) (*models.ClassOffering, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateClassStatusRequest, actor *models.JWTClaims, meta service.RequestMeta) (*models.ClassOffering, error)
}

// ClassHandler exposes the class catalog.
type ClassHandler struct {
	service classService
}

// NewClassHandler constructs a ClassHandler.
func NewClassHandler(svc classService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param status query string false "pending, approved or denied"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	var status *models.ClassStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ClassStatus(raw)
		status = &s
	}
	classes, hit, err := h.service.List(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	respondWithMeta(c, http.StatusOK, classes, nil)
}

// ListByInstructor godoc
// @Summary List classes of an instructor
// @Tags Classes
// @Produce json
// @Param instructorEmail query string false "Instructor email"
// @Success 200 {object} response.Envelope
// @Router /instructor-classes [get]
func (h *ClassHandler) ListByInstructor(c *gin.Context) {
	classes, err := h.service.ListByInstructor(c.Request.Context(), c.Query("instructorEmail"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// Get godoc
// @Summary Get class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req dto.CreateClassRequest
	if !bindJSON(c, &req, "invalid class payload") {
		return
	}
	class, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Update class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.UpdateClassRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	var req dto.UpdateClassRequest
	if !bindJSON(c, &req, "invalid class payload") {
		return
	}
	class, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// UpdateStatus godoc
// @Summary Moderate class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.UpdateClassStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/status [patch]
func (h *ClassHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateClassStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	class, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, claimsFromContext(c), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}
