package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/camp-school-api/internal/dto"
	"github.com/noah-isme/camp-school-api/internal/models"
	"github.com/noah-isme/camp-school-api/pkg/response"
)

type selectionService interface {
	Select(ctx context.Context, req dto.SelectClassRequest, claims *models.JWTClaims) (*models.SelectedClass, error)
	List(ctx context.Context, email string, claims *models.JWTClaims) ([]models.SelectedClass, error)
	Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.SelectedClass, error)
	Remove(ctx context.Context, id string, claims *models.JWTClaims) (*dto.DeleteResult, error)
}

// SelectionHandler manages the student's selected classes.
type SelectionHandler struct {
	service selectionService
}

// NewSelectionHandler constructs a SelectionHandler.
func NewSelectionHandler(svc selectionService) *SelectionHandler {
	return &SelectionHandler{service: svc}
}

// Select godoc
// @Summary Select a class
// @Tags Selections
// @Accept json
// @Produce json
// @Param payload body dto.SelectClassRequest true "Selection payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /selectclass [post]
func (h *SelectionHandler) Select(c *gin.Context) {
	var req dto.SelectClassRequest
	if !bindJSON(c, &req, "invalid selection payload") {
		return
	}
	sel, err := h.service.Select(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sel)
}

// List godoc
// @Summary List selected classes
// @Tags Selections
// @Produce json
// @Param email query string true "Owner email"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /selectclass [get]
func (h *SelectionHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), c.Query("email"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Get godoc
// @Summary Get selected class
// @Tags Selections
// @Produce json
// @Param id path string true "Selection ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payment/{id} [get]
func (h *SelectionHandler) Get(c *gin.Context) {
	sel, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sel, nil)
}

// Remove godoc
// @Summary Remove selected class
// @Tags Selections
// @Produce json
// @Param id path string true "Selection ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /selectclass/{id} [delete]
func (h *SelectionHandler) Remove(c *gin.Context) {
	res, err := h.service.Remove(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
