package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/camp-school-api/internal/dto"
	"github.com/noah-isme/camp-school-api/pkg/response"
)

type tokenIssuer interface {
	IssueToken(ctx context.Context, req dto.TokenRequest) (*dto.TokenResponse, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service tokenIssuer
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc tokenIssuer) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Issue godoc
// @Summary Issue access token
// @Description Sign a bearer token for an existing user. Only the email is checked.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.TokenRequest true "Token request"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /jwt [post]
func (h *AuthHandler) Issue(c *gin.Context) {
	var req dto.TokenRequest
	if !bindJSON(c, &req, "invalid token payload") {
		return
	}
	res, err := h.service.IssueToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
