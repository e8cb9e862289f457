package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/camp-school-api/internal/dto"
	"github.com/noah-isme/camp-school-api/internal/models"
	"github.com/noah-isme/camp-school-api/internal/service"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
	"github.com/noah-isme/camp-school-api/pkg/response"
)

const maxPaymentBody = 64 << 10

type intentCreator interface {
	Create(ctx context.Context, req dto.PaymentIntentRequest, claims *models.JWTClaims) (*dto.PaymentIntentResponse, error)
}

type enrollmentFinalizer interface {
	Finalize(ctx context.Context, req dto.FinalizePaymentRequest, claims *models.JWTClaims) (*models.Payment, error)
	ListEnrolled(ctx context.Context, email string, claims *models.JWTClaims) ([]models.Payment, error)
}

type receiptRenderer interface {
	Receipt(ctx context.Context, paymentID string, claims *models.JWTClaims) (*service.ExportFile, error)
}

// PaymentHandler serves the payment-intent and enrollment endpoints.
type PaymentHandler struct {
	intents    intentCreator
	enrollment enrollmentFinalizer
	receipts   receiptRenderer
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(intents intentCreator, enrollment enrollmentFinalizer, receipts receiptRenderer) *PaymentHandler {
	return &PaymentHandler{intents: intents, enrollment: enrollment, receipts: receipts}
}

// CreateIntent godoc
// @Summary Create payment intent
// @Description Check the class can take the student, then return a gateway client secret
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.PaymentIntentRequest true "Intent payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /create-payment-intent [post]
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req dto.PaymentIntentRequest
	if !bindJSON(c, &req, "invalid payment intent payload") {
		return
	}
	res, err := h.intents.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Finalize godoc
// @Summary Finalize payment
// @Description Record a confirmed payment, take a seat and clear the matching selection
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.FinalizePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Finalize(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPaymentBody))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read payment payload"))
		return
	}
	var req dto.FinalizePaymentRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	req.Raw = raw

	payment, err := h.enrollment.Finalize(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Enrolled godoc
// @Summary List payments of a student
// @Tags Payments
// @Produce json
// @Param email path string true "Student email"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /enrolled-classes/{email} [get]
func (h *PaymentHandler) Enrolled(c *gin.Context) {
	list, err := h.enrollment.ListEnrolled(c.Request.Context(), c.Param("email"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Receipt godoc
// @Summary Download payment receipt
// @Tags Payments
// @Produce application/pdf
// @Param id path string true "Payment ID"
// @Success 200 {file} file
// @Failure 409 {object} response.Envelope
// @Router /payments/{id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	file, err := h.receipts.Receipt(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
