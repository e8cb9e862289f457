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

type paymentLister interface {
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error)
}

type paymentReconciler interface {
	Reconcile(ctx context.Context, paymentID string) (*dto.ReconcileResponse, error)
}

type paymentExporter interface {
	PaymentsCSV(ctx context.Context, filter models.PaymentFilter) (*service.ExportFile, error)
}

// AdminPaymentHandler exposes payment oversight to administrators.
type AdminPaymentHandler struct {
	payments   paymentLister
	reconciler paymentReconciler
	exporter   paymentExporter
}

// NewAdminPaymentHandler constructs an AdminPaymentHandler.
func NewAdminPaymentHandler(payments paymentLister, reconciler paymentReconciler, exporter paymentExporter) *AdminPaymentHandler {
	return &AdminPaymentHandler{payments: payments, reconciler: reconciler, exporter: exporter}
}

func paymentFilter(c *gin.Context) models.PaymentFilter {
	var filter models.PaymentFilter
	filter.Page, filter.PageSize = pageQuery(c)
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		s := models.PaymentStatus(strings.ToUpper(raw))
		filter.Status = &s
	}
	filter.Email = strings.TrimSpace(c.Query("email"))
	return filter
}

// List godoc
// @Summary List payments
// @Tags Admin
// @Produce json
// @Param status query string false "PENDING, ENROLLED or NEEDS_REVIEW"
// @Param email query string false "Payer email"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/payments [get]
func (h *AdminPaymentHandler) List(c *gin.Context) {
	list, pagination, err := h.payments.ListPayments(c.Request.Context(), paymentFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, pagination)
}

// Review godoc
// @Summary List payments awaiting review
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/payments/review [get]
func (h *AdminPaymentHandler) Review(c *gin.Context) {
	filter := paymentFilter(c)
	status := models.PaymentStatusNeedsReview
	filter.Status = &status
	list, pagination, err := h.payments.ListPayments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, pagination)
}

// Reconcile godoc
// @Summary Reconcile payment
// @Description Retry the seat commit for a payment that was not enrolled
// @Tags Admin
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/payments/{id}/reconcile [post]
func (h *AdminPaymentHandler) Reconcile(c *gin.Context) {
	res, err := h.reconciler.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Export godoc
// @Summary Export payments as CSV
// @Tags Admin
// @Produce text/csv
// @Param status query string false "Status filter"
// @Param email query string false "Payer email"
// @Success 200 {file} file
// @Router /admin/payments/export [get]
func (h *AdminPaymentHandler) Export(c *gin.Context) {
	file, err := h.exporter.PaymentsCSV(c.Request.Context(), paymentFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
