package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/camp-school-api/internal/models"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
	"github.com/noah-isme/camp-school-api/pkg/export"
)

const exportPageSize = 100

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type documentRenderer interface {
	RenderDocument(title string, lines []export.KeyValue, footer string) ([]byte, error)
}

type paymentReader interface {
	GetPayment(ctx context.Context, id string, claims *models.JWTClaims) (*models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders payment receipts and administrative payment exports.
type ExportService struct {
	payments paymentReader
	csv      csvRenderer
	pdf      documentRenderer
	currency string
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(payments paymentReader, csv csvRenderer, pdf documentRenderer, currency string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{payments: payments, csv: csv, pdf: pdf, currency: strings.ToUpper(currency), logger: logger, now: time.Now}
}

// Receipt renders a PDF receipt for an enrolled payment owned by the caller.
func (s *ExportService) Receipt(ctx context.Context, paymentID string, claims *models.JWTClaims) (*ExportFile, error) {
	p, err := s.payments.GetPayment(ctx, paymentID, claims)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentStatusEnrolled {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrConflict, "receipt is only available for enrolled payments"),
			map[string]interface{}{"status": p.Status},
		)
	}

	lines := []export.KeyValue{
		{Label: "Receipt", Value: p.ID},
		{Label: "Student", Value: p.Email},
		{Label: "Class", Value: p.ClassName},
		{Label: "Instructor", Value: p.InstructorEmail},
		{Label: "Amount", Value: fmt.Sprintf("%s %s", formatPrice(p.Price), s.currency)},
		{Label: "Paid at", Value: p.CreatedAt.UTC().Format(time.RFC1123)},
	}
	if p.TransactionID != nil {
		lines = append(lines, export.KeyValue{Label: "Transaction", Value: *p.TransactionID})
	}
	body, err := s.pdf.RenderDocument("Payment receipt", lines, "Generated "+s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return &ExportFile{Filename: "receipt-" + p.ID + ".pdf", ContentType: "application/pdf", Body: body}, nil
}

var paymentExportColumns = []export.Column{
	{Key: "id", Label: "Payment ID"},
	{Key: "email", Label: "Email"},
	{Key: "class_id", Label: "Class ID"},
	{Key: "class_name", Label: "Class"},
	{Key: "instructor_email", Label: "Instructor"},
	{Key: "price", Label: "Price"},
	{Key: "transaction_id", Label: "Transaction"},
	{Key: "status", Label: "Status"},
	{Key: "review_reason", Label: "Review reason"},
	{Key: "created_at", Label: "Created at"},
}

// PaymentsCSV exports every payment matching filter, walking all pages.
func (s *ExportService) PaymentsCSV(ctx context.Context, filter models.PaymentFilter) (*ExportFile, error) {
	filter.PageSize = exportPageSize
	var rows []map[string]string
	for page := 1; ; page++ {
		filter.Page = page
		list, pagination, err := s.payments.ListPayments(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, p := range list {
			rows = append(rows, paymentRow(p))
		}
		if len(list) < exportPageSize || pagination == nil || page*exportPageSize >= pagination.TotalCount {
			break
		}
	}

	body, err := s.csv.Render(export.Dataset{Columns: paymentExportColumns, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	name := fmt.Sprintf("payments-%s.csv", s.now().UTC().Format("20060102-150405"))
	s.logger.Info("payments exported", zap.Int("rows", len(rows)))
	return &ExportFile{Filename: name, ContentType: "text/csv", Body: body}, nil
}

func paymentRow(p models.Payment) map[string]string {
	row := map[string]string{
		"id":               p.ID,
		"email":            p.Email,
		"class_name":       p.ClassName,
		"instructor_email": p.InstructorEmail,
		"price":            formatPrice(p.Price),
		"status":           string(p.Status),
		"created_at":       p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.ClassID != nil {
		row["class_id"] = *p.ClassID
	}
	if p.TransactionID != nil {
		row["transaction_id"] = *p.TransactionID
	}
	if p.ReviewReason != nil {
		row["review_reason"] = *p.ReviewReason
	}
	return row
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
