package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/camp-school-api/internal/models"
)

const paymentColumns = `id, email, class_id, class_name, instructor_email, price, transaction_id, status, review_reason, metadata, created_at, updated_at`

// PaymentRepository persists payment records. Rows are only ever inserted and status-updated.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment. A reused transaction id yields ErrDuplicate.
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Email = strings.ToLower(p.Email)
	p.InstructorEmail = strings.ToLower(p.InstructorEmail)
	if p.Status == "" {
		p.Status = models.PaymentStatusPending
	}

	const query = `INSERT INTO payments (id, email, class_id, class_name, instructor_email, price, transaction_id, status, review_reason, metadata, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.Email, p.ClassID, p.ClassName, p.InstructorEmail, p.Price,
		p.TransactionID, p.Status, p.ReviewReason, nullJSONArg(p.Metadata), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByID returns a payment by id.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	var p models.Payment
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &p, nil
}

// FindByTransactionID returns the payment recorded for a gateway transaction id.
func (r *PaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	var p models.Payment
	if err := r.db.GetContext(ctx, &p, query, transactionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by transaction: %w", err)
	}
	return &p, nil
}

// ListByEmail returns every payment of a payer, newest first.
func (r *PaymentRepository) ListByEmail(ctx context.Context, email string) ([]models.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE email = LOWER($1) ORDER BY created_at DESC`
	payments := make([]models.Payment, 0)
	if err := r.db.SelectContext(ctx, &payments, query, email); err != nil {
		return nil, fmt.Errorf("list payments by email: %w", err)
	}
	return payments, nil
}

// List returns payments matching the filter with the total count.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	base := `FROM payments WHERE 1=1`
	var conditions []string
	var args []interface{}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Email != "" {
		conditions = append(conditions, fmt.Sprintf("email = LOWER($%d)", len(args)+1))
		args = append(args, filter.Email)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", paymentColumns, base, size, offset)
	payments := make([]models.Payment, 0)
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// MarkNeedsReview flags a payment that could not be enrolled. Enrolled payments are left untouched
// and reported as ErrAlreadyEnrolled.
func (r *PaymentRepository) MarkNeedsReview(ctx context.Context, id, reason string) error {
	const query = `UPDATE payments SET status = $2, review_reason = $3, updated_at = $4 WHERE id = $1 AND status <> $5`
	res, err := r.db.ExecContext(ctx, query, id, models.PaymentStatusNeedsReview, reason, time.Now().UTC(), models.PaymentStatusEnrolled)
	if err != nil {
		return fmt.Errorf("mark payment for review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark payment for review rows affected: %w", err)
	}
	if affected == 0 {
		return ErrAlreadyEnrolled
	}
	return nil
}

// ListForReconciliation returns payments awaiting review plus pending payments created before
// staleBefore, oldest first.
func (r *PaymentRepository) ListForReconciliation(ctx context.Context, staleBefore time.Time, limit int) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + paymentColumns + ` FROM payments
        WHERE status = $1 OR (status = $2 AND created_at < $3)
        ORDER BY created_at ASC LIMIT $4`
	payments := make([]models.Payment, 0)
	if err := r.db.SelectContext(ctx, &payments, query, models.PaymentStatusNeedsReview, models.PaymentStatusPending, staleBefore, limit); err != nil {
		return nil, fmt.Errorf("list payments for reconciliation: %w", err)
	}
	return payments, nil
}
