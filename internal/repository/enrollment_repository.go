package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/camp-school-api/internal/models"
	"github.com/noah-isme/camp-school-api/pkg/database"
)

// EnrollmentCommit identifies the rows touched when a payment is turned into a seat.
type EnrollmentCommit struct {
	PaymentID       string
	ClassID         string
	Email           string
	ClassName       string
	InstructorEmail string
}

// EnrollmentRepository applies the multi-table enrollment write.
type EnrollmentRepository struct {
	db database.TxBeginner
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Commit claims the payment, takes one seat and clears the payer's matching selection in a single
// transaction. It returns ErrAlreadyEnrolled when the payment was claimed before and
// ErrSeatUnavailable when the class has no seat left; in both cases nothing is written.
func (r *EnrollmentRepository) Commit(ctx context.Context, in EnrollmentCommit) (int64, error) {
	var removed int64
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()

		const claim = `UPDATE payments SET status = $2, class_id = $3, review_reason = NULL, updated_at = $4 WHERE id = $1 AND status <> $2`
		res, err := tx.ExecContext(ctx, claim, in.PaymentID, models.PaymentStatusEnrolled, in.ClassID, now)
		if err != nil {
			return fmt.Errorf("claim payment: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("claim payment rows affected: %w", err)
		} else if n == 0 {
			return ErrAlreadyEnrolled
		}

		const seat = `UPDATE classes SET available_seat = available_seat - 1, enrolled = enrolled + 1, updated_at = $2 WHERE id = $1 AND available_seat > 0`
		res, err = tx.ExecContext(ctx, seat, in.ClassID, now)
		if err != nil {
			return fmt.Errorf("take seat: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("take seat rows affected: %w", err)
		} else if n == 0 {
			return ErrSeatUnavailable
		}

		const clearSelection = `DELETE FROM selected_classes WHERE email = LOWER($1) AND (class_id = $2 OR (class_name = $3 AND instructor_email = LOWER($4)))`
		res, err = tx.ExecContext(ctx, clearSelection, in.Email, in.ClassID, in.ClassName, in.InstructorEmail)
		if err != nil {
			return fmt.Errorf("clear selection: %w", err)
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("clear selection rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
