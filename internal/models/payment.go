package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// PaymentStatus tracks how far a payment got through finalization.
type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "PENDING"
	PaymentStatusEnrolled    PaymentStatus = "ENROLLED"
	PaymentStatusNeedsReview PaymentStatus = "NEEDS_REVIEW"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusEnrolled, PaymentStatusNeedsReview:
		return true
	}
	return false
}

// Review reasons recorded on payments that could not be enrolled.
const (
	ReviewReasonClassNotFound   = "class not found"
	ReviewReasonAmbiguousClass  = "ambiguous class reference"
	ReviewReasonSeatUnavailable = "seat unavailable"
	ReviewReasonStorageFailure  = "storage failure during enrollment"
)

// Payment is the durable record of a completed transaction. Rows are never deleted.
type Payment struct {
	ID              string             `db:"id" json:"id"`
	Email           string             `db:"email" json:"email"`
	ClassID         *string            `db:"class_id" json:"class_id,omitempty"`
	ClassName       string             `db:"class_name" json:"class_name"`
	InstructorEmail string             `db:"instructor_email" json:"instructor_email"`
	Price           float64            `db:"price" json:"price"`
	TransactionID   *string            `db:"transaction_id" json:"transaction_id,omitempty"`
	Status          PaymentStatus      `db:"status" json:"status"`
	ReviewReason    *string            `db:"review_reason" json:"review_reason,omitempty"`
	Metadata        types.NullJSONText `db:"metadata" json:"metadata"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
}

// PaymentFilter narrows admin payment listings.
type PaymentFilter struct {
	Status   *PaymentStatus
	Email    string
	Page     int
	PageSize int
}
