package models

import "time"

// ClassStatus is the moderation state of a class offering.
type ClassStatus string

const (
	ClassStatusPending  ClassStatus = "pending"
	ClassStatusApproved ClassStatus = "approved"
	ClassStatusDenied   ClassStatus = "denied"
)

// Valid reports whether s is a known class status.
func (s ClassStatus) Valid() bool {
	switch s {
	case ClassStatusPending, ClassStatusApproved, ClassStatusDenied:
		return true
	}
	return false
}

// ClassOffering is an instructor-authored course listing with capacity accounting.
type ClassOffering struct {
	ID              string      `db:"id" json:"id"`
	ClassName       string      `db:"class_name" json:"class_name"`
	InstructorName  string      `db:"instructor_name" json:"instructor_name"`
	InstructorEmail string      `db:"instructor_email" json:"instructor_email"`
	Image           string      `db:"image" json:"image"`
	Price           float64     `db:"price" json:"price"`
	AvailableSeat   int         `db:"available_seat" json:"available_seat"`
	Enrolled        int         `db:"enrolled" json:"enrolled"`
	Status          ClassStatus `db:"status" json:"status"`
	Feedback        string      `db:"feedback" json:"feedback"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// HasSeat reports whether at least one seat remains.
func (c *ClassOffering) HasSeat() bool {
	return c != nil && c.AvailableSeat > 0
}

// ClassFilter defines filter criteria for listing class offerings.
type ClassFilter struct {
	Status          *ClassStatus
	InstructorEmail string
}
