package models

import "time"

// SelectedClass is a pending, unpaid intent to enroll in a class.
type SelectedClass struct {
	ID              string    `db:"id" json:"id"`
	ClassID         string    `db:"class_id" json:"class_id"`
	Email           string    `db:"email" json:"email"`
	ClassName       string    `db:"class_name" json:"class_name"`
	InstructorEmail string    `db:"instructor_email" json:"instructor_email"`
	Price           float64   `db:"price" json:"price"`
	Image           string    `db:"image" json:"image"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
