package dto

import "github.com/noah-isme/camp-school-api/internal/models"

// CreateClassRequest is submitted by an instructor. The instructor identity comes from the token.
type CreateClassRequest struct {
	ClassName      string  `json:"className" validate:"required,max=255"`
	InstructorName string  `json:"instructorName" validate:"omitempty,max=255"`
	Image          string  `json:"image" validate:"omitempty,url"`
	Price          float64 `json:"price" validate:"required,gt=0"`
	AvailableSeat  int     `json:"availableSeat" validate:"gte=0"`
}

// UpdateClassRequest changes descriptive fields. Seat counters only move through enrollment.
type UpdateClassRequest struct {
	ClassName *string  `json:"className" validate:"omitempty,max=255"`
	Image     *string  `json:"image" validate:"omitempty,url"`
	Price     *float64 `json:"price" validate:"omitempty,gt=0"`
}

// UpdateClassStatusRequest moderates a class.
type UpdateClassStatusRequest struct {
	Status   models.ClassStatus `json:"status" validate:"required,oneof=pending approved denied"`
	Feedback string             `json:"feedback" validate:"omitempty,max=2000"`
}
