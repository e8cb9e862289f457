package dto

import "github.com/noah-isme/camp-school-api/internal/models"

// CreateUserRequest registers a user on first sign-in. Any client-supplied role is ignored.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"omitempty,max=255"`
	PhotoURL string `json:"photoURL" validate:"omitempty,url"`
}

// CreateUserResponse reports whether the user was inserted.
type CreateUserResponse struct {
	User    *models.User `json:"user,omitempty"`
	Created bool         `json:"created"`
	Message string       `json:"message,omitempty"`
}

// RoleCheckResponse answers the admin/instructor role probes.
type RoleCheckResponse struct {
	Admin      *bool `json:"admin,omitempty"`
	Instructor *bool `json:"instructor,omitempty"`
}

// RoleChangeResponse describes an applied role transition.
type RoleChangeResponse struct {
	User     *models.User    `json:"user"`
	Previous models.UserRole `json:"previousRole"`
	Changed  bool            `json:"changed"`
}
