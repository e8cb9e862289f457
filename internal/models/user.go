package models

import "time"

// UserRole is the bounded set of roles a user may hold.
type UserRole string

const (
	RoleUnset      UserRole = ""
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// roleRank orders roles for promotion. Admin is terminal.
var roleRank = map[UserRole]int{
	RoleUnset:      0,
	RoleStudent:    1,
	RoleInstructor: 2,
	RoleAdmin:      3,
}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// CanTransitionTo reports whether a user holding r may be moved to next.
// Promotion only; re-applying the current role is allowed and is a no-op.
func (r UserRole) CanTransitionTo(next UserRole) bool {
	from, okFrom := roleRank[r]
	to, okTo := roleRank[next]
	if !okFrom || !okTo || next == RoleUnset {
		return false
	}
	return to >= from
}

// User represents an application user stored in the users table.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	PhotoURL  string    `db:"photo_url" json:"photo_url"`
	Role      UserRole  `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Search   string
	Page     int
	PageSize int
}

// Instructor is a user with the instructor role plus a count of their class offerings.
type Instructor struct {
	ID         string `db:"id" json:"id"`
	Email      string `db:"email" json:"email"`
	Name       string `db:"name" json:"name"`
	PhotoURL   string `db:"photo_url" json:"photo_url"`
	ClassCount int    `db:"class_count" json:"class_count"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
