package users

import "time"

// User is the read-side projection of a subject account.
type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	IsActive        bool      `json:"is_active"`
	IsAdministrator bool      `json:"is_administrator"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Assignment describes one role granted to a user in a tenancy context.
type Assignment struct {
	RoleID    int64  `json:"role_id"`
	RoleName  string `json:"role_name"`
	Scope     string `json:"scope"`
	ContextID *int64 `json:"context_id,omitempty"`
}
