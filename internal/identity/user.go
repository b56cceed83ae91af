package identity

import (
	"time"

	"github.com/google/uuid"
)

// Role is the flat authorization role attached to every user.
type Role string

const (
	RoleManager  Role = "Manager"
	RoleUser     Role = "User"
	RoleEmployee Role = "Employee"
	RoleAdmin    Role = "Admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleManager, RoleUser, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// User is the durable identity record. The password hash never leaves the
// service boundary.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"-"`
}
