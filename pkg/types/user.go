package types

import (
	"time"

	"github.com/google/uuid"
)

// UserRole distinguishes regular users from the admin office
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// User is a registered campus member
type User struct {
	ID            uuid.UUID
	Name          string
	Email         string
	RollNumber    string
	Hostel        string
	ContactNumber string
	Role          UserRole
	CreatedAt     time.Time
}

// IsAdmin reports whether the user acts for the admin office
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Contact returns the user's personal contact details
func (u *User) Contact() Contact {
	return Contact{
		Name:          u.Name,
		Email:         u.Email,
		ContactNumber: u.ContactNumber,
	}
}
