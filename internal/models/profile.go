package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles assigned to profiles. A profile can hold more than one role.
const (
	RoleFacilityStaff = "facility_staff"
	RoleClient        = "client"
	RoleAdmin         = "admin"
)

// Profile represents an authenticated person (facility staff or client)
type Profile struct {
	ID         uuid.UUID `json:"id" db:"id"`
	FacilityID *string   `json:"facility_id,omitempty" db:"facility_id"`
	FirstName  string    `json:"first_name" db:"first_name"`
	LastName   string    `json:"last_name" db:"last_name"`
	Email      string    `json:"email" db:"email"`
	Phone      string    `json:"phone" db:"phone"`
	Roles      []string  `json:"roles" db:"roles"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns the profile's display name
func (p *Profile) FullName() string {
	if p.FirstName == "" && p.LastName == "" {
		return ""
	}
	if p.LastName == "" {
		return p.FirstName
	}
	if p.FirstName == "" {
		return p.LastName
	}
	return p.FirstName + " " + p.LastName
}

// HasRole checks whether the profile holds the given role
func (p *Profile) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
