package models

import (
	"errors"
	"time"
)

// ManagedClient represents a rider with no login credentials,
// administered entirely by facility staff
type ManagedClient struct {
	ID         string     `json:"id" db:"id"`
	FacilityID string     `json:"facility_id" db:"facility_id"`
	FirstName  string     `json:"first_name" db:"first_name"`
	LastName   string     `json:"last_name" db:"last_name"`
	Phone      *string    `json:"phone,omitempty" db:"phone"`
	Email      *string    `json:"email,omitempty" db:"email"`
	Address    *string    `json:"address,omitempty" db:"address"`
	Notes      *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// FullName returns the managed client's display name
func (m *ManagedClient) FullName() string {
	if m.LastName == "" {
		return m.FirstName
	}
	if m.FirstName == "" {
		return m.LastName
	}
	return m.FirstName + " " + m.LastName
}

// CreateManagedClientRequest represents the request to create a managed client
type CreateManagedClientRequest struct {
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name" binding:"required"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Address   *string `json:"address,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// UpdateManagedClientRequest represents the request to update a managed client
type UpdateManagedClientRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Address   *string `json:"address,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// Validate validates the create managed client request
func (r *CreateManagedClientRequest) Validate() error {
	if r.FirstName == "" && r.LastName == "" {
		return errors.New("a name is required")
	}
	return nil
}
