package models

import "time"

// Facility represents a customer organization (e.g. a care facility)
type Facility struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	BillingEmail     *string   `json:"billing_email,omitempty" db:"billing_email"`
	StripeCustomerID *string   `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	Phone            *string   `json:"phone,omitempty" db:"phone"`
	Address          *string   `json:"address,omitempty" db:"address"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateFacilityRequest represents the request to update facility details
type UpdateFacilityRequest struct {
	Name         *string `json:"name,omitempty"`
	BillingEmail *string `json:"billing_email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Address      *string `json:"address,omitempty"`
}
