package models

import "time"

// PaymentMethod represents a card stored with the payment processor
type PaymentMethod struct {
	ID                    string    `json:"id" db:"id"`
	FacilityID            string    `json:"facility_id" db:"facility_id"`
	StripePaymentMethodID string    `json:"stripe_payment_method_id" db:"stripe_payment_method_id"`
	Brand                 *string   `json:"brand,omitempty" db:"brand"`
	Last4                 *string   `json:"last4,omitempty" db:"last4"`
	ExpMonth              *int      `json:"exp_month,omitempty" db:"exp_month"`
	ExpYear               *int      `json:"exp_year,omitempty" db:"exp_year"`
	IsDefault             bool      `json:"is_default" db:"is_default"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
}

// AddPaymentMethodRequest represents the request to store a processor card
type AddPaymentMethodRequest struct {
	StripePaymentMethodID string `json:"stripe_payment_method_id" binding:"required"`
	SetDefault            bool   `json:"set_default"`
}
