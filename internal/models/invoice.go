package models

import (
	"errors"
	"time"
)

// InvoiceStatus represents the payment state of a monthly invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid InvoiceStatus = "unpaid"
	InvoiceStatusPaid   InvoiceStatus = "paid"
)

// PaymentMethodKind enumerates how a monthly invoice can be settled
type PaymentMethodKind string

const (
	PaymentMethodCard         PaymentMethodKind = "card"
	PaymentMethodCheck        PaymentMethodKind = "check"
	PaymentMethodBankTransfer PaymentMethodKind = "bank_transfer"
)

// Invoice is the single source of truth for one facility+month: it carries
// both the billable aggregate and the payment state. The original system
// kept these in two independent tables that drifted apart.
type Invoice struct {
	ID               string        `json:"id" db:"id"`
	FacilityID       string        `json:"facility_id" db:"facility_id"`
	Month            string        `json:"month" db:"month"` // YYYY-MM
	TotalAmount      float64       `json:"total_amount" db:"total_amount"`
	Status           InvoiceStatus `json:"status" db:"status"`
	AmountPaid       float64       `json:"amount_paid" db:"amount_paid"`
	PaidAt           *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	PaymentMethod    *string       `json:"payment_method,omitempty" db:"payment_method"`
	PaymentReference *string       `json:"payment_reference,omitempty" db:"payment_reference"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// InvoicePayment is one recorded payment against a monthly invoice.
// Rows are written in the same transaction as the invoice update.
type InvoicePayment struct {
	ID         string            `json:"id" db:"id"`
	InvoiceID  string            `json:"invoice_id" db:"invoice_id"`
	Amount     float64           `json:"amount" db:"amount"`
	Method     PaymentMethodKind `json:"method" db:"method"`
	Reference  *string           `json:"reference,omitempty" db:"reference"`
	Notes      *string           `json:"notes,omitempty" db:"notes"`
	RecordedBy *string           `json:"recorded_by,omitempty" db:"recorded_by"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// RecordPaymentRequest represents the request to record a monthly payment
type RecordPaymentRequest struct {
	Month     string            `json:"month" binding:"required"`
	Amount    float64           `json:"amount" binding:"required"`
	Method    PaymentMethodKind `json:"method" binding:"required"`
	Reference *string           `json:"reference,omitempty"`
	Notes     *string           `json:"notes,omitempty"`
}

// MarkPaidRequest represents the request to manually mark a month paid/unpaid
type MarkPaidRequest struct {
	Month string `json:"month" binding:"required"`
}

// ResetPaymentStatusRequest represents the admin/testing request to wipe a
// month's payment state
type ResetPaymentStatusRequest struct {
	Month      string `json:"month" binding:"required"`
	AdminToken string `json:"admin_token" binding:"required"`
}

// Validate validates the record payment request
func (r *RecordPaymentRequest) Validate() error {
	if r.Amount <= 0 {
		return errors.New("amount must be positive")
	}

	switch r.Method {
	case PaymentMethodCard, PaymentMethodCheck, PaymentMethodBankTransfer:
	default:
		return errors.New("method must be 'card', 'check' or 'bank_transfer'")
	}

	if r.Method == PaymentMethodCard && (r.Reference == nil || *r.Reference == "") {
		return errors.New("card payments require the processor reference")
	}

	return nil
}

// IsPaid reports whether the invoice has been settled
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}
