package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordPaymentRequestValidate(t *testing.T) {
	t.Run("Check payment without reference", func(t *testing.T) {
		req := &RecordPaymentRequest{Month: "2025-06", Amount: 45.50, Method: PaymentMethodCheck}
		assert.NoError(t, req.Validate())
	})

	t.Run("Card payment requires reference", func(t *testing.T) {
		req := &RecordPaymentRequest{Month: "2025-06", Amount: 45.50, Method: PaymentMethodCard}
		assert.Error(t, req.Validate())

		ref := "pi_123"
		req.Reference = &ref
		assert.NoError(t, req.Validate())
	})

	t.Run("Non-positive amount", func(t *testing.T) {
		req := &RecordPaymentRequest{Month: "2025-06", Amount: 0, Method: PaymentMethodCheck}
		assert.Error(t, req.Validate())

		req.Amount = -5
		assert.Error(t, req.Validate())
	})

	t.Run("Unknown method", func(t *testing.T) {
		req := &RecordPaymentRequest{Month: "2025-06", Amount: 10, Method: "crypto"}
		assert.Error(t, req.Validate())
	})
}

func TestInvoiceIsPaid(t *testing.T) {
	assert.True(t, (&Invoice{Status: InvoiceStatusPaid}).IsPaid())
	assert.False(t, (&Invoice{Status: InvoiceStatusUnpaid}).IsPaid())
}
