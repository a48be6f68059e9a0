package services

import (
	"context"
	"fmt"

	"github.com/careride/facility-backend/internal/database"
	"github.com/careride/facility-backend/internal/models"
	"github.com/careride/facility-backend/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PaymentService reconciles monthly invoice payment state. Every mutation
// goes through the invoice repository's transactional operations and leaves
// an audit row behind.
type PaymentService struct {
	invoiceRepo *database.InvoiceRepository
	auditRepo   *database.PaymentAuditRepository
	logger      *logrus.Logger
}

// PaymentActor identifies who performed a payment action and from where
type PaymentActor struct {
	ProfileID *uuid.UUID
	IPAddress string
	UserAgent string
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	invoiceRepo *database.InvoiceRepository,
	auditRepo *database.PaymentAuditRepository,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		invoiceRepo: invoiceRepo,
		auditRepo:   auditRepo,
		logger:      logger,
	}
}

// Status reports the payment state for a facility+month. An absent invoice
// row means unpaid with nothing recorded.
func (s *PaymentService) Status(facilityID, month string) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByMonth(facilityID, month)
	if err != nil {
		return nil, err
	}

	if invoice == nil {
		return &models.Invoice{
			FacilityID: facilityID,
			Month:      month,
			Status:     models.InvoiceStatusUnpaid,
		}, nil
	}

	return invoice, nil
}

// RecordPayment records a payment (card, check or bank transfer) against a
// facility's monthly invoice. The payment row and the invoice settlement
// are one transaction.
func (s *PaymentService) RecordPayment(ctx context.Context, facilityID string, req *models.RecordPaymentRequest, actor PaymentActor) (*models.Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payment := &models.InvoicePayment{
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Notes:     req.Notes,
	}
	if actor.ProfileID != nil {
		id := actor.ProfileID.String()
		payment.RecordedBy = &id
	}

	invoice, err := s.invoiceRepo.RecordPayment(facilityID, req.Month, payment)
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.audit(ctx, facilityID, req.Month, models.PaymentEventRecorded, &req.Amount, req.Reference, actor, map[string]interface{}{
		"method": string(req.Method),
	})

	s.logger.WithFields(logrus.Fields{
		"facility_id": facilityID,
		"month":       req.Month,
		"amount":      req.Amount,
		"method":      req.Method,
	}).Info("Payment recorded")

	return invoice, nil
}

// MarkPaid manually marks a facility's month as paid
func (s *PaymentService) MarkPaid(ctx context.Context, facilityID, month string, actor PaymentActor) error {
	if err := s.invoiceRepo.MarkPaid(facilityID, month); err != nil {
		return err
	}

	s.audit(ctx, facilityID, month, models.PaymentEventMarkedPaid, nil, nil, actor, nil)
	return nil
}

// MarkUnpaid manually reverts a facility's month to unpaid
func (s *PaymentService) MarkUnpaid(ctx context.Context, facilityID, month string, actor PaymentActor) error {
	if err := s.invoiceRepo.MarkUnpaid(facilityID, month); err != nil {
		return err
	}

	s.audit(ctx, facilityID, month, models.PaymentEventMarkedUnpaid, nil, nil, actor, nil)
	return nil
}

// Reset wipes the payment state for a facility+month. Admin/testing path;
// token verification happens in the handler before this is reached.
func (s *PaymentService) Reset(ctx context.Context, facilityID, month string, actor PaymentActor) error {
	if err := s.invoiceRepo.Reset(facilityID, month); err != nil {
		return err
	}

	s.audit(ctx, facilityID, month, models.PaymentEventReset, nil, nil, actor, nil)

	s.logger.WithFields(logrus.Fields{
		"facility_id": facilityID,
		"month":       month,
	}).Warn("Payment state reset")

	return nil
}

// AuditTrail returns the payment audit entries for a facility+month,
// newest first
func (s *PaymentService) AuditTrail(ctx context.Context, facilityID, month string) ([]models.PaymentAudit, error) {
	return s.auditRepo.ListByFacilityMonth(ctx, facilityID, month)
}

// audit writes the audit row for a payment action. Audit failures are
// logged but do not fail the action itself.
func (s *PaymentService) audit(ctx context.Context, facilityID, month string, event models.PaymentEventType, amount *float64, reference *string, actor PaymentActor, details map[string]interface{}) {
	deviceInfo := utils.ParseUserAgent(actor.UserAgent)
	if details == nil {
		details = map[string]interface{}{}
	}
	details["device_info"] = deviceInfo

	entry := &models.PaymentAudit{
		FacilityID: facilityID,
		Month:      &month,
		EventType:  event,
		Amount:     amount,
		Reference:  reference,
		ActorID:    actor.ProfileID,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
		Details:    details,
	}

	if err := s.auditRepo.Log(ctx, entry); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"facility_id": facilityID,
			"month":       month,
			"event_type":  event,
		}).Error("Payment audit write failed")
	}
}
