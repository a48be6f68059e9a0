package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/careride/facility-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry.
// This should never fail silently - payment events must be logged.
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	var details []byte
	if audit.Details != nil {
		var err error
		details, err = json.Marshal(audit.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
	}

	query := `
		INSERT INTO payment_audits (
			id, facility_id, month, event_type, amount, reference,
			actor_id, ip_address, user_agent, details, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.FacilityID, audit.Month, audit.EventType,
		audit.Amount, audit.Reference, audit.ActorID,
		audit.IPAddress, audit.UserAgent, details, audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"facility_id": audit.FacilityID,
			"event_type":  audit.EventType,
			"error":       err.Error(),
		}).Error("Failed to write payment audit entry")
		return fmt.Errorf("failed to write payment audit: %w", err)
	}

	return nil
}

// ListByFacilityMonth retrieves the audit trail for a facility+month
func (r *PaymentAuditRepository) ListByFacilityMonth(ctx context.Context, facilityID, month string) ([]models.PaymentAudit, error) {
	query := `
		SELECT id, facility_id, month, event_type, amount, reference,
			   actor_id, ip_address, user_agent, created_at
		FROM payment_audits
		WHERE facility_id = $1 AND month = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, facilityID, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.PaymentAudit{}
	for rows.Next() {
		var e models.PaymentAudit
		var actorID uuid.NullUUID
		err := rows.Scan(
			&e.ID, &e.FacilityID, &e.Month, &e.EventType, &e.Amount,
			&e.Reference, &actorID, &e.IPAddress, &e.UserAgent, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if actorID.Valid {
			e.ActorID = &actorID.UUID
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
