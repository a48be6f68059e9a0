package database

import (
	"database/sql"
	"fmt"

	"github.com/careride/facility-backend/internal/models"
	"github.com/google/uuid"
)

// ManagedClientRepository handles database operations for the
// facility_managed_clients table
type ManagedClientRepository struct {
	db DB
}

// NewManagedClientRepository creates a new ManagedClientRepository
func NewManagedClientRepository(db DB) *ManagedClientRepository {
	return &ManagedClientRepository{db: db}
}

// Create creates a new managed client
func (r *ManagedClientRepository) Create(client *models.ManagedClient) error {
	query := `
		INSERT INTO facility_managed_clients (
			id, facility_id, first_name, last_name, phone, email, address, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING created_at, updated_at
	`

	if client.ID == "" {
		client.ID = uuid.New().String()
	}

	err := r.db.QueryRow(
		query,
		client.ID, client.FacilityID, client.FirstName, client.LastName,
		client.Phone, client.Email, client.Address, client.Notes,
	).Scan(&client.CreatedAt, &client.UpdatedAt)

	return err
}

// GetByID retrieves a managed client by ID scoped to a facility
func (r *ManagedClientRepository) GetByID(facilityID, clientID string) (*models.ManagedClient, error) {
	query := `
		SELECT id, facility_id, first_name, last_name, phone, email,
			   address, notes, created_at, updated_at, deleted_at
		FROM facility_managed_clients
		WHERE id = $1 AND facility_id = $2 AND deleted_at IS NULL
	`

	return r.scanClient(r.db.QueryRow(query, clientID, facilityID))
}

// ListByFacility retrieves all active managed clients for a facility
func (r *ManagedClientRepository) ListByFacility(facilityID string) ([]models.ManagedClient, error) {
	query := `
		SELECT id, facility_id, first_name, last_name, phone, email,
			   address, notes, created_at, updated_at, deleted_at
		FROM facility_managed_clients
		WHERE facility_id = $1 AND deleted_at IS NULL
		ORDER BY last_name, first_name
	`

	rows, err := r.db.Query(query, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []models.ManagedClient{}
	for rows.Next() {
		var c models.ManagedClient
		var phone, email, address, notes sql.NullString
		var deletedAt sql.NullTime

		err := rows.Scan(
			&c.ID, &c.FacilityID, &c.FirstName, &c.LastName, &phone, &email,
			&address, &notes, &c.CreatedAt, &c.UpdatedAt, &deletedAt,
		)
		if err != nil {
			return nil, err
		}

		if phone.Valid {
			c.Phone = &phone.String
		}
		if email.Valid {
			c.Email = &email.String
		}
		if address.Valid {
			c.Address = &address.String
		}
		if notes.Valid {
			c.Notes = &notes.String
		}
		if deletedAt.Valid {
			c.DeletedAt = &deletedAt.Time
		}

		clients = append(clients, c)
	}

	return clients, rows.Err()
}

// Update updates a managed client's details
func (r *ManagedClientRepository) Update(client *models.ManagedClient) error {
	query := `
		UPDATE facility_managed_clients
		SET first_name = $3, last_name = $4, phone = $5, email = $6,
			address = $7, notes = $8, updated_at = NOW()
		WHERE id = $1 AND facility_id = $2 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		client.ID, client.FacilityID, client.FirstName, client.LastName,
		client.Phone, client.Email, client.Address, client.Notes,
	).Scan(&client.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("managed client not found")
	}

	return err
}

// SoftDelete marks a managed client as deleted. Existing trips keep their
// rider reference; the name resolver falls back to the address heuristic.
func (r *ManagedClientRepository) SoftDelete(facilityID, clientID string) error {
	query := `
		UPDATE facility_managed_clients
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND facility_id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, clientID, facilityID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("managed client not found")
	}

	return nil
}

// scanClient scans a single managed client
func (r *ManagedClientRepository) scanClient(row *sql.Row) (*models.ManagedClient, error) {
	client := &models.ManagedClient{}
	var phone, email, address, notes sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&client.ID, &client.FacilityID, &client.FirstName, &client.LastName,
		&phone, &email, &address, &notes,
		&client.CreatedAt, &client.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if phone.Valid {
		client.Phone = &phone.String
	}
	if email.Valid {
		client.Email = &email.String
	}
	if address.Valid {
		client.Address = &address.String
	}
	if notes.Valid {
		client.Notes = &notes.String
	}
	if deletedAt.Valid {
		client.DeletedAt = &deletedAt.Time
	}

	return client, nil
}
