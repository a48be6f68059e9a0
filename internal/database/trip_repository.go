package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/careride/facility-backend/internal/models"
	"github.com/google/uuid"
)

// TripRepository handles database operations for the trips table
type TripRepository struct {
	db DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db DB) *TripRepository {
	return &TripRepository{db: db}
}

// Create creates a new trip
func (r *TripRepository) Create(trip *models.Trip) error {
	query := `
		INSERT INTO trips (
			id, facility_id, rider_kind, rider_id,
			pickup_address, destination_address, pickup_time,
			status, price, distance_miles, wheelchair, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING created_at, updated_at
	`

	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if trip.Status == "" {
		trip.Status = models.TripStatusPending
	}

	err := r.db.QueryRow(
		query,
		trip.ID, trip.FacilityID, trip.RiderKind, trip.RiderID,
		trip.PickupAddress, trip.DestinationAddress, trip.PickupTime,
		trip.Status, trip.Price, trip.DistanceMiles, trip.Wheelchair, trip.Notes,
	).Scan(&trip.CreatedAt, &trip.UpdatedAt)

	return err
}

// GetByID retrieves a trip by ID scoped to a facility
func (r *TripRepository) GetByID(facilityID, tripID string) (*models.Trip, error) {
	query := `
		SELECT id, facility_id, rider_kind, rider_id,
			   pickup_address, destination_address, pickup_time,
			   status, price, distance_miles, wheelchair, notes,
			   cancelled_at, cancellation_reason, created_at, updated_at
		FROM trips
		WHERE id = $1 AND facility_id = $2
	`

	return r.scanTrip(r.db.QueryRow(query, tripID, facilityID))
}

// ListByFacility retrieves the most recent trips for a facility
func (r *TripRepository) ListByFacility(facilityID string, limit, offset int) ([]models.Trip, error) {
	query := `
		SELECT id, facility_id, rider_kind, rider_id,
			   pickup_address, destination_address, pickup_time,
			   status, price, distance_miles, wheelchair, notes,
			   cancelled_at, cancellation_reason, created_at, updated_at
		FROM trips
		WHERE facility_id = $1
		ORDER BY pickup_time DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(query, facilityID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanTrips(rows)
}

// ListWithRidersBetween retrieves all trips for a facility whose pickup time
// falls in [start, end), left-joined against profiles and managed clients so
// the caller can resolve rider names. Either join can come back NULL.
func (r *TripRepository) ListWithRidersBetween(facilityID string, start, end time.Time) ([]models.TripWithRider, error) {
	query := `
		SELECT t.id, t.facility_id, t.rider_kind, t.rider_id,
			   t.pickup_address, t.destination_address, t.pickup_time,
			   t.status, t.price, t.distance_miles, t.wheelchair, t.notes,
			   t.cancelled_at, t.cancellation_reason, t.created_at, t.updated_at,
			   p.first_name, p.last_name,
			   TRIM(COALESCE(mc.first_name, '') || ' ' || COALESCE(mc.last_name, ''))
		FROM trips t
		LEFT JOIN profiles p
			ON t.rider_kind = 'account' AND p.id::text = t.rider_id
		LEFT JOIN facility_managed_clients mc
			ON t.rider_kind = 'managed' AND mc.id = t.rider_id AND mc.deleted_at IS NULL
		WHERE t.facility_id = $1
		  AND t.pickup_time >= $2
		  AND t.pickup_time < $3
		ORDER BY t.pickup_time
	`

	rows, err := r.db.Query(query, facilityID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := []models.TripWithRider{}
	for rows.Next() {
		var tw models.TripWithRider
		var price, distance sql.NullFloat64
		var notes, cancellationReason sql.NullString
		var cancelledAt sql.NullTime
		var firstName, lastName, managedName sql.NullString

		err := rows.Scan(
			&tw.ID, &tw.FacilityID, &tw.RiderKind, &tw.RiderID,
			&tw.PickupAddress, &tw.DestinationAddress, &tw.PickupTime,
			&tw.Status, &price, &distance, &tw.Wheelchair, &notes,
			&cancelledAt, &cancellationReason, &tw.CreatedAt, &tw.UpdatedAt,
			&firstName, &lastName, &managedName,
		)
		if err != nil {
			return nil, err
		}

		if price.Valid {
			tw.Price = &price.Float64
		}
		if distance.Valid {
			tw.DistanceMiles = &distance.Float64
		}
		if notes.Valid {
			tw.Notes = &notes.String
		}
		if cancelledAt.Valid {
			tw.CancelledAt = &cancelledAt.Time
		}
		if cancellationReason.Valid {
			tw.CancellationReason = &cancellationReason.String
		}
		if firstName.Valid {
			tw.RiderFirstName = &firstName.String
		}
		if lastName.Valid {
			tw.RiderLastName = &lastName.String
		}
		if managedName.Valid && managedName.String != "" {
			tw.ManagedName = &managedName.String
		}

		trips = append(trips, tw)
	}

	return trips, rows.Err()
}

// UpdateStatus updates the trip status
func (r *TripRepository) UpdateStatus(facilityID, tripID string, status models.TripStatus) error {
	query := `
		UPDATE trips
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND facility_id = $2
	`

	result, err := r.db.Exec(query, tripID, facilityID, status)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("trip not found")
	}

	return nil
}

// UpdatePrice sets the trip price
func (r *TripRepository) UpdatePrice(facilityID, tripID string, price float64) error {
	query := `
		UPDATE trips
		SET price = $3, updated_at = NOW()
		WHERE id = $1 AND facility_id = $2
	`

	result, err := r.db.Exec(query, tripID, facilityID, price)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("trip not found")
	}

	return nil
}

// Cancel cancels a trip, recording the reason
func (r *TripRepository) Cancel(facilityID, tripID string, reason *string) error {
	query := `
		UPDATE trips
		SET status = 'cancelled',
			cancellation_reason = $3,
			cancelled_at = COALESCE(cancelled_at, NOW()),
			updated_at = NOW()
		WHERE id = $1 AND facility_id = $2
		  AND status != 'completed'
		  AND (status != 'cancelled' OR cancellation_reason IS NULL)
	`

	result, err := r.db.Exec(query, tripID, facilityID, reason)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("trip not found or cannot be cancelled")
	}

	return nil
}

// scanTrip scans a single trip
func (r *TripRepository) scanTrip(row *sql.Row) (*models.Trip, error) {
	trip := &models.Trip{}
	var price, distance sql.NullFloat64
	var notes, cancellationReason sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(
		&trip.ID, &trip.FacilityID, &trip.RiderKind, &trip.RiderID,
		&trip.PickupAddress, &trip.DestinationAddress, &trip.PickupTime,
		&trip.Status, &price, &distance, &trip.Wheelchair, &notes,
		&cancelledAt, &cancellationReason, &trip.CreatedAt, &trip.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	if price.Valid {
		trip.Price = &price.Float64
	}
	if distance.Valid {
		trip.DistanceMiles = &distance.Float64
	}
	if notes.Valid {
		trip.Notes = &notes.String
	}
	if cancelledAt.Valid {
		trip.CancelledAt = &cancelledAt.Time
	}
	if cancellationReason.Valid {
		trip.CancellationReason = &cancellationReason.String
	}

	return trip, nil
}

// scanTrips scans multiple trips from rows
func (r *TripRepository) scanTrips(rows *sql.Rows) ([]models.Trip, error) {
	trips := []models.Trip{}

	for rows.Next() {
		var trip models.Trip
		var price, distance sql.NullFloat64
		var notes, cancellationReason sql.NullString
		var cancelledAt sql.NullTime

		err := rows.Scan(
			&trip.ID, &trip.FacilityID, &trip.RiderKind, &trip.RiderID,
			&trip.PickupAddress, &trip.DestinationAddress, &trip.PickupTime,
			&trip.Status, &price, &distance, &trip.Wheelchair, &notes,
			&cancelledAt, &cancellationReason, &trip.CreatedAt, &trip.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if price.Valid {
			trip.Price = &price.Float64
		}
		if distance.Valid {
			trip.DistanceMiles = &distance.Float64
		}
		if notes.Valid {
			trip.Notes = &notes.String
		}
		if cancelledAt.Valid {
			trip.CancelledAt = &cancelledAt.Time
		}
		if cancellationReason.Valid {
			trip.CancellationReason = &cancellationReason.String
		}

		trips = append(trips, trip)
	}

	return trips, rows.Err()
}
