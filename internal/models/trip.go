package models

import (
	"errors"
	"time"
)

// TripStatus represents the lifecycle status of a trip
type TripStatus string

const (
	TripStatusPending    TripStatus = "pending"
	TripStatusUpcoming   TripStatus = "upcoming"
	TripStatusConfirmed  TripStatus = "confirmed"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

// RiderKind distinguishes the two kinds of rider a trip can reference.
// A trip always has exactly one rider reference.
type RiderKind string

const (
	RiderKindAccount RiderKind = "account" // authenticated client with a profile
	RiderKindManaged RiderKind = "managed" // facility-maintained client with no login
)

// Trip represents a single ride booked by facility staff
type Trip struct {
	ID                 string     `json:"id" db:"id"`
	FacilityID         string     `json:"facility_id" db:"facility_id"`
	RiderKind          RiderKind  `json:"rider_kind" db:"rider_kind"`
	RiderID            string     `json:"rider_id" db:"rider_id"`
	PickupAddress      string     `json:"pickup_address" db:"pickup_address"`
	DestinationAddress string     `json:"destination_address" db:"destination_address"`
	PickupTime         time.Time  `json:"pickup_time" db:"pickup_time"`
	Status             TripStatus `json:"status" db:"status"`
	Price              *float64   `json:"price,omitempty" db:"price"`
	DistanceMiles      *float64   `json:"distance_miles,omitempty" db:"distance_miles"`
	Wheelchair         bool       `json:"wheelchair" db:"wheelchair"`
	Notes              *string    `json:"notes,omitempty" db:"notes"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationReason *string    `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateTripRequest represents the request to book a trip
type CreateTripRequest struct {
	RiderKind          RiderKind `json:"rider_kind" binding:"required"`
	RiderID            string    `json:"rider_id" binding:"required"`
	PickupAddress      string    `json:"pickup_address" binding:"required"`
	DestinationAddress string    `json:"destination_address" binding:"required"`
	PickupTime         time.Time `json:"pickup_time" binding:"required"`
	Price              *float64  `json:"price,omitempty"`
	DistanceMiles      *float64  `json:"distance_miles,omitempty"`
	Wheelchair         bool      `json:"wheelchair"`
	Notes              *string   `json:"notes,omitempty"`
}

// UpdateTripStatusRequest represents a status transition request. Price
// is usually set together with the completed status once the fare is known.
type UpdateTripStatusRequest struct {
	Status TripStatus `json:"status" binding:"required"`
	Price  *float64   `json:"price,omitempty"`
}

// CancelTripRequest represents the request to cancel a trip
type CancelTripRequest struct {
	CancellationReason *string `json:"cancellation_reason,omitempty"`
}

// Validate validates the create trip request
func (r *CreateTripRequest) Validate() error {
	if r.RiderKind != RiderKindAccount && r.RiderKind != RiderKindManaged {
		return errors.New("rider_kind must be 'account' or 'managed'")
	}

	if r.RiderID == "" {
		return errors.New("rider_id is required")
	}

	if r.Price != nil && *r.Price < 0 {
		return errors.New("price cannot be negative")
	}

	return nil
}

// IsBillable reports whether the trip counts toward the monthly invoice.
// Only completed trips with a positive price are billable.
func (t *Trip) IsBillable() bool {
	return t.Status == TripStatusCompleted && t.Price != nil && *t.Price > 0
}

// CountsAsPending reports whether the trip is visible but zero-rated
// (booked, not yet completed, not cancelled).
func (t *Trip) CountsAsPending() bool {
	switch t.Status {
	case TripStatusPending, TripStatusUpcoming, TripStatusConfirmed, TripStatusInProgress:
		return true
	}
	return false
}

// CanTransitionTo reports whether the given status transition is allowed
func (t *Trip) CanTransitionTo(next TripStatus) bool {
	if t.Status == TripStatusCompleted || t.Status == TripStatusCancelled {
		return false
	}

	switch next {
	case TripStatusUpcoming, TripStatusConfirmed, TripStatusInProgress, TripStatusCompleted, TripStatusCancelled:
		return true
	}
	return false
}

// Cancel cancels the trip. The cancellation reason can be recorded
// exactly once.
func (t *Trip) Cancel(reason *string) error {
	if t.Status == TripStatusCompleted {
		return errors.New("completed trip cannot be cancelled")
	}

	if t.Status == TripStatusCancelled {
		if t.CancellationReason != nil {
			return errors.New("trip is already cancelled")
		}
		// Dispatcher recording the reason after the fact.
		t.CancellationReason = reason
		t.UpdatedAt = time.Now()
		return nil
	}

	now := time.Now()
	t.Status = TripStatusCancelled
	t.CancelledAt = &now
	t.CancellationReason = reason
	t.UpdatedAt = now

	return nil
}

// BillableAmount returns the trip's contribution to the monthly total
func (t *Trip) BillableAmount() float64 {
	if !t.IsBillable() {
		return 0
	}
	return *t.Price
}
