package models

import "time"

// TripWithRider is a trip row joined (left) against the profile and
// managed-client tables. Either join can miss; the name resolver handles
// the fallback.
type TripWithRider struct {
	Trip
	RiderFirstName *string `db:"rider_first_name"`
	RiderLastName  *string `db:"rider_last_name"`
	ManagedName    *string `db:"managed_name"`
}

// BilledTrip is one trip annotated for the monthly billing view
type BilledTrip struct {
	ID                 string     `json:"id"`
	RiderName          string     `json:"rider_name"`
	RiderKind          RiderKind  `json:"rider_kind"`
	PickupAddress      string     `json:"pickup_address"`
	DestinationAddress string     `json:"destination_address"`
	PickupTime         time.Time  `json:"pickup_time"`
	Status             TripStatus `json:"status"`
	Price              *float64   `json:"price,omitempty"`
	Wheelchair         bool       `json:"wheelchair"`
	Billable           bool       `json:"billable"`
}

// MonthlyBilling is the aggregation result for one facility+month
type MonthlyBilling struct {
	FacilityID    string       `json:"facility_id"`
	Month         string       `json:"month"` // YYYY-MM
	Trips         []BilledTrip `json:"trips"`
	TripCount     int          `json:"trip_count"`
	PendingCount  int          `json:"pending_count"`
	BillableTotal float64      `json:"billable_total"`
	Invoice       *Invoice     `json:"invoice,omitempty"`
}
