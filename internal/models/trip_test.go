package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func TestIsBillable(t *testing.T) {
	testCases := []struct {
		status TripStatus
		price  *float64
		expect bool
		name   string
	}{
		{TripStatusCompleted, floatPtr(25.50), true, "Completed and priced"},
		{TripStatusCompleted, floatPtr(0), false, "Completed but zero-priced"},
		{TripStatusCompleted, nil, false, "Completed but unpriced"},
		{TripStatusPending, floatPtr(25.50), false, "Priced but not completed"},
		{TripStatusCancelled, floatPtr(25.50), false, "Cancelled"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trip := &Trip{Status: tc.status, Price: tc.price}
			assert.Equal(t, tc.expect, trip.IsBillable())
			if !tc.expect {
				assert.Zero(t, trip.BillableAmount())
			} else {
				assert.Equal(t, *tc.price, trip.BillableAmount())
			}
		})
	}
}

func TestCountsAsPending(t *testing.T) {
	pending := []TripStatus{TripStatusPending, TripStatusUpcoming, TripStatusConfirmed, TripStatusInProgress}
	for _, status := range pending {
		trip := &Trip{Status: status}
		assert.True(t, trip.CountsAsPending(), string(status))
	}

	for _, status := range []TripStatus{TripStatusCompleted, TripStatusCancelled} {
		trip := &Trip{Status: status}
		assert.False(t, trip.CountsAsPending(), string(status))
	}
}

func TestCanTransitionTo(t *testing.T) {
	t.Run("Terminal states are frozen", func(t *testing.T) {
		completed := &Trip{Status: TripStatusCompleted}
		assert.False(t, completed.CanTransitionTo(TripStatusCancelled))

		cancelled := &Trip{Status: TripStatusCancelled}
		assert.False(t, cancelled.CanTransitionTo(TripStatusPending))
	})

	t.Run("Active trip can progress", func(t *testing.T) {
		trip := &Trip{Status: TripStatusConfirmed}
		assert.True(t, trip.CanTransitionTo(TripStatusInProgress))
		assert.True(t, trip.CanTransitionTo(TripStatusCompleted))
		assert.True(t, trip.CanTransitionTo(TripStatusCancelled))
		assert.False(t, trip.CanTransitionTo(TripStatusPending))
	})
}

func TestCancel(t *testing.T) {
	t.Run("Cancel with reason", func(t *testing.T) {
		trip := &Trip{Status: TripStatusUpcoming}
		err := trip.Cancel(strPtr("rider hospitalized"))
		require.NoError(t, err)
		assert.Equal(t, TripStatusCancelled, trip.Status)
		require.NotNil(t, trip.CancelledAt)
		require.NotNil(t, trip.CancellationReason)
		assert.Equal(t, "rider hospitalized", *trip.CancellationReason)
	})

	t.Run("Reason recorded after the fact", func(t *testing.T) {
		trip := &Trip{Status: TripStatusUpcoming}
		require.NoError(t, trip.Cancel(nil))
		assert.Nil(t, trip.CancellationReason)

		// Dispatcher fills in the reason later, exactly once.
		require.NoError(t, trip.Cancel(strPtr("no show")))
		require.NotNil(t, trip.CancellationReason)
		assert.Equal(t, "no show", *trip.CancellationReason)

		err := trip.Cancel(strPtr("changed my mind"))
		assert.Error(t, err)
		assert.Equal(t, "no show", *trip.CancellationReason)
	})

	t.Run("Completed trip cannot be cancelled", func(t *testing.T) {
		trip := &Trip{Status: TripStatusCompleted}
		assert.Error(t, trip.Cancel(nil))
	})
}

func TestCreateTripRequestValidate(t *testing.T) {
	valid := &CreateTripRequest{RiderKind: RiderKindManaged, RiderID: "mc-1"}
	assert.NoError(t, valid.Validate())

	badKind := &CreateTripRequest{RiderKind: "driver", RiderID: "x"}
	assert.Error(t, badKind.Validate())

	noRider := &CreateTripRequest{RiderKind: RiderKindAccount}
	assert.Error(t, noRider.Validate())

	negative := &CreateTripRequest{RiderKind: RiderKindAccount, RiderID: "x", Price: floatPtr(-1)}
	assert.Error(t, negative.Validate())
}
