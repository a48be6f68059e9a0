package services

import (
	"fmt"
	"time"

	"github.com/careride/facility-backend/internal/database"
	"github.com/careride/facility-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// BillingService aggregates a facility's trips into a monthly billing view
type BillingService struct {
	tripRepo    *database.TripRepository
	invoiceRepo *database.InvoiceRepository
	resolver    *NameResolver
	logger      *logrus.Logger
}

// NewBillingService creates a new BillingService
func NewBillingService(
	tripRepo *database.TripRepository,
	invoiceRepo *database.InvoiceRepository,
	resolver *NameResolver,
	logger *logrus.Logger,
) *BillingService {
	return &BillingService{
		tripRepo:    tripRepo,
		invoiceRepo: invoiceRepo,
		resolver:    resolver,
		logger:      logger,
	}
}

// MonthRange converts a YYYY-MM month string into the half-open interval
// [first instant of the month, first instant of the next month). The end
// bound is derived from date arithmetic, never a hardcoded day count, so
// 28/29/30/31-day months and leap years all come out right.
func MonthRange(month string) (start, end time.Time, err error) {
	parsed, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q: expected YYYY-MM", month)
	}

	start = time.Date(parsed.Year(), parsed.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end, nil
}

// LastDayOfMonth returns the final calendar day of a YYYY-MM month
func LastDayOfMonth(month string) (time.Time, error) {
	_, end, err := MonthRange(month)
	if err != nil {
		return time.Time{}, err
	}
	return end.AddDate(0, 0, -1), nil
}

// AggregateMonth returns every trip for the facility whose pickup time falls
// in the given calendar month, each annotated with its billable flag and a
// resolved rider name, plus the month's totals and the invoice state.
//
// A facility with no riders or no trips in the month yields an empty result,
// not an error.
func (s *BillingService) AggregateMonth(facilityID, month string) (*models.MonthlyBilling, error) {
	start, end, err := MonthRange(month)
	if err != nil {
		return nil, err
	}

	trips, err := s.tripRepo.ListWithRidersBetween(facilityID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load trips for %s/%s: %w", facilityID, month, err)
	}

	billing := &models.MonthlyBilling{
		FacilityID: facilityID,
		Month:      month,
		Trips:      make([]models.BilledTrip, 0, len(trips)),
	}

	for i := range trips {
		tw := &trips[i]
		billable := tw.IsBillable()

		billing.Trips = append(billing.Trips, models.BilledTrip{
			ID:                 tw.ID,
			RiderName:          s.resolver.Resolve(tw),
			RiderKind:          tw.RiderKind,
			PickupAddress:      tw.PickupAddress,
			DestinationAddress: tw.DestinationAddress,
			PickupTime:         tw.PickupTime,
			Status:             tw.Status,
			Price:              tw.Price,
			Wheelchair:         tw.Wheelchair,
			Billable:           billable,
		})

		billing.TripCount++
		if billable {
			billing.BillableTotal += *tw.Price
		} else if tw.CountsAsPending() {
			billing.PendingCount++
		}
	}

	invoice, err := s.invoiceRepo.GetByMonth(facilityID, month)
	if err != nil {
		return nil, err
	}
	billing.Invoice = invoice

	s.logger.WithFields(logrus.Fields{
		"facility_id":    facilityID,
		"month":          month,
		"trip_count":     billing.TripCount,
		"pending_count":  billing.PendingCount,
		"billable_total": billing.BillableTotal,
	}).Debug("Aggregated monthly billing")

	return billing, nil
}

// RefreshInvoiceTotal recomputes the month's billable total and writes it
// onto the invoice row without touching the payment state
func (s *BillingService) RefreshInvoiceTotal(facilityID, month string) (float64, error) {
	billing, err := s.AggregateMonth(facilityID, month)
	if err != nil {
		return 0, err
	}

	if err := s.invoiceRepo.UpsertTotal(facilityID, month, billing.BillableTotal); err != nil {
		return 0, err
	}

	return billing.BillableTotal, nil
}
