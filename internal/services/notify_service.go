package services

import (
	"fmt"
	"time"

	"github.com/careride/facility-backend/internal/models"
	"github.com/careride/facility-backend/pkg/mailer"
	"github.com/sirupsen/logrus"
)

// DefaultNotifyTimeout is how long a request handler waits for a
// notification send before letting it finish in the background.
const DefaultNotifyTimeout = 2 * time.Second

// NotifyService sends best-effort email notifications. Sends are raced
// against a timeout: if the mail gateway is slow, the request proceeds and
// the send completes in the background. This is a courtesy notification,
// not a correctness mechanism.
type NotifyService struct {
	mailer        mailer.Mailer
	dispatchEmail string
	timeout       time.Duration
	logger        *logrus.Logger
}

// NewNotifyService creates a new NotifyService
func NewNotifyService(m mailer.Mailer, dispatchEmail string, logger *logrus.Logger) *NotifyService {
	return &NotifyService{
		mailer:        m,
		dispatchEmail: dispatchEmail,
		timeout:       DefaultNotifyTimeout,
		logger:        logger,
	}
}

// NotifyDispatcher tells the dispatcher about a newly booked trip.
// Returns nil on timeout: the send continues in the background.
func (s *NotifyService) NotifyDispatcher(trip *models.Trip, riderName string) error {
	if s.dispatchEmail == "" {
		return nil
	}

	msg := mailer.Message{
		To:      s.dispatchEmail,
		Subject: fmt.Sprintf("New trip booked for %s", riderName),
		Text: fmt.Sprintf(
			"Rider: %s\nPickup: %s\nDestination: %s\nPickup time: %s\nWheelchair: %t\n",
			riderName,
			trip.PickupAddress,
			trip.DestinationAddress,
			trip.PickupTime.Format(time.RFC1123),
			trip.Wheelchair,
		),
	}

	return s.sendWithTimeout(msg, "dispatcher_notification")
}

// SendPaymentReceipt emails the facility's billing contact after a monthly
// payment is recorded
func (s *NotifyService) SendPaymentReceipt(billingEmail, facilityName, month string, amount float64) error {
	if billingEmail == "" {
		return nil
	}

	msg := mailer.Message{
		To:      billingEmail,
		Subject: fmt.Sprintf("Payment received for %s", month),
		Text: fmt.Sprintf(
			"Hi %s,\n\nWe received your payment of $%.2f for %s. Thank you.\n",
			facilityName, amount, month,
		),
	}

	return s.sendWithTimeout(msg, "payment_receipt")
}

// sendWithTimeout races the send against the configured timeout. A timeout
// is logged and swallowed; the goroutine finishes the send either way.
func (s *NotifyService) sendWithTimeout(msg mailer.Message, kind string) error {
	done := make(chan error, 1)

	go func() {
		done <- s.mailer.Send(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.WithError(err).WithField("kind", kind).Warn("Notification send failed")
			return err
		}
		return nil
	case <-time.After(s.timeout):
		s.logger.WithField("kind", kind).Warn("Notification send timed out, continuing in background")
		go func() {
			if err := <-done; err != nil {
				s.logger.WithError(err).WithField("kind", kind).Warn("Background notification send failed")
			}
		}()
		return nil
	}
}
