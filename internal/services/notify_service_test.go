package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careride/facility-backend/internal/models"
	"github.com/careride/facility-backend/pkg/mailer"
)

// stubMailer records sends and can be slowed down or made to fail
type stubMailer struct {
	mu    sync.Mutex
	sent  []mailer.Message
	delay time.Duration
	err   error
}

func (m *stubMailer) Send(msg mailer.Message) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *stubMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestNotifyDispatcher(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		stub := &stubMailer{}
		svc := NewNotifyService(stub, "dispatch@careride.test", quietLogger())

		trip := &models.Trip{
			PickupAddress:      "12 Oak St",
			DestinationAddress: "Dialysis Center",
			PickupTime:         time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
			Wheelchair:         true,
		}

		err := svc.NotifyDispatcher(trip, "Mary Johnson")
		require.NoError(t, err)
		require.Equal(t, 1, stub.sentCount())
		assert.Equal(t, "dispatch@careride.test", stub.sent[0].To)
		assert.Contains(t, stub.sent[0].Subject, "Mary Johnson")
		assert.Contains(t, stub.sent[0].Text, "Dialysis Center")
	})

	t.Run("No dispatch inbox configured", func(t *testing.T) {
		stub := &stubMailer{}
		svc := NewNotifyService(stub, "", quietLogger())

		err := svc.NotifyDispatcher(&models.Trip{}, "Mary Johnson")
		require.NoError(t, err)
		assert.Equal(t, 0, stub.sentCount())
	})

	t.Run("Slow gateway does not block booking", func(t *testing.T) {
		stub := &stubMailer{delay: 200 * time.Millisecond}
		svc := NewNotifyService(stub, "dispatch@careride.test", quietLogger())
		svc.timeout = 10 * time.Millisecond

		start := time.Now()
		err := svc.NotifyDispatcher(&models.Trip{}, "Mary Johnson")
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Less(t, elapsed, 100*time.Millisecond)

		// The send still completes in the background.
		assert.Eventually(t, func() bool {
			return stub.sentCount() == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Send failure surfaces", func(t *testing.T) {
		stub := &stubMailer{err: errors.New("gateway down")}
		svc := NewNotifyService(stub, "dispatch@careride.test", quietLogger())

		err := svc.NotifyDispatcher(&models.Trip{}, "Mary Johnson")
		assert.Error(t, err)
	})
}

func TestSendPaymentReceipt(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		stub := &stubMailer{}
		svc := NewNotifyService(stub, "dispatch@careride.test", quietLogger())

		err := svc.SendPaymentReceipt("billing@sunrise.test", "Sunrise Care", "2025-06", 45.50)
		require.NoError(t, err)
		require.Equal(t, 1, stub.sentCount())
		assert.Equal(t, "billing@sunrise.test", stub.sent[0].To)
		assert.Contains(t, stub.sent[0].Text, "$45.50")
		assert.Contains(t, stub.sent[0].Text, "2025-06")
	})

	t.Run("No billing email", func(t *testing.T) {
		stub := &stubMailer{}
		svc := NewNotifyService(stub, "dispatch@careride.test", quietLogger())

		err := svc.SendPaymentReceipt("", "Sunrise Care", "2025-06", 45.50)
		require.NoError(t, err)
		assert.Equal(t, 0, stub.sentCount())
	})
}
