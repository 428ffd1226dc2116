// lightning payment gateway daemon
package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/40acres/lngateway/database"
	"github.com/40acres/lngateway/database/models"
	"github.com/40acres/lngateway/gateway"
	"github.com/40acres/lngateway/lightning"
	log "github.com/sirupsen/logrus"
)

const SubscriptionRetryInterval = 5 * time.Second

const shutdownTimeout = 10 * time.Second

//go:generate go tool mockgen -destination=mock.go -package=daemon . SettlementChecker
type SettlementChecker interface {
	ConfirmPayment(ctx context.Context, orderID uint) (gateway.Result, error)
	CheckPaymentRequest(ctx context.Context, paymentRequest string) (gateway.Result, error)
}

type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Start serves HTTP and keeps settling orders in the background until ctx is
// done. subscriber may be nil when the backend has no push notifications.
func Start(ctx context.Context, server HTTPServer, repository database.OrderRepository, checker SettlementChecker, subscriber lightning.Subscriber, sweepInterval time.Duration) error {
	log.Info("Starting lngatewayd")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	monitor := &SettlementMonitor{
		repository: repository,
		checker:    checker,
	}
	if sweepInterval > 0 {
		go monitor.Run(ctx, sweepInterval)
	}

	if subscriber != nil {
		listener := &PaymentListener{
			subscriber:    subscriber,
			checker:       checker,
			retryInterval: SubscriptionRetryInterval,
		}
		go listener.Run(ctx)
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down lngatewayd")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		if err == nil {
			err = errors.New("http server stopped")
		}

		return err
	}
}

// SettlementMonitor periodically checks every order still awaiting payment.
// It only confirms payments; expired invoices are renewed when the shopper
// polls.
type SettlementMonitor struct {
	repository interface {
		GetPendingOrders(ctx context.Context) ([]*models.Order, error)
	}
	checker SettlementChecker
}

func (m *SettlementMonitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.MonitorOrders(ctx)
		}
	}
}

func (m *SettlementMonitor) MonitorOrders(ctx context.Context) {
	orders, err := m.repository.GetPendingOrders(ctx)
	if err != nil {
		log.Errorf("failed to get pending orders: %v", err)

		return
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}

		logger := log.WithField("order_id", order.ID)
		res, err := m.checker.ConfirmPayment(ctx, order.ID)
		if err != nil {
			logger.Errorf("failed to check settlement: %v", err)

			continue
		}
		logger.WithField("result", res.String()).Debug("order checked")
	}
}

// PaymentListener turns push notices from the node into settlement checks,
// resubscribing whenever the stream drops.
type PaymentListener struct {
	subscriber    lightning.Subscriber
	checker       SettlementChecker
	retryInterval time.Duration
}

func (l *PaymentListener) Run(ctx context.Context) {
	for {
		err := l.subscriber.SubscribePaid(ctx, func(paymentRequest string) {
			l.handle(ctx, paymentRequest)
		})
		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Warnf("payment subscription dropped, retrying in %s", l.retryInterval)

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retryInterval):
		}
	}
}

func (l *PaymentListener) handle(ctx context.Context, paymentRequest string) {
	res, err := l.checker.CheckPaymentRequest(ctx, paymentRequest)
	if err != nil {
		log.WithError(err).Error("failed to check notified payment")

		return
	}
	log.WithField("result", res.String()).Info("payment notice processed")
}
