// Package server exposes checkout, polling and webhook endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/40acres/lngateway/database/models"
	"github.com/40acres/lngateway/gateway"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

//go:generate go tool mockgen -destination=mock.go -package=server . Gateway
type Gateway interface {
	CreateOrder(ctx context.Context, orderKey string, total decimal.Decimal, currency string) (*models.Order, error)
	EnsureInvoice(ctx context.Context, orderID uint) (*gateway.Checkout, error)
	CheckSettlement(ctx context.Context, orderID uint) (gateway.Result, error)
	CheckPaymentRequest(ctx context.Context, paymentRequest string) (gateway.Result, error)
	PaymentView(ctx context.Context, orderID uint) (*gateway.View, error)
}

var _ Gateway = (*gateway.Manager)(nil)

type Server struct {
	echo          *echo.Echo
	gateway       Gateway
	listenAddress string
	pollTimeout   time.Duration
}

func NewServer(gw Gateway, listenAddress string, pollTimeout time.Duration) *Server {
	s := &Server{
		echo:          echo.New(),
		gateway:       gw,
		listenAddress: listenAddress,
		pollTimeout:   pollTimeout,
	}
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	e := s.echo
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			entry := log.WithFields(log.Fields{
				"method":     values.Method,
				"uri":        values.URI,
				"status":     values.Status,
				"latency":    values.Latency,
				"remote_ip":  values.RemoteIP,
				"request_id": values.RequestID,
			})
			if values.Error != nil {
				entry.WithError(values.Error).Warn("request failed")

				return nil
			}
			entry.Debug("handled request")

			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.POST("/wait_invoice", s.waitInvoiceHandler)
	e.POST("/orders", s.createOrderHandler)
	e.POST("/orders/:id/checkout", s.checkoutHandler)
	e.GET("/orders/:id", s.getOrderHandler)
	e.GET("/orders/:id/qr.png", s.qrHandler)
	e.POST("/hooks/charge", s.chargeHookHandler)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) ListenAndServe() error {
	log.Infof("HTTP server listening on %s", s.listenAddress)

	err := s.echo.Start(s.listenAddress)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
