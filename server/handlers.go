package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/40acres/lngateway/database"
	"github.com/40acres/lngateway/gateway"
	"github.com/40acres/lngateway/lightning"
	"github.com/40acres/lngateway/lightning/charge"
	"github.com/40acres/lngateway/price"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

type waitInvoiceRequest struct {
	InvoiceID string `json:"invoice_id" form:"invoice_id"`
}

type createOrderRequest struct {
	OrderKey string `json:"order_key" form:"order_key"`
	Total    string `json:"total" form:"total"`
	Currency string `json:"currency" form:"currency"`
}

type checkoutResponse struct {
	OrderID        uint            `json:"order_id"`
	PaymentRequest string          `json:"payment_request,omitempty"`
	AmountSats     uint64          `json:"amount_sats,omitempty"`
	Rate           decimal.Decimal `json:"rate,omitempty"`
	Currency       string          `json:"currency,omitempty"`
	Error          string          `json:"error,omitempty"`
}

type hookResponse struct {
	Result string `json:"result"`
}

// waitInvoiceHandler answers the payment page poll: 200 paid, 402 pending,
// 410 when the invoice is gone and the page must reload.
func (s *Server) waitInvoiceHandler(c echo.Context) error {
	var req waitInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.InvoiceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invoice_id is required")
	}
	orderID, err := strconv.ParseUint(req.InvoiceID, 10, 64)
	if err != nil {
		return c.JSON(http.StatusGone, false)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.pollTimeout)
	defer cancel()

	res, err := s.gateway.CheckSettlement(ctx, uint(orderID))
	if err != nil {
		log.WithError(err).WithField("order_id", orderID).Error("failed to check settlement")

		return echo.NewHTTPError(http.StatusInternalServerError, "failed to check settlement")
	}

	return c.JSON(res.HTTPStatus(), res.Paid())
}

func (s *Server) createOrderHandler(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	total, err := decimal.NewFromString(req.Total)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid total")
	}

	ctx := c.Request().Context()
	order, err := s.gateway.CreateOrder(ctx, req.OrderKey, total, req.Currency)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return s.checkout(c, order.ID, http.StatusCreated)
}

func (s *Server) checkoutHandler(c echo.Context) error {
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	return s.checkout(c, orderID, http.StatusOK)
}

func (s *Server) checkout(c echo.Context, orderID uint, okStatus int) error {
	checkout, err := s.gateway.EnsureInvoice(c.Request().Context(), orderID)
	switch {
	case errors.Is(err, database.ErrOrderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, gateway.ErrAlreadySettled), errors.Is(err, gateway.ErrOrderFailed), errors.Is(err, gateway.ErrOrderCancelled):
		return c.JSON(http.StatusConflict, checkoutResponse{OrderID: orderID, Error: err.Error()})
	case err != nil:
		log.WithError(err).WithField("order_id", orderID).Warn("checkout failed")

		return c.JSON(http.StatusBadGateway, checkoutResponse{OrderID: orderID, Error: checkoutNotice(err)})
	}

	return c.JSON(okStatus, checkoutResponse{
		OrderID:        checkout.OrderID,
		PaymentRequest: checkout.PaymentRequest,
		AmountSats:     uint64(checkout.Amount),
		Rate:           checkout.Rate,
		Currency:       checkout.Currency,
	})
}

// checkoutNotice is the message shown to the customer when checkout fails.
// Node rejections are shown as reported by the node.
func checkoutNotice(err error) string {
	switch {
	case errors.Is(err, lightning.ErrNodeRejected):
		return err.Error()
	case errors.Is(err, gateway.ErrAmountTooSmall):
		return "The order total is too small to be paid with lightning."
	case errors.Is(err, price.ErrRateUnavailable):
		return "Unable to fetch the exchange rate, please try again later."
	default:
		return "Unable to reach the lightning node, please try again later."
	}
}

func (s *Server) getOrderHandler(c echo.Context) error {
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	view, err := s.gateway.PaymentView(c.Request().Context(), orderID)
	if errors.Is(err, database.ErrOrderNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, view)
}

func (s *Server) qrHandler(c echo.Context) error {
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	view, err := s.gateway.PaymentView(c.Request().Context(), orderID)
	if errors.Is(err, database.ErrOrderNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return err
	}
	if view.PaymentRequest == "" || view.Paid {
		return echo.NewHTTPError(http.StatusNotFound, "no invoice to pay")
	}

	png, err := qrcode.Encode("lightning:"+view.PaymentRequest, qrcode.Medium, qrSize)
	if err != nil {
		return err
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

// chargeHookHandler receives the invoice Lightning Charge posts once it is
// paid. The notice only triggers a check against the node.
func (s *Server) chargeHookHandler(c echo.Context) error {
	var invoice charge.Invoice
	if err := c.Bind(&invoice); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid invoice")
	}
	if invoice.PayReq == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payreq is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.pollTimeout)
	defer cancel()

	res, err := s.gateway.CheckPaymentRequest(ctx, invoice.PayReq)
	if err != nil {
		log.WithError(err).WithField("invoice_id", invoice.ID).Error("failed to check settlement")

		return echo.NewHTTPError(http.StatusInternalServerError, "failed to check settlement")
	}

	return c.JSON(http.StatusOK, hookResponse{Result: res.String()})
}

func orderIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	return uint(id), nil
}
