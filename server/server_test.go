package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/40acres/lngateway/database"
	"github.com/40acres/lngateway/database/models"
	"github.com/40acres/lngateway/gateway"
	"github.com/40acres/lngateway/lightning"
	"github.com/40acres/lngateway/price"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestServer(t *testing.T) (*Server, *MockGateway) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	gw := NewMockGateway(ctrl)

	return NewServer(gw, ":0", 5*time.Second), gw
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	return rec
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return req
}

func jsonRequest(method, path string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func TestServer_WaitInvoice(t *testing.T) {
	tests := []struct {
		name       string
		result     gateway.Result
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "settled", result: gateway.ResultSettled, wantStatus: http.StatusOK, wantBody: "true"},
		{name: "already settled", result: gateway.ResultAlreadySettled, wantStatus: http.StatusOK, wantBody: "true"},
		{name: "pending", result: gateway.ResultPending, wantStatus: http.StatusPaymentRequired, wantBody: "false"},
		{name: "renewed", result: gateway.ResultRenewed, wantStatus: http.StatusGone, wantBody: "false"},
		{name: "not found", result: gateway.ResultNotFound, wantStatus: http.StatusGone, wantBody: "false"},
		{name: "failed", result: gateway.ResultFailed, wantStatus: http.StatusGone, wantBody: "false"},
		{name: "store error", err: errors.New("database is locked"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, gw := newTestServer(t)
			gw.EXPECT().CheckSettlement(gomock.Any(), uint(7)).DoAndReturn(func(ctx context.Context, _ uint) (gateway.Result, error) {
				_, ok := ctx.Deadline()
				assert.True(t, ok, "poll timeout must bound node calls")

				return tt.result, tt.err
			})

			rec := serve(s, formRequest("/wait_invoice", url.Values{"invoice_id": {"7"}}))
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				require.Equal(t, tt.wantBody, strings.TrimSpace(rec.Body.String()))
			}
		})
	}
}

func TestServer_WaitInvoiceJSON(t *testing.T) {
	s, gw := newTestServer(t)
	gw.EXPECT().CheckSettlement(gomock.Any(), uint(7)).Return(gateway.ResultPending, nil)

	rec := serve(s, jsonRequest(http.MethodPost, "/wait_invoice", map[string]string{"invoice_id": "7"}))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestServer_WaitInvoiceBadInput(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, formRequest("/wait_invoice", url.Values{}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, formRequest("/wait_invoice", url.Values{"invoice_id": {"wc_order_abc"}}))
	require.Equal(t, http.StatusGone, rec.Code)
	require.Equal(t, "false", strings.TrimSpace(rec.Body.String()))
}

func TestServer_CreateOrder(t *testing.T) {
	s, gw := newTestServer(t)
	gw.EXPECT().CreateOrder(gomock.Any(), "wc_order_1", gomock.Any(), "USD").
		DoAndReturn(func(_ context.Context, _ string, total decimal.Decimal, _ string) (*models.Order, error) {
			assert.True(t, decimal.RequireFromString("10.00").Equal(total))

			return &models.Order{ID: 3}, nil
		})
	gw.EXPECT().EnsureInvoice(gomock.Any(), uint(3)).Return(&gateway.Checkout{
		OrderID:        3,
		PaymentRequest: "lnbc250u1first",
		Amount:         25000,
		Rate:           decimal.NewFromInt(40000),
		Currency:       "USD",
	}, nil)

	rec := serve(s, jsonRequest(http.MethodPost, "/orders", map[string]string{
		"order_key": "wc_order_1",
		"total":     "10.00",
		"currency":  "USD",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	var res checkoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "lnbc250u1first", res.PaymentRequest)
	require.EqualValues(t, 25000, res.AmountSats)
	require.Empty(t, res.Error)
}

func TestServer_CreateOrderInvalidTotal(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, jsonRequest(http.MethodPost, "/orders", map[string]string{
		"order_key": "wc_order_1",
		"total":     "ten",
		"currency":  "USD",
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Checkout(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantNotice string
	}{
		{
			name:       "node rejected",
			err:        fmt.Errorf("failed to create invoice: %w: wallet locked", lightning.ErrNodeRejected),
			wantStatus: http.StatusBadGateway,
			wantNotice: "failed to create invoice: lightning node rejected the request: wallet locked",
		},
		{
			name:       "rate unavailable",
			err:        fmt.Errorf("failed to get exchange rate: %w", price.ErrRateUnavailable),
			wantStatus: http.StatusBadGateway,
			wantNotice: "Unable to fetch the exchange rate, please try again later.",
		},
		{
			name:       "node unreachable",
			err:        fmt.Errorf("failed to create invoice: %w", lightning.ErrNodeUnreachable),
			wantStatus: http.StatusBadGateway,
			wantNotice: "Unable to reach the lightning node, please try again later.",
		},
		{
			name:       "already paid",
			err:        gateway.ErrAlreadySettled,
			wantStatus: http.StatusConflict,
			wantNotice: gateway.ErrAlreadySettled.Error(),
		},
		{
			name:       "cancelled",
			err:        gateway.ErrOrderCancelled,
			wantStatus: http.StatusConflict,
			wantNotice: gateway.ErrOrderCancelled.Error(),
		},
		{
			name:       "unknown order",
			err:        database.ErrOrderNotFound,
			wantStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, gw := newTestServer(t)
			gw.EXPECT().EnsureInvoice(gomock.Any(), uint(3)).Return(nil, tt.err)

			rec := serve(s, httptest.NewRequest(http.MethodPost, "/orders/3/checkout", nil))
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantNotice != "" {
				var res checkoutResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
				require.Equal(t, tt.wantNotice, res.Error)
			}
		})
	}
}

func TestServer_GetOrder(t *testing.T) {
	s, gw := newTestServer(t)
	gw.EXPECT().PaymentView(gomock.Any(), uint(3)).Return(&gateway.View{
		OrderID:        3,
		Status:         models.PaymentAwaitingPayment,
		PaymentRequest: "lnbc250u1first",
		Amount:         "0.0002500",
	}, nil)
	gw.EXPECT().PaymentView(gomock.Any(), uint(4)).Return(nil, database.ErrOrderNotFound)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/orders/3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var view gateway.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "lnbc250u1first", view.PaymentRequest)
	require.Equal(t, models.PaymentAwaitingPayment, view.Status)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/orders/4", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/orders/abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_QR(t *testing.T) {
	s, gw := newTestServer(t)
	gw.EXPECT().PaymentView(gomock.Any(), uint(3)).Return(&gateway.View{OrderID: 3, PaymentRequest: "lnbc250u1first"}, nil)
	gw.EXPECT().PaymentView(gomock.Any(), uint(4)).Return(&gateway.View{OrderID: 4, PaymentRequest: "lnbc1paid", Paid: true}, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/orders/3/qr.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/orders/4/qr.png", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ChargeHook(t *testing.T) {
	s, gw := newTestServer(t)
	gw.EXPECT().CheckPaymentRequest(gomock.Any(), "lnbcrt1pay").Return(gateway.ResultSettled, nil)

	rec := serve(s, jsonRequest(http.MethodPost, "/hooks/charge", map[string]any{
		"id":       "inv1",
		"msatoshi": "25000000",
		"payreq":   "lnbcrt1pay",
		"status":   "paid",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var res hookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "settled", res.Result)

	rec = serve(s, jsonRequest(http.MethodPost, "/hooks/charge", map[string]any{"id": "inv1"}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RequestID(t *testing.T) {
	s, gw := newTestServer(t)
	gw.EXPECT().CheckSettlement(gomock.Any(), uint(1)).Return(gateway.ResultPending, nil)

	rec := serve(s, formRequest("/wait_invoice", url.Values{"invoice_id": {"1"}}))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
