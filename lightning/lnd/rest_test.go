package lnd

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/40acres/lngateway/lightning"
	"github.com/40acres/lngateway/lightning/lightningtest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/macaroon.v2"
)

func testMacaroonHex(t *testing.T) string {
	t.Helper()

	mac, err := macaroon.New([]byte("dummy-root"), []byte("dummy-id"), "dummy-location", macaroon.LatestVersion)
	require.NoError(t, err)
	macBytes, err := mac.MarshalBinary()
	require.NoError(t, err)

	return hex.EncodeToString(macBytes)
}

// newTestRestClient starts a TLS server and returns a client that trusts
// its certificate through a cert file.
func newTestRestClient(t *testing.T, handler http.Handler, opts ...Option) (*RestClient, string) {
	t.Helper()

	server := httptest.NewTLSServer(handler)
	t.Cleanup(server.Close)

	memFs := afero.NewMemMapFs()
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})
	require.NoError(t, afero.WriteFile(memFs, "/tls.cert", certPEM, 0644))

	macHex := testMacaroonHex(t)
	base := []Option{
		WithLndEndpoint(server.URL),
		WithMacaroonHex(macHex),
		WithTLSCertFilePath("/tls.cert"),
		WithNetwork(lightning.Regtest),
		func(o *Options) { o.FS = memFs },
	}

	client, err := NewRestClient(append(base, opts...)...)
	require.NoError(t, err)

	return client, macHex
}

func TestRestClient_CreateInvoice(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	payreq := lightningtest.PaymentRequest(t, 25000, lightningtest.WithTimestamp(created), lightningtest.WithExpiry(30*time.Minute))

	var gotBody map[string]any
	var gotMacaroon string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/invoices", func(w http.ResponseWriter, r *http.Request) {
		gotMacaroon = r.Header.Get("Grpc-Metadata-macaroon")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"r_hash":"14qLqLYlECfzf9b+v/AxXy1FvoMboxP7I8bgOiq+PKU=","payment_request":"` + payreq + `","add_index":"3"}`))
	})

	client, macHex := newTestRestClient(t, mux)

	invoice, err := client.CreateInvoice(context.Background(), 25000, "Order key: wc_order_1")
	require.NoError(t, err)
	require.Equal(t, payreq, invoice.PaymentRequest)
	require.Equal(t, lightningtest.PaymentHashHex, invoice.PaymentHash)
	require.True(t, created.Equal(invoice.CreatedAt))
	require.Equal(t, 30*time.Minute, invoice.Expiry)

	require.Equal(t, macHex, gotMacaroon)
	require.EqualValues(t, 25000, gotBody["value"])
	require.Equal(t, "Order key: wc_order_1", gotBody["memo"])
}

func TestRestClient_CreateInvoiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "legacy error field",
			status:  http.StatusOK,
			body:    `{"error":"amount must be positive"}`,
			wantErr: lightning.ErrNodeRejected,
			wantMsg: "amount must be positive",
		},
		{
			name:    "gateway error",
			status:  http.StatusInternalServerError,
			body:    `{"code":2,"message":"invoice with payment hash already exists","details":[]}`,
			wantErr: lightning.ErrNodeRejected,
			wantMsg: "invoice with payment hash already exists",
		},
		{
			name:    "missing payment request",
			status:  http.StatusOK,
			body:    `{"r_hash":"AAAA"}`,
			wantErr: lightning.ErrNodeRejected,
			wantMsg: "payment_request",
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `<html>oops</html>`,
			wantErr: lightning.ErrNodeRejected,
		},
		{
			name:    "node behind proxy is down",
			status:  http.StatusBadGateway,
			body:    ``,
			wantErr: lightning.ErrNodeUnreachable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestRestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := client.CreateInvoice(context.Background(), 1000, "memo")
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				require.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestRestClient_LookupPaymentRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/payreq/{payreq}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("payreq") {
		case "lnbcrt1good":
			_, _ = w.Write([]byte(`{"destination":"02ab","payment_hash":"d78a8ba8","num_satoshis":"25000","timestamp":"1714557600","expiry":"900","description":"Order key: k"}`))
		case "lnbcrt1numbers":
			_, _ = w.Write([]byte(`{"payment_hash":"d78a8ba8","num_satoshis":25000,"timestamp":1714557600,"expiry":900}`))
		case "lnbcrt1nohash":
			_, _ = w.Write([]byte(`{"timestamp":"1714557600","expiry":"900"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":2,"message":"checksum failed","details":[]}`))
		}
	})
	client, _ := newTestRestClient(t, mux)
	ctx := context.Background()

	for _, payreq := range []string{"lnbcrt1good", "lnbcrt1numbers"} {
		summary, err := client.LookupPaymentRequest(ctx, payreq)
		require.NoError(t, err)
		require.Equal(t, "d78a8ba8", summary.PaymentHash)
		require.Equal(t, time.Unix(1714557600, 0).UTC(), summary.CreatedAt)
		require.Equal(t, 15*time.Minute, summary.Expiry)
		require.EqualValues(t, 25000, summary.ValueSat)
	}

	_, err := client.LookupPaymentRequest(ctx, "lnbcrt1nohash")
	require.ErrorIs(t, err, lightning.ErrInvoiceNotFound)

	_, err = client.LookupPaymentRequest(ctx, "garbage")
	require.ErrorIs(t, err, lightning.ErrInvoiceNotFound)
	require.Contains(t, err.Error(), "checksum failed")
}

func TestRestClient_LookupInvoice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/invoice/{hash}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("hash") {
		case "settled":
			_, _ = w.Write([]byte(`{"r_hash":"14qLqLYlECfzf9b+v/AxXy1FvoMboxP7I8bgOiq+PKU=","value":"25000","settled":true,"settle_date":"1714558000","state":"SETTLED"}`))
		case "open":
			_, _ = w.Write([]byte(`{"r_hash":"14qLqLYlECfzf9b+v/AxXy1FvoMboxP7I8bgOiq+PKU=","value":"25000","settled":false,"settle_date":"0","state":"OPEN"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":5,"message":"unable to locate invoice","details":[]}`))
		}
	})
	client, _ := newTestRestClient(t, mux)
	ctx := context.Background()

	detail, err := client.LookupInvoice(ctx, "settled")
	require.NoError(t, err)
	require.True(t, detail.Settled)
	require.Equal(t, lightningtest.PaymentHashHex, detail.PaymentHash)
	require.Equal(t, time.Unix(1714558000, 0).UTC(), detail.SettleDate)
	require.EqualValues(t, 25000, detail.ValueSat)

	detail, err = client.LookupInvoice(ctx, "open")
	require.NoError(t, err)
	require.False(t, detail.Settled)
	require.True(t, detail.SettleDate.IsZero())

	_, err = client.LookupInvoice(ctx, "unknown")
	require.ErrorIs(t, err, lightning.ErrInvoiceNotFound)
}

func TestRestClient_TLSVerification(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"payment_hash":"ab","timestamp":"1","expiry":"60"}`))
	}))
	t.Cleanup(server.Close)
	macHex := testMacaroonHex(t)

	verifying, err := NewRestClient(WithLndEndpoint(server.URL), WithMacaroonHex(macHex), WithNetwork(lightning.Regtest))
	require.NoError(t, err)
	_, err = verifying.LookupPaymentRequest(context.Background(), "lnbcrt1x")
	require.ErrorIs(t, err, lightning.ErrNodeUnreachable)

	insecure, err := NewRestClient(WithLndEndpoint(server.URL), WithMacaroonHex(macHex), WithNetwork(lightning.Regtest), WithInsecureSkipVerify(true))
	require.NoError(t, err)
	_, err = insecure.LookupPaymentRequest(context.Background(), "lnbcrt1x")
	require.NoError(t, err)
}

func TestRestClient_Unreachable(t *testing.T) {
	server := httptest.NewTLSServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewRestClient(WithLndEndpoint(url), WithMacaroonHex(testMacaroonHex(t)), WithInsecureSkipVerify(true), WithNetwork(lightning.Regtest))
	require.NoError(t, err)

	_, err = client.CreateInvoice(context.Background(), 1, "memo")
	require.ErrorIs(t, err, lightning.ErrNodeUnreachable)
	_, err = client.LookupInvoice(context.Background(), "ab")
	require.ErrorIs(t, err, lightning.ErrNodeUnreachable)
}

func TestNewRestClient_Credentials(t *testing.T) {
	memFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(memFs, "/bad.cert", []byte("not a cert"), 0644))
	require.NoError(t, afero.WriteFile(memFs, "/bad.macaroon", []byte("not a macaroon"), 0644))
	withFs := func(o *Options) { o.FS = memFs }

	_, err := NewRestClient(withFs)
	require.ErrorIs(t, err, ErrMissingMacaroon)

	_, err = NewRestClient(withFs, WithMacaroonFilePath("/bad.macaroon"))
	require.ErrorContains(t, err, "failed unmarshalling macaroon")

	_, err = NewRestClient(withFs, WithMacaroonHex("zz"))
	require.ErrorContains(t, err, "failed decoding macaroon")

	_, err = NewRestClient(withFs, WithMacaroonHex(testMacaroonHex(t)), WithTLSCertFilePath("/bad.cert"))
	require.ErrorContains(t, err, "no PEM certificate")

	_, err = NewRestClient(withFs, WithMacaroonHex(testMacaroonHex(t)), WithTLSCertFilePath("/missing.cert"))
	require.ErrorContains(t, err, "failed reading TLS cert file")
}
