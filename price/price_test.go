package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignature(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	// echo -n "1700000000.pub" | openssl dgst -sha256 -hmac secret
	want := "1700000000.pub.2470921bf54cabfccce7d481a29dbfc5c3828d1ceacb259b341180ba077a122b"
	got := Signature("pub", "secret", ts)
	require.Equal(t, want, got)
}

func TestClient_GetRate(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tests := []struct {
		name     string
		coin     string
		currency string
		status   int
		body     string
		wantPath string
		want     string
		wantErr  bool
	}{
		{
			name:     "bitcoin in dollars",
			coin:     "btc",
			currency: "usd",
			status:   http.StatusOK,
			body:     `{"ask":40000.00,"bid":39990.5,"last":39995}`,
			wantPath: "/indices/global/ticker/BTCUSD",
			want:     "40000",
		},
		{
			name:     "litecoin in euros as string",
			coin:     "LTC",
			currency: "EUR",
			status:   http.StatusOK,
			body:     `{"ask":"65.12"}`,
			wantPath: "/indices/global/ticker/LTCEUR",
			want:     "65.12",
		},
		{
			name:     "missing ask",
			coin:     "BTC",
			currency: "USD",
			status:   http.StatusOK,
			body:     `{"bid":1}`,
			wantPath: "/indices/global/ticker/BTCUSD",
			wantErr:  true,
		},
		{
			name:     "zero ask",
			coin:     "BTC",
			currency: "USD",
			status:   http.StatusOK,
			body:     `{"ask":0}`,
			wantPath: "/indices/global/ticker/BTCUSD",
			wantErr:  true,
		},
		{
			name:     "unauthorized",
			coin:     "BTC",
			currency: "USD",
			status:   http.StatusUnauthorized,
			body:     `{"error":"bad signature"}`,
			wantPath: "/indices/global/ticker/BTCUSD",
			wantErr:  true,
		},
		{
			name:     "not json",
			coin:     "BTC",
			currency: "USD",
			status:   http.StatusOK,
			body:     `<html>`,
			wantPath: "/indices/global/ticker/BTCUSD",
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantPath, r.URL.Path)
				assert.Equal(t, Signature("pub", "secret", now), r.Header.Get("X-Signature"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(server.URL, "pub", "secret", tt.coin, WithClock(func() time.Time { return now }))
			require.NoError(t, err)

			rate, err := client.GetRate(context.Background(), tt.currency)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrRateUnavailable)

				return
			}
			require.NoError(t, err)
			require.True(t, decimal.RequireFromString(tt.want).Equal(rate), "got %s", rate)
		})
	}
}

func TestClient_GetRateUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	client, err := NewClient(endpoint, "pub", "secret", "BTC")
	require.NoError(t, err)

	_, err = client.GetRate(context.Background(), "USD")
	require.ErrorIs(t, err, ErrRateUnavailable)
}
