package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNewFromBtc(t *testing.T) {
	type args struct {
		amount decimal.Decimal
	}
	tests := []struct {
		name    string
		args    args
		want    Money
		wantErr bool
	}{
		{
			name: "NewFromBtc - Pass",
			args: args{
				amount: decimal.NewFromInt(1),
			},
			want:    100000000,
			wantErr: false,
		},
		{
			name: "NewFromBtc - Fail Negative Amount",
			args: args{
				amount: decimal.NewFromInt(-1),
			},
			want:    0,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewFromBtc(tt.args.amount)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFromBtc() error = %v, wantErr %v", err, tt.wantErr)

				return
			}
			if got != tt.want {
				t.Errorf("NewFromBtc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewFromFiat(t *testing.T) {
	tests := []struct {
		name    string
		total   string
		rate    string
		want    Money
		wantErr error
	}{
		{
			name:  "ten dollars at forty thousand",
			total: "10.00",
			rate:  "40000.00",
			want:  25000,
		},
		{
			name:  "rounds half up",
			total: "0.000000125",
			rate:  "1",
			want:  13,
		},
		{
			name:  "rounds to nearest satoshi",
			total: "1",
			rate:  "30000",
			want:  3333,
		},
		{
			name:  "zero total",
			total: "0",
			rate:  "30000",
			want:  0,
		},
		{
			name:    "negative total",
			total:   "-1",
			rate:    "30000",
			wantErr: ErrNegativeAmount,
		},
		{
			name:    "zero rate",
			total:   "1",
			rate:    "0",
			wantErr: ErrInvalidRate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewFromFiat(decimal.RequireFromString(tt.total), decimal.RequireFromString(tt.rate))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFiatRoundTrip(t *testing.T) {
	rates := []string{"40000", "31234.56", "65.12", "0.5"}
	amounts := []Money{1, 999, 25000, 123456789}
	for _, r := range rates {
		rate := decimal.RequireFromString(r)
		for _, m := range amounts {
			back, err := NewFromFiat(m.ToFiat(rate), rate)
			require.NoError(t, err)
			diff := int64(back) - int64(m) // nolint:gosec
			require.LessOrEqual(t, diff, int64(1), "rate %s amount %d", r, m)
			require.GreaterOrEqual(t, diff, int64(-1), "rate %s amount %d", r, m)
		}
	}
}

func TestMoney_ToBtc(t *testing.T) {
	tests := []struct {
		name string
		m    Money
		want decimal.Decimal
	}{
		{
			name: "To BTC - Pass",
			m:    100000000,
			want: decimal.NewFromInt(1),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.ToBtc(); got.Cmp(tt.want) != 0 {
				t.Errorf("Money.ToBtc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoney_Format(t *testing.T) {
	m := Money(25000)
	require.Equal(t, "0.0002500", m.Fixed())
	require.Equal(t, "0.00025 BTC", m.String())
}
