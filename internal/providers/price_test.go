package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/models"
)

func TestComputePrice(t *testing.T) {
	tests := []struct {
		name         string
		buyAmount    string
		sellAmount   string
		buyDecimals  uint8
		sellDecimals uint8
		want         string
	}{
		{
			name:         "eth to usdc",
			buyAmount:    "2000000000", // 2000 USDC
			sellAmount:   "1000000000000000000",
			buyDecimals:  6,
			sellDecimals: 18,
			want:         "2000",
		},
		{
			name:         "usdc to eth",
			buyAmount:    "1000000000000000000",
			sellAmount:   "2000000000",
			buyDecimals:  18,
			sellDecimals: 6,
			want:         "0.0005",
		},
		{
			name:         "equal decimals",
			buyAmount:    "3000000000000000000",
			sellAmount:   "2000000000000000000",
			buyDecimals:  18,
			sellDecimals: 18,
			want:         "1.5",
		},
		{
			name:         "repeating fraction",
			buyAmount:    "1",
			sellAmount:   "3",
			buyDecimals:  0,
			sellDecimals: 0,
			want:         "0.33333333333333333333333333333333",
		},
		{
			name:         "huge amounts survive",
			buyAmount:    "115792089237316195423570985008687907853269984665640564039457584007913129639935",
			sellAmount:   "115792089237316195423570985008687907853269984665640564039457584007913129639935",
			buyDecimals:  18,
			sellDecimals: 18,
			want:         "1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputePrice("test", tt.buyAmount, tt.sellAmount, tt.buyDecimals, tt.sellDecimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputePriceErrors(t *testing.T) {
	tests := []struct {
		name       string
		buyAmount  string
		sellAmount string
	}{
		{name: "non-numeric buy", buyAmount: "abc", sellAmount: "1"},
		{name: "non-numeric sell", buyAmount: "1", sellAmount: "abc"},
		{name: "zero sell", buyAmount: "1", sellAmount: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputePrice("test", tt.buyAmount, tt.sellAmount, 18, 18)
			require.Error(t, err)
			var perr *errors.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, errors.ParseResponse, perr.Kind)
			assert.Equal(t, "test", perr.Provider)
		})
	}
}

func TestNativeValue(t *testing.T) {
	tests := []struct {
		name      string
		sellToken string
		want      string
	}{
		{name: "native sentinel", sellToken: models.NativeTokenAddress, want: "123456789"},
		{name: "checksummed sentinel", sellToken: "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE", want: "123456789"},
		{name: "erc20 token", sellToken: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NativeValue(tt.sellToken, "123456789"))
		})
	}
}
