package kyberswap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGasPriceWei(t *testing.T) {
	p := &Provider{name: "kyberswap"}

	tests := []struct {
		gwei string
		want string
	}{
		{gwei: "25", want: "25000000000"},
		{gwei: "1.5", want: "1500000000"},
		{gwei: "0.000000001", want: "1"},
		{gwei: "garbage", want: "0"},
		{gwei: "", want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.gwei, func(t *testing.T) {
			resp := &routeResponse{GasPriceGwei: tt.gwei}
			assert.Equal(t, tt.want, p.gasPriceWei(resp))
		})
	}
}

func TestTokenDecimalsLookup(t *testing.T) {
	p := &Provider{name: "kyberswap"}
	var resp routeResponse
	raw := `{"tokens":{"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48":{"decimals":6}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	decimals, err := p.tokenDecimals(&resp, 1, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)

	_, err = p.tokenDecimals(&resp, 1, "0x6b175474e89094c44da98b954eedeac495271d0f")
	require.Error(t, err)
}

func TestConvertSources(t *testing.T) {
	var resp routeResponse
	raw := `{"swaps":[[{"exchange":"kyberswap-elastic"},{"exchange":"uniswap"}],[{"exchange":"curve"}]]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	sources := convertSources(&resp)
	require.Len(t, sources, 3)
	assert.Equal(t, "Uniswap", sources[1].Name)
	assert.Zero(t, sources[0].Proportion)
}
