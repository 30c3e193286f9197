package zerox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/models"
	"github.com/dexmeta/meta-swap-api/internal/providers"
)

func TestDescriptor(t *testing.T) {
	d := Descriptor()
	assert.Equal(t, "zero_x", d.Name)
	assert.True(t, d.Enabled)

	spender, ok := d.SpenderFor(1)
	require.True(t, ok)
	assert.Equal(t, "0xdef1c0ded9bec7f1a1670819833240f027b25eff", spender.MarketOrder)
	assert.Empty(t, spender.LimitOrder)
}

func TestConvertSources(t *testing.T) {
	raw := []routeSource{
		{Name: "Uniswap_V2", Proportion: "0.6"},
		{Name: "Curve", Proportion: "0"},
		{Name: "MultiHop", Proportion: "0.4", Hops: []string{"SushiSwap", "Balancer_V2"}},
		{Name: "Broken", Proportion: "n/a"},
	}
	sources := convertSources(raw)
	require.Len(t, sources, 3)
	assert.Equal(t, models.SwapSource{Name: "UniswapV2", Proportion: 60}, sources[0])
	assert.Equal(t, models.SwapSource{Name: "SushiSwap", Proportion: 40}, sources[1])
	assert.Equal(t, models.SwapSource{Name: "BalancerV2", Proportion: 40}, sources[2])
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "validation errors joined",
			body: `{"code":100,"reason":"Validation Failed","validationErrors":[{"field":"sellAmount","reason":"INSUFFICIENT_ASSET_LIQUIDITY"},{"field":"takerAddress","reason":"invalid address"}]}`,
			want: "sellAmount: INSUFFICIENT_ASSET_LIQUIDITY; takerAddress: invalid address",
		},
		{
			name: "plain reason",
			body: `{"code":105,"reason":"Gas estimation failed"}`,
			want: "Gas estimation failed",
		},
		{
			name: "values message",
			body: `{"values":{"message":"Insufficient funds for transaction"}}`,
			want: "Insufficient funds for transaction",
		},
		{
			name: "garbage",
			body: `not json`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractMessage([]byte(tt.body)))
		})
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		message string
		want    errors.Kind
	}{
		{message: "sellAmount: INSUFFICIENT_ASSET_LIQUIDITY", want: errors.InsufficientLiquidity},
		{message: "Insufficient funds for transaction", want: errors.InsufficientBalance},
		{message: "IncompleteTransformERC20Error", want: errors.InvalidTokens},
		{message: "SenderNotAuthorizedError", want: errors.InsufficientAllowance},
		{message: "Gas estimation failed", want: errors.EstimationFailed},
		{message: "ERC20: insufficient allowance", want: errors.InsufficientAllowance},
		{message: "something novel", want: errors.ProviderUnspecified},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			perr := providers.ClassifyMessage(errorRules, "zero_x", tt.message)
			assert.Equal(t, tt.want, perr.Kind)
		})
	}
}

func TestBaseURL(t *testing.T) {
	p := &Provider{name: "zero_x"}

	url, err := p.baseURL(1)
	require.NoError(t, err)
	assert.Equal(t, "https://api.0x.org", url)

	url, err = p.baseURL(137)
	require.NoError(t, err)
	assert.Equal(t, "https://polygon.api.0x.org", url)

	_, err = p.baseURL(424242)
	require.Error(t, err)
}
