package openocean

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexmeta/meta-swap-api/internal/models"
)

func TestDescriptor(t *testing.T) {
	d := Descriptor()
	assert.Equal(t, "openocean", d.Name)

	spender, ok := d.SpenderFor(137)
	require.True(t, ok)
	assert.Equal(t, "0x6352a56caadc4f1e25cd6c75970fa768a3304e64", spender.MarketOrder)
}

func TestConvertSources(t *testing.T) {
	var resp swapResponse
	raw := `{"path":{"routes":[
		{"subRoutes":[{"dexes":[{"dex":"UNISWAP_V3","percentage":65},{"dex":"SUSHISWAP","percentage":35}]}]},
		{"subRoutes":[{"dexes":[{"dex":"CURVE","percentage":100}]}]}
	]}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	sources := convertSources(&resp)
	require.Len(t, sources, 3)
	assert.Equal(t, models.SwapSource{Name: "UniswapV3", Proportion: 65}, sources[0])
	assert.Equal(t, models.SwapSource{Name: "Sushiswap", Proportion: 35}, sources[1])
	assert.Equal(t, models.SwapSource{Name: "Curve", Proportion: 100}, sources[2])
}

func TestExtractMessage(t *testing.T) {
	assert.Equal(t, "bad token", extractMessage([]byte(`{"error":"bad token"}`)))
	assert.Equal(t, "oops", extractMessage([]byte(`{"message":"oops"}`)))
	assert.Empty(t, extractMessage([]byte(`not json`)))
}
