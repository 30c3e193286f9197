package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexmeta/meta-swap-api/internal/errors"
)

var testRules = []ErrorRule{
	Rule(`insufficient liquidity`, errors.InsufficientLiquidity),
	Rule(`not enough \w+ balance`, errors.InsufficientBalance),
	Rule(`not enough allowance`, errors.InsufficientAllowance),
}

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    errors.Kind
	}{
		{name: "exact", message: "insufficient liquidity", want: errors.InsufficientLiquidity},
		{name: "case insensitive", message: "Insufficient Liquidity for pair", want: errors.InsufficientLiquidity},
		{name: "wildcard", message: "not enough WETH balance", want: errors.InsufficientBalance},
		{name: "first match wins", message: "insufficient liquidity and not enough allowance", want: errors.InsufficientLiquidity},
		{name: "unknown", message: "reactor core meltdown", want: errors.ProviderUnspecified},
		{name: "empty", message: "", want: errors.ProviderUnspecified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := ClassifyMessage(testRules, "alpha", tt.message)
			assert.Equal(t, tt.want, perr.Kind)
			assert.Equal(t, "alpha", perr.Provider)
			assert.Equal(t, tt.message, perr.Message)
		})
	}
}

func TestClassifyErrorTimeout(t *testing.T) {
	perr := ClassifyError(testRules, "alpha", context.DeadlineExceeded, nil)
	assert.Equal(t, errors.ProviderTimeout, perr.Kind)
	assert.Equal(t, "alpha", perr.Provider)
}

func TestClassifyErrorUpstream(t *testing.T) {
	upstream := &UpstreamError{
		Status: 400,
		Body:   []byte(`{"error":"not enough WETH balance"}`),
		URL:    "https://api.example.org/quote",
	}
	extract := func(body []byte) string { return "not enough WETH balance" }

	perr := ClassifyError(testRules, "alpha", upstream, extract)
	assert.Equal(t, errors.InsufficientBalance, perr.Kind)
	assert.Equal(t, 400, perr.Details["status"])
	assert.Equal(t, "https://api.example.org/quote", perr.Details["url"])
}

func TestClassifyErrorUpstreamWithoutExtractor(t *testing.T) {
	upstream := &UpstreamError{Status: 500, Body: []byte("insufficient liquidity"), URL: "u"}
	perr := ClassifyError(testRules, "alpha", upstream, nil)
	assert.Equal(t, errors.InsufficientLiquidity, perr.Kind)
}

func TestClassifyErrorUnknown(t *testing.T) {
	perr := ClassifyError(testRules, "alpha", assert.AnError, nil)
	require.Equal(t, errors.ProviderUnspecified, perr.Kind)
	assert.Equal(t, 409, perr.StatusCode())
}
