package aggregator

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexmeta/meta-swap-api/internal/cache"
	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/gas"
	"github.com/dexmeta/meta-swap-api/internal/models"
	"github.com/dexmeta/meta-swap-api/internal/providers"
	"github.com/dexmeta/meta-swap-api/internal/tokeninfo"
)

type fakeCrossProvider struct {
	name         string
	needsGas     bool
	quote        *models.PriceQuote
	err          error
	mu           sync.Mutex
	lastRequests []providers.CrossChainSwapRequest
}

func (f *fakeCrossProvider) Name() string { return f.name }

func (f *fakeCrossProvider) RequiresGasPrice() bool { return f.needsGas }

func (f *fakeCrossProvider) record(req providers.CrossChainSwapRequest) {
	f.mu.Lock()
	f.lastRequests = append(f.lastRequests, req)
	f.mu.Unlock()
}

func (f *fakeCrossProvider) GetCrossChainPrice(_ context.Context, req providers.CrossChainSwapRequest) (*models.PriceQuote, error) {
	f.record(req)
	if f.err != nil {
		return nil, f.err
	}
	quote := *f.quote
	return &quote, nil
}

func (f *fakeCrossProvider) GetCrossChainQuote(_ context.Context, req providers.CrossChainSwapRequest) (*models.TxQuote, error) {
	f.record(req)
	return &models.TxQuote{BuyAmount: f.quote.BuyAmount}, nil
}

const crossSpender = "0xdddddddddddddddddddddddddddddddddddddddd"

func newCrossFixture(t *testing.T, chain *fakeChain, entries ...*fakeCrossProvider) *fixture {
	t.Helper()
	mem := cache.NewMemory()

	catalog := tokeninfo.NewCatalog([]models.ChainInfo{
		{
			Name:        "eth",
			ChainID:     1,
			NativeToken: models.Token{Address: wethAddress, Decimals: 18},
			EIP1559:     true,
		},
		{
			Name:        "bsc",
			ChainID:     56,
			NativeToken: models.Token{Address: "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c", Decimals: 18},
			EIP1559:     false,
		},
	})
	tokens := &fakeTokens{nativePrice: decimal.NewFromInt(1)}
	decimals := tokeninfo.NewDecimalsResolver(tokens, catalog, mem, models.NativeTokenAddress)

	registry := providers.NewRegistry()
	crossRegistry := providers.NewCrossChainRegistry()
	for _, p := range entries {
		crossRegistry.Register(p, models.ProviderDescriptor{
			Name:        p.name,
			DisplayName: p.name,
			Enabled:     true,
			Spenders:    []models.Spender{{ChainID: 1, MarketOrder: crossSpender}},
		})
	}
	gasService := gas.NewService(chain, catalog, mem)

	return &fixture{
		service: NewService(registry, crossRegistry, chain, tokens, decimals, catalog, gasService, mem),
		cache:   mem,
	}
}

func crossRequest() providers.CrossChainSwapRequest {
	return providers.CrossChainSwapRequest{
		BuyToken:    buyToken,
		SellToken:   sellToken,
		SellAmount:  big.NewInt(1000000000000000000),
		ChainIDFrom: 1,
		ChainIDTo:   56,
	}
}

func TestGetCrossChainMetaPriceResolvesGasPrice(t *testing.T) {
	bridge := &fakeCrossProvider{
		name:     "bridge",
		needsGas: true,
		quote:    quoteWith("bridge", "100000000000000000000"),
	}
	f := newCrossFixture(t, &fakeChain{gasPrice: big.NewInt(42)}, bridge)
	defer f.close()

	results, err := f.service.GetCrossChainMetaPrice(context.Background(), crossRequest())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, *results[0].IsBest)

	require.NotEmpty(t, bridge.lastRequests)
	require.NotNil(t, bridge.lastRequests[0].GasPrice)
	assert.Equal(t, "42", bridge.lastRequests[0].GasPrice.String())
}

func TestGetCrossChainMetaPriceUsesAdapterAllowanceTarget(t *testing.T) {
	adapterTarget := "0x9999999999999999999999999999999999999999"
	quote := quoteWith("bridge", "100000000000000000000")
	quote.AllowanceTarget = adapterTarget
	bridge := &fakeCrossProvider{name: "bridge", quote: quote}
	chain := &fakeChain{gasPrice: big.NewInt(1)}
	f := newCrossFixture(t, chain, bridge)
	defer f.close()

	req := crossRequest()
	req.TakerAddress = taker
	results, err := f.service.GetCrossChainMetaPrice(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, adapterTarget, results[0].PriceResponse.AllowanceTarget)
	assert.Contains(t, chain.probed, adapterTarget)
	assert.NotContains(t, chain.probed, crossSpender)
}

func TestGetCrossChainMetaPriceFallsBackToDescriptorSpender(t *testing.T) {
	bridge := &fakeCrossProvider{name: "bridge", quote: quoteWith("bridge", "100000000000000000000")}
	chain := &fakeChain{gasPrice: big.NewInt(1)}
	f := newCrossFixture(t, chain, bridge)
	defer f.close()

	req := crossRequest()
	req.TakerAddress = taker
	results, err := f.service.GetCrossChainMetaPrice(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, crossSpender, results[0].PriceResponse.AllowanceTarget)
	assert.Contains(t, chain.probed, crossSpender)
}

func TestGetCrossChainMetaPriceNoProviders(t *testing.T) {
	f := newCrossFixture(t, &fakeChain{gasPrice: big.NewInt(1)})
	defer f.close()

	_, err := f.service.GetCrossChainMetaPrice(context.Background(), crossRequest())
	var perr *errors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ProviderNotFound, perr.Kind)
}

func TestGetCrossChainProviderPrice(t *testing.T) {
	bridge := &fakeCrossProvider{name: "bridge", quote: quoteWith("bridge", "5000000000000000000")}
	f := newCrossFixture(t, &fakeChain{gasPrice: big.NewInt(1)}, bridge)
	defer f.close()

	result, err := f.service.GetCrossChainProviderPrice(context.Background(), "bridge", crossRequest())
	require.NoError(t, err)
	assert.Equal(t, "bridge", result.Provider)
	assert.Nil(t, result.IsBest)
	assert.Equal(t, crossSpender, result.PriceResponse.AllowanceTarget)
}

func TestGetCrossChainMetaSwapQuoteRequiresTaker(t *testing.T) {
	bridge := &fakeCrossProvider{name: "bridge", quote: quoteWith("bridge", "5")}
	f := newCrossFixture(t, &fakeChain{gasPrice: big.NewInt(1)}, bridge)
	defer f.close()

	_, err := f.service.GetCrossChainMetaSwapQuote(context.Background(), "bridge", crossRequest())
	var perr *errors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ValidationFailed, perr.Kind)

	req := crossRequest()
	req.TakerAddress = taker
	quote, err := f.service.GetCrossChainMetaSwapQuote(context.Background(), "bridge", req)
	require.NoError(t, err)
	assert.Equal(t, "5", quote.BuyAmount)
}
