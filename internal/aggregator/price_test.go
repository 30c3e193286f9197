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
	"github.com/dexmeta/meta-swap-api/internal/chainclient"
	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/gas"
	"github.com/dexmeta/meta-swap-api/internal/models"
	"github.com/dexmeta/meta-swap-api/internal/providers"
	"github.com/dexmeta/meta-swap-api/internal/tokeninfo"
)

const (
	wethAddress = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	buyToken    = "0x6b175474e89094c44da98b954eedeac495271d0f"
	sellToken   = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	taker       = "0x1111111111111111111111111111111111111111"
)

type fakeProvider struct {
	name  string
	quote *models.PriceQuote
	err   error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) GetSwapPrice(context.Context, providers.SwapRequest) (*models.PriceQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	quote := *f.quote
	return &quote, nil
}

func (f *fakeProvider) GetSwapQuote(context.Context, providers.SwapRequest) (*models.TxQuote, error) {
	return &models.TxQuote{BuyAmount: f.quote.BuyAmount, SellAmount: f.quote.SellAmount}, nil
}

type fakeTokens struct {
	nativePrice decimal.Decimal
}

func (f *fakeTokens) Decimals(context.Context, uint64, string) (uint8, error) { return 18, nil }

func (f *fakeTokens) NativePrice(context.Context, uint64, string) (decimal.Decimal, error) {
	return f.nativePrice, nil
}

func (f *fakeTokens) ListChains(context.Context) ([]models.ChainInfo, error) { return nil, nil }

type fakeChain struct {
	allowances map[string]*big.Int
	approveGas uint64
	gasPrice   *big.Int

	mu     sync.Mutex
	probed []string
}

func (f *fakeChain) Allowance(_ context.Context, _ uint64, _, spender, _ string) (*big.Int, error) {
	f.mu.Lock()
	f.probed = append(f.probed, spender)
	f.mu.Unlock()
	if allowance, ok := f.allowances[spender]; ok {
		return allowance, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChain) EstimateApprove(context.Context, uint64, string, string, string) (uint64, error) {
	return f.approveGas, nil
}

func (f *fakeChain) GasPrice(context.Context, uint64) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeChain) FeeHistory(context.Context, uint64, uint64, []float64) (*chainclient.FeeHistory, error) {
	return &chainclient.FeeHistory{}, nil
}

type fixture struct {
	service *Service
	cache   *cache.Memory
}

func (f *fixture) close() { f.cache.Close() }

func quoteWith(provider, buyAmount string) *models.PriceQuote {
	return &models.PriceQuote{
		Provider:   provider,
		Sources:    []models.SwapSource{},
		BuyAmount:  buyAmount,
		SellAmount: "1000000000000000000",
		Gas:        "0",
		GasPrice:   "1",
		Value:      "0",
		Price:      "1",
	}
}

func newFixture(t *testing.T, chain *fakeChain, entries ...providers.Provider) *fixture {
	t.Helper()
	return newFixtureNativePrice(t, chain, decimal.NewFromInt(1), entries...)
}

func newFixtureNativePrice(t *testing.T, chain *fakeChain, nativePrice decimal.Decimal, entries ...providers.Provider) *fixture {
	t.Helper()
	mem := cache.NewMemory()

	catalog := tokeninfo.NewCatalog([]models.ChainInfo{{
		Name:        "eth",
		ChainID:     1,
		NativeToken: models.Token{Address: wethAddress, Decimals: 18},
		EIP1559:     true,
	}})
	tokens := &fakeTokens{nativePrice: nativePrice}
	decimals := tokeninfo.NewDecimalsResolver(tokens, catalog, mem, models.NativeTokenAddress)

	registry := providers.NewRegistry()
	spenders := []string{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "0xcccccccccccccccccccccccccccccccccccccccc"}
	for i, p := range entries {
		registry.Register(p, models.ProviderDescriptor{
			Name:        p.Name(),
			DisplayName: p.Name(),
			Enabled:     true,
			Spenders:    []models.Spender{{ChainID: 1, MarketOrder: spenders[i]}},
		})
	}
	crossRegistry := providers.NewCrossChainRegistry()
	gasService := gas.NewService(chain, catalog, mem)

	return &fixture{
		service: NewService(registry, crossRegistry, chain, tokens, decimals, catalog, gasService, mem),
		cache:   mem,
	}
}

func baseRequest() providers.SwapRequest {
	return providers.SwapRequest{
		BuyToken:   buyToken,
		SellToken:  sellToken,
		SellAmount: big.NewInt(1000000000000000000),
		ChainID:    1,
	}
}

func TestGetMetaPriceRanksByBuyAmount(t *testing.T) {
	alpha := &fakeProvider{name: "alpha", quote: quoteWith("alpha", "100000000000000000000")}
	beta := &fakeProvider{name: "beta", quote: quoteWith("beta", "110000000000000000000")}
	f := newFixture(t, &fakeChain{gasPrice: big.NewInt(1)}, alpha, beta)
	defer f.close()

	results, err := f.service.GetMetaPrice(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "alpha", results[0].Provider)
	require.NotNil(t, results[0].IsBest)
	assert.False(t, *results[0].IsBest)

	assert.Equal(t, "beta", results[1].Provider)
	require.NotNil(t, results[1].IsBest)
	assert.True(t, *results[1].IsBest)

	// No taker means no approval economics.
	assert.True(t, results[0].IsAllowed)
	assert.Zero(t, results[0].ApproveCost)
}

func TestGetMetaPriceTieGoesToFirstRegistered(t *testing.T) {
	alpha := &fakeProvider{name: "alpha", quote: quoteWith("alpha", "100000000000000000000")}
	beta := &fakeProvider{name: "beta", quote: quoteWith("beta", "100000000000000000000")}
	f := newFixture(t, &fakeChain{gasPrice: big.NewInt(1)}, alpha, beta)
	defer f.close()

	results, err := f.service.GetMetaPrice(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, *results[0].IsBest)
	assert.False(t, *results[1].IsBest)
}

func TestGetMetaPriceZeroNativePriceTieBreaksByRegistration(t *testing.T) {
	// A worthless buy token makes every profit identical; the first
	// registered provider stays the leader.
	alpha := &fakeProvider{name: "alpha", quote: quoteWith("alpha", "100000000000000000000")}
	beta := &fakeProvider{name: "beta", quote: quoteWith("beta", "900000000000000000000")}
	f := newFixtureNativePrice(t, &fakeChain{gasPrice: big.NewInt(1)}, decimal.Zero, alpha, beta)
	defer f.close()

	results, err := f.service.GetMetaPrice(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].Provider)
	assert.True(t, *results[0].IsBest)
	assert.False(t, *results[1].IsBest)
}

func TestGetMetaPriceMinimalSellAmount(t *testing.T) {
	quote := quoteWith("alpha", "2")
	quote.SellAmount = "1"
	alpha := &fakeProvider{name: "alpha", quote: quote}
	f := newFixture(t, &fakeChain{gasPrice: big.NewInt(1)}, alpha)
	defer f.close()

	req := baseRequest()
	req.SellAmount = big.NewInt(1)
	results, err := f.service.GetMetaPrice(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, *results[0].IsBest)
	assert.Equal(t, "2", results[0].PriceResponse.BuyAmount)
}

func TestGetMetaPriceApprovalCostChangesRanking(t *testing.T) {
	// alpha advertises one native coin more, but its spender needs an
	// approval costing two native coins at the quoted gas price.
	alpha := &fakeProvider{name: "alpha", quote: quoteWith("alpha", "100000000000000000000")}
	beta := &fakeProvider{name: "beta", quote: quoteWith("beta", "99000000000000000000")}
	chain := &fakeChain{
		gasPrice:   big.NewInt(1),
		approveGas: 2000000000000000000,
		allowances: map[string]*big.Int{
			// beta's spender is already approved, alpha's is not.
			"0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb": big.NewInt(0).Lsh(big.NewInt(1), 128),
		},
	}
	f := newFixture(t, chain, alpha, beta)
	defer f.close()

	req := baseRequest()
	req.TakerAddress = taker
	results, err := f.service.GetMetaPrice(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "alpha", results[0].Provider)
	assert.False(t, *results[0].IsBest)
	assert.False(t, results[0].IsAllowed)
	assert.Equal(t, uint64(2000000000000000000), results[0].ApproveCost)

	assert.Equal(t, "beta", results[1].Provider)
	assert.True(t, *results[1].IsBest)
	assert.True(t, results[1].IsAllowed)
	assert.Zero(t, results[1].ApproveCost)
}

func TestGetMetaPriceNativeSellSkipsApproval(t *testing.T) {
	alpha := &fakeProvider{name: "alpha", quote: quoteWith("alpha", "100000000000000000000")}
	f := newFixture(t, &fakeChain{gasPrice: big.NewInt(1), approveGas: 50000}, alpha)
	defer f.close()

	req := baseRequest()
	req.TakerAddress = taker
	req.SellToken = models.NativeTokenAddress
	results, err := f.service.GetMetaPrice(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].IsAllowed)
	assert.Zero(t, results[0].ApproveCost)
}

func TestGetMetaPriceCollectsFailures(t *testing.T) {
	alpha := &fakeProvider{name: "alpha", err: errors.New(errors.InsufficientLiquidity, "alpha", "no pools")}
	beta := &fakeProvider{name: "beta", quote: quoteWith("beta", "100000000000000000000")}
	f := newFixture(t, &fakeChain{gasPrice: big.NewInt(1)}, alpha, beta)
	defer f.close()

	results, err := f.service.GetMetaPrice(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "beta", results[0].Provider)
	assert.True(t, *results[0].IsBest)
}

func TestGetMetaPriceAllProvidersFail(t *testing.T) {
	alpha := &fakeProvider{name: "alpha", err: errors.NewTimeout("alpha", "deadline")}
	beta := &fakeProvider{name: "beta", err: errors.New(errors.InsufficientLiquidity, "beta", "no pools")}
	f := newFixture(t, &fakeChain{gasPrice: big.NewInt(1)}, alpha, beta)
	defer f.close()

	_, err := f.service.GetMetaPrice(context.Background(), baseRequest())
	require.Error(t, err)
	var perr *errors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ProviderUnspecified, perr.Kind)
	assert.Equal(t, 409, perr.StatusCode())
	assert.Contains(t, perr.Message, "No prices found")
}

func TestGetMetaPriceNoProvidersOnChain(t *testing.T) {
	f := newFixture(t, &fakeChain{gasPrice: big.NewInt(1)})
	defer f.close()

	_, err := f.service.GetMetaPrice(context.Background(), baseRequest())
	var perr *errors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ProviderNotFound, perr.Kind)
}

func TestGetProviderPrice(t *testing.T) {
	alpha := &fakeProvider{name: "alpha", quote: quoteWith("alpha", "100000000000000000000")}
	f := newFixture(t, &fakeChain{gasPrice: big.NewInt(1)}, alpha)
	defer f.close()

	result, err := f.service.GetProviderPrice(context.Background(), "alpha", baseRequest())
	require.NoError(t, err)
	assert.Equal(t, "alpha", result.Provider)
	assert.Nil(t, result.IsBest, "single-provider view carries no ranking")
	assert.True(t, result.IsAllowed)
}

func TestGetProviderPriceUnknownProvider(t *testing.T) {
	f := newFixture(t, &fakeChain{gasPrice: big.NewInt(1)})
	defer f.close()

	_, err := f.service.GetProviderPrice(context.Background(), "ghost", baseRequest())
	var perr *errors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ProviderNotFound, perr.Kind)
	assert.Equal(t, 417, perr.StatusCode())
}

func TestGetProviderPriceMissingSpender(t *testing.T) {
	alpha := &fakeProvider{name: "alpha", quote: quoteWith("alpha", "1")}
	f := newFixture(t, &fakeChain{gasPrice: big.NewInt(1)}, alpha)
	defer f.close()

	req := baseRequest()
	req.ChainID = 137
	_, err := f.service.GetProviderPrice(context.Background(), "alpha", req)
	var perr *errors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.SpenderAddressNotFound, perr.Kind)
}

func TestGetMetaSwapQuoteRequiresTaker(t *testing.T) {
	alpha := &fakeProvider{name: "alpha", quote: quoteWith("alpha", "1")}
	f := newFixture(t, &fakeChain{gasPrice: big.NewInt(1)}, alpha)
	defer f.close()

	_, err := f.service.GetMetaSwapQuote(context.Background(), "alpha", baseRequest())
	var perr *errors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ValidationFailed, perr.Kind)

	req := baseRequest()
	req.TakerAddress = taker
	quote, err := f.service.GetMetaSwapQuote(context.Background(), "alpha", req)
	require.NoError(t, err)
	assert.Equal(t, "1", quote.BuyAmount)
}
