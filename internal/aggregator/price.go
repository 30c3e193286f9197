package aggregator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dexmeta/meta-swap-api/internal/cache"
	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/logger"
	"github.com/dexmeta/meta-swap-api/internal/models"
	"github.com/dexmeta/meta-swap-api/internal/providers"
)

func swapRequestKW(req providers.SwapRequest) []cache.KW {
	return []cache.KW{
		{Name: "gasPrice", Value: req.GasPrice},
		{Name: "slippage", Value: req.SlippagePercentage},
		{Name: "taker", Value: req.TakerAddress},
		{Name: "feeRecipient", Value: req.FeeRecipient},
		{Name: "fee", Value: req.BuyTokenPercentageFee},
	}
}

// priceContext is the shared reference data one aggregation pass needs:
// decimals, the buy token's native price and a gas price for costing.
type priceContext struct {
	inputs profitInputs
	err    error
}

func (s *Service) loadPriceContext(ctx context.Context, chainID uint64, buyToken string) priceContext {
	chain, ok := s.chains.GetByID(chainID)
	if !ok {
		return priceContext{err: errors.NewValidation(fmt.Sprintf("chain id %d is not supported", chainID))}
	}

	var (
		wg             sync.WaitGroup
		buyDecimals    uint8
		decimalsErr    error
		buyNativePrice decimal.Decimal
		priceErr       error
		inputs         profitInputs
	)
	inputs.nativeDecimals = chain.NativeToken.Decimals

	// The native sentinel has no market of its own; the wrapped-native
	// contract carries its price.
	priceToken := buyToken
	if strings.EqualFold(buyToken, models.NativeTokenAddress) {
		priceToken = chain.NativeToken.Address
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		buyDecimals, decimalsErr = s.decimals.Decimals(ctx, chainID, buyToken)
	}()
	go func() {
		defer wg.Done()
		buyNativePrice, priceErr = s.tokens.NativePrice(ctx, chainID, priceToken)
	}()
	go func() {
		defer wg.Done()
		inputs.fallbackGasPrice = s.baseGasPrice(ctx, chainID)
	}()
	wg.Wait()

	if decimalsErr != nil {
		return priceContext{err: errors.New(errors.ProviderUnspecified, "token_info", decimalsErr.Error())}
	}
	if priceErr != nil {
		return priceContext{err: errors.New(errors.ProviderUnspecified, "token_info", priceErr.Error())}
	}
	inputs.buyDecimals = buyDecimals
	inputs.buyNativePrice = buyNativePrice
	return priceContext{inputs: inputs}
}

// GetMetaPrice fans the request out over every provider serving the chain
// and returns their quotes ranked by expected profit. Provider failures are
// collected, not propagated; the request fails only when nobody answers.
func (s *Service) GetMetaPrice(ctx context.Context, req providers.SwapRequest) ([]models.MetaPrice, error) {
	entries := s.registry.MarketOrdersOn(req.ChainID)
	if len(entries) == 0 {
		return nil, errors.New(errors.ProviderNotFound, "", fmt.Sprintf("no providers serve chain %d", req.ChainID))
	}

	key := cache.Key("aggregator.GetMetaPrice",
		[]interface{}{req.ChainID, req.BuyToken, req.SellToken, req.SellAmount.String()},
		swapRequestKW(req)...,
	)
	return cache.Memoize(ctx, s.cache, key, cache.TTLMetaPrice, func(ctx context.Context) ([]models.MetaPrice, error) {
		return s.collectMetaPrices(ctx, entries, req)
	})
}

func (s *Service) collectMetaPrices(ctx context.Context, entries []providers.MarketOrderEntry, req providers.SwapRequest) ([]models.MetaPrice, error) {
	var (
		wg       sync.WaitGroup
		quotes   = make([]*models.PriceQuote, len(entries))
		quoteErr = make([]error, len(entries))
		approves = make([]uint64, len(entries))
		appErr   = make([]error, len(entries))
		pctx     priceContext
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		pctx = s.loadPriceContext(ctx, req.ChainID, req.BuyToken)
	}()
	for i, entry := range entries {
		wg.Add(2)
		go func(i int, entry providers.MarketOrderEntry) {
			defer wg.Done()
			quotes[i], quoteErr[i] = entry.Provider.GetSwapPrice(ctx, req)
		}(i, entry)
		go func(i int, entry providers.MarketOrderEntry) {
			defer wg.Done()
			approves[i], appErr[i] = s.approveCost(ctx, req.ChainID, req.SellToken, entry.Spender, req.TakerAddress, req.SellAmount)
		}(i, entry)
	}
	wg.Wait()

	if pctx.err != nil {
		return nil, pctx.err
	}

	var (
		results []models.MetaPrice
		profits []decimal.Decimal
	)
	for i, entry := range entries {
		if quoteErr[i] != nil {
			continue
		}
		if appErr[i] != nil {
			logger.Warn("skipping provider, allowance check failed", logger.Fields{
				"provider": entry.Name,
				"reason":   appErr[i].Error(),
			})
			continue
		}
		value, err := profit(*quotes[i], approves[i], pctx.inputs)
		if err != nil {
			logger.Warn("skipping provider, unusable quote", logger.Fields{
				"provider": entry.Name,
				"reason":   err.Error(),
			})
			continue
		}
		results = append(results, models.MetaPrice{
			Provider:      entry.Name,
			PriceResponse: *quotes[i],
			IsAllowed:     approves[i] == 0,
			ApproveCost:   approves[i],
		})
		profits = append(profits, value)
	}
	if len(results) == 0 {
		return nil, errors.New(errors.ProviderUnspecified, "", "No prices found in any provider")
	}
	return rank(results, profits), nil
}

// GetProviderPrice returns one provider's quote with allowance economics but
// without ranking.
func (s *Service) GetProviderPrice(ctx context.Context, providerName string, req providers.SwapRequest) (*models.MetaPrice, error) {
	provider, ok := s.registry.Get(providerName)
	if !ok {
		return nil, errors.NewProviderNotFound(providerName)
	}
	descriptor, _ := s.registry.Descriptor(providerName)
	spender, ok := descriptor.SpenderFor(req.ChainID)
	if !ok || spender.MarketOrder == "" {
		return nil, errors.NewSpenderAddressNotFound(providerName, req.ChainID)
	}

	key := cache.Key("aggregator.GetProviderPrice",
		[]interface{}{providerName, req.ChainID, req.BuyToken, req.SellToken, req.SellAmount.String()},
		swapRequestKW(req)...,
	)
	result, err := cache.Memoize(ctx, s.cache, key, cache.TTLMetaPrice, func(ctx context.Context) (models.MetaPrice, error) {
		var (
			wg      sync.WaitGroup
			quote   *models.PriceQuote
			qErr    error
			approve uint64
			aErr    error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			quote, qErr = provider.GetSwapPrice(ctx, req)
		}()
		go func() {
			defer wg.Done()
			approve, aErr = s.approveCost(ctx, req.ChainID, req.SellToken, spender.MarketOrder, req.TakerAddress, req.SellAmount)
		}()
		wg.Wait()
		if qErr != nil {
			return models.MetaPrice{}, qErr
		}
		if aErr != nil {
			return models.MetaPrice{}, aErr
		}
		return models.MetaPrice{
			Provider:      providerName,
			PriceResponse: *quote,
			IsAllowed:     approve == 0,
			ApproveCost:   approve,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMetaSwapQuote builds the committed transaction quote with the chosen
// provider. A taker is mandatory: the transaction is built for its sender.
func (s *Service) GetMetaSwapQuote(ctx context.Context, providerName string, req providers.SwapRequest) (*models.TxQuote, error) {
	if req.TakerAddress == "" {
		return nil, errors.NewValidation("takerAddress is required for a swap quote")
	}
	provider, ok := s.registry.Get(providerName)
	if !ok {
		return nil, errors.NewProviderNotFound(providerName)
	}
	return provider.GetSwapQuote(ctx, req)
}
