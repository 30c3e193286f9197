package aggregator

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dexmeta/meta-swap-api/internal/cache"
	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/logger"
	"github.com/dexmeta/meta-swap-api/internal/models"
	"github.com/dexmeta/meta-swap-api/internal/providers"
)

func crossChainKW(req providers.CrossChainSwapRequest) []cache.KW {
	return []cache.KW{
		{Name: "gasPrice", Value: req.GasPrice},
		{Name: "slippage", Value: req.SlippagePercentage},
		{Name: "taker", Value: req.TakerAddress},
		{Name: "feeRecipient", Value: req.FeeRecipient},
		{Name: "fee", Value: req.BuyTokenPercentageFee},
	}
}

// resolveGasPrice fills in the source-chain gas price for adapters that
// cannot quote without one.
func (s *Service) resolveGasPrice(ctx context.Context, provider providers.CrossChainProvider, req providers.CrossChainSwapRequest) providers.CrossChainSwapRequest {
	if req.GasPrice == nil && provider.RequiresGasPrice() {
		req.GasPrice = s.baseGasPrice(ctx, req.ChainIDFrom)
	}
	return req
}

type crossChainEntry struct {
	provider providers.CrossChainProvider
	name     string
	spender  string
}

func (s *Service) crossChainEntries(chainIDFrom uint64) []crossChainEntry {
	var entries []crossChainEntry
	for _, name := range s.crossChain.Names() {
		provider, _ := s.crossChain.Get(name)
		descriptor, _ := s.crossChain.Descriptor(name)
		spender, ok := descriptor.SpenderFor(chainIDFrom)
		if !ok || spender.MarketOrder == "" {
			continue
		}
		entries = append(entries, crossChainEntry{provider: provider, name: name, spender: spender.MarketOrder})
	}
	return entries
}

// GetCrossChainMetaPrice fans the request out over the cross-chain providers
// and ranks their quotes. The buy side is priced on the destination chain;
// transaction costs accrue on the source chain.
func (s *Service) GetCrossChainMetaPrice(ctx context.Context, req providers.CrossChainSwapRequest) ([]models.MetaPrice, error) {
	entries := s.crossChainEntries(req.ChainIDFrom)
	if len(entries) == 0 {
		return nil, errors.New(errors.ProviderNotFound, "", fmt.Sprintf("no cross-chain providers serve chain %d", req.ChainIDFrom))
	}

	key := cache.Key("aggregator.GetCrossChainMetaPrice",
		[]interface{}{req.ChainIDFrom, req.ChainIDTo, req.BuyToken, req.SellToken, req.SellAmount.String()},
		crossChainKW(req)...,
	)
	return cache.Memoize(ctx, s.cache, key, cache.TTLMetaPrice, func(ctx context.Context) ([]models.MetaPrice, error) {
		return s.collectCrossChainPrices(ctx, entries, req)
	})
}

func (s *Service) collectCrossChainPrices(ctx context.Context, entries []crossChainEntry, req providers.CrossChainSwapRequest) ([]models.MetaPrice, error) {
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
		pctx = s.loadPriceContext(ctx, req.ChainIDTo, req.BuyToken)
		if pctx.err != nil {
			return
		}
		// Costs are paid on the source chain.
		srcChain, ok := s.chains.GetByID(req.ChainIDFrom)
		if !ok {
			pctx.err = errors.NewValidation(fmt.Sprintf("chain id %d is not supported", req.ChainIDFrom))
			return
		}
		pctx.inputs.nativeDecimals = srcChain.NativeToken.Decimals
		pctx.inputs.fallbackGasPrice = s.baseGasPrice(ctx, req.ChainIDFrom)
	}()
	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry crossChainEntry) {
			defer wg.Done()
			quote, err := entry.provider.GetCrossChainPrice(ctx, s.resolveGasPrice(ctx, entry.provider, req))
			if err != nil {
				quoteErr[i] = err
				return
			}
			// The adapter's reported allowance target drives the approval
			// probe; the descriptor spender covers adapters reporting none.
			if quote.AllowanceTarget == "" {
				quote.AllowanceTarget = entry.spender
			}
			quotes[i] = quote
			approves[i], appErr[i] = s.approveCost(ctx, req.ChainIDFrom, req.SellToken, quote.AllowanceTarget, req.TakerAddress, req.SellAmount)
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
				"provider": entry.name,
				"reason":   appErr[i].Error(),
			})
			continue
		}
		quote := *quotes[i]
		value, err := profit(quote, approves[i], pctx.inputs)
		if err != nil {
			logger.Warn("skipping provider, unusable quote", logger.Fields{
				"provider": entry.name,
				"reason":   err.Error(),
			})
			continue
		}
		results = append(results, models.MetaPrice{
			Provider:      entry.name,
			PriceResponse: quote,
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

// GetCrossChainProviderPrice returns one cross-chain provider's quote with
// allowance economics but without ranking.
func (s *Service) GetCrossChainProviderPrice(ctx context.Context, providerName string, req providers.CrossChainSwapRequest) (*models.MetaPrice, error) {
	provider, ok := s.crossChain.Get(providerName)
	if !ok {
		return nil, errors.NewProviderNotFound(providerName)
	}
	descriptor, _ := s.crossChain.Descriptor(providerName)
	spender, ok := descriptor.SpenderFor(req.ChainIDFrom)
	if !ok || spender.MarketOrder == "" {
		return nil, errors.NewSpenderAddressNotFound(providerName, req.ChainIDFrom)
	}

	key := cache.Key("aggregator.GetCrossChainProviderPrice",
		[]interface{}{providerName, req.ChainIDFrom, req.ChainIDTo, req.BuyToken, req.SellToken, req.SellAmount.String()},
		crossChainKW(req)...,
	)
	result, err := cache.Memoize(ctx, s.cache, key, cache.TTLMetaPrice, func(ctx context.Context) (models.MetaPrice, error) {
		quote, err := provider.GetCrossChainPrice(ctx, s.resolveGasPrice(ctx, provider, req))
		if err != nil {
			return models.MetaPrice{}, err
		}
		if quote.AllowanceTarget == "" {
			quote.AllowanceTarget = spender.MarketOrder
		}
		approve, err := s.approveCost(ctx, req.ChainIDFrom, req.SellToken, quote.AllowanceTarget, req.TakerAddress, req.SellAmount)
		if err != nil {
			return models.MetaPrice{}, err
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

// GetCrossChainMetaSwapQuote builds the committed cross-chain transaction
// with the chosen provider.
func (s *Service) GetCrossChainMetaSwapQuote(ctx context.Context, providerName string, req providers.CrossChainSwapRequest) (*models.TxQuote, error) {
	if req.TakerAddress == "" {
		return nil, errors.NewValidation("takerAddress is required for a swap quote")
	}
	provider, ok := s.crossChain.Get(providerName)
	if !ok {
		return nil, errors.NewProviderNotFound(providerName)
	}
	return provider.GetCrossChainQuote(ctx, s.resolveGasPrice(ctx, provider, req))
}
