// Package limitorders routes limit-order operations to the adapters that
// support them. Order payloads stay in each provider's native shape.
package limitorders

import (
	"context"
	"fmt"

	"github.com/dexmeta/meta-swap-api/internal/cache"
	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/providers"
)

// Service is the limit-order facade over both registries.
type Service struct {
	market *providers.Registry
	cross  *providers.CrossChainRegistry
	cache  cache.Cache
}

// NewService wires the facade.
func NewService(market *providers.Registry, cross *providers.CrossChainRegistry, c cache.Cache) *Service {
	return &Service{market: market, cross: cross, cache: c}
}

// resolve finds an adapter by name in either registry and checks the
// limit-order capability.
func (s *Service) resolve(providerName string) (providers.LimitOrderProvider, error) {
	var adapter interface{}
	if p, ok := s.market.Get(providerName); ok {
		adapter = p
	} else if p, ok := s.cross.Get(providerName); ok {
		adapter = p
	} else {
		return nil, errors.NewProviderNotFound(providerName)
	}
	lop, ok := adapter.(providers.LimitOrderProvider)
	if !ok {
		return nil, errors.New(errors.ProviderNotFound, providerName,
			fmt.Sprintf("provider '%s' does not support limit orders", providerName))
	}
	return lop, nil
}

// ListByTrader lists the trader's orders with the given provider, cached
// briefly.
func (s *Service) ListByTrader(ctx context.Context, providerName string, req providers.LimitOrdersRequest) ([]map[string]interface{}, error) {
	provider, err := s.resolve(providerName)
	if err != nil {
		return nil, err
	}
	key := cache.Key("limitorders.ListByTrader",
		[]interface{}{providerName, req.ChainID, req.Trader},
		cache.KW{Name: "makerToken", Value: req.MakerToken},
		cache.KW{Name: "takerToken", Value: req.TakerToken},
		cache.KW{Name: "statuses", Value: req.Statuses},
	)
	return cache.Memoize(ctx, s.cache, key, cache.TTLLimitOrders, func(ctx context.Context) ([]map[string]interface{}, error) {
		return provider.GetOrdersByTrader(ctx, req)
	})
}

// GetByHash fetches one order, cached briefly.
func (s *Service) GetByHash(ctx context.Context, providerName string, chainID uint64, orderHash string) (map[string]interface{}, error) {
	provider, err := s.resolve(providerName)
	if err != nil {
		return nil, err
	}
	key := cache.Key("limitorders.GetByHash", []interface{}{providerName, chainID, orderHash})
	return cache.Memoize(ctx, s.cache, key, cache.TTLLimitOrders, func(ctx context.Context) (map[string]interface{}, error) {
		return provider.GetOrderByHash(ctx, chainID, orderHash)
	})
}

// Submit posts a signed order to the provider. Never cached.
func (s *Service) Submit(ctx context.Context, providerName string, chainID uint64, orderHash, signature string, data map[string]interface{}) (map[string]interface{}, error) {
	provider, err := s.resolve(providerName)
	if err != nil {
		return nil, err
	}
	return provider.PostLimitOrder(ctx, chainID, orderHash, signature, data)
}
