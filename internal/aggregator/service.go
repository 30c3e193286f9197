// Package aggregator fans a swap request out over the registered provider
// adapters and folds the answers into ranked, allowance-aware meta quotes.
package aggregator

import (
	"context"
	"math/big"

	"github.com/dexmeta/meta-swap-api/internal/cache"
	"github.com/dexmeta/meta-swap-api/internal/chainclient"
	"github.com/dexmeta/meta-swap-api/internal/gas"
	"github.com/dexmeta/meta-swap-api/internal/logger"
	"github.com/dexmeta/meta-swap-api/internal/providers"
	"github.com/dexmeta/meta-swap-api/internal/tokeninfo"
)

// Service is the aggregation engine. All fields are set at startup and
// immutable afterwards, so the service is safe for concurrent use.
type Service struct {
	registry   *providers.Registry
	crossChain *providers.CrossChainRegistry
	chain      chainclient.ChainClient
	tokens     tokeninfo.TokenInfo
	decimals   *tokeninfo.DecimalsResolver
	chains     *tokeninfo.Catalog
	gas        *gas.Service
	cache      cache.Cache
}

// NewService wires the aggregation engine.
func NewService(
	registry *providers.Registry,
	crossChain *providers.CrossChainRegistry,
	chain chainclient.ChainClient,
	tokens tokeninfo.TokenInfo,
	decimals *tokeninfo.DecimalsResolver,
	chains *tokeninfo.Catalog,
	gasService *gas.Service,
	c cache.Cache,
) *Service {
	return &Service{
		registry:   registry,
		crossChain: crossChain,
		chain:      chain,
		tokens:     tokens,
		decimals:   decimals,
		chains:     chains,
		gas:        gasService,
		cache:      c,
	}
}

// baseGasPrice resolves the chain's gas price for cost ranking. A node
// failure degrades ranking rather than failing the request.
func (s *Service) baseGasPrice(ctx context.Context, chainID uint64) *big.Int {
	price, err := s.gas.GetBaseGasPrice(ctx, chainID)
	if err != nil {
		logger.Warn("gas price unavailable, ranking without transaction costs", logger.Fields{
			"chain_id": chainID,
			"reason":   err.Error(),
		})
		return big.NewInt(0)
	}
	return price
}
