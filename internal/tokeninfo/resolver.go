package tokeninfo

import (
	"context"
	"fmt"
	"strings"

	"github.com/dexmeta/meta-swap-api/internal/cache"
)

// DecimalsResolver resolves token decimals with caching. The native sentinel
// and the chain's wrapped-native address both short-circuit to the native
// token's decimals without a lookup.
type DecimalsResolver struct {
	source TokenInfo
	chains *Catalog
	cache  cache.Cache
	native string
}

// NewDecimalsResolver wires a resolver over the token-info source.
func NewDecimalsResolver(source TokenInfo, chains *Catalog, c cache.Cache, nativeSentinel string) *DecimalsResolver {
	return &DecimalsResolver{source: source, chains: chains, cache: c, native: strings.ToLower(nativeSentinel)}
}

// Decimals returns the decimals of a token on a chain.
func (r *DecimalsResolver) Decimals(ctx context.Context, chainID uint64, token string) (uint8, error) {
	token = strings.ToLower(token)
	chain, ok := r.chains.GetByID(chainID)
	if !ok {
		return 0, fmt.Errorf("chain id %d not found", chainID)
	}
	if token == r.native || token == chain.NativeToken.Address {
		return chain.NativeToken.Decimals, nil
	}
	key := cache.Key("tokeninfo.Decimals", []interface{}{chainID, token})
	return cache.Memoize(ctx, r.cache, key, cache.TTLDecimals, func(ctx context.Context) (uint8, error) {
		return r.source.Decimals(ctx, chainID, token)
	})
}

// NativeDecimals returns the chain's native-token decimals.
func (r *DecimalsResolver) NativeDecimals(chainID uint64) (uint8, error) {
	chain, ok := r.chains.GetByID(chainID)
	if !ok {
		return 0, fmt.Errorf("chain id %d not found", chainID)
	}
	return chain.NativeToken.Decimals, nil
}
