package aggregator

import (
	"context"
	"math/big"
	"strings"

	"github.com/dexmeta/meta-swap-api/internal/cache"
	"github.com/dexmeta/meta-swap-api/internal/models"
)

// approveCost returns the gas units an approval would cost before the swap
// can execute, or 0 when no approval is needed. Native-coin sells and
// takerless requests never need approval. Reads are cached briefly so the
// aggregated view and per-provider views share node calls.
func (s *Service) approveCost(ctx context.Context, chainID uint64, sellToken, spender, taker string, sellAmount *big.Int) (uint64, error) {
	if taker == "" || spender == "" || strings.EqualFold(sellToken, models.NativeTokenAddress) {
		return 0, nil
	}

	key := cache.Key("chainclient.Allowance", []interface{}{chainID, sellToken, spender, taker})
	allowanceStr, err := cache.Memoize(ctx, s.cache, key, cache.TTLAllowance, func(ctx context.Context) (string, error) {
		allowance, err := s.chain.Allowance(ctx, chainID, sellToken, spender, taker)
		if err != nil {
			return "", err
		}
		return allowance.String(), nil
	})
	if err != nil {
		return 0, err
	}
	allowance, ok := new(big.Int).SetString(allowanceStr, 10)
	if !ok {
		allowance = big.NewInt(0)
	}
	if allowance.Cmp(sellAmount) >= 0 {
		return 0, nil
	}

	key = cache.Key("chainclient.EstimateApprove", []interface{}{chainID, sellToken, taker, spender})
	return cache.Memoize(ctx, s.cache, key, cache.TTLApproveCost, func(ctx context.Context) (uint64, error) {
		return s.chain.EstimateApprove(ctx, chainID, sellToken, taker, spender)
	})
}
