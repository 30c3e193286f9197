// Package gas computes per-chain gas price reports from node fee history.
package gas

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/dexmeta/meta-swap-api/internal/cache"
	"github.com/dexmeta/meta-swap-api/internal/chainclient"
	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/logger"
	"github.com/dexmeta/meta-swap-api/internal/models"
	"github.com/dexmeta/meta-swap-api/internal/providers"
	"github.com/dexmeta/meta-swap-api/internal/tokeninfo"
)

const (
	// ReportSource tags every report with the producing backend.
	ReportSource = "DEXGURU"

	feeHistoryBlocks = 4
	maxAttempts      = 3
)

// Percentiles behind the fast, instant and overkill tiers.
var rewardPercentiles = []float64{60, 75, 90}

// Service produces gas reports, cached briefly per chain.
type Service struct {
	client chainclient.ChainClient
	chains *tokeninfo.Catalog
	cache  cache.Cache
}

// NewService wires the gas service.
func NewService(client chainclient.ChainClient, chains *tokeninfo.Catalog, c cache.Cache) *Service {
	return &Service{client: client, chains: chains, cache: c}
}

// GetGasPrices returns the current gas report for a chain. EIP-1559 chains
// get tiered max/priority fees from fee history; others a legacy price.
func (s *Service) GetGasPrices(ctx context.Context, chainID uint64) (*models.GasReport, error) {
	key := cache.Key("gas.GetGasPrices", []interface{}{chainID})
	report, err := cache.Memoize(ctx, s.cache, key, cache.TTLGas, func(ctx context.Context) (models.GasReport, error) {
		report, err := s.buildReport(ctx, chainID)
		if err != nil {
			return models.GasReport{}, err
		}
		return *report, nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GetBaseGasPrice returns the node's plain gas price in wei, cached briefly.
// Cross-chain adapters that need a source-chain gas price use this.
func (s *Service) GetBaseGasPrice(ctx context.Context, chainID uint64) (*big.Int, error) {
	key := cache.Key("gas.GetBaseGasPrice", []interface{}{chainID})
	price, err := cache.Memoize(ctx, s.cache, key, cache.TTLGas, func(ctx context.Context) (string, error) {
		price, err := s.gasPrice(ctx, chainID)
		if err != nil {
			return "", err
		}
		return price.String(), nil
	})
	if err != nil {
		return nil, err
	}
	result, ok := new(big.Int).SetString(price, 10)
	if !ok {
		return nil, fmt.Errorf("cached gas price is not an integer: %s", price)
	}
	return result, nil
}

func (s *Service) buildReport(ctx context.Context, chainID uint64) (*models.GasReport, error) {
	chain, ok := s.chains.GetByID(chainID)
	if ok && chain.EIP1559 {
		report, err := s.eip1559Report(ctx, chainID)
		if err == nil {
			return report, nil
		}
		logger.Warn("fee history unavailable, falling back to legacy gas price", logger.Fields{
			"chain_id": chainID,
			"reason":   err.Error(),
		})
	}
	report, err := s.legacyReport(ctx, chainID)
	if err != nil {
		// Node failures are provider-owned.
		return nil, errors.New(errors.ProviderUnspecified, "gas", err.Error())
	}
	return report, nil
}

// errEmptyRewards signals a fee history with no usable reward rows.
type errEmptyRewards struct{}

func (errEmptyRewards) Error() string { return "fee history has no reward rows" }

func (s *Service) eip1559Report(ctx context.Context, chainID uint64) (*models.GasReport, error) {
	history, err := s.feeHistory(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if len(history.BaseFeePerGas) == 0 {
		return nil, errEmptyRewards{}
	}
	// The trailing entry estimates the next block's base fee.
	baseFee := history.BaseFeePerGas[len(history.BaseFeePerGas)-1]

	tiers := make([]models.Eip1559Tier, len(rewardPercentiles))
	for column := range rewardPercentiles {
		sum := new(big.Int)
		count := 0
		for _, row := range history.Reward {
			if column >= len(row) || row[column] == nil {
				continue
			}
			sum.Add(sum, row[column])
			count++
		}
		if count == 0 {
			return nil, errEmptyRewards{}
		}
		priority := new(big.Int).Div(sum, big.NewInt(int64(count)))
		tiers[column] = models.Eip1559Tier{
			MaxFee:         new(big.Int).Add(baseFee, priority),
			BaseFee:        baseFee,
			MaxPriorityFee: priority,
		}
	}
	return &models.GasReport{
		Source:    ReportSource,
		Timestamp: time.Now().Unix(),
		Eip1559: &models.Eip1559Report{
			Fast:     tiers[0],
			Instant:  tiers[1],
			Overkill: tiers[2],
		},
	}, nil
}

func (s *Service) legacyReport(ctx context.Context, chainID uint64) (*models.GasReport, error) {
	price, err := s.gasPrice(ctx, chainID)
	if err != nil {
		return nil, err
	}
	return &models.GasReport{
		Source:    ReportSource,
		Timestamp: time.Now().Unix(),
		Legacy: &models.LegacyReport{
			Fast:     price,
			Instant:  price,
			Overkill: price,
		},
	}, nil
}

// feeHistory retries transient node failures before giving up.
func (s *Service) feeHistory(ctx context.Context, chainID uint64) (*chainclient.FeeHistory, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		history, err := s.client.FeeHistory(ctx, chainID, feeHistoryBlocks, rewardPercentiles)
		if err == nil {
			return history, nil
		}
		lastErr = err
		if !providers.IsTimeout(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (s *Service) gasPrice(ctx context.Context, chainID uint64) (*big.Int, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		price, err := s.client.GasPrice(ctx, chainID)
		if err == nil {
			return price, nil
		}
		lastErr = err
		if !providers.IsTimeout(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}
