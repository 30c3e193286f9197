// Package chainclient abstracts blockchain node access: ERC-20 allowance
// reads, approve gas estimation, gas price and fee history.
package chainclient

import (
	"context"
	"math/big"
)

// FeeHistory is the eth_feeHistory result subset the gas service consumes.
// Reward rows are ordered oldest block first; each row holds one value per
// requested percentile. BaseFeePerGas has one extra trailing element for the
// next (pending) block.
type FeeHistory struct {
	Reward        [][]*big.Int
	BaseFeePerGas []*big.Int
}

// ChainClient is the port for on-chain reads. Wire-level details (JSON-RPC,
// ABI encoding) are the implementation's responsibility.
type ChainClient interface {
	// Allowance returns how many base units of token the spender may move on
	// behalf of owner.
	Allowance(ctx context.Context, chainID uint64, token, spender, owner string) (*big.Int, error)
	// EstimateApprove returns the gas units an unlimited approve from owner
	// to spender on token would cost.
	EstimateApprove(ctx context.Context, chainID uint64, token, owner, spender string) (uint64, error)
	// GasPrice returns the node's current legacy gas price in wei.
	GasPrice(ctx context.Context, chainID uint64) (*big.Int, error)
	// FeeHistory returns recent base fees and priority-fee reward percentiles.
	FeeHistory(ctx context.Context, chainID uint64, blockCount uint64, rewardPercentiles []float64) (*FeeHistory, error)
}
