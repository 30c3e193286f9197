// Package providers defines the adapter capability sets and the registries
// the aggregation engine resolves adapters from. Each adapter encapsulates
// its own URL templates, parameter naming and error classification.
package providers

import (
	"context"
	"math/big"

	"github.com/dexmeta/meta-swap-api/internal/models"
)

// SwapRequest is the logical input envelope shared by every single-chain
// operation. Addresses are normalized (lowercased) before an adapter sees
// them; the adapter translates the native sentinel into whatever form its
// upstream expects.
type SwapRequest struct {
	BuyToken   string
	SellToken  string
	SellAmount *big.Int
	ChainID    uint64

	// Optional fields; zero values mean "not provided".
	GasPrice              *big.Int
	SlippagePercentage    float64 // 0.01 = 1%
	TakerAddress          string
	FeeRecipient          string
	BuyTokenPercentageFee float64
	IgnoreChecks          bool
}

// CrossChainSwapRequest is the cross-chain variant of SwapRequest.
type CrossChainSwapRequest struct {
	BuyToken    string
	SellToken   string
	SellAmount  *big.Int
	ChainIDFrom uint64
	ChainIDTo   uint64

	GasPrice              *big.Int
	SlippagePercentage    float64
	TakerAddress          string
	FeeRecipient          string
	BuyTokenPercentageFee float64
}

// Provider is the single-chain capability set every adapter implements.
type Provider interface {
	Name() string
	// GetSwapPrice returns what the provider advertises without commitment.
	GetSwapPrice(ctx context.Context, req SwapRequest) (*models.PriceQuote, error)
	// GetSwapQuote returns a ready-to-broadcast transaction quote.
	GetSwapQuote(ctx context.Context, req SwapRequest) (*models.TxQuote, error)
}

// LimitOrdersRequest filters the order listing of one trader.
type LimitOrdersRequest struct {
	ChainID    uint64
	Trader     string
	MakerToken string
	TakerToken string
	Statuses   []string
}

// LimitOrderProvider is the optional limit-order capability set, implemented
// by adapters from either registry. Payloads are adapter-shaped and passed
// through verbatim.
type LimitOrderProvider interface {
	GetOrdersByTrader(ctx context.Context, req LimitOrdersRequest) ([]map[string]interface{}, error)
	GetOrderByHash(ctx context.Context, chainID uint64, orderHash string) (map[string]interface{}, error)
	PostLimitOrder(ctx context.Context, chainID uint64, orderHash, signature string, data map[string]interface{}) (map[string]interface{}, error)
}

// CrossChainProvider is the cross-chain capability set.
type CrossChainProvider interface {
	Name() string
	// RequiresGasPrice reports whether the adapter needs a resolved gas price
	// before quoting.
	RequiresGasPrice() bool
	GetCrossChainPrice(ctx context.Context, req CrossChainSwapRequest) (*models.PriceQuote, error)
	GetCrossChainQuote(ctx context.Context, req CrossChainSwapRequest) (*models.TxQuote, error)
}
