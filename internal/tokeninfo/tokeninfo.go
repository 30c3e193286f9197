// Package tokeninfo abstracts the token-metadata service: token decimals,
// native-denominated token prices and the supported chain list.
package tokeninfo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dexmeta/meta-swap-api/internal/models"
)

// TokenInfo is the port for token metadata lookups.
type TokenInfo interface {
	// Decimals returns the ERC-20 decimals of a token.
	Decimals(ctx context.Context, chainID uint64, token string) (uint8, error)
	// NativePrice returns the token price denominated in the chain's native
	// coin.
	NativePrice(ctx context.Context, chainID uint64, token string) (decimal.Decimal, error)
	// ListChains returns every chain the service supports.
	ListChains(ctx context.Context) ([]models.ChainInfo, error)
}
