package tokeninfo

import (
	"context"
	"fmt"
	"strings"

	"github.com/dexmeta/meta-swap-api/internal/models"
)

// Catalog is the immutable chain catalog built once at startup. Lookups are
// by short name or chain id.
type Catalog struct {
	byName map[string]models.ChainInfo
	byID   map[uint64]models.ChainInfo
	all    []models.ChainInfo
}

// LoadCatalog fetches the chain set from the token-info source.
func LoadCatalog(ctx context.Context, source TokenInfo) (*Catalog, error) {
	chains, err := source.ListChains(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chain catalog: %w", err)
	}
	return NewCatalog(chains), nil
}

// NewCatalog builds a catalog from a fixed chain set.
func NewCatalog(chains []models.ChainInfo) *Catalog {
	c := &Catalog{
		byName: make(map[string]models.ChainInfo, len(chains)),
		byID:   make(map[uint64]models.ChainInfo, len(chains)),
		all:    chains,
	}
	for _, chain := range chains {
		c.byName[strings.ToLower(chain.Name)] = chain
		c.byID[chain.ChainID] = chain
	}
	return c
}

// Get returns a chain by short name.
func (c *Catalog) Get(name string) (models.ChainInfo, bool) {
	chain, ok := c.byName[strings.ToLower(name)]
	return chain, ok
}

// GetByID returns a chain by chain id.
func (c *Catalog) GetByID(chainID uint64) (models.ChainInfo, bool) {
	chain, ok := c.byID[chainID]
	return chain, ok
}

// All returns every chain in the catalog.
func (c *Catalog) All() []models.ChainInfo {
	return c.all
}
