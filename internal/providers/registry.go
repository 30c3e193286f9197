package providers

import (
	"github.com/dexmeta/meta-swap-api/internal/models"
)

// Entry pairs one registered adapter with its static descriptor.
type Entry struct {
	Provider   Provider
	Descriptor models.ProviderDescriptor
}

// Registry is the immutable name-to-adapter map built at startup. Iteration
// follows registration order, which makes ranking tie-breaks stable.
type Registry struct {
	names   []string
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an adapter. Disabled descriptors are skipped.
func (r *Registry) Register(p Provider, d models.ProviderDescriptor) {
	if !d.Enabled {
		return
	}
	if _, exists := r.entries[d.Name]; exists {
		return
	}
	r.names = append(r.names, d.Name)
	r.entries[d.Name] = Entry{Provider: p, Descriptor: d}
}

// Get returns an adapter by name.
func (r *Registry) Get(name string) (Provider, bool) {
	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return entry.Provider, true
}

// Descriptor returns the static descriptor of one adapter.
func (r *Registry) Descriptor(name string) (models.ProviderDescriptor, bool) {
	entry, ok := r.entries[name]
	return entry.Descriptor, ok
}

// MarketOrderEntry is one provider able to route market orders on a chain,
// with its spender contract.
type MarketOrderEntry struct {
	Provider Provider
	Name     string
	Spender  string
}

// MarketOrdersOn enumerates providers supporting market orders on a chain,
// in registration order.
func (r *Registry) MarketOrdersOn(chainID uint64) []MarketOrderEntry {
	var result []MarketOrderEntry
	for _, name := range r.names {
		entry := r.entries[name]
		spender, ok := entry.Descriptor.SpenderFor(chainID)
		if !ok || spender.MarketOrder == "" {
			continue
		}
		result = append(result, MarketOrderEntry{
			Provider: entry.Provider,
			Name:     name,
			Spender:  spender.MarketOrder,
		})
	}
	return result
}

// OnChain projects the registry onto one chain for the info routes.
func (r *Registry) OnChain(chainID uint64) models.ProvidersOnChain {
	result := models.ProvidersOnChain{
		MarketOrder: []models.ProviderInfo{},
		LimitOrder:  []models.ProviderInfo{},
	}
	for _, name := range r.names {
		entry := r.entries[name]
		spender, ok := entry.Descriptor.SpenderFor(chainID)
		if !ok {
			continue
		}
		info := models.ProviderInfo{DisplayName: entry.Descriptor.DisplayName, Name: name}
		if spender.MarketOrder != "" {
			info.Address = spender.MarketOrder
			result.MarketOrder = append(result.MarketOrder, info)
		}
		if spender.LimitOrder != "" {
			info.Address = spender.LimitOrder
			result.LimitOrder = append(result.LimitOrder, info)
		}
	}
	return result
}

// AllChains projects the registry onto every configured chain.
func (r *Registry) AllChains() []models.ProvidersOnChain {
	seen := make(map[uint64]bool)
	var chainIDs []uint64
	for _, name := range r.names {
		for _, spender := range r.entries[name].Descriptor.Spenders {
			if !seen[spender.ChainID] {
				seen[spender.ChainID] = true
				chainIDs = append(chainIDs, spender.ChainID)
			}
		}
	}
	result := make([]models.ProvidersOnChain, 0, len(chainIDs))
	for _, chainID := range chainIDs {
		onChain := r.OnChain(chainID)
		onChain.ChainID = chainID
		result = append(result, onChain)
	}
	return result
}

// Names returns registration order.
func (r *Registry) Names() []string {
	return r.names
}

// CrossChainRegistry is the registry for cross-chain adapters.
type CrossChainRegistry struct {
	names   []string
	entries map[string]crossChainEntry
}

type crossChainEntry struct {
	Provider   CrossChainProvider
	Descriptor models.ProviderDescriptor
}

// NewCrossChainRegistry creates an empty cross-chain registry.
func NewCrossChainRegistry() *CrossChainRegistry {
	return &CrossChainRegistry{entries: make(map[string]crossChainEntry)}
}

// Register adds a cross-chain adapter. Disabled descriptors are skipped.
func (r *CrossChainRegistry) Register(p CrossChainProvider, d models.ProviderDescriptor) {
	if !d.Enabled {
		return
	}
	if _, exists := r.entries[d.Name]; exists {
		return
	}
	r.names = append(r.names, d.Name)
	r.entries[d.Name] = crossChainEntry{Provider: p, Descriptor: d}
}

// Get returns a cross-chain adapter by name.
func (r *CrossChainRegistry) Get(name string) (CrossChainProvider, bool) {
	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return entry.Provider, true
}

// Descriptor returns the static descriptor of one cross-chain adapter.
func (r *CrossChainRegistry) Descriptor(name string) (models.ProviderDescriptor, bool) {
	entry, ok := r.entries[name]
	return entry.Descriptor, ok
}

// Names returns registration order.
func (r *CrossChainRegistry) Names() []string {
	return r.names
}
