package models

// Spender holds the per-chain spender contracts of one provider. Either
// address may be empty when the provider does not support that trade mode on
// the chain.
type Spender struct {
	ChainID     uint64 `json:"chain_id"`
	MarketOrder string `json:"market_order"`
	LimitOrder  string `json:"limit_order"`
}

// ProviderDescriptor is the static configuration of one provider adapter,
// loaded at startup and immutable afterwards.
type ProviderDescriptor struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Enabled     bool      `json:"enabled"`
	Spenders    []Spender `json:"spenders"`
}

// SpenderFor returns the spender addresses configured for a chain.
func (d ProviderDescriptor) SpenderFor(chainID uint64) (Spender, bool) {
	for _, s := range d.Spenders {
		if s.ChainID == chainID {
			return s, true
		}
	}
	return Spender{}, false
}

// ProviderInfo is the per-chain projection of a descriptor served by the
// info routes and consumed by the aggregation engine.
type ProviderInfo struct {
	DisplayName string `json:"display_name"`
	Address     string `json:"address"`
	Name        string `json:"name"`
}

// ProvidersOnChain lists the providers able to serve a chain, keyed by trade
// mode.
type ProvidersOnChain struct {
	ChainID     uint64         `json:"chain_id,omitempty"`
	MarketOrder []ProviderInfo `json:"market_order"`
	LimitOrder  []ProviderInfo `json:"limit_order"`
}
