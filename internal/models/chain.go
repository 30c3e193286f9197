package models

// NativeTokenAddress is the reserved sentinel used across the API to denote
// a chain's native coin in place of a real ERC-20 contract.
const NativeTokenAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// TokenRef identifies a token contract on a chain. Addresses are lowercased
// at ingress and never mutated downstream.
type TokenRef struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chain_id"`
}

// Token describes an ERC-20 contract with display metadata.
type Token struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// ChainInfo describes one supported chain. The set is established at startup
// from the token-info source and is immutable for the process lifetime.
type ChainInfo struct {
	Name        string `json:"name"`
	ChainID     uint64 `json:"chain_id"`
	Description string `json:"description"`
	NativeToken Token  `json:"native_token"`
	EIP1559     bool   `json:"eip1559"`
}
