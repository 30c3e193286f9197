package models

// PriceQuote is what a provider advertises without commitment. Amounts are
// integers in base units, gas quantities in wei, all carried as decimal
// strings so that 256-bit values survive JSON intact.
type PriceQuote struct {
	Provider   string       `json:"provider"`
	Sources    []SwapSource `json:"sources"`
	BuyAmount  string       `json:"buyAmount"`
	Gas        string       `json:"gas"`
	SellAmount string       `json:"sellAmount"`
	GasPrice   string       `json:"gasPrice"`
	// Value is "0" unless the sell token is the native sentinel, in which
	// case it equals SellAmount.
	Value string `json:"value"`
	// Price is buyAmount/sellAmount scaled by decimals; informational.
	Price string `json:"price"`
	// AllowanceTarget optionally overrides the descriptor's spender.
	AllowanceTarget string `json:"allowanceTarget,omitempty"`
}

// TxQuote is a ready-to-broadcast transaction quote.
type TxQuote struct {
	Sources    []SwapSource `json:"sources"`
	BuyAmount  string       `json:"buyAmount"`
	Gas        string       `json:"gas"`
	SellAmount string       `json:"sellAmount"`
	To         string       `json:"to"`
	Data       string       `json:"data"`
	GasPrice   string       `json:"gasPrice"`
	Value      string       `json:"value"`
	Price      string       `json:"price"`
}

// MetaPrice is the engine output for one provider: the provider's quote plus
// the allowance/approval economics that feed the ranking.
type MetaPrice struct {
	Provider      string     `json:"provider"`
	PriceResponse PriceQuote `json:"priceResponse"`
	IsAllowed     bool       `json:"isAllowed"`
	// IsBest is nil for single-provider requests and set on every element
	// when ranking multiple providers.
	IsBest *bool `json:"isBest,omitempty"`
	// ApproveCost is in gas units; 0 when no approval is needed or no taker
	// was given.
	ApproveCost uint64 `json:"approveCost"`
}
