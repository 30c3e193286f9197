package aggregator

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/models"
)

// profitInputs carry everything the ranking formula needs besides the quote
// itself.
type profitInputs struct {
	buyDecimals    uint8
	nativeDecimals uint8
	// buyNativePrice is the buy token's price denominated in the chain's
	// native coin.
	buyNativePrice decimal.Decimal
	// fallbackGasPrice prices transaction costs when a quote reports none.
	fallbackGasPrice *big.Int
}

// profit is the expected native-denominated outcome of taking one quote:
// the native value of the bought tokens minus the native cost of the swap
// and, when needed, the approval transaction. Arithmetic is exact decimal.
func profit(quote models.PriceQuote, approveGas uint64, in profitInputs) (decimal.Decimal, error) {
	buyAmount, err := decimal.NewFromString(quote.BuyAmount)
	if err != nil {
		return decimal.Zero, errors.NewParse(quote.Provider, "buyAmount is not an integer: "+quote.BuyAmount)
	}
	gasUnits, err := decimal.NewFromString(quote.Gas)
	if err != nil {
		return decimal.Zero, errors.NewParse(quote.Provider, "gas is not an integer: "+quote.Gas)
	}
	gasPrice, err := decimal.NewFromString(quote.GasPrice)
	if err != nil || gasPrice.IsZero() {
		gasPrice = decimal.NewFromBigInt(in.fallbackGasPrice, 0)
	}

	buyNative := buyAmount.Shift(-int32(in.buyDecimals)).Mul(in.buyNativePrice)
	costWei := gasUnits.Add(decimal.NewFromUint64(approveGas)).Mul(gasPrice)
	return buyNative.Sub(costWei.Shift(-int32(in.nativeDecimals))), nil
}

// rank marks the best quote across the candidates. Candidates arrive in
// registry order and a strict improvement is required to displace the
// leader, so ties resolve to the earliest registration.
func rank(candidates []models.MetaPrice, profits []decimal.Decimal) []models.MetaPrice {
	if len(candidates) == 0 {
		return candidates
	}
	best := 0
	for i := 1; i < len(candidates); i++ {
		if profits[i].GreaterThan(profits[best]) {
			best = i
		}
	}
	for i := range candidates {
		isBest := i == best
		candidates[i].IsBest = &isBest
	}
	return candidates
}
