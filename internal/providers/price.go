package providers

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/models"
)

// pricePrecision is the digit count kept when stringifying the informational
// price field.
const pricePrecision = 32

// ComputePrice recomputes buyAmount/sellAmount scaled by token decimals.
// Upstream price fields are never trusted as-is; every adapter recomputes
// after decoding decimals. Arithmetic is exact decimal; only the final
// stringification rounds.
func ComputePrice(provider, buyAmount, sellAmount string, buyDecimals, sellDecimals uint8) (string, error) {
	buy, err := decimal.NewFromString(buyAmount)
	if err != nil {
		return "", errors.NewParse(provider, "buyAmount is not an integer: "+buyAmount)
	}
	sell, err := decimal.NewFromString(sellAmount)
	if err != nil {
		return "", errors.NewParse(provider, "sellAmount is not an integer: "+sellAmount)
	}
	if sell.IsZero() {
		return "", errors.NewParse(provider, "sellAmount is zero")
	}
	scaledBuy := buy.Shift(-int32(buyDecimals))
	scaledSell := sell.Shift(-int32(sellDecimals))
	return scaledBuy.DivRound(scaledSell, pricePrecision).String(), nil
}

// NativeValue is the native amount attached to a swap transaction: the full
// sell amount in base units when selling the native coin, zero otherwise.
func NativeValue(sellToken, sellAmount string) string {
	if strings.EqualFold(sellToken, models.NativeTokenAddress) {
		return sellAmount
	}
	return "0"
}
