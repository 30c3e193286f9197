package api

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/providers"
	"github.com/dexmeta/meta-swap-api/internal/validator"
)

func parseChainID(raw string) (uint64, error) {
	chainID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || chainID == 0 {
		return 0, errors.NewValidation(fmt.Sprintf("chain id %q must be a positive integer", raw))
	}
	return chainID, nil
}

func parseOptionalBig(c *gin.Context, name string) (*big.Int, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return nil, errors.NewValidation(name + " must be a non-negative decimal integer")
	}
	return value, nil
}

func parseOptionalFloat(c *gin.Context, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, errors.NewValidation(name + " must be a non-negative number")
	}
	return value, nil
}

func parseTrader(raw string) (string, error) {
	return validator.ValidateAddress("trader", raw)
}

// parseSwapParams validates the query parameters shared by price and quote
// routes. Addresses come back normalized.
func parseSwapParams(c *gin.Context, chainID uint64) (providers.SwapRequest, error) {
	var req providers.SwapRequest
	req.ChainID = chainID

	buyToken, err := validator.ValidateAddress("buyToken", c.Query("buyToken"))
	if err != nil {
		return req, err
	}
	sellToken, err := validator.ValidateAddress("sellToken", c.Query("sellToken"))
	if err != nil {
		return req, err
	}
	sellAmount, err := validator.ValidateSellAmount(c.Query("sellAmount"))
	if err != nil {
		return req, err
	}
	req.BuyToken = buyToken
	req.SellToken = sellToken
	req.SellAmount = sellAmount

	if req.GasPrice, err = parseOptionalBig(c, "gasPrice"); err != nil {
		return req, err
	}
	if req.SlippagePercentage, err = parseOptionalFloat(c, "slippagePercentage"); err != nil {
		return req, err
	}
	if req.TakerAddress, err = validator.ValidateOptionalAddress("takerAddress", c.Query("takerAddress")); err != nil {
		return req, err
	}
	if req.FeeRecipient, err = validator.ValidateOptionalAddress("feeRecipient", c.Query("feeRecipient")); err != nil {
		return req, err
	}
	if req.BuyTokenPercentageFee, err = parseOptionalFloat(c, "buyTokenPercentageFee"); err != nil {
		return req, err
	}
	req.IgnoreChecks = c.Query("ignoreChecks") == "true"
	return req, nil
}

// parseCrossChainParams validates the cross-chain variant; both chain ids
// come from the query string.
func parseCrossChainParams(c *gin.Context) (providers.CrossChainSwapRequest, error) {
	var req providers.CrossChainSwapRequest

	chainIDFrom, err := parseChainID(c.Query("chainIdFrom"))
	if err != nil {
		return req, errors.NewValidation("chainIdFrom must be a positive integer")
	}
	chainIDTo, err := parseChainID(c.Query("chainIdTo"))
	if err != nil {
		return req, errors.NewValidation("chainIdTo must be a positive integer")
	}
	req.ChainIDFrom = chainIDFrom
	req.ChainIDTo = chainIDTo

	buyToken, err := validator.ValidateAddress("buyToken", c.Query("buyToken"))
	if err != nil {
		return req, err
	}
	sellToken, err := validator.ValidateAddress("sellToken", c.Query("sellToken"))
	if err != nil {
		return req, err
	}
	sellAmount, err := validator.ValidateSellAmount(c.Query("sellAmount"))
	if err != nil {
		return req, err
	}
	req.BuyToken = buyToken
	req.SellToken = sellToken
	req.SellAmount = sellAmount

	if req.GasPrice, err = parseOptionalBig(c, "gasPrice"); err != nil {
		return req, err
	}
	if req.SlippagePercentage, err = parseOptionalFloat(c, "slippagePercentage"); err != nil {
		return req, err
	}
	if req.TakerAddress, err = validator.ValidateOptionalAddress("takerAddress", c.Query("takerAddress")); err != nil {
		return req, err
	}
	if req.FeeRecipient, err = validator.ValidateOptionalAddress("feeRecipient", c.Query("feeRecipient")); err != nil {
		return req, err
	}
	if req.BuyTokenPercentageFee, err = parseOptionalFloat(c, "buyTokenPercentageFee"); err != nil {
		return req, err
	}
	return req, nil
}
