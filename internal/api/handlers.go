// Package api exposes the aggregation engine over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dexmeta/meta-swap-api/internal/aggregator"
	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/gas"
	"github.com/dexmeta/meta-swap-api/internal/limitorders"
	"github.com/dexmeta/meta-swap-api/internal/logger"
	"github.com/dexmeta/meta-swap-api/internal/providers"
	"github.com/dexmeta/meta-swap-api/internal/tokeninfo"
)

// Handlers binds the services to the HTTP routes.
type Handlers struct {
	aggregator *aggregator.Service
	gas        *gas.Service
	limits     *limitorders.Service
	registry   *providers.Registry
	chains     *tokeninfo.Catalog
}

// NewHandlers wires the handler set.
func NewHandlers(
	agg *aggregator.Service,
	gasService *gas.Service,
	limits *limitorders.Service,
	registry *providers.Registry,
	chains *tokeninfo.Catalog,
) *Handlers {
	return &Handlers{aggregator: agg, gas: gasService, limits: limits, registry: registry, chains: chains}
}

// fail writes the typed error body; untyped errors become a 500.
func fail(c *gin.Context, err error) {
	if perr, ok := err.(*errors.ProviderError); ok {
		c.JSON(perr.StatusCode(), errors.ToErrorResponse(perr))
		return
	}
	logger.Error("unhandled error", logger.Fields{
		"request_id": c.GetString("request_id"),
		"error":      err.Error(),
	})
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// MetaPrice serves GET /market/:chainID/price. With a provider query
// parameter it answers for that provider alone; without one it returns the
// ranked view's best entry.
func (h *Handlers) MetaPrice(c *gin.Context) {
	chainID, err := parseChainID(c.Param("chainID"))
	if err != nil {
		fail(c, err)
		return
	}
	req, err := parseSwapParams(c, chainID)
	if err != nil {
		fail(c, err)
		return
	}
	if provider := c.Query("provider"); provider != "" {
		result, err := h.aggregator.GetProviderPrice(c.Request.Context(), provider, req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}
	results, err := h.aggregator.GetMetaPrice(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	for _, result := range results {
		if result.IsBest != nil && *result.IsBest {
			c.JSON(http.StatusOK, result)
			return
		}
	}
	c.JSON(http.StatusOK, results[0])
}

// MetaPriceAll serves GET /market/:chainID/price/all with every provider's
// ranked quote.
func (h *Handlers) MetaPriceAll(c *gin.Context) {
	chainID, err := parseChainID(c.Param("chainID"))
	if err != nil {
		fail(c, err)
		return
	}
	req, err := parseSwapParams(c, chainID)
	if err != nil {
		fail(c, err)
		return
	}
	results, err := h.aggregator.GetMetaPrice(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// SwapQuote serves GET /market/:chainID/quote.
func (h *Handlers) SwapQuote(c *gin.Context) {
	chainID, err := parseChainID(c.Param("chainID"))
	if err != nil {
		fail(c, err)
		return
	}
	provider := c.Query("provider")
	if provider == "" {
		fail(c, errors.NewValidation("provider is required"))
		return
	}
	req, err := parseSwapParams(c, chainID)
	if err != nil {
		fail(c, err)
		return
	}
	quote, err := h.aggregator.GetMetaSwapQuote(c.Request.Context(), provider, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// CrossChainPrice serves GET /crosschain/price.
func (h *Handlers) CrossChainPrice(c *gin.Context) {
	req, err := parseCrossChainParams(c)
	if err != nil {
		fail(c, err)
		return
	}
	if provider := c.Query("provider"); provider != "" {
		result, err := h.aggregator.GetCrossChainProviderPrice(c.Request.Context(), provider, req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}
	results, err := h.aggregator.GetCrossChainMetaPrice(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	for _, result := range results {
		if result.IsBest != nil && *result.IsBest {
			c.JSON(http.StatusOK, result)
			return
		}
	}
	c.JSON(http.StatusOK, results[0])
}

// CrossChainPriceAll serves GET /crosschain/price/all.
func (h *Handlers) CrossChainPriceAll(c *gin.Context) {
	req, err := parseCrossChainParams(c)
	if err != nil {
		fail(c, err)
		return
	}
	results, err := h.aggregator.GetCrossChainMetaPrice(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// CrossChainQuote serves GET /crosschain/quote.
func (h *Handlers) CrossChainQuote(c *gin.Context) {
	provider := c.Query("provider")
	if provider == "" {
		fail(c, errors.NewValidation("provider is required"))
		return
	}
	req, err := parseCrossChainParams(c)
	if err != nil {
		fail(c, err)
		return
	}
	quote, err := h.aggregator.GetCrossChainMetaSwapQuote(c.Request.Context(), provider, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// GasPrices serves GET /gas/:chainID.
func (h *Handlers) GasPrices(c *gin.Context) {
	chainID, err := parseChainID(c.Param("chainID"))
	if err != nil {
		fail(c, err)
		return
	}
	report, err := h.gas.GetGasPrices(c.Request.Context(), chainID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Info serves GET /info with the provider map of every configured chain.
func (h *Handlers) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.AllChains())
}

// InfoByChain serves GET /info/:chainID.
func (h *Handlers) InfoByChain(c *gin.Context) {
	chainID, err := parseChainID(c.Param("chainID"))
	if err != nil {
		fail(c, err)
		return
	}
	onChain := h.registry.OnChain(chainID)
	onChain.ChainID = chainID
	c.JSON(http.StatusOK, onChain)
}

// LimitOrdersByTrader serves GET /limit/:chainID/address/:trader.
func (h *Handlers) LimitOrdersByTrader(c *gin.Context) {
	chainID, err := parseChainID(c.Param("chainID"))
	if err != nil {
		fail(c, err)
		return
	}
	provider := c.Query("provider")
	if provider == "" {
		fail(c, errors.NewValidation("provider is required"))
		return
	}
	trader, err := parseTrader(c.Param("trader"))
	if err != nil {
		fail(c, err)
		return
	}
	req := providers.LimitOrdersRequest{
		ChainID:    chainID,
		Trader:     trader,
		MakerToken: c.Query("makerToken"),
		TakerToken: c.Query("takerToken"),
		Statuses:   c.QueryArray("statuses"),
	}
	orders, err := h.limits.ListByTrader(c.Request.Context(), provider, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// LimitOrderByHash serves GET /limit/:chainID/events/:orderHash.
func (h *Handlers) LimitOrderByHash(c *gin.Context) {
	chainID, err := parseChainID(c.Param("chainID"))
	if err != nil {
		fail(c, err)
		return
	}
	provider := c.Query("provider")
	if provider == "" {
		fail(c, errors.NewValidation("provider is required"))
		return
	}
	order, err := h.limits.GetByHash(c.Request.Context(), provider, chainID, c.Param("orderHash"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type postOrderBody struct {
	Provider  string                 `json:"provider" binding:"required"`
	OrderHash string                 `json:"orderHash" binding:"required"`
	Signature string                 `json:"signature" binding:"required"`
	Data      map[string]interface{} `json:"data" binding:"required"`
}

// PostLimitOrder serves POST /limit/:chainID.
func (h *Handlers) PostLimitOrder(c *gin.Context) {
	chainID, err := parseChainID(c.Param("chainID"))
	if err != nil {
		fail(c, err)
		return
	}
	var body postOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errors.NewValidation(err.Error()))
		return
	}
	result, err := h.limits.Submit(c.Request.Context(), body.Provider, chainID, body.OrderHash, body.Signature, body.Data)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
