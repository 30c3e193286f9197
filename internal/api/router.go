package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with all routes mounted under /v1.
func NewRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		market := v1.Group("/market/:chainID")
		{
			market.GET("/price", h.MetaPrice)
			market.GET("/price/all", h.MetaPriceAll)
			market.GET("/quote", h.SwapQuote)
		}

		crossChain := v1.Group("/crosschain")
		{
			crossChain.GET("/price", h.CrossChainPrice)
			crossChain.GET("/price/all", h.CrossChainPriceAll)
			crossChain.GET("/quote", h.CrossChainQuote)
		}

		v1.GET("/gas/:chainID", h.GasPrices)

		v1.GET("/info", h.Info)
		v1.GET("/info/:chainID", h.InfoByChain)

		limit := v1.Group("/limit/:chainID")
		{
			limit.GET("/address/:trader", h.LimitOrdersByTrader)
			limit.GET("/events/:orderHash", h.LimitOrderByHash)
			limit.POST("", h.PostLimitOrder)
		}
	}
	return router
}
