// Package kyberswap adapts the KyberSwap aggregator API. One /route/encode
// call serves both pricing and quoting; the response carries the encoded
// calldata alongside the route.
package kyberswap

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dexmeta/meta-swap-api/internal/cache"
	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/models"
	"github.com/dexmeta/meta-swap-api/internal/providers"
	"github.com/dexmeta/meta-swap-api/internal/tokeninfo"
)

//go:embed config.json
var configJSON []byte

// Descriptor returns the static provider configuration.
func Descriptor() models.ProviderDescriptor {
	var d models.ProviderDescriptor
	if err := json.Unmarshal(configJSON, &d); err != nil {
		panic("kyberswap: bad embedded config: " + err.Error())
	}
	return d
}

const apiBase = "https://aggregator-api.kyberswap.com"

// chainNetworks maps chain ids to the network slugs in KyberSwap URLs.
var chainNetworks = map[uint64]string{
	1:     "ethereum",
	10:    "optimism",
	56:    "bsc",
	137:   "polygon",
	250:   "fantom",
	42161: "arbitrum",
	43114: "avalanche",
}

func extractMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// Provider is the KyberSwap adapter.
type Provider struct {
	hc       *http.Client
	timeout  time.Duration
	cache    cache.Cache
	decimals *tokeninfo.DecimalsResolver
	partner  string
	name     string
}

// New builds the adapter.
func New(hc *http.Client, timeout time.Duration, c cache.Cache, decimals *tokeninfo.DecimalsResolver, partner string) *Provider {
	return &Provider{hc: hc, timeout: timeout, cache: c, decimals: decimals, partner: partner, name: Descriptor().Name}
}

// Name returns the registry name of the adapter.
func (p *Provider) Name() string { return p.name }

type routeResponse struct {
	InputAmount     string      `json:"inputAmount"`
	OutputAmount    string      `json:"outputAmount"`
	TotalGas        json.Number `json:"totalGas"`
	GasPriceGwei    string      `json:"gasPriceGwei"`
	RouterAddress   string      `json:"routerAddress"`
	EncodedSwapData string      `json:"encodedSwapData"`
	Tokens          map[string]struct {
		Decimals uint8 `json:"decimals"`
	} `json:"tokens"`
	Swaps [][]struct {
		Exchange string `json:"exchange"`
	} `json:"swaps"`
}

// convertSources flattens the route legs. KyberSwap reports no split
// proportions, so each venue carries a zero proportion.
func convertSources(resp *routeResponse) []models.SwapSource {
	sources := []models.SwapSource{}
	for _, hop := range resp.Swaps {
		for _, leg := range hop {
			sources = append(sources, models.NewSwapSource(leg.Exchange, 0))
		}
	}
	return sources
}

func (p *Provider) query(req providers.SwapRequest) url.Values {
	q := url.Values{}
	q.Set("tokenIn", req.SellToken)
	q.Set("tokenOut", req.BuyToken)
	q.Set("amountIn", req.SellAmount.String())
	q.Set("clientData", fmt.Sprintf(`{"source": %q}`, p.partner))
	to := req.TakerAddress
	if to == "" {
		to = models.NativeTokenAddress
	}
	q.Set("to", to)
	if req.SlippagePercentage > 0 {
		q.Set("slippageTolerance", strconv.Itoa(int(math.Round(req.SlippagePercentage*10000))))
	}
	if req.FeeRecipient != "" {
		q.Set("chargeFeeBy", "currency_out")
		q.Set("feeReceiver", req.FeeRecipient)
		q.Set("isInBps", "1")
		q.Set("feeAmount", strconv.Itoa(int(math.Round(req.BuyTokenPercentageFee*10000))))
	}
	return q
}

func (p *Provider) fetch(ctx context.Context, req providers.SwapRequest) (*routeResponse, error) {
	network, ok := chainNetworks[req.ChainID]
	if !ok {
		return nil, errors.NewValidation(fmt.Sprintf("chain id %d is not supported by %s", req.ChainID, p.name))
	}
	rawURL := fmt.Sprintf("%s/%s/route/encode", apiBase, network)
	headers := map[string]string{"Accept-Version": "1"}
	body, err := providers.FetchJSON(ctx, p.hc, p.timeout, http.MethodGet, rawURL, p.query(req), headers, nil)
	if err != nil {
		return nil, providers.ClassifyError(nil, p.name, err, extractMessage)
	}
	var resp routeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewParse(p.name, err.Error())
	}
	return &resp, nil
}

// tokenDecimals resolves decimals from the response token map, falling back
// to the chain's native decimals for the sentinel.
func (p *Provider) tokenDecimals(resp *routeResponse, chainID uint64, token string) (uint8, error) {
	if strings.EqualFold(token, models.NativeTokenAddress) {
		return p.decimals.NativeDecimals(chainID)
	}
	for addr, stub := range resp.Tokens {
		if strings.EqualFold(addr, token) {
			return stub.Decimals, nil
		}
	}
	return 0, errors.NewParse(p.name, "token "+token+" missing from route response")
}

// gasPriceWei converts the reported gwei price to a wei string.
func (p *Provider) gasPriceWei(resp *routeResponse) string {
	gwei, err := decimal.NewFromString(resp.GasPriceGwei)
	if err != nil {
		return "0"
	}
	return gwei.Shift(9).Truncate(0).String()
}

func (p *Provider) priceQuote(resp *routeResponse, req providers.SwapRequest) (models.PriceQuote, error) {
	buyDecimals, err := p.tokenDecimals(resp, req.ChainID, req.BuyToken)
	if err != nil {
		return models.PriceQuote{}, err
	}
	sellDecimals, err := p.tokenDecimals(resp, req.ChainID, req.SellToken)
	if err != nil {
		return models.PriceQuote{}, err
	}
	price, err := providers.ComputePrice(p.name, resp.OutputAmount, resp.InputAmount, buyDecimals, sellDecimals)
	if err != nil {
		return models.PriceQuote{}, err
	}
	value := providers.NativeValue(req.SellToken, resp.InputAmount)
	return models.PriceQuote{
		Provider:        p.name,
		Sources:         convertSources(resp),
		BuyAmount:       resp.OutputAmount,
		SellAmount:      resp.InputAmount,
		Gas:             resp.TotalGas.String(),
		GasPrice:        p.gasPriceWei(resp),
		Value:           value,
		Price:           price,
		AllowanceTarget: resp.RouterAddress,
	}, nil
}

// GetSwapPrice returns the advertised KyberSwap quote.
func (p *Provider) GetSwapPrice(ctx context.Context, req providers.SwapRequest) (*models.PriceQuote, error) {
	key := cache.Key("kyberswap.GetSwapPrice",
		[]interface{}{req.ChainID, req.BuyToken, req.SellToken, req.SellAmount.String()},
		cache.KW{Name: "taker", Value: req.TakerAddress},
		cache.KW{Name: "slippage", Value: req.SlippagePercentage},
		cache.KW{Name: "feeRecipient", Value: req.FeeRecipient},
	)
	quote, err := cache.Memoize(ctx, p.cache, key, cache.TTLProviderPrice, func(ctx context.Context) (models.PriceQuote, error) {
		resp, err := p.fetch(ctx, req)
		if err != nil {
			return models.PriceQuote{}, err
		}
		return p.priceQuote(resp, req)
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetSwapQuote returns a ready-to-broadcast KyberSwap transaction.
func (p *Provider) GetSwapQuote(ctx context.Context, req providers.SwapRequest) (*models.TxQuote, error) {
	resp, err := p.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	quote, err := p.priceQuote(resp, req)
	if err != nil {
		return nil, err
	}
	return &models.TxQuote{
		Sources:    quote.Sources,
		BuyAmount:  quote.BuyAmount,
		SellAmount: quote.SellAmount,
		Gas:        quote.Gas,
		GasPrice:   quote.GasPrice,
		Value:      quote.Value,
		To:         resp.RouterAddress,
		Data:       resp.EncodedSwapData,
		Price:      quote.Price,
	}, nil
}
