// Package oneinch adapts the 1inch aggregation and limit-order APIs.
package oneinch

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dexmeta/meta-swap-api/internal/cache"
	"github.com/dexmeta/meta-swap-api/internal/errors"
	"github.com/dexmeta/meta-swap-api/internal/models"
	"github.com/dexmeta/meta-swap-api/internal/providers"
)

//go:embed config.json
var configJSON []byte

// Descriptor returns the static provider configuration.
func Descriptor() models.ProviderDescriptor {
	var d models.ProviderDescriptor
	if err := json.Unmarshal(configJSON, &d); err != nil {
		panic("oneinch: bad embedded config: " + err.Error())
	}
	return d
}

const (
	tradingAPI    = "https://api.1inch.io/v5.0"
	limitOrderAPI = "https://limit-orders.1inch.io/v2.0"

	// Route-splitting presets tuned for quote latency.
	complexityLevel = "2"
	mainRouteParts  = "10"
	parts           = "50"
	virtualParts    = "50"

	defaultSlippagePercent = 0.5
	maxAttempts            = 3
)

var errorRules = []providers.ErrorRule{
	providers.Rule(`insufficient liquidity`, errors.InsufficientLiquidity),
	providers.Rule(`cannot estimate`, errors.EstimationFailed),
	providers.Rule(`fromtokenaddress cannot be equals to totokenaddress`, errors.InvalidTokens),
	providers.Rule(`not enough \w+ balance`, errors.InsufficientBalance),
	providers.Rule(`not enough allowance`, errors.InsufficientAllowance),
	providers.Rule(`cannot sync \w+`, errors.InvalidTokens),
}

// Venue names 1inch reports under internal aliases.
var venueAliases = map[string]string{
	"SUSHI": "SushiSwap",
}

// Provider is the 1inch adapter. It also serves the limit-order capability.
type Provider struct {
	hc         *http.Client
	timeout    time.Duration
	cache      cache.Cache
	name       string
	descriptor models.ProviderDescriptor
}

// New builds the adapter.
func New(hc *http.Client, timeout time.Duration, c cache.Cache) *Provider {
	d := Descriptor()
	return &Provider{hc: hc, timeout: timeout, cache: c, name: d.Name, descriptor: d}
}

// Name returns the registry name of the adapter.
func (p *Provider) Name() string { return p.name }

// fetch retries transient upstream failures. The 1inch edge drops
// connections under load, so timeouts and aborts get a bounded retry.
func (p *Provider) fetch(ctx context.Context, method, rawURL string, query url.Values, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var reqBody io.Reader
		headers := map[string]string{}
		if body != nil {
			reqBody = bytes.NewReader(body)
			headers["content-type"] = "application/json"
		}
		data, err := providers.FetchJSON(ctx, p.hc, p.timeout, method, rawURL, query, headers, reqBody)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !providers.IsTimeout(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func extractMessage(body []byte) string {
	var list []struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
		return list[0].Description
	}
	var obj struct {
		Description string `json:"description"`
		Error       string `json:"error"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	if obj.Description != "" {
		return obj.Description
	}
	if obj.Message != "" {
		return obj.Message
	}
	return obj.Error
}

type tokenStub struct {
	Decimals uint8 `json:"decimals"`
}

type protocolLeg struct {
	Name string  `json:"name"`
	Part float64 `json:"part"`
}

type quoteResponse struct {
	FromToken       tokenStub          `json:"fromToken"`
	ToToken         tokenStub          `json:"toToken"`
	ToTokenAmount   string             `json:"toTokenAmount"`
	FromTokenAmount string             `json:"fromTokenAmount"`
	EstimatedGas    uint64             `json:"estimatedGas"`
	Protocols       [][][]protocolLeg  `json:"protocols"`
	Tx              *struct {
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		Gas      uint64 `json:"gas"`
		GasPrice string `json:"gasPrice"`
	} `json:"tx"`
}

// convertSources flattens the nested 1inch route tree into one source per
// leg, normalizing venue aliases.
func convertSources(protocols [][][]protocolLeg) []models.SwapSource {
	sources := []models.SwapSource{}
	for _, route := range protocols {
		for _, hop := range route {
			for _, leg := range hop {
				name := leg.Name
				if alias, ok := venueAliases[name]; ok {
					name = alias
				}
				sources = append(sources, models.NewSwapSource(name, leg.Part))
			}
		}
	}
	return sources
}

func (p *Provider) query(req providers.SwapRequest) url.Values {
	q := url.Values{}
	q.Set("toTokenAddress", req.BuyToken)
	q.Set("fromTokenAddress", req.SellToken)
	q.Set("amount", req.SellAmount.String())
	q.Set("complexityLevel", complexityLevel)
	q.Set("mainRouteParts", mainRouteParts)
	q.Set("parts", parts)
	q.Set("virtualParts", virtualParts)
	if req.GasPrice != nil {
		q.Set("gasPrice", req.GasPrice.String())
	}
	if req.FeeRecipient != "" {
		q.Set("fee", strconv.FormatFloat(req.BuyTokenPercentageFee*100, 'f', -1, 64))
	}
	return q
}

// GetSwapPrice returns the advertised 1inch quote.
func (p *Provider) GetSwapPrice(ctx context.Context, req providers.SwapRequest) (*models.PriceQuote, error) {
	key := cache.Key("oneinch.GetSwapPrice",
		[]interface{}{req.ChainID, req.BuyToken, req.SellToken, req.SellAmount.String()},
		cache.KW{Name: "gasPrice", Value: req.GasPrice},
		cache.KW{Name: "feeRecipient", Value: req.FeeRecipient},
		cache.KW{Name: "fee", Value: req.BuyTokenPercentageFee},
	)
	quote, err := cache.Memoize(ctx, p.cache, key, cache.TTLProviderPrice, func(ctx context.Context) (models.PriceQuote, error) {
		rawURL := fmt.Sprintf("%s/%d/quote", tradingAPI, req.ChainID)
		body, err := p.fetch(ctx, http.MethodGet, rawURL, p.query(req), nil)
		if err != nil {
			return models.PriceQuote{}, providers.ClassifyError(errorRules, p.name, err, extractMessage)
		}
		var resp quoteResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return models.PriceQuote{}, errors.NewParse(p.name, err.Error())
		}
		price, err := providers.ComputePrice(p.name, resp.ToTokenAmount, resp.FromTokenAmount, resp.ToToken.Decimals, resp.FromToken.Decimals)
		if err != nil {
			return models.PriceQuote{}, err
		}
		gasPrice := "0"
		if req.GasPrice != nil {
			gasPrice = req.GasPrice.String()
		}
		allowanceTarget := ""
		if spender, ok := p.descriptor.SpenderFor(req.ChainID); ok {
			allowanceTarget = spender.MarketOrder
		}
		return models.PriceQuote{
			Provider:        p.name,
			Sources:         convertSources(resp.Protocols),
			BuyAmount:       resp.ToTokenAmount,
			SellAmount:      resp.FromTokenAmount,
			Gas:             strconv.FormatUint(resp.EstimatedGas, 10),
			GasPrice:        gasPrice,
			Value:           providers.NativeValue(req.SellToken, req.SellAmount.String()),
			Price:           price,
			AllowanceTarget: allowanceTarget,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetSwapQuote returns a ready-to-broadcast 1inch transaction.
func (p *Provider) GetSwapQuote(ctx context.Context, req providers.SwapRequest) (*models.TxQuote, error) {
	q := p.query(req)
	q.Set("fromAddress", req.TakerAddress)
	slippage := req.SlippagePercentage * 100
	if slippage == 0 {
		slippage = defaultSlippagePercent
	}
	q.Set("slippage", strconv.FormatFloat(slippage, 'f', -1, 64))
	if req.IgnoreChecks {
		q.Set("disableEstimate", "true")
	}
	if req.FeeRecipient != "" {
		q.Set("referrerAddress", req.FeeRecipient)
	}
	rawURL := fmt.Sprintf("%s/%d/swap", tradingAPI, req.ChainID)
	body, err := p.fetch(ctx, http.MethodGet, rawURL, q, nil)
	if err != nil {
		return nil, providers.ClassifyError(errorRules, p.name, err, extractMessage)
	}
	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewParse(p.name, err.Error())
	}
	if resp.Tx == nil {
		return nil, errors.NewParse(p.name, "swap response has no tx")
	}
	price, err := providers.ComputePrice(p.name, resp.ToTokenAmount, resp.FromTokenAmount, resp.ToToken.Decimals, resp.FromToken.Decimals)
	if err != nil {
		return nil, err
	}
	return &models.TxQuote{
		Sources:    convertSources(resp.Protocols),
		BuyAmount:  resp.ToTokenAmount,
		SellAmount: resp.FromTokenAmount,
		Gas:        strconv.FormatUint(resp.Tx.Gas, 10),
		GasPrice:   resp.Tx.GasPrice,
		Value:      resp.Tx.Value,
		To:         resp.Tx.To,
		Data:       resp.Tx.Data,
		Price:      price,
	}, nil
}

// GetOrdersByTrader lists the trader's limit orders, passed through in the
// upstream shape.
func (p *Provider) GetOrdersByTrader(ctx context.Context, req providers.LimitOrdersRequest) ([]map[string]interface{}, error) {
	q := url.Values{}
	q.Set("limit", "100")
	q.Set("page", "1")
	q.Set("sortBy", "createDateTime")
	if req.MakerToken != "" {
		q.Set("makerAsset", req.MakerToken)
	}
	if req.TakerToken != "" {
		q.Set("takerAsset", req.TakerToken)
	}
	if len(req.Statuses) > 0 {
		q.Set("statuses", "["+strings.Join(req.Statuses, ",")+"]")
	}
	rawURL := fmt.Sprintf("%s/%d/limit-order/address/%s", limitOrderAPI, req.ChainID, req.Trader)
	body, err := p.fetch(ctx, http.MethodGet, rawURL, q, nil)
	if err != nil {
		return nil, providers.ClassifyError(errorRules, p.name, err, extractMessage)
	}
	var orders []map[string]interface{}
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, errors.NewParse(p.name, err.Error())
	}
	return orders, nil
}

// GetOrderByHash fetches one limit order's event log.
func (p *Provider) GetOrderByHash(ctx context.Context, chainID uint64, orderHash string) (map[string]interface{}, error) {
	rawURL := fmt.Sprintf("%s/%d/limit-order/events/%s", limitOrderAPI, chainID, orderHash)
	body, err := p.fetch(ctx, http.MethodGet, rawURL, nil, nil)
	if err != nil {
		return nil, providers.ClassifyError(errorRules, p.name, err, extractMessage)
	}
	var order map[string]interface{}
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, errors.NewParse(p.name, err.Error())
	}
	return order, nil
}

// PostLimitOrder submits a signed limit order.
func (p *Provider) PostLimitOrder(ctx context.Context, chainID uint64, orderHash, signature string, data map[string]interface{}) (map[string]interface{}, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"orderHash": orderHash,
		"signature": signature,
		"data":      data,
	})
	if err != nil {
		return nil, errors.NewValidation(err.Error())
	}
	rawURL := fmt.Sprintf("%s/%d/limit-order", limitOrderAPI, chainID)
	body, err := p.fetch(ctx, http.MethodPost, rawURL, nil, payload)
	if err != nil {
		return nil, providers.ClassifyError(errorRules, p.name, err, extractMessage)
	}
	result := map[string]interface{}{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, errors.NewParse(p.name, err.Error())
		}
	}
	return result, nil
}
