// Package openocean adapts the OpenOcean v2 API. OpenOcean publishes no
// structured error codes, so every upstream rejection classifies as an
// unspecified provider failure.
package openocean

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
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
		panic("openocean: bad embedded config: " + err.Error())
	}
	return d
}

const apiBase = "https://ethapi.openocean.finance/v2"

func extractMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

// Provider is the OpenOcean adapter.
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

type tokenStub struct {
	Decimals uint8 `json:"decimals"`
}

type dexLeg struct {
	Dex        string  `json:"dex"`
	Percentage float64 `json:"percentage"`
}

type swapResponse struct {
	InAmount     string      `json:"inAmount"`
	OutAmount    string      `json:"outAmount"`
	InToken      tokenStub   `json:"inToken"`
	OutToken     tokenStub   `json:"outToken"`
	EstimatedGas json.Number `json:"estimatedGas"`
	GasPrice     json.Number `json:"gasPrice"`
	To           string      `json:"to"`
	Data         string      `json:"data"`
	Value        string      `json:"value"`
	Path         struct {
		Routes []struct {
			SubRoutes []struct {
				Dexes []dexLeg `json:"dexes"`
			} `json:"subRoutes"`
		} `json:"routes"`
	} `json:"path"`
}

func convertSources(resp *swapResponse) []models.SwapSource {
	sources := []models.SwapSource{}
	for _, route := range resp.Path.Routes {
		for _, sub := range route.SubRoutes {
			for _, leg := range sub.Dexes {
				sources = append(sources, models.NewSwapSource(leg.Dex, leg.Percentage))
			}
		}
	}
	return sources
}

func (p *Provider) query(req providers.SwapRequest) url.Values {
	q := url.Values{}
	q.Set("inTokenAddress", req.SellToken)
	q.Set("outTokenAddress", req.BuyToken)
	q.Set("amount", req.SellAmount.String())
	if req.GasPrice != nil {
		q.Set("gasPrice", req.GasPrice.String())
	}
	if req.FeeRecipient != "" {
		q.Set("referrer", req.FeeRecipient)
		q.Set("referrerFee", strconv.FormatFloat(req.BuyTokenPercentageFee*100, 'f', -1, 64))
	}
	return q
}

func (p *Provider) fetch(ctx context.Context, path string, q url.Values) (*swapResponse, error) {
	rawURL := fmt.Sprintf("%s/%s", apiBase, path)
	body, err := providers.FetchJSON(ctx, p.hc, p.timeout, http.MethodGet, rawURL, q, nil, nil)
	if err != nil {
		return nil, providers.ClassifyError(nil, p.name, err, extractMessage)
	}
	var resp swapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewParse(p.name, err.Error())
	}
	return &resp, nil
}

// GetSwapPrice returns the advertised OpenOcean quote.
func (p *Provider) GetSwapPrice(ctx context.Context, req providers.SwapRequest) (*models.PriceQuote, error) {
	key := cache.Key("openocean.GetSwapPrice",
		[]interface{}{req.ChainID, req.BuyToken, req.SellToken, req.SellAmount.String()},
		cache.KW{Name: "gasPrice", Value: req.GasPrice},
		cache.KW{Name: "feeRecipient", Value: req.FeeRecipient},
	)
	quote, err := cache.Memoize(ctx, p.cache, key, cache.TTLProviderPrice, func(ctx context.Context) (models.PriceQuote, error) {
		resp, err := p.fetch(ctx, fmt.Sprintf("%d/quote", req.ChainID), p.query(req))
		if err != nil {
			return models.PriceQuote{}, err
		}
		price, err := providers.ComputePrice(p.name, resp.OutAmount, resp.InAmount, resp.OutToken.Decimals, resp.InToken.Decimals)
		if err != nil {
			return models.PriceQuote{}, err
		}
		gasPrice := "0"
		if req.GasPrice != nil {
			gasPrice = req.GasPrice.String()
		}
		value := providers.NativeValue(req.SellToken, req.SellAmount.String())
		allowanceTarget := ""
		if spender, ok := p.descriptor.SpenderFor(req.ChainID); ok {
			allowanceTarget = spender.MarketOrder
		}
		return models.PriceQuote{
			Provider:        p.name,
			Sources:         convertSources(resp),
			BuyAmount:       resp.OutAmount,
			SellAmount:      resp.InAmount,
			Gas:             resp.EstimatedGas.String(),
			GasPrice:        gasPrice,
			Value:           value,
			Price:           price,
			AllowanceTarget: allowanceTarget,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetSwapQuote returns a ready-to-broadcast OpenOcean transaction.
func (p *Provider) GetSwapQuote(ctx context.Context, req providers.SwapRequest) (*models.TxQuote, error) {
	q := p.query(req)
	q.Set("account", req.TakerAddress)
	if req.SlippagePercentage > 0 {
		q.Set("slippage", strconv.FormatFloat(req.SlippagePercentage*100, 'f', -1, 64))
	}
	resp, err := p.fetch(ctx, fmt.Sprintf("%d/swap", req.ChainID), q)
	if err != nil {
		return nil, err
	}
	price, err := providers.ComputePrice(p.name, resp.OutAmount, resp.InAmount, resp.OutToken.Decimals, resp.InToken.Decimals)
	if err != nil {
		return nil, err
	}
	return &models.TxQuote{
		Sources:    convertSources(resp),
		BuyAmount:  resp.OutAmount,
		SellAmount: resp.InAmount,
		Gas:        resp.EstimatedGas.String(),
		GasPrice:   resp.GasPrice.String(),
		Value:      resp.Value,
		To:         resp.To,
		Data:       resp.Data,
		Price:      price,
	}, nil
}
