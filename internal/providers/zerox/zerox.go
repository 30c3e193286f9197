// Package zerox adapts the 0x Swap API.
package zerox

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

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
		panic("zerox: bad embedded config: " + err.Error())
	}
	return d
}

// Non-mainnet chains are served from per-chain subdomains.
var chainSubdomains = map[uint64]string{
	1:     "",
	10:    "optimism.",
	56:    "bsc.",
	137:   "polygon.",
	250:   "fantom.",
	42161: "arbitrum.",
	43114: "avalanche.",
}

var errorRules = []providers.ErrorRule{
	providers.Rule(`insufficient funds for transaction`, errors.InsufficientBalance),
	providers.Rule(`IncompleteTransformERC20Error`, errors.InvalidTokens),
	providers.Rule(`INSUFFICIENT_ASSET_LIQUIDITY`, errors.InsufficientLiquidity),
	providers.Rule(`WalletExecuteDelegateCallFailedError`, errors.ProviderUnspecified),
	providers.Rule(`SenderNotAuthorizedError`, errors.InsufficientAllowance),
	providers.Rule(`gas estimation failed`, errors.EstimationFailed),
	providers.Rule(`ERC20: insufficient allowance`, errors.InsufficientAllowance),
}

// Provider is the 0x adapter.
type Provider struct {
	hc       *http.Client
	timeout  time.Duration
	cache    cache.Cache
	decimals *tokeninfo.DecimalsResolver
	name     string
}

// New builds the adapter.
func New(hc *http.Client, timeout time.Duration, c cache.Cache, decimals *tokeninfo.DecimalsResolver) *Provider {
	return &Provider{hc: hc, timeout: timeout, cache: c, decimals: decimals, name: Descriptor().Name}
}

// Name returns the registry name of the adapter.
func (p *Provider) Name() string { return p.name }

func (p *Provider) baseURL(chainID uint64) (string, error) {
	sub, ok := chainSubdomains[chainID]
	if !ok {
		return "", errors.NewValidation(fmt.Sprintf("chain id %d is not supported by %s", chainID, p.name))
	}
	return fmt.Sprintf("https://%sapi.0x.org", sub), nil
}

func (p *Provider) query(req providers.SwapRequest) url.Values {
	q := url.Values{}
	q.Set("buyToken", req.BuyToken)
	q.Set("sellToken", req.SellToken)
	q.Set("sellAmount", req.SellAmount.String())
	if req.GasPrice != nil {
		q.Set("gasPrice", req.GasPrice.String())
	}
	if req.SlippagePercentage > 0 {
		q.Set("slippagePercentage", strconv.FormatFloat(req.SlippagePercentage, 'f', -1, 64))
	}
	if req.TakerAddress != "" {
		q.Set("takerAddress", req.TakerAddress)
	}
	if req.FeeRecipient != "" {
		q.Set("feeRecipient", req.FeeRecipient)
		q.Set("affiliateAddress", req.FeeRecipient)
		q.Set("buyTokenPercentageFee", strconv.FormatFloat(req.BuyTokenPercentageFee, 'f', -1, 64))
	}
	return q
}

type routeSource struct {
	Name       string   `json:"name"`
	Proportion string   `json:"proportion"`
	Hops       []string `json:"hops"`
}

type swapResponse struct {
	BuyAmount       string        `json:"buyAmount"`
	SellAmount      string        `json:"sellAmount"`
	Gas             string        `json:"gas"`
	GasPrice        string        `json:"gasPrice"`
	Value           string        `json:"value"`
	AllowanceTarget string        `json:"allowanceTarget"`
	To              string        `json:"to"`
	Data            string        `json:"data"`
	Sources         []routeSource `json:"sources"`
}

// convertSources flattens the 0x route list. Multihop entries expand into one
// source per hop carrying the parent proportion; zero-proportion venues are
// dropped.
func convertSources(raw []routeSource) []models.SwapSource {
	sources := []models.SwapSource{}
	for _, src := range raw {
		proportion, err := strconv.ParseFloat(src.Proportion, 64)
		if err != nil || proportion == 0 {
			continue
		}
		percent := proportion * 100
		if len(src.Hops) > 0 {
			for _, hop := range src.Hops {
				sources = append(sources, models.NewSwapSource(hop, percent))
			}
			continue
		}
		sources = append(sources, models.NewSwapSource(src.Name, percent))
	}
	return sources
}

func extractMessage(body []byte) string {
	var payload struct {
		Reason           string `json:"reason"`
		ValidationErrors []struct {
			Field  string `json:"field"`
			Reason string `json:"reason"`
		} `json:"validationErrors"`
		Values struct {
			Message string `json:"message"`
		} `json:"values"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.ValidationErrors) > 0 {
		parts := make([]string, 0, len(payload.ValidationErrors))
		for _, v := range payload.ValidationErrors {
			parts = append(parts, v.Field+": "+v.Reason)
		}
		return strings.Join(parts, "; ")
	}
	if payload.Reason != "" {
		return payload.Reason
	}
	return payload.Values.Message
}

func (p *Provider) fetch(ctx context.Context, path string, req providers.SwapRequest) (*swapResponse, error) {
	base, err := p.baseURL(req.ChainID)
	if err != nil {
		return nil, err
	}
	body, err := providers.FetchJSON(ctx, p.hc, p.timeout, http.MethodGet, base+path, p.query(req), nil, nil)
	if err != nil {
		return nil, providers.ClassifyError(errorRules, p.name, err, extractMessage)
	}
	var resp swapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewParse(p.name, err.Error())
	}
	return &resp, nil
}

func (p *Provider) price(ctx context.Context, resp *swapResponse, req providers.SwapRequest) (string, error) {
	buyDecimals, err := p.decimals.Decimals(ctx, req.ChainID, req.BuyToken)
	if err != nil {
		return "", errors.NewParse(p.name, err.Error())
	}
	sellDecimals, err := p.decimals.Decimals(ctx, req.ChainID, req.SellToken)
	if err != nil {
		return "", errors.NewParse(p.name, err.Error())
	}
	return providers.ComputePrice(p.name, resp.BuyAmount, resp.SellAmount, buyDecimals, sellDecimals)
}

// GetSwapPrice returns the advertised 0x price. Results are cached briefly so
// the aggregated and the per-provider views share one upstream call.
func (p *Provider) GetSwapPrice(ctx context.Context, req providers.SwapRequest) (*models.PriceQuote, error) {
	key := cache.Key("zerox.GetSwapPrice",
		[]interface{}{req.ChainID, req.BuyToken, req.SellToken, req.SellAmount.String()},
		cache.KW{Name: "gasPrice", Value: req.GasPrice},
		cache.KW{Name: "slippage", Value: req.SlippagePercentage},
		cache.KW{Name: "taker", Value: req.TakerAddress},
		cache.KW{Name: "feeRecipient", Value: req.FeeRecipient},
		cache.KW{Name: "fee", Value: req.BuyTokenPercentageFee},
	)
	quote, err := cache.Memoize(ctx, p.cache, key, cache.TTLProviderPrice, func(ctx context.Context) (models.PriceQuote, error) {
		resp, err := p.fetch(ctx, "/swap/v1/price", req)
		if err != nil {
			return models.PriceQuote{}, err
		}
		price, err := p.price(ctx, resp, req)
		if err != nil {
			return models.PriceQuote{}, err
		}
		return models.PriceQuote{
			Provider:        p.name,
			Sources:         convertSources(resp.Sources),
			BuyAmount:       resp.BuyAmount,
			SellAmount:      resp.SellAmount,
			Gas:             resp.Gas,
			GasPrice:        resp.GasPrice,
			Value:           resp.Value,
			Price:           price,
			AllowanceTarget: resp.AllowanceTarget,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetSwapQuote returns a ready-to-broadcast 0x transaction.
func (p *Provider) GetSwapQuote(ctx context.Context, req providers.SwapRequest) (*models.TxQuote, error) {
	resp, err := p.fetch(ctx, "/swap/v1/quote", req)
	if err != nil {
		return nil, err
	}
	price, err := p.price(ctx, resp, req)
	if err != nil {
		return nil, err
	}
	return &models.TxQuote{
		Sources:    convertSources(resp.Sources),
		BuyAmount:  resp.BuyAmount,
		SellAmount: resp.SellAmount,
		Gas:        resp.Gas,
		GasPrice:   resp.GasPrice,
		Value:      resp.Value,
		To:         resp.To,
		Data:       resp.Data,
		Price:      price,
	}, nil
}
