// Package paraswap adapts the Paraswap API. Quoting is two-phase: the price
// route returned by /prices is posted back verbatim to /transactions.
package paraswap

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
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
		panic("paraswap: bad embedded config: " + err.Error())
	}
	return d
}

const (
	apiBase    = "https://api.paraswap.io"
	apiVersion = "6.2"
)

var errorRules = []providers.ErrorRule{
	providers.Rule(`invalid tokens`, errors.InvalidTokens),
	providers.Rule(`token not found`, errors.InvalidTokens),
	providers.Rule(`price timeout`, errors.PriceUnavailable),
	providers.Rule(`computeprice error`, errors.PriceUnavailable),
	providers.Rule(`bad usd price`, errors.PriceUnavailable),
	providers.Rule(`error_getting_prices`, errors.PriceUnavailable),
	providers.Rule(`unable to check price impact`, errors.PriceUnavailable),
	providers.Rule(`not enough \w+ allowance`, errors.InsufficientAllowance),
	providers.Rule(`not enough \w+ balance`, errors.InsufficientBalance),
	providers.Rule(`it seems like your wallet doesn't contain enough`, errors.InsufficientBalance),
	providers.Rule(`network mismatch`, errors.ValidationFailed),
	providers.Rule(`missing srcamount`, errors.ValidationFailed),
	providers.Rule(`missing destamount`, errors.ValidationFailed),
	providers.Rule(`cannot specify both slippage and destamount`, errors.ValidationFailed),
	providers.Rule(`missing slippage or destamount`, errors.ValidationFailed),
	providers.Rule(`source amount mismatch`, errors.ValidationFailed),
	providers.Rule(`destination amount mismatch`, errors.ValidationFailed),
	providers.Rule(`error parsing params`, errors.ValidationFailed),
	providers.Rule(`pricerouteobj must be a valid price route object`, errors.ValidationFailed),
	providers.Rule(`unable to process the transaction`, errors.EstimationFailed),
	providers.Rule(`error_building_transaction`, errors.EstimationFailed),
}

func extractMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

// Provider is the Paraswap adapter.
type Provider struct {
	hc      *http.Client
	timeout time.Duration
	cache   cache.Cache
	partner string
	name    string
}

// New builds the adapter. partner is the affiliate tag sent with every call.
func New(hc *http.Client, timeout time.Duration, c cache.Cache, partner string) *Provider {
	return &Provider{hc: hc, timeout: timeout, cache: c, partner: partner, name: Descriptor().Name}
}

// Name returns the registry name of the adapter.
func (p *Provider) Name() string { return p.name }

type swapExchange struct {
	Exchange string  `json:"exchange"`
	Percent  float64 `json:"percent"`
}

type routeFields struct {
	SrcAmount          string `json:"srcAmount"`
	DestAmount         string `json:"destAmount"`
	SrcDecimals        uint8  `json:"srcDecimals"`
	DestDecimals       uint8  `json:"destDecimals"`
	GasCost            string `json:"gasCost"`
	TokenTransferProxy string `json:"tokenTransferProxy"`
	BestRoute          []struct {
		Swaps []struct {
			SwapExchanges []swapExchange `json:"swapExchanges"`
		} `json:"swaps"`
	} `json:"bestRoute"`
}

// priceRoute keeps both the decoded fields and the raw document; the raw form
// goes back to /transactions untouched.
type priceRoute struct {
	fields routeFields
	raw    json.RawMessage
}

func convertSources(route routeFields) []models.SwapSource {
	sources := []models.SwapSource{}
	for _, leg := range route.BestRoute {
		for _, swap := range leg.Swaps {
			for _, ex := range swap.SwapExchanges {
				sources = append(sources, models.NewSwapSource(ex.Exchange, ex.Percent))
			}
		}
	}
	return sources
}

func (p *Provider) fetchRoute(ctx context.Context, req providers.SwapRequest) (*priceRoute, error) {
	q := url.Values{}
	q.Set("srcToken", req.SellToken)
	q.Set("destToken", req.BuyToken)
	q.Set("amount", req.SellAmount.String())
	q.Set("side", "SELL")
	q.Set("network", fmt.Sprintf("%d", req.ChainID))
	q.Set("otherExchangePrices", "false")
	q.Set("partner", p.partner)
	q.Set("version", apiVersion)
	if req.TakerAddress != "" {
		q.Set("userAddress", req.TakerAddress)
	}
	body, err := providers.FetchJSON(ctx, p.hc, p.timeout, http.MethodGet, apiBase+"/prices", q, nil, nil)
	if err != nil {
		return nil, providers.ClassifyError(errorRules, p.name, err, extractMessage)
	}
	var envelope struct {
		PriceRoute json.RawMessage `json:"priceRoute"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.NewParse(p.name, err.Error())
	}
	var fields routeFields
	if err := json.Unmarshal(envelope.PriceRoute, &fields); err != nil {
		return nil, errors.NewParse(p.name, err.Error())
	}
	return &priceRoute{fields: fields, raw: envelope.PriceRoute}, nil
}

// GetSwapPrice returns the advertised Paraswap price.
func (p *Provider) GetSwapPrice(ctx context.Context, req providers.SwapRequest) (*models.PriceQuote, error) {
	key := cache.Key("paraswap.GetSwapPrice",
		[]interface{}{req.ChainID, req.BuyToken, req.SellToken, req.SellAmount.String()},
		cache.KW{Name: "gasPrice", Value: req.GasPrice},
		cache.KW{Name: "taker", Value: req.TakerAddress},
	)
	quote, err := cache.Memoize(ctx, p.cache, key, cache.TTLProviderPrice, func(ctx context.Context) (models.PriceQuote, error) {
		route, err := p.fetchRoute(ctx, req)
		if err != nil {
			return models.PriceQuote{}, err
		}
		fields := route.fields
		price, err := providers.ComputePrice(p.name, fields.DestAmount, fields.SrcAmount, fields.DestDecimals, fields.SrcDecimals)
		if err != nil {
			return models.PriceQuote{}, err
		}
		gasPrice := "0"
		if req.GasPrice != nil {
			gasPrice = req.GasPrice.String()
		}
		value := providers.NativeValue(req.SellToken, req.SellAmount.String())
		return models.PriceQuote{
			Provider:        p.name,
			Sources:         convertSources(fields),
			BuyAmount:       fields.DestAmount,
			SellAmount:      fields.SrcAmount,
			Gas:             fields.GasCost,
			GasPrice:        gasPrice,
			Value:           value,
			Price:           price,
			AllowanceTarget: fields.TokenTransferProxy,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetSwapQuote builds the transaction for the freshly priced route.
func (p *Provider) GetSwapQuote(ctx context.Context, req providers.SwapRequest) (*models.TxQuote, error) {
	route, err := p.fetchRoute(ctx, req)
	if err != nil {
		return nil, err
	}
	fields := route.fields

	payload := map[string]interface{}{
		"srcToken":     req.SellToken,
		"destToken":    req.BuyToken,
		"srcAmount":    req.SellAmount.String(),
		"priceRoute":   route.raw,
		"userAddress":  req.TakerAddress,
		"partner":      p.partner,
		"srcDecimals":  fields.SrcDecimals,
		"destDecimals": fields.DestDecimals,
	}
	if req.FeeRecipient != "" {
		payload["partnerAddress"] = req.FeeRecipient
		payload["partnerFeeBps"] = int(math.Round(req.BuyTokenPercentageFee * 10000))
	}
	if req.SlippagePercentage > 0 {
		payload["slippage"] = int(math.Round(req.SlippagePercentage * 10000))
	} else {
		payload["destAmount"] = fields.DestAmount
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewValidation(err.Error())
	}

	q := url.Values{}
	q.Set("network", fmt.Sprintf("%d", req.ChainID))
	if req.IgnoreChecks {
		q.Set("ignoreChecks", "true")
	}
	if req.GasPrice != nil {
		q.Set("gasPrice", req.GasPrice.String())
	}
	rawURL := fmt.Sprintf("%s/transactions/%d", apiBase, req.ChainID)
	headers := map[string]string{"content-type": "application/json"}
	respBody, err := providers.FetchJSON(ctx, p.hc, p.timeout, http.MethodPost, rawURL, q, headers, bytes.NewReader(body))
	if err != nil {
		return nil, providers.ClassifyError(errorRules, p.name, err, extractMessage)
	}
	var tx struct {
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		GasPrice string `json:"gasPrice"`
	}
	if err := json.Unmarshal(respBody, &tx); err != nil {
		return nil, errors.NewParse(p.name, err.Error())
	}
	price, err := providers.ComputePrice(p.name, fields.DestAmount, fields.SrcAmount, fields.DestDecimals, fields.SrcDecimals)
	if err != nil {
		return nil, err
	}
	return &models.TxQuote{
		Sources:    convertSources(fields),
		BuyAmount:  fields.DestAmount,
		SellAmount: fields.SrcAmount,
		Gas:        fields.GasCost,
		GasPrice:   tx.GasPrice,
		Value:      tx.Value,
		To:         tx.To,
		Data:       tx.Data,
		Price:      price,
	}, nil
}
