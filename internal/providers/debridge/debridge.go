// Package debridge adapts the deBridge DLN API for cross-chain swaps and
// cross-chain order inspection.
package debridge

import (
	"bytes"
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
)

//go:embed config.json
var configJSON []byte

// Descriptor returns the static provider configuration.
func Descriptor() models.ProviderDescriptor {
	var d models.ProviderDescriptor
	if err := json.Unmarshal(configJSON, &d); err != nil {
		panic("debridge: bad embedded config: " + err.Error())
	}
	return d
}

const (
	tradingAPI = "https://api.dln.trade/v1.0/dln/order"
	orderAPI   = "https://dln-api.debridge.finance/api"

	// DLN denotes native coins with the zero address.
	nativeZero = "0x0000000000000000000000000000000000000000"
)

func extractMessage(body []byte) string {
	var payload struct {
		ErrorMessage string `json:"errorMessage"`
		Message      string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.ErrorMessage != "" {
		return payload.ErrorMessage
	}
	return payload.Message
}

// Provider is the deBridge adapter.
type Provider struct {
	hc      *http.Client
	timeout time.Duration
	cache   cache.Cache
	name    string
}

// New builds the adapter.
func New(hc *http.Client, timeout time.Duration, c cache.Cache) *Provider {
	return &Provider{hc: hc, timeout: timeout, cache: c, name: Descriptor().Name}
}

// Name returns the registry name of the adapter.
func (p *Provider) Name() string { return p.name }

// RequiresGasPrice reports that quoting needs the source-chain gas price
// resolved up front.
func (p *Provider) RequiresGasPrice() bool { return true }

// translateNative maps the native sentinel to the DLN zero address.
func translateNative(token string) string {
	if strings.EqualFold(token, models.NativeTokenAddress) {
		return nativeZero
	}
	return token
}

type amountStub struct {
	Amount   string `json:"amount"`
	Decimals uint8  `json:"decimals"`
}

type orderResponse struct {
	Estimation struct {
		SrcChainTokenIn  amountStub `json:"srcChainTokenIn"`
		DstChainTokenOut amountStub `json:"dstChainTokenOut"`
	} `json:"estimation"`
	Tx struct {
		To              string `json:"to"`
		Data            string `json:"data"`
		Value           string `json:"value"`
		AllowanceTarget string `json:"allowanceTarget"`
	} `json:"tx"`
}

func (p *Provider) query(req providers.CrossChainSwapRequest) url.Values {
	q := url.Values{}
	q.Set("srcChainId", strconv.FormatUint(req.ChainIDFrom, 10))
	q.Set("srcChainTokenIn", translateNative(req.SellToken))
	q.Set("srcChainTokenInAmount", req.SellAmount.String())
	q.Set("dstChainId", strconv.FormatUint(req.ChainIDTo, 10))
	q.Set("dstChainTokenOut", translateNative(req.BuyToken))
	q.Set("prependOperatingExpenses", "true")
	if req.FeeRecipient != "" {
		q.Set("affiliateFeePercent", strconv.FormatFloat(req.BuyTokenPercentageFee*100, 'f', -1, 64))
	}
	return q
}

func (p *Provider) fetch(ctx context.Context, path string, q url.Values) (*orderResponse, error) {
	body, err := providers.FetchJSON(ctx, p.hc, p.timeout, http.MethodGet, tradingAPI+path, q, nil, nil)
	if err != nil {
		return nil, providers.ClassifyError(nil, p.name, err, extractMessage)
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewParse(p.name, err.Error())
	}
	return &resp, nil
}

func (p *Provider) price(resp *orderResponse) (string, error) {
	est := resp.Estimation
	return providers.ComputePrice(p.name, est.DstChainTokenOut.Amount, est.SrcChainTokenIn.Amount,
		est.DstChainTokenOut.Decimals, est.SrcChainTokenIn.Decimals)
}

// GetCrossChainPrice returns the advertised DLN order estimation.
func (p *Provider) GetCrossChainPrice(ctx context.Context, req providers.CrossChainSwapRequest) (*models.PriceQuote, error) {
	key := cache.Key("debridge.GetCrossChainPrice",
		[]interface{}{req.ChainIDFrom, req.ChainIDTo, req.BuyToken, req.SellToken, req.SellAmount.String()},
		cache.KW{Name: "feeRecipient", Value: req.FeeRecipient},
	)
	quote, err := cache.Memoize(ctx, p.cache, key, cache.TTLProviderPrice, func(ctx context.Context) (models.PriceQuote, error) {
		resp, err := p.fetch(ctx, "/quote", p.query(req))
		if err != nil {
			return models.PriceQuote{}, err
		}
		price, err := p.price(resp)
		if err != nil {
			return models.PriceQuote{}, err
		}
		gasPrice := "0"
		if req.GasPrice != nil {
			gasPrice = req.GasPrice.String()
		}
		return models.PriceQuote{
			Provider:        p.name,
			Sources:         []models.SwapSource{},
			BuyAmount:       resp.Estimation.DstChainTokenOut.Amount,
			SellAmount:      resp.Estimation.SrcChainTokenIn.Amount,
			Gas:             "0",
			GasPrice:        gasPrice,
			Value:           "0",
			Price:           price,
			AllowanceTarget: resp.Tx.AllowanceTarget,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetCrossChainQuote builds the DLN order-creation transaction.
func (p *Provider) GetCrossChainQuote(ctx context.Context, req providers.CrossChainSwapRequest) (*models.TxQuote, error) {
	q := p.query(req)
	q.Set("dstChainTokenOutAmount", "auto")
	q.Set("srcChainOrderAuthorityAddress", req.TakerAddress)
	q.Set("dstChainTokenOutRecipient", req.TakerAddress)
	q.Set("dstChainOrderAuthorityAddress", req.TakerAddress)
	if req.FeeRecipient != "" {
		q.Set("affiliateFeeRecipient", req.FeeRecipient)
	}
	resp, err := p.fetch(ctx, "/create-tx", q)
	if err != nil {
		return nil, err
	}
	price, err := p.price(resp)
	if err != nil {
		return nil, err
	}
	gasPrice := "0"
	if req.GasPrice != nil {
		gasPrice = req.GasPrice.String()
	}
	return &models.TxQuote{
		Sources:    []models.SwapSource{},
		BuyAmount:  resp.Estimation.DstChainTokenOut.Amount,
		SellAmount: resp.Estimation.SrcChainTokenIn.Amount,
		Gas:        "0",
		GasPrice:   gasPrice,
		Value:      resp.Tx.Value,
		To:         resp.Tx.To,
		Data:       resp.Tx.Data,
		Price:      price,
	}, nil
}

// GetOrdersByTrader lists DLN orders created by the trader on the chain.
func (p *Provider) GetOrdersByTrader(ctx context.Context, req providers.LimitOrdersRequest) ([]map[string]interface{}, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"giveChainIds": []uint64{req.ChainID},
		"orderStates":  append([]string{}, req.Statuses...),
		"creator":      req.Trader,
		"skip":         0,
		"take":         1000000,
	})
	if err != nil {
		return nil, errors.NewValidation(err.Error())
	}
	headers := map[string]string{"content-type": "application/json"}
	body, err := providers.FetchJSON(ctx, p.hc, p.timeout, http.MethodPost, orderAPI+"/Orders/filteredList", nil, headers, bytes.NewReader(payload))
	if err != nil {
		return nil, providers.ClassifyError(nil, p.name, err, extractMessage)
	}
	var resp struct {
		Orders []map[string]interface{} `json:"orders"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewParse(p.name, err.Error())
	}
	return resp.Orders, nil
}

// GetOrderByHash fetches one DLN order.
func (p *Provider) GetOrderByHash(ctx context.Context, chainID uint64, orderHash string) (map[string]interface{}, error) {
	body, err := providers.FetchJSON(ctx, p.hc, p.timeout, http.MethodGet, fmt.Sprintf("%s/%s", tradingAPI, orderHash), nil, nil, nil)
	if err != nil {
		return nil, providers.ClassifyError(nil, p.name, err, extractMessage)
	}
	var order map[string]interface{}
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, errors.NewParse(p.name, err.Error())
	}
	return order, nil
}

// PostLimitOrder is not supported: DLN orders are created on-chain through
// the create-tx flow.
func (p *Provider) PostLimitOrder(ctx context.Context, chainID uint64, orderHash, signature string, data map[string]interface{}) (map[string]interface{}, error) {
	return nil, errors.NewValidation("debridge orders are created on-chain, posting is not supported")
}
