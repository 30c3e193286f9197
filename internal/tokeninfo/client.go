package tokeninfo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dexmeta/meta-swap-api/internal/config"
	"github.com/dexmeta/meta-swap-api/internal/models"
)

// Client talks to the public token API over HTTP.
type Client struct {
	cfg *config.TokenAPIConfig
	hc  *http.Client
}

// NewClient creates a token API client sharing the process HTTP client.
func NewClient(cfg *config.TokenAPIConfig, hc *http.Client) *Client {
	return &Client{cfg: cfg, hc: hc}
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	url := strings.TrimRight(c.cfg.Domain, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")
	if c.cfg.Key != "" {
		req.Header.Set("api-key", c.cfg.Key)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token api %s: status %d: %s", path, resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

type chainListResponse struct {
	Data []struct {
		Name        string `json:"name"`
		ChainID     uint64 `json:"chain_id"`
		Description string `json:"description"`
		NativeToken struct {
			Address  string `json:"address"`
			Name     string `json:"name"`
			Symbol   string `json:"symbol"`
			Decimals uint8  `json:"decimals"`
		} `json:"native_token"`
		EIP1559 bool `json:"eip1559"`
	} `json:"data"`
}

// ListChains implements TokenInfo.
func (c *Client) ListChains(ctx context.Context) ([]models.ChainInfo, error) {
	var resp chainListResponse
	if err := c.get(ctx, "/v3/chain/", &resp); err != nil {
		return nil, err
	}
	chains := make([]models.ChainInfo, 0, len(resp.Data))
	for _, chain := range resp.Data {
		chains = append(chains, models.ChainInfo{
			Name:        strings.ToLower(chain.Name),
			ChainID:     chain.ChainID,
			Description: chain.Description,
			NativeToken: models.Token{
				Address:  strings.ToLower(chain.NativeToken.Address),
				Name:     chain.NativeToken.Name,
				Symbol:   chain.NativeToken.Symbol,
				Decimals: chain.NativeToken.Decimals,
			},
			EIP1559: chain.EIP1559,
		})
	}
	return chains, nil
}

type tokenInventoryResponse struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
}

// Decimals implements TokenInfo.
func (c *Client) Decimals(ctx context.Context, chainID uint64, token string) (uint8, error) {
	var resp tokenInventoryResponse
	path := fmt.Sprintf("/v3/tokens/%d/%s", chainID, strings.ToLower(token))
	if err := c.get(ctx, path, &resp); err != nil {
		return 0, err
	}
	return resp.Decimals, nil
}

type tokenFinanceResponse struct {
	PriceETH decimal.Decimal `json:"price_eth"`
}

// NativePrice implements TokenInfo.
func (c *Client) NativePrice(ctx context.Context, chainID uint64, token string) (decimal.Decimal, error) {
	var resp tokenFinanceResponse
	path := fmt.Sprintf("/v3/tokens/%d/%s/finance", chainID, strings.ToLower(token))
	if err := c.get(ctx, path, &resp); err != nil {
		return decimal.Decimal{}, err
	}
	return resp.PriceETH, nil
}
