package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/dexmeta/meta-swap-api/internal/config"
	"github.com/dexmeta/meta-swap-api/internal/logger"
)

const erc20ABIJSON = `[
  {"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
  {"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

var (
	erc20ABI abi.ABI

	// maxApproval is the unlimited-approve amount used for gas estimation.
	maxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(fmt.Sprintf("chainclient: bad erc20 abi: %v", err))
	}
	erc20ABI = parsed
}

// EVM talks JSON-RPC to one node per chain, dialing lazily and reusing the
// connection for the process lifetime.
type EVM struct {
	cfg *config.Config

	mu      sync.Mutex
	clients map[uint64]*rpc.Client
}

// NewEVM creates an EVM chain client over the configured RPC proxy.
func NewEVM(cfg *config.Config) *EVM {
	return &EVM{cfg: cfg, clients: make(map[uint64]*rpc.Client)}
}

func (e *EVM) client(ctx context.Context, chainID uint64) (*rpc.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if client, ok := e.clients[chainID]; ok {
		return client, nil
	}
	client, err := rpc.DialContext(ctx, e.cfg.NodeURL(chainID))
	if err != nil {
		return nil, fmt.Errorf("dial chain %d: %w", chainID, err)
	}
	e.clients[chainID] = client
	return client, nil
}

type callArgs struct {
	From common.Address `json:"from,omitempty"`
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// Allowance implements ChainClient.
func (e *EVM) Allowance(ctx context.Context, chainID uint64, token, spender, owner string) (*big.Int, error) {
	client, err := e.client(ctx, chainID)
	if err != nil {
		return nil, err
	}
	data, err := erc20ABI.Pack("allowance", common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, fmt.Errorf("pack allowance: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Web3.Timeout)
	defer cancel()

	var result hexutil.Bytes
	args := callArgs{To: common.HexToAddress(token), Data: data}
	if err := client.CallContext(ctx, &result, "eth_call", args, "latest"); err != nil {
		return nil, fmt.Errorf("eth_call allowance on chain %d: %w", chainID, err)
	}
	values, err := erc20ABI.Unpack("allowance", result)
	if err != nil || len(values) != 1 {
		return nil, fmt.Errorf("unpack allowance on chain %d: %w", chainID, err)
	}
	allowance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance type %T", values[0])
	}
	logger.Debug("got token allowance", logger.Fields{
		"chain_id": chainID,
		"token":    token,
		"spender":  spender,
	})
	return allowance, nil
}

// EstimateApprove implements ChainClient.
func (e *EVM) EstimateApprove(ctx context.Context, chainID uint64, token, owner, spender string) (uint64, error) {
	client, err := e.client(ctx, chainID)
	if err != nil {
		return 0, err
	}
	data, err := erc20ABI.Pack("approve", common.HexToAddress(spender), maxApproval)
	if err != nil {
		return 0, fmt.Errorf("pack approve: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Web3.Timeout)
	defer cancel()

	var gas hexutil.Uint64
	args := callArgs{From: common.HexToAddress(owner), To: common.HexToAddress(token), Data: data}
	if err := client.CallContext(ctx, &gas, "eth_estimateGas", args); err != nil {
		return 0, fmt.Errorf("eth_estimateGas approve on chain %d: %w", chainID, err)
	}
	return uint64(gas), nil
}

// GasPrice implements ChainClient.
func (e *EVM) GasPrice(ctx context.Context, chainID uint64) (*big.Int, error) {
	client, err := e.client(ctx, chainID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Web3.Timeout)
	defer cancel()

	var price hexutil.Big
	if err := client.CallContext(ctx, &price, "eth_gasPrice"); err != nil {
		return nil, fmt.Errorf("eth_gasPrice on chain %d: %w", chainID, err)
	}
	return (*big.Int)(&price), nil
}

type feeHistoryResult struct {
	Reward        [][]*hexutil.Big `json:"reward"`
	BaseFeePerGas []*hexutil.Big   `json:"baseFeePerGas"`
}

// FeeHistory implements ChainClient.
func (e *EVM) FeeHistory(ctx context.Context, chainID uint64, blockCount uint64, rewardPercentiles []float64) (*FeeHistory, error) {
	client, err := e.client(ctx, chainID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Web3.Timeout)
	defer cancel()

	var raw feeHistoryResult
	err = client.CallContext(ctx, &raw, "eth_feeHistory", hexutil.Uint64(blockCount), "latest", rewardPercentiles)
	if err != nil {
		return nil, fmt.Errorf("eth_feeHistory on chain %d: %w", chainID, err)
	}

	history := &FeeHistory{
		Reward:        make([][]*big.Int, len(raw.Reward)),
		BaseFeePerGas: make([]*big.Int, len(raw.BaseFeePerGas)),
	}
	for i, row := range raw.Reward {
		history.Reward[i] = make([]*big.Int, len(row))
		for j, value := range row {
			history.Reward[i][j] = (*big.Int)(value)
		}
	}
	for i, value := range raw.BaseFeePerGas {
		history.BaseFeePerGas[i] = (*big.Int)(value)
	}
	return history, nil
}

// Close releases all dialed connections.
func (e *EVM) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, client := range e.clients {
		client.Close()
	}
	e.clients = make(map[uint64]*rpc.Client)
}
