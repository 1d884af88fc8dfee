package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/rampline/rampline/internal/config"
	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

const (
	// callTimeout bounds read-only RPC calls.
	callTimeout = 10 * time.Second
	// minedTimeout bounds the wait for a submitted transaction to mine.
	minedTimeout = 3 * time.Minute
	// approveGasLimit is the gas limit for ERC20 approve; a plain
	// storage write, stable across tokens.
	approveGasLimit = 60_000
	// withdrawGasLimit covers the vault withdraw/uncommit legs, which
	// are not pre-estimated per order.
	withdrawGasLimit = 120_000
)

// evmChain is one dialed chain with its bound vault.
type evmChain struct {
	chainID *big.Int
	client  *ethclient.Client

	vaultAddress common.Address
	vault        *bind.BoundContract
}

// EVM implements models.EVMService over one wallet key and any number
// of configured chains.
type EVM struct {
	logger *logger.Logger

	key     *ecdsa.PrivateKey
	address common.Address

	vaultABI abi.ABI
	erc20ABI abi.ABI

	chains map[uint64]*evmChain
}

var _ models.EVMService = (*EVM)(nil)

// NewEVM dials every configured chain and binds its vault contract.
func NewEVM(chains []config.EVMChainConfig, privateKeyHex string, logger *logger.Logger) (*EVM, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet private key: %w", err)
	}

	vaultABI, err := abi.JSON(strings.NewReader(VaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault ABI: %w", err)
	}
	erc20ABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	e := &EVM{
		logger:   logger,
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		vaultABI: vaultABI,
		erc20ABI: erc20ABI,
		chains:   make(map[uint64]*evmChain),
	}

	for _, cfg := range chains {
		client, err := ethclient.Dial(cfg.RPCURL)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to connect to chain %d RPC: %w", cfg.ChainID, err)
		}
		vaultAddress := common.HexToAddress(cfg.VaultAddress)
		e.chains[cfg.ChainID] = &evmChain{
			chainID:      new(big.Int).SetUint64(cfg.ChainID),
			client:       client,
			vaultAddress: vaultAddress,
			vault:        bind.NewBoundContract(vaultAddress, vaultABI, client, client, client),
		}
		logger.Info("Connected to EVM chain ", cfg.ChainID, " vault ", cfg.VaultAddress)
	}

	return e, nil
}

// WalletAddress is the address transactions are signed with.
func (e *EVM) WalletAddress() string {
	return e.address.Hex()
}

func (e *EVM) SupportsChain(chainID uint64) bool {
	_, ok := e.chains[chainID]
	return ok
}

func (e *EVM) chain(chainID uint64) (*evmChain, error) {
	c, ok := e.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %d: %w", chainID, models.ErrUnsupportedChain)
	}
	return c, nil
}

func (e *EVM) Close() error {
	for _, c := range e.chains {
		if c.client != nil {
			c.client.Close()
		}
	}
	return nil
}

func (e *EVM) NativeBalance(ctx context.Context, chainID uint64, account string) (*big.Int, error) {
	c, err := e.chain(chainID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	balance, err := c.client.BalanceAt(ctx, common.HexToAddress(account), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get native balance: %w", err)
	}
	return balance, nil
}

func (e *EVM) TokenBalance(ctx context.Context, chainID uint64, token, account string) (*big.Int, error) {
	c, err := e.chain(chainID)
	if err != nil {
		return nil, err
	}

	contract := bind.NewBoundContract(common.HexToAddress(token), e.erc20ABI, c.client, c.client, c.client)
	results := []interface{}{}
	err = contract.Call(&bind.CallOpts{Context: ctx}, &results, "balanceOf", common.HexToAddress(account))
	if err != nil {
		return nil, fmt.Errorf("failed to get token balance: %w", err)
	}
	balance := results[0].(*big.Int)
	return balance, nil
}

func (e *EVM) SuggestGasPrice(ctx context.Context, chainID uint64) (*big.Int, error) {
	c, err := e.chain(chainID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	price, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return price, nil
}

// EstimateDepositGas live-simulates the wallet's own deposit call.
func (e *EVM) EstimateDepositGas(ctx context.Context, chainID uint64, token string, amount *big.Int) (uint64, error) {
	c, err := e.chain(chainID)
	if err != nil {
		return 0, err
	}

	var msg ethereum.CallMsg
	if token == "" {
		data, err := e.vaultABI.Pack("depositBaseCurrency")
		if err != nil {
			return 0, fmt.Errorf("failed to pack deposit call: %w", err)
		}
		msg = ethereum.CallMsg{From: e.address, To: &c.vaultAddress, Value: amount, Data: data}
	} else {
		data, err := e.vaultABI.Pack("depositToken", common.HexToAddress(token), amount)
		if err != nil {
			return 0, fmt.Errorf("failed to pack deposit call: %w", err)
		}
		msg = ethereum.CallMsg{From: e.address, To: &c.vaultAddress, Data: data}
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	gas, err := c.client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate deposit gas: %w", err)
	}
	return gas, nil
}

func (e *EVM) DepositNative(ctx context.Context, chainID uint64, amount *big.Int, gas models.GasEstimate) (*models.TxReceipt, error) {
	c, err := e.chain(chainID)
	if err != nil {
		return nil, err
	}
	data, err := e.vaultABI.Pack("depositBaseCurrency")
	if err != nil {
		return nil, fmt.Errorf("failed to pack deposit call: %w", err)
	}
	return e.submit(ctx, c, c.vaultAddress, amount, gas.GasUnits, gas.GasPrice, data)
}

func (e *EVM) DepositToken(ctx context.Context, chainID uint64, token string, amount *big.Int, gas models.GasEstimate) (*models.TxReceipt, error) {
	c, err := e.chain(chainID)
	if err != nil {
		return nil, err
	}

	// The vault pulls tokens with transferFrom, so approve must mine
	// first.
	tokenAddress := common.HexToAddress(token)
	approveData, err := e.erc20ABI.Pack("approve", c.vaultAddress, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve call: %w", err)
	}
	approveReceipt, err := e.submit(ctx, c, tokenAddress, nil, approveGasLimit, gas.GasPrice, approveData)
	if err != nil {
		return nil, fmt.Errorf("token approve failed: %w", err)
	}
	if !approveReceipt.Succeeded() {
		return approveReceipt, fmt.Errorf("token approve reverted (tx %s): %w", approveReceipt.Hash, models.ErrVaultTransactionFailed)
	}

	depositData, err := e.vaultABI.Pack("depositToken", tokenAddress, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack deposit call: %w", err)
	}
	return e.submit(ctx, c, c.vaultAddress, nil, gas.GasUnits, gas.GasPrice, depositData)
}

func (e *EVM) WithdrawNative(ctx context.Context, chainID uint64, amount *big.Int) (*models.TxReceipt, error) {
	c, err := e.chain(chainID)
	if err != nil {
		return nil, err
	}
	data, err := e.vaultABI.Pack("withdrawBaseCurrency", amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack withdraw call: %w", err)
	}
	return e.submitWithSuggestedPrice(ctx, c, data)
}

func (e *EVM) WithdrawToken(ctx context.Context, chainID uint64, token string, amount *big.Int) (*models.TxReceipt, error) {
	c, err := e.chain(chainID)
	if err != nil {
		return nil, err
	}
	data, err := e.vaultABI.Pack("withdrawToken", common.HexToAddress(token), amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack withdraw call: %w", err)
	}
	return e.submitWithSuggestedPrice(ctx, c, data)
}

func (e *EVM) UncommitDeposit(ctx context.Context, chainID uint64, offramper, token string, amount *big.Int) (*models.TxReceipt, error) {
	c, err := e.chain(chainID)
	if err != nil {
		return nil, err
	}
	// The zero address marks native escrow in the vault.
	data, err := e.vaultABI.Pack("uncommitDeposit", common.HexToAddress(offramper), common.HexToAddress(token), amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack uncommit call: %w", err)
	}
	return e.submitWithSuggestedPrice(ctx, c, data)
}

// submitWithSuggestedPrice sends a vault call at the chain's current
// gas price with the flat withdraw gas limit.
func (e *EVM) submitWithSuggestedPrice(ctx context.Context, c *evmChain, data []byte) (*models.TxReceipt, error) {
	price, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return e.submit(ctx, c, c.vaultAddress, nil, withdrawGasLimit, price, data)
}

// submit signs, broadcasts and waits for the mined receipt.
func (e *EVM) submit(ctx context.Context, c *evmChain, to common.Address, value *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) (*models.TxReceipt, error) {
	nonce, err := c.client.PendingNonceAt(ctx, e.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	e.logger.Info("Submitted transaction ", signedTx.Hash().Hex(), " to chain ", c.chainID)

	minedCtx, cancel := context.WithTimeout(ctx, minedTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(minedCtx, c.client, signedTx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for transaction %s: %w", signedTx.Hash().Hex(), err)
	}

	return &models.TxReceipt{Hash: receipt.TxHash.Hex(), Status: receipt.Status}, nil
}
