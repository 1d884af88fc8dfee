package models

import (
	"context"
	"math/big"
)

// OperationKind names the vault operations an order needs gas for.
type OperationKind string

const (
	// OpCommit is the counterparty's commit/lock leg.
	OpCommit OperationKind = "commit"
	// OpReleaseNative releases escrowed native currency.
	OpReleaseNative OperationKind = "release_native"
	// OpReleaseToken releases escrowed tokens.
	OpReleaseToken OperationKind = "release_token"
)

// GasEstimate is one pre-flight gas figure, consumed once per order
// creation and discarded.
type GasEstimate struct {
	GasUnits uint64
	GasPrice *big.Int
}

// Wei returns gasUnits * gasPrice.
func (g GasEstimate) Wei() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(g.GasUnits), g.GasPrice)
}

// TxReceipt is the subset of an on-chain receipt the orchestrator
// consumes. Success is Status == 1.
type TxReceipt struct {
	Hash   string
	Status uint64
}

// Succeeded reports whether the chain accepted the transaction.
func (r *TxReceipt) Succeeded() bool { return r != nil && r.Status == 1 }

// EVMService is the per-EVM-chain client: balance reads, gas
// estimation and the vault calls the client itself submits. Every
// mutating call waits for the mined receipt.
type EVMService interface {
	// NativeBalance reads the account's native-asset balance.
	NativeBalance(ctx context.Context, chainID uint64, account string) (*big.Int, error)
	// TokenBalance reads an ERC20-style balanceOf.
	TokenBalance(ctx context.Context, chainID uint64, token, account string) (*big.Int, error)

	// SuggestGasPrice returns the chain's current gas price.
	SuggestGasPrice(ctx context.Context, chainID uint64) (*big.Int, error)
	// EstimateDepositGas live-simulates the caller's own deposit
	// transaction. Lock/release legs cannot be simulated (the vault
	// restricts them to the service's canister-controlled caller) and
	// use static defaults instead.
	EstimateDepositGas(ctx context.Context, chainID uint64, token string, amount *big.Int) (uint64, error)

	// DepositNative escrows native currency in the chain's vault.
	DepositNative(ctx context.Context, chainID uint64, amount *big.Int, gas GasEstimate) (*TxReceipt, error)
	// DepositToken approves then deposits tokens into the vault.
	DepositToken(ctx context.Context, chainID uint64, token string, amount *big.Int, gas GasEstimate) (*TxReceipt, error)
	// WithdrawNative withdraws uncommitted native funds back out.
	WithdrawNative(ctx context.Context, chainID uint64, amount *big.Int) (*TxReceipt, error)
	// WithdrawToken withdraws uncommitted tokens back out.
	WithdrawToken(ctx context.Context, chainID uint64, token string, amount *big.Int) (*TxReceipt, error)
	// UncommitDeposit releases an order's escrow back to the offramper
	// ahead of cancellation. Token is empty for native escrow.
	UncommitDeposit(ctx context.Context, chainID uint64, offramper, token string, amount *big.Int) (*TxReceipt, error)

	// SupportsChain reports whether a vault is configured for the chain.
	SupportsChain(chainID uint64) bool

	Close() error
}
