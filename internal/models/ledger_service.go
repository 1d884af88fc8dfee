package models

import (
	"context"
	"math/big"
)

// LedgerService is the identity-chain side: ledger balance queries,
// the escrow transfer to the order service's account, and teardown of
// the delegated identity.
type LedgerService interface {
	// Balance reads the account's balance on the given ledger.
	Balance(ctx context.Context, ledgerPrincipal, account string) (*big.Int, error)
	// TransferFee looks up the ledger's flat transfer fee.
	TransferFee(ctx context.Context, ledgerPrincipal string) (*big.Int, error)
	// TransferToVault moves amount (plus the ledger fee) to the order
	// service's escrow account and waits for finality. Returns the
	// ledger block index of the transfer.
	TransferToVault(ctx context.Context, ledgerPrincipal string, amount *big.Int) (uint64, error)
	// RevokeDelegation tears down the delegated identity session.
	// Best-effort: callers log failures and continue.
	RevokeDelegation(ctx context.Context) error
}
