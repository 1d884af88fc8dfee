package models

import "fmt"

// ChainKind discriminates the blockchain families the orchestrator can
// touch.
type ChainKind string

const (
	// ChainEVM is any EVM-compatible chain, identified by its chain ID.
	ChainEVM ChainKind = "evm"
	// ChainLedger is the principal-based identity chain, identified by
	// its ledger principal.
	ChainLedger ChainKind = "ledger"
	// ChainSolana is reserved. Every operation rejects it with
	// ErrUnsupportedChain.
	ChainSolana ChainKind = "solana"
)

// Blockchain is a tagged reference to one concrete chain. Exactly one
// of ChainID / LedgerPrincipal is meaningful, selected by Kind.
type Blockchain struct {
	Kind ChainKind `json:"kind"`
	// ChainID is the EVM chain ID. Only set when Kind == ChainEVM.
	ChainID uint64 `json:"chain_id,omitempty"`
	// LedgerPrincipal is the ledger canister principal. Only set when
	// Kind == ChainLedger.
	LedgerPrincipal string `json:"ledger_principal,omitempty"`
}

// EVMChain builds a Blockchain for an EVM chain ID.
func EVMChain(chainID uint64) Blockchain {
	return Blockchain{Kind: ChainEVM, ChainID: chainID}
}

// LedgerChain builds a Blockchain for the identity-chain ledger.
func LedgerChain(principal string) Blockchain {
	return Blockchain{Kind: ChainLedger, LedgerPrincipal: principal}
}

// Equal reports whether two chain references point at the same chain.
func (b Blockchain) Equal(other Blockchain) bool {
	if b.Kind != other.Kind {
		return false
	}
	switch b.Kind {
	case ChainEVM:
		return b.ChainID == other.ChainID
	case ChainLedger:
		return b.LedgerPrincipal == other.LedgerPrincipal
	default:
		return true
	}
}

// RateQualifier is the chain-qualifier segment of exchange-rate cache
// keys. Chain-agnostic symbols use an empty qualifier.
func (b Blockchain) RateQualifier() string {
	switch b.Kind {
	case ChainEVM:
		return fmt.Sprintf("evm%d", b.ChainID)
	case ChainLedger:
		return "ledger"
	default:
		return string(b.Kind)
	}
}

func (b Blockchain) String() string {
	switch b.Kind {
	case ChainEVM:
		return fmt.Sprintf("evm:%d", b.ChainID)
	case ChainLedger:
		return "ledger:" + b.LedgerPrincipal
	default:
		return string(b.Kind)
	}
}

// CredentialKind returns the credential family an address on this
// chain belongs to.
func (b Blockchain) CredentialKind() CredentialKind {
	switch b.Kind {
	case ChainEVM:
		return CredentialEVM
	case ChainLedger:
		return CredentialPrincipal
	default:
		return ""
	}
}
