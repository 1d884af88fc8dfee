package balances

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

// Tracker reads native and token balances per chain and account. A
// whole-chain read either fully succeeds or yields nothing: partial
// maps are never kept, so stale data is never presented as current.
type Tracker struct {
	logger  *logger.Logger
	evm     models.EVMService
	ledger  models.LedgerService
	catalog models.TokenCatalog

	mu sync.RWMutex
	// cache is keyed by account+chain, invalidated whenever either
	// changes or a fetch fails.
	cache map[string]map[string]models.Balance
}

// NewTracker creates a balance tracker.
func NewTracker(evm models.EVMService, ledger models.LedgerService, catalog models.TokenCatalog, logger *logger.Logger) *Tracker {
	return &Tracker{
		logger:  logger,
		evm:     evm,
		ledger:  ledger,
		catalog: catalog,
		cache:   make(map[string]map[string]models.Balance),
	}
}

func cacheKey(account string, chain models.Blockchain) string {
	return account + "|" + chain.String()
}

// Format renders a smallest-unit amount with the token's decimals.
func Format(raw *big.Int, decimals int) string {
	return decimal.NewFromBigInt(raw, int32(-decimals)).String()
}

// FetchBalances reads every catalog asset's balance for the account on
// the chain, keyed by token symbol. On any failure the chain's cached
// map is cleared and an error returned.
func (t *Tracker) FetchBalances(ctx context.Context, account string, chain models.Blockchain) (map[string]models.Balance, error) {
	result, err := t.fetch(ctx, account, chain)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		delete(t.cache, cacheKey(account, chain))
		return nil, err
	}
	t.cache[cacheKey(account, chain)] = result
	return result, nil
}

// Cached returns the last successful fetch for the account/chain, if
// any.
func (t *Tracker) Cached(account string, chain models.Blockchain) (map[string]models.Balance, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	balances, ok := t.cache[cacheKey(account, chain)]
	return balances, ok
}

func (t *Tracker) fetch(ctx context.Context, account string, chain models.Blockchain) (map[string]models.Balance, error) {
	tokens := t.catalog.TokensFor(ctx, chain)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no catalog tokens for chain %s", chain)
	}

	result := make(map[string]models.Balance, len(tokens))
	for _, token := range tokens {
		raw, err := t.readBalance(ctx, account, chain, token)
		if err != nil {
			t.logger.Error("Failed to read balance ", token.Symbol, " on ", chain.String(), " error ", err)
			return nil, fmt.Errorf("failed to read %s balance: %w", token.Symbol, err)
		}
		result[token.Symbol] = models.Balance{
			Raw:       models.NewBigInt(raw),
			Formatted: Format(raw, token.Decimals),
		}
	}
	return result, nil
}

func (t *Tracker) readBalance(ctx context.Context, account string, chain models.Blockchain, token *models.Token) (*big.Int, error) {
	switch chain.Kind {
	case models.ChainEVM:
		if t.evm == nil {
			return nil, models.ErrUnsupportedChain
		}
		if token.Address == "" {
			return t.evm.NativeBalance(ctx, chain.ChainID, account)
		}
		return t.evm.TokenBalance(ctx, chain.ChainID, token.Address, account)
	case models.ChainLedger:
		if t.ledger == nil {
			return nil, models.ErrUnsupportedChain
		}
		ledger := chain.LedgerPrincipal
		if token.Address != "" {
			// Each ledger token is its own canister; the catalog carries
			// its principal in the address field.
			ledger = token.Address
		}
		return t.ledger.Balance(ctx, ledger, account)
	default:
		return nil, models.ErrUnsupportedChain
	}
}
