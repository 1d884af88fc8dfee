package balances

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampline/rampline/internal/catalog"
	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

const usdtAddr = "0x00000000000000000000000000000000000000aa"

// balanceEVM serves fixed balances per token address.
type balanceEVM struct {
	models.EVMService

	native   *big.Int
	tokens   map[string]*big.Int
	tokenErr error
}

func (e *balanceEVM) NativeBalance(_ context.Context, _ uint64, _ string) (*big.Int, error) {
	return e.native, nil
}

func (e *balanceEVM) TokenBalance(_ context.Context, _ uint64, token, _ string) (*big.Int, error) {
	if e.tokenErr != nil {
		return nil, e.tokenErr
	}
	return e.tokens[token], nil
}

func (e *balanceEVM) SupportsChain(_ uint64) bool { return true }

// balanceLedger records which ledger principal each read targeted.
type balanceLedger struct {
	models.LedgerService

	balances map[string]*big.Int
}

func (l *balanceLedger) Balance(_ context.Context, ledgerPrincipal, _ string) (*big.Int, error) {
	return l.balances[ledgerPrincipal], nil
}

func evmCatalog() models.TokenCatalog {
	return catalog.NewStatic(map[models.Blockchain][]*models.Token{
		models.EVMChain(1): {
			{Address: "", Symbol: "ETH", Decimals: 18},
			{Address: usdtAddr, Symbol: "USDT", Decimals: 6},
		},
	})
}

func TestFetchBalances(t *testing.T) {
	evm := &balanceEVM{
		native: big.NewInt(1_500_000_000_000_000_000), // 1.5 ETH
		tokens: map[string]*big.Int{usdtAddr: big.NewInt(2_000_000)},
	}
	tracker := NewTracker(evm, nil, evmCatalog(), logger.NewNop())

	got, err := tracker.FetchBalances(context.Background(), "0xabc", models.EVMChain(1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1.5", got["ETH"].Formatted)
	assert.Equal(t, "2", got["USDT"].Formatted)
	assert.Equal(t, "2000000", got["USDT"].Raw.String())

	cached, ok := tracker.Cached("0xabc", models.EVMChain(1))
	require.True(t, ok)
	assert.Equal(t, got, cached)
}

func TestFetchBalancesFailureClearsCache(t *testing.T) {
	evm := &balanceEVM{
		native: big.NewInt(1),
		tokens: map[string]*big.Int{usdtAddr: big.NewInt(1)},
	}
	tracker := NewTracker(evm, nil, evmCatalog(), logger.NewNop())

	_, err := tracker.FetchBalances(context.Background(), "0xabc", models.EVMChain(1))
	require.NoError(t, err)

	// A later failing fetch must not leave the stale map behind.
	evm.tokenErr = errors.New("rpc timeout")
	_, err = tracker.FetchBalances(context.Background(), "0xabc", models.EVMChain(1))
	require.Error(t, err)

	_, ok := tracker.Cached("0xabc", models.EVMChain(1))
	assert.False(t, ok)
}

func TestFetchBalancesLedgerTokenCanisters(t *testing.T) {
	native := models.LedgerChain("ryjl3-tyaaa-aaaaa-aaaba-cai")
	ledger := &balanceLedger{balances: map[string]*big.Int{
		"ryjl3-tyaaa-aaaaa-aaaba-cai": big.NewInt(500_000_000),
		"mxzaz-hqaaa-aaaar-qaada-cai": big.NewInt(1234),
	}}
	cat := catalog.NewStatic(map[models.Blockchain][]*models.Token{
		native: {
			{Address: "", Symbol: "ICP", Decimals: 8},
			// Per-token ledgers carry their canister principal in the
			// address field.
			{Address: "mxzaz-hqaaa-aaaar-qaada-cai", Symbol: "ckBTC", Decimals: 8},
		},
	})
	tracker := NewTracker(nil, ledger, cat, logger.NewNop())

	got, err := tracker.FetchBalances(context.Background(), "account-1", native)
	require.NoError(t, err)
	assert.Equal(t, "5", got["ICP"].Formatted)
	assert.Equal(t, "0.00001234", got["ckBTC"].Formatted)
}

func TestFetchBalancesUnknownChain(t *testing.T) {
	tracker := NewTracker(nil, nil, evmCatalog(), logger.NewNop())

	_, err := tracker.FetchBalances(context.Background(), "0xabc", models.EVMChain(1))
	assert.ErrorIs(t, err, models.ErrUnsupportedChain)

	// No catalog entry at all short-circuits earlier.
	_, err = tracker.FetchBalances(context.Background(), "0xabc", models.EVMChain(137))
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.05", Format(big.NewInt(50_000_000_000_000_000), 18))
	assert.Equal(t, "100", Format(big.NewInt(100_000_000), 6))
	assert.Equal(t, "0", Format(big.NewInt(0), 18))
}
