package blockchain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampline/rampline/pkg/logger"
)

func newTestLedger(t *testing.T, url string) *Ledger {
	t.Helper()
	return NewLedger(url, "mxzaz-hqaaa-aaaar-qaada-cai", logger.NewNop())
}

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return v
}

func TestLedgerTransferToVaultAddsFee(t *testing.T) {
	var transfer map[string]json.RawMessage
	mux := http.NewServeMux()
	mux.HandleFunc("/transfer_fee", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"fee": "10000"})
	})
	mux.HandleFunc("/transfer", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&transfer))
		json.NewEncoder(w).Encode(map[string]uint64{"block_index": 42})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	ledger := newTestLedger(t, server.URL)
	blockIndex, err := ledger.TransferToVault(context.Background(), "ryjl3-tyaaa-aaaaa-aaaba-cai", bigFromString(t, "500000000"))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), blockIndex)

	// The escrow transfer carries the amount plus the ledger fee, as a
	// string.
	assert.Equal(t, `"500010000"`, string(transfer["amount"]))
	assert.Equal(t, `"10000"`, string(transfer["fee"]))
	assert.Equal(t, `"mxzaz-hqaaa-aaaar-qaada-cai"`, string(transfer["to"]))
}

func TestLedgerBalance(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/account_balance", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"balance": "123456789012345678901234567890"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	ledger := newTestLedger(t, server.URL)
	balance, err := ledger.Balance(context.Background(), "ryjl3-tyaaa-aaaaa-aaaba-cai", "account-1")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", balance.String())
}

func TestLedgerGatewayErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	ledger := newTestLedger(t, server.URL)
	_, err := ledger.Balance(context.Background(), "ryjl3-tyaaa-aaaaa-aaaba-cai", "account-1")
	assert.ErrorContains(t, err, "503")

	assert.Error(t, ledger.RevokeDelegation(context.Background()))
}
