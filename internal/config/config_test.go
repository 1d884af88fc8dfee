package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEVMChains(t *testing.T) {
	chains, err := ParseEVMChains("1,https://rpc.example/eth,0x00000000000000000000000000000000000000aa; 137,https://rpc.example/polygon,0x00000000000000000000000000000000000000bb")
	require.NoError(t, err)
	require.Len(t, chains, 2)
	assert.Equal(t, uint64(1), chains[0].ChainID)
	assert.Equal(t, "https://rpc.example/eth", chains[0].RPCURL)
	assert.Equal(t, uint64(137), chains[1].ChainID)

	chains, err = ParseEVMChains("")
	require.NoError(t, err)
	assert.Empty(t, chains)

	_, err = ParseEVMChains("1,https://rpc.example/eth")
	assert.Error(t, err)

	_, err = ParseEVMChains("mainnet,https://rpc.example/eth,0x00000000000000000000000000000000000000aa")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		OrderServiceURL: "http://localhost:8080",
		SQLitePath:      "rampline.db",
	}
	assert.NoError(t, cfg.Validate())

	cfg.EVMChains = []EVMChainConfig{{ChainID: 1, RPCURL: "https://rpc.example/eth", VaultAddress: "not-an-address"}}
	assert.Error(t, cfg.Validate())

	cfg.EVMChains[0].VaultAddress = "0x00000000000000000000000000000000000000aa"
	assert.NoError(t, cfg.Validate())

	cfg.LedgerURL = "https://ledger.example"
	assert.Error(t, cfg.Validate(), "ledger URL without principals")

	cfg.LedgerPrincipal = "ryjl3-tyaaa-aaaaa-aaaba-cai"
	cfg.VaultPrincipal = "mxzaz-hqaaa-aaaar-qaada-cai"
	assert.NoError(t, cfg.Validate())

	cfg.OrderServiceURL = ""
	assert.Error(t, cfg.Validate())
}
