package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

const usdtAddr = "0x00000000000000000000000000000000000000aa"

func catalogServer(t *testing.T, listCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/tokens/evm1", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(listCalls, 1)
		json.NewEncoder(w).Encode(TokensResponse{Tokens: []string{usdtAddr, "native"}})
	})
	mux.HandleFunc("/token/evm1/native", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(TokenMetadata{Address: "native", Name: "Ether", Ticker: "ETH", Decimals: 18})
	})
	mux.HandleFunc("/token/evm1/"+usdtAddr, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(TokenMetadata{Address: usdtAddr, Name: "Tether USD", Ticker: "USDT", RateSymbol: "usdt", Decimals: 6, ChainAgnostic: true})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRefreshOrdersNativeFirst(t *testing.T) {
	var listCalls int32
	server := catalogServer(t, &listCalls)
	svc := NewService(server.URL, logger.NewNop())
	chain := models.EVMChain(1)

	require.NoError(t, svc.Refresh(context.Background(), chain))

	tokens := svc.TokensFor(context.Background(), chain)
	require.Len(t, tokens, 2)
	// The native asset leads regardless of list order; its marker
	// address maps to the empty string.
	assert.Empty(t, tokens[0].Address)
	assert.Equal(t, "ETH", tokens[0].Symbol)
	// An unset rate symbol falls back to the ticker.
	assert.Equal(t, "ETH", tokens[0].RateSymbol)
	assert.Equal(t, "usdt", tokens[1].RateSymbol)
	assert.True(t, tokens[1].ChainAgnostic)
}

func TestTokensForUsesCache(t *testing.T) {
	var listCalls int32
	server := catalogServer(t, &listCalls)
	svc := NewService(server.URL, logger.NewNop())
	chain := models.EVMChain(1)

	// The cold read fetches; later reads are served from cache.
	require.Len(t, svc.TokensFor(context.Background(), chain), 2)
	require.Len(t, svc.TokensFor(context.Background(), chain), 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&listCalls))
}

func TestTokensForHonorsCallerContext(t *testing.T) {
	var listCalls int32
	server := catalogServer(t, &listCalls)
	svc := NewService(server.URL, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cold cache fetches under the caller's context, so a cancelled
	// caller gets no tokens instead of a background fetch.
	assert.Nil(t, svc.TokensFor(ctx, models.EVMChain(1)))
}

func TestLookup(t *testing.T) {
	var listCalls int32
	server := catalogServer(t, &listCalls)
	svc := NewService(server.URL, logger.NewNop())
	chain := models.EVMChain(1)

	token, ok := svc.Lookup(context.Background(), chain, "")
	require.True(t, ok)
	assert.Equal(t, "ETH", token.Symbol)

	token, ok = svc.Lookup(context.Background(), chain, usdtAddr)
	require.True(t, ok)
	assert.Equal(t, "USDT", token.Symbol)

	_, ok = svc.Lookup(context.Background(), chain, "0xdeadbeef")
	assert.False(t, ok)
}

func TestStaticCatalog(t *testing.T) {
	chain := models.EVMChain(1)
	static := NewStatic(map[models.Blockchain][]*models.Token{
		chain: {{Address: "", Symbol: "ETH", Decimals: 18}},
	})

	tokens := static.TokensFor(context.Background(), chain)
	require.Len(t, tokens, 1)

	_, ok := static.Lookup(context.Background(), chain, "")
	assert.True(t, ok)

	assert.Empty(t, static.TokensFor(context.Background(), models.EVMChain(137)))
	_, ok = static.Lookup(context.Background(), models.EVMChain(137), "")
	assert.False(t, ok)
}
