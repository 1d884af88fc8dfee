package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

// nativeMarker is the address segment the catalog service uses for a
// chain's native asset; it maps to an empty address locally.
const nativeMarker = "native"

// TokensResponse represents the token-list response for one chain.
type TokensResponse struct {
	Tokens []string `json:"tokens"`
}

// TokenMetadata represents detailed information about a single token.
type TokenMetadata struct {
	Address       string `json:"address"`
	Name          string `json:"name"`
	Ticker        string `json:"ticker"`
	RateSymbol    string `json:"rateSymbol"`
	Decimals      int    `json:"decimals"`
	ChainAgnostic bool   `json:"chainAgnostic"`
}

// Service fetches and caches the per-chain token catalog.
type Service struct {
	logger  *logger.Logger
	baseURL string
	client  *http.Client

	// In-memory cache keyed by chain
	cacheMutex sync.RWMutex
	tokenCache map[string][]*models.Token
}

var _ models.TokenCatalog = (*Service)(nil)

// NewService creates a catalog client against the catalog base URL.
func NewService(baseURL string, logger *logger.Logger) *Service {
	return &Service{
		logger:     logger,
		baseURL:    baseURL,
		tokenCache: make(map[string][]*models.Token),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Refresh fetches the chain's token list and replaces the cached set.
func (s *Service) Refresh(ctx context.Context, chain models.Blockchain) error {
	addresses, err := s.fetchTokenAddresses(ctx, chain)
	if err != nil {
		return fmt.Errorf("failed to fetch token list: %w", err)
	}

	s.logger.Info(fmt.Sprintf("Found %d catalog tokens for chain %s", len(addresses), chain))

	// Fetch metadata for each token concurrently with worker pool
	const maxConcurrent = 10
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh := make([]*models.Token, 0, len(addresses))

	for _, address := range addresses {
		wg.Add(1)
		sem <- struct{}{}

		go func(addr string) {
			defer wg.Done()
			defer func() { <-sem }()

			metadata, err := s.fetchTokenMetadata(ctx, chain, addr)
			if err != nil {
				s.logger.Error("Failed to fetch token metadata", " address ", addr, " error ", err)
				return
			}

			token := &models.Token{
				Address:       metadata.Address,
				Name:          metadata.Name,
				Symbol:        metadata.Ticker,
				RateSymbol:    metadata.RateSymbol,
				Decimals:      metadata.Decimals,
				ChainAgnostic: metadata.ChainAgnostic,
			}
			if token.Address == nativeMarker {
				token.Address = ""
			}
			if token.RateSymbol == "" {
				token.RateSymbol = token.Symbol
			}

			mu.Lock()
			fresh = append(fresh, token)
			mu.Unlock()
		}(address)
	}
	wg.Wait()

	// Native asset first, for display and for balance iteration order.
	ordered := make([]*models.Token, 0, len(fresh))
	for _, t := range fresh {
		if t.Address == "" {
			ordered = append(ordered, t)
		}
	}
	for _, t := range fresh {
		if t.Address != "" {
			ordered = append(ordered, t)
		}
	}

	s.cacheMutex.Lock()
	s.tokenCache[chain.String()] = ordered
	s.cacheMutex.Unlock()

	return nil
}

func (s *Service) fetchTokenAddresses(ctx context.Context, chain models.Blockchain) ([]string, error) {
	url := fmt.Sprintf("%s/tokens/%s", s.baseURL, chain.RateQualifier())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var tokens TokensResponse
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("malformed token list: %w", err)
	}
	return tokens.Tokens, nil
}

func (s *Service) fetchTokenMetadata(ctx context.Context, chain models.Blockchain, address string) (*TokenMetadata, error) {
	url := fmt.Sprintf("%s/token/%s/%s", s.baseURL, chain.RateQualifier(), address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var metadata TokenMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("malformed token metadata: %w", err)
	}
	return &metadata, nil
}

// TokensFor returns the cached catalog for the chain, fetching it on a
// cold cache.
func (s *Service) TokensFor(ctx context.Context, chain models.Blockchain) []*models.Token {
	s.cacheMutex.RLock()
	cached, ok := s.tokenCache[chain.String()]
	s.cacheMutex.RUnlock()
	if ok {
		return cached
	}

	if err := s.Refresh(ctx, chain); err != nil {
		s.logger.Error("Failed to refresh token catalog", " chain ", chain, " error ", err)
		return nil
	}

	s.cacheMutex.RLock()
	defer s.cacheMutex.RUnlock()
	return s.tokenCache[chain.String()]
}

// Lookup resolves one token by contract address; the empty address is
// the native asset.
func (s *Service) Lookup(ctx context.Context, chain models.Blockchain, address string) (*models.Token, bool) {
	for _, t := range s.TokensFor(ctx, chain) {
		if t.Address == address {
			return t, true
		}
	}
	return nil, false
}

// Static is a fixed in-memory catalog, used in tests and for
// deployments without a catalog service.
type Static struct {
	tokens map[string][]*models.Token
}

var _ models.TokenCatalog = (*Static)(nil)

// NewStatic builds a static catalog from per-chain token lists.
func NewStatic(tokens map[models.Blockchain][]*models.Token) *Static {
	byKey := make(map[string][]*models.Token, len(tokens))
	for chain, list := range tokens {
		byKey[chain.String()] = list
	}
	return &Static{tokens: byKey}
}

func (s *Static) TokensFor(_ context.Context, chain models.Blockchain) []*models.Token {
	return s.tokens[chain.String()]
}

func (s *Static) Lookup(_ context.Context, chain models.Blockchain, address string) (*models.Token, bool) {
	for _, t := range s.tokens[chain.String()] {
		if t.Address == address {
			return t, true
		}
	}
	return nil, false
}
