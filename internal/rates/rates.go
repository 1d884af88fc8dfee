package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

// TTL is how long a fetched rate stays usable. Entries older than
// this are refetched.
const TTL = 20 * time.Minute

// Cache serves fiat/crypto exchange rates through the durable client
// store so the TTL survives restarts. On a service error no rate is
// returned; callers must treat the fiat amount as unavailable, never
// as zero.
type Cache struct {
	logger  *logger.Logger
	repo    models.Repository
	service models.OrderService
}

// NewCache creates an exchange rate cache.
func NewCache(service models.OrderService, repo models.Repository, logger *logger.Logger) *Cache {
	return &Cache{logger: logger, repo: repo, service: service}
}

// CacheKey builds the durable cache key for a token on a chain. The
// chain-qualifier segment is omitted for chain-agnostic symbols.
func CacheKey(rateSymbol string, token *models.Token, chain models.Blockchain) string {
	if token != nil && token.ChainAgnostic {
		return fmt.Sprintf("%s_exchange_rate", rateSymbol)
	}
	return fmt.Sprintf("%s_%s_exchange_rate", rateSymbol, chain.RateQualifier())
}

// GetRate returns the fiat price of one whole token, from cache when a
// fresh entry exists and from the order service otherwise.
func (c *Cache) GetRate(ctx context.Context, currency string, token *models.Token, chain models.Blockchain) (float64, error) {
	key := CacheKey(token.RateSymbol, token, chain)

	entry, err := c.repo.GetRate(key)
	if err != nil {
		// A broken cache read falls through to a live fetch.
		c.logger.Warn("Failed to read cached rate ", key, " error ", err)
	}
	if entry != nil && time.Since(time.Unix(entry.FetchedAt, 0)) < TTL {
		return entry.Rate, nil
	}

	rate, err := c.service.GetExchangeRate(ctx, currency, token.RateSymbol)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch exchange rate for %s: %w", token.RateSymbol, err)
	}

	fresh := &models.RateEntry{Key: key, Rate: rate, FetchedAt: time.Now().Unix()}
	if err := c.repo.PutRate(fresh); err != nil {
		// The fresh rate is still valid even if caching it failed.
		c.logger.Warn("Failed to cache rate ", key, " error ", err)
	}
	return rate, nil
}
