package service

import (
	"context"
	"time"

	"campus_api/internal/repository"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	accountCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campus_account_cache_hits_total",
		Help: "Account existence checks answered from cache",
	})
	accountCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campus_account_cache_misses_total",
		Help: "Account existence checks that reached storage",
	})
)

// AccountChecker reports whether a token subject still has a live account.
// Positive answers are cached for ttl, so a deleted account stays valid for at most ttl.
type AccountChecker struct {
	accounts repository.AccountRepository
	cache    *lru.LRU[string, struct{}]
}

// NewAccountChecker creates a checker caching up to size subjects for ttl
func NewAccountChecker(accounts repository.AccountRepository, size int, ttl time.Duration) *AccountChecker {
	return &AccountChecker{
		accounts: accounts,
		cache:    lru.NewLRU[string, struct{}](size, nil, ttl),
	}
}

func (c *AccountChecker) Exists(ctx context.Context, id string) (bool, error) {
	if _, ok := c.cache.Get(id); ok {
		accountCacheHits.Inc()
		return true, nil
	}
	accountCacheMisses.Inc()

	exists, err := c.accounts.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	c.cache.Add(id, struct{}{})
	return true, nil
}
