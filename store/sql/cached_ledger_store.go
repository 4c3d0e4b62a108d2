package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-shipnotify/core"
)

const ledgerCacheKeyPrefix = "go-shipnotify::ledger::v1"

// errLedgerMiss keeps negative lookups out of the cache.
var errLedgerMiss = errors.New("sqlstore: ledger miss")

// CachedLedgerStore caches positive HasAnyStatus answers. The ledger is
// append-only, so a cached hit never goes stale and writes need no
// invalidation.
type CachedLedgerStore struct {
	base  core.Ledger
	cache repositorycache.CacheService
}

func NewCachedLedgerStore(base core.Ledger, cacheService repositorycache.CacheService) (*CachedLedgerStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base ledger is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: ledger cache service is required")
	}
	return &CachedLedgerStore{base: base, cache: cacheService}, nil
}

// LedgerCacheKey returns go-shipnotify::ledger::v1::<order>::<account>::<tags>
// with the tag set sorted and every segment path escaped.
func LedgerCacheKey(orderID string, accountCode string, tags []string) string {
	sorted := cleanTags(tags)
	slices.Sort(sorted)
	segments := []string{
		url.PathEscape(strings.TrimSpace(orderID)),
		url.PathEscape(core.NormalizeAccountCode(accountCode)),
		url.PathEscape(strings.Join(sorted, ",")),
	}
	return strings.Join(append([]string{ledgerCacheKeyPrefix}, segments...), "::")
}

func (s *CachedLedgerStore) HasAnyStatus(ctx context.Context, orderID string, accountCode string, tags []string) bool {
	if s == nil || s.base == nil {
		return false
	}
	if s.cache == nil {
		return s.base.HasAnyStatus(ctx, orderID, accountCode, tags)
	}
	found, err := repositorycache.GetOrFetch(ctx, s.cache, LedgerCacheKey(orderID, accountCode, tags), func(ctx context.Context) (bool, error) {
		if s.base.HasAnyStatus(ctx, orderID, accountCode, tags) {
			return true, nil
		}
		return false, errLedgerMiss
	})
	if err != nil {
		return false
	}
	return found
}

func (s *CachedLedgerStore) AddStatus(ctx context.Context, orderID string, accountCode string, tag string) bool {
	if s == nil || s.base == nil {
		return false
	}
	return s.base.AddStatus(ctx, orderID, accountCode, tag)
}

var _ core.Ledger = (*CachedLedgerStore)(nil)
