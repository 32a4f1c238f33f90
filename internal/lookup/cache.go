// Package lookup caches small id->name reference maps (categories, companies,
// subcategories) keyed by the exact id set that was requested.
package lookup

import (
	"context"
	"sort"
	"strings"
	"time"
)

// DefaultTTL is how long a fetched map is served before it is fetched again.
const DefaultTTL = 5 * time.Minute

const keySep = "_"

// Fetcher loads the map for a cache miss.
type Fetcher func(ctx context.Context) (map[string]string, error)

// Cache is the get-or-fetch contract shared by the in-process and Redis caches.
type Cache interface {
	// GetOrFetch returns the map stored under key while it is younger than the
	// TTL, otherwise calls fetch, stores its result and returns it. A fetch
	// error is returned unchanged and nothing is stored.
	GetOrFetch(ctx context.Context, key string, fetch Fetcher) (map[string]string, error)
	// Invalidate drops every entry built with Key(prefix, ...).
	Invalidate(ctx context.Context, prefix string) error
}

// Observer receives hit/miss notifications, keyed by the key prefix.
type Observer interface {
	ObserveLookup(prefix string, hit bool)
}

// Key builds the deterministic cache key for an id set: the ids are
// deduplicated, sorted and comma-joined behind prefix. Two different id sets
// never share an entry, even when one is a subset of the other.
func Key(prefix string, ids []string) string {
	set := make(map[string]struct{}, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)
	return prefix + keySep + strings.Join(uniq, ",")
}

func prefixOf(key string) string {
	if i := strings.Index(key, keySep); i >= 0 {
		return key[:i]
	}
	return key
}

func observe(o Observer, key string, hit bool) {
	if o != nil {
		o.ObserveLookup(prefixOf(key), hit)
	}
}
