package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader composes the Store with in-flight request de-duplication.
// A second caller requesting the same key while the first fetch is
// unresolved shares that fetch instead of issuing a second remote
// call. The registry entry is dropped when the fetch settles,
// success or failure, so errors are never cached.
type Loader struct {
	store *Store
	group singleflight.Group
}

func NewLoader(store *Store) (self *Loader) {
	self = new(Loader)
	self.store = store
	return
}

func (self *Loader) Store() *Store {
	return self.store
}

func (self *Loader) load(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (value any, err error) {
	if value, ok := self.store.Get(key); ok {
		return value, nil
	}

	value, err, _ = self.group.Do(key, func() (any, error) {
		// Re-check, another caller may have populated the key
		// between the Get above and entering the group
		if value, ok := self.store.Get(key); ok {
			return value, nil
		}

		value, err := fetch(ctx)
		if err != nil {
			// Cache left untouched on failure
			return nil, err
		}

		self.store.Set(key, value, ttl)
		return value, nil
	})
	return
}

// GetOrLoad returns the cached value for key or fetches it,
// de-duplicating concurrent fetches of the same key.
func GetOrLoad[T any](ctx context.Context, loader *Loader, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (value T, err error) {
	raw, err := loader.load(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return
	}
	return raw.(T), nil
}
