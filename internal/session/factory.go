package session

import (
	"context"
	"fmt"

	"stemsmith/internal/errs"
	"stemsmith/internal/modelcache"
	"stemsmith/internal/profile"
)

// CacheBackedFactory builds the default Factory: on a cache miss it looks
// up the profile, resolves its weights through cache, and wires load/infer
// hooks shared across every session the pool creates.
func CacheBackedFactory(cache *modelcache.Cache, load LoaderFunc, infer InferenceFunc) Factory {
	return func(id profile.ID) (*Session, error) {
		p, ok := profile.Lookup(id)
		if !ok {
			return nil, errs.New(errs.NotFound, fmt.Sprintf("unknown profile %q", id))
		}

		resolve := func() (string, error) {
			handle, err := cache.EnsureReady(context.Background(), id)
			if err != nil {
				return "", err
			}
			return handle.WeightsPath, nil
		}

		return New(p, resolve, load, infer), nil
	}
}
