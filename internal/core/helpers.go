package core

import (
	"context"
	"sync"
)

// DefaultConcurrency bounds the number of in-flight calls made by Bulk.
const DefaultConcurrency = 15

// Bulk calls fn for every key in parallel with at most concurrency calls in flight.
// Individual errors are silently ignored - those keys are omitted from results.
// Returns a map of key to result.
func Bulk[T any](ctx context.Context, keys []string, concurrency int, fn func(context.Context, string) (T, error)) map[string]T {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make(map[string]T)
	var mu sync.Mutex
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, key := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			v, err := fn(ctx, k)
			if err == nil {
				mu.Lock()
				results[k] = v
				mu.Unlock()
			}
		}(key)
	}

	wg.Wait()
	return results
}
