package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is a keyed store of derived values that can be dropped at any time.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry. Writers call it after a mutation.
	Purge()
	Size() int
}

// Cleaner is implemented by caches whose entries expire.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically removes expired entries from registered caches.
type Janitor struct {
	caches []Cleaner
	done   chan struct{}
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches, done: make(chan struct{})}
}

// Run sweeps every interval until ctx is cancelled. Done is closed on return.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, c := range j.caches {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", "count", cleaned)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (j *Janitor) Done() <-chan struct{} { return j.done }
