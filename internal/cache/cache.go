// Package cache holds small in-process caches for read-heavy ledger queries.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is a keyed store with expiry.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Clear drops every entry. Writers call it after a committed change.
	Clear()
	Len() int
}

// Sweeper is implemented by caches that can drop expired entries eagerly.
type Sweeper interface {
	Sweep() int
}

// Janitor periodically sweeps the registered caches.
type Janitor struct {
	caches []Sweeper
	stop   chan struct{}
	done   chan struct{}
}

func NewJanitor(caches ...Sweeper) *Janitor {
	return &Janitor{
		caches: caches,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is done.
func (j *Janitor) Start(ctx context.Context, interval time.Duration) {
	go j.run(ctx, interval)
}

func (j *Janitor) run(ctx context.Context, interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			swept := 0
			for _, c := range j.caches {
				swept += c.Sweep()
			}
			if swept > 0 {
				slog.DebugContext(ctx, "Swept expired cache entries", "count", swept)
			}
		case <-ctx.Done():
			return
		case <-j.stop:
			return
		}
	}
}

// Stop ends the sweep loop and waits for it to exit. Safe to call once.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}
