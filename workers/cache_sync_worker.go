// workers/cache_sync_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"ranked-ledger/services"
)

// CacheSyncWorker periodically drops cached active sessions that another instance or
// client changed in the repository.
type CacheSyncWorker struct {
	registry *services.StoreRegistry
	interval time.Duration
}

func NewCacheSyncWorker(registry *services.StoreRegistry, interval time.Duration) *CacheSyncWorker {
	return &CacheSyncWorker{registry: registry, interval: interval}
}

func (w *CacheSyncWorker) Start(ctx context.Context) {
	log.Printf("🔁 Starting ranked cache sync worker (every %s)", w.interval)
	go w.run(ctx)
}

func (w *CacheSyncWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.SyncOnce(ctx)
		case <-ctx.Done():
			log.Println("⏹️ Ranked cache sync worker stopped")
			return
		}
	}
}

// SyncOnce refreshes every player's cache and returns how many entries were dropped.
// A failing player is logged and skipped.
func (w *CacheSyncWorker) SyncOnce(ctx context.Context) int {
	dropped := 0
	for _, store := range w.registry.Stores() {
		if ctx.Err() != nil {
			return dropped
		}
		n, err := store.RefreshCache(ctx)
		dropped += n
		if err != nil {
			log.Printf("❌ [CacheSync] player %s: %v", store.PlayerID(), err)
			continue
		}
	}
	if dropped > 0 {
		log.Printf("[CacheSync] dropped %d stale active session(s)", dropped)
	}
	return dropped
}
