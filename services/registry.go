package services

import (
	"sort"
	"strings"
	"sync"

	"ranked-ledger/repository"
)

// StoreRegistry hands out one SessionStore per player, created on first use.
type StoreRegistry struct {
	repo repository.SessionRepository
	opts StoreOptions

	mu     sync.Mutex
	stores map[string]*SessionStore
}

func NewStoreRegistry(repo repository.SessionRepository, opts StoreOptions) *StoreRegistry {
	return &StoreRegistry{repo: repo, opts: opts, stores: map[string]*SessionStore{}}
}

// For returns the store of playerID.
func (r *StoreRegistry) For(playerID string) *SessionStore {
	playerID = strings.TrimSpace(playerID)

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stores[playerID]
	if !ok {
		st = NewSessionStore(playerID, r.repo, r.opts)
		r.stores[playerID] = st
	}
	return st
}

// Stores returns every store created so far, ordered by player id.
func (r *StoreRegistry) Stores() []*SessionStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*SessionStore, 0, len(r.stores))
	for _, st := range r.stores {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].playerID < out[j].playerID })
	return out
}
