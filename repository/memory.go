package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ranked-ledger/models"
)

// MemoryRepository keeps sessions in process memory. Every read and write goes through a
// deep copy so callers never share slices with the stored documents.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: map[string]models.Session{}}
}

func (r *MemoryRepository) LoadAll(ctx context.Context, playerID, gameID string) ([]models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Session{}
	for _, s := range r.sessions {
		if s.PlayerID == playerID && s.GameID == gameID {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *MemoryRepository) LoadByID(ctx context.Context, playerID, sessionID string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.PlayerID != playerID {
		return nil, nil
	}
	c := s.Clone()
	return &c, nil
}

func (r *MemoryRepository) Save(ctx context.Context, session models.Session) (models.Session, error) {
	if err := ctx.Err(); err != nil {
		return models.Session{}, err
	}
	if strings.TrimSpace(session.ID) == "" {
		return models.Session{}, fmt.Errorf("session id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.sessions[session.ID]
	switch {
	case !exists && session.Version != 0:
		return models.Session{}, fmt.Errorf("save session %s: %w", session.ID, ErrVersionConflict)
	case exists && stored.Version != session.Version:
		return models.Session{}, fmt.Errorf("save session %s (have v%d, stored v%d): %w",
			session.ID, session.Version, stored.Version, ErrVersionConflict)
	case exists && stored.PlayerID != session.PlayerID:
		return models.Session{}, fmt.Errorf("session %s belongs to another player", session.ID)
	}
	if session.Status == models.SessionStatusActive {
		for id, other := range r.sessions {
			if id != session.ID && other.PlayerID == session.PlayerID && other.GameID == session.GameID && other.IsActive() {
				return models.Session{}, fmt.Errorf("save session %s: %w", session.ID, ErrActiveExists)
			}
		}
	}

	saved := session.Clone()
	saved.Version++
	r.sessions[saved.ID] = saved
	return saved.Clone(), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, playerID, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.PlayerID != playerID {
		return fmt.Errorf("delete session %s: %w", sessionID, ErrNotFound)
	}
	delete(r.sessions, sessionID)
	return nil
}

// CompletedSince lists every COMPLETED session whose EndTime is at or after since, ordered
// by EndTime then id.
func (r *MemoryRepository) CompletedSince(ctx context.Context, since time.Time) ([]models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Session{}
	for _, s := range r.sessions {
		if s.Status == models.SessionStatusCompleted && s.EndTime != nil && !s.EndTime.Before(since) {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndTime.Equal(*out[j].EndTime) {
			return out[i].EndTime.Before(*out[j].EndTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
