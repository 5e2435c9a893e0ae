package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ranked-ledger/models"
	"ranked-ledger/repository"
)

// testClock advances one second on every read.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func seqIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// flakyRepo wraps a repository and fails the next operations on demand.
type flakyRepo struct {
	repository.SessionRepository

	mu       sync.Mutex
	saveErr  error
	loadErr  error
	saveHits int
}

func (r *flakyRepo) failSaves(err error) {
	r.mu.Lock()
	r.saveErr = err
	r.mu.Unlock()
}

func (r *flakyRepo) failLoads(err error) {
	r.mu.Lock()
	r.loadErr = err
	r.mu.Unlock()
}

func (r *flakyRepo) Save(ctx context.Context, s models.Session) (models.Session, error) {
	r.mu.Lock()
	r.saveHits++
	err := r.saveErr
	r.mu.Unlock()
	if err != nil {
		return models.Session{}, err
	}
	return r.SessionRepository.Save(ctx, s)
}

func (r *flakyRepo) LoadAll(ctx context.Context, playerID, gameID string) ([]models.Session, error) {
	r.mu.Lock()
	err := r.loadErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.SessionRepository.LoadAll(ctx, playerID, gameID)
}

func (r *flakyRepo) LoadByID(ctx context.Context, playerID, sessionID string) (*models.Session, error) {
	r.mu.Lock()
	err := r.loadErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.SessionRepository.LoadByID(ctx, playerID, sessionID)
}

func newTestStore(t *testing.T, repo repository.SessionRepository) (*SessionStore, *recordingPublisher) {
	t.Helper()
	clock := newTestClock()
	events := &recordingPublisher{}
	store := NewSessionStore("player-1", repo, StoreOptions{
		Events: events,
		Now:    clock.Now,
		NewID:  seqIDs("id"),
	})
	return store, events
}

func activeSession(start int, deltas ...int) models.Session {
	s := models.Session{
		ID:            "session-1",
		PlayerID:      "player-1",
		GameID:        "valorant",
		StartTime:     time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC),
		Status:        models.SessionStatusActive,
		StartPoints:   start,
		CurrentPoints: start,
		Matches:       []models.MatchRecord{},
	}
	for i, d := range deltas {
		s.Matches = append(s.Matches, models.MatchRecord{
			ID:           fmt.Sprintf("match-%d", i+1),
			Result:       models.ResultWin,
			PointsChange: d,
			Comments:     []models.Comment{},
		})
		s.CurrentPoints += d
	}
	return s
}

func win(delta int) models.MatchInput {
	return models.MatchInput{Result: models.ResultWin, PointsChange: delta}
}

func loss(delta int) models.MatchInput {
	return models.MatchInput{Result: models.ResultLoss, PointsChange: delta}
}

func intPtr(v int) *int { return &v }
