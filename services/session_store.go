package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"ranked-ledger/models"
	"ranked-ledger/repository"

	"github.com/google/uuid"
)

// ActionEndSession is the recovery hint attached to a duplicate start.
const ActionEndSession = "end_session"

// StoreOptions configures a SessionStore. Zero values pick the defaults.
type StoreOptions struct {
	Ledger *Ledger
	Events Publisher
	Now    func() time.Time
	NewID  func() string
}

// SessionStore owns one player's ranked sessions.
//
// Mutations of a session are serialized by a per-session lock and follow
// load → apply → save → publish. The cached snapshot and subscribers only ever see
// what the repository accepted.
type SessionStore struct {
	playerID string
	repo     repository.SessionRepository
	ledger   *Ledger
	events   Publisher
	now      func() time.Time
	newID    func() string

	locks *keyedMutex

	mu sync.Mutex
	// active caches the ACTIVE session per game. A present key with a nil value means
	// "loaded, no active session"; a missing key means "not loaded".
	active map[string]*models.Session
	// gen is bumped by every cache write so a slow reader never installs an older snapshot.
	gen uint64
}

func NewSessionStore(playerID string, repo repository.SessionRepository, opts StoreOptions) *SessionStore {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Ledger == nil {
		opts.Ledger = NewLedgerWith(opts.Now, opts.NewID)
	}
	return &SessionStore{
		playerID: playerID,
		repo:     repo,
		ledger:   opts.Ledger,
		events:   opts.Events,
		now:      opts.Now,
		newID:    opts.NewID,
		locks:    newKeyedMutex(),
		active:   map[string]*models.Session{},
	}
}

// PlayerID returns the owner of this store.
func (s *SessionStore) PlayerID() string {
	return s.playerID
}

// GetActiveSession returns the ACTIVE session for gameID, or nil.
func (s *SessionStore) GetActiveSession(ctx context.Context, gameID string) (*models.Session, error) {
	gameID = strings.TrimSpace(gameID)

	s.mu.Lock()
	cached, ok := s.active[gameID]
	gen := s.gen
	s.mu.Unlock()
	if ok {
		return cloneOrNil(cached), nil
	}

	active, err := s.loadActive(ctx, gameID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, ok := s.active[gameID]; !ok && s.gen == gen {
		s.active[gameID] = cloneOrNil(active)
	}
	s.mu.Unlock()
	return cloneOrNil(active), nil
}

// GetHistory returns the COMPLETED sessions of gameID, most recently ended first.
func (s *SessionStore) GetHistory(ctx context.Context, gameID string) ([]models.Session, error) {
	all, err := s.repo.LoadAll(ctx, s.playerID, strings.TrimSpace(gameID))
	if err != nil {
		return nil, repositoryError("load sessions", err)
	}
	history := make([]models.Session, 0, len(all))
	for _, sess := range all {
		if sess.Status == models.SessionStatusCompleted {
			history = append(history, sess)
		}
	}
	sort.SliceStable(history, func(i, j int) bool {
		return endTimeOf(history[i]).After(endTimeOf(history[j]))
	})
	return history, nil
}

// GetSession returns any session of this player by id.
func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	return s.loadByID(ctx, sessionID)
}

// GetMatch returns one match of a session.
func (s *SessionStore) GetMatch(ctx context.Context, sessionID, matchID string) (models.MatchRecord, error) {
	sess, err := s.loadByID(ctx, sessionID)
	if err != nil {
		return models.MatchRecord{}, err
	}
	return s.ledger.FindMatch(sess, matchID)
}

// Summary aggregates a session's results.
func (s *SessionStore) Summary(ctx context.Context, sessionID string) (SessionSummary, error) {
	sess, err := s.loadByID(ctx, sessionID)
	if err != nil {
		return SessionSummary{}, err
	}
	return Summarize(sess), nil
}

// StartSession opens a new ACTIVE session. It fails with a conflict when the game already has
// one; the error carries the active session id and the end_session recovery action.
func (s *SessionStore) StartSession(ctx context.Context, in models.StartSessionInput) (models.Session, error) {
	gameID := strings.TrimSpace(in.GameID)
	if gameID == "" {
		return models.Session{}, validationError("game id is required")
	}

	unlock, err := s.locks.Lock(ctx, gameKey(gameID))
	if err != nil {
		return models.Session{}, err
	}
	defer unlock()

	existing, err := s.loadActive(ctx, gameID)
	if err != nil {
		return models.Session{}, err
	}
	if existing != nil {
		return models.Session{}, activeConflict(gameID, existing.ID)
	}

	sess := models.Session{
		ID:            s.newID(),
		PlayerID:      s.playerID,
		GameID:        gameID,
		Name:          strings.TrimSpace(in.Name),
		StartTime:     s.now().UTC(),
		Status:        models.SessionStatusActive,
		StartPoints:   in.StartPoints,
		CurrentPoints: in.StartPoints,
		TargetPoints:  in.TargetPoints,
		Matches:       []models.MatchRecord{},
	}

	saved, err := s.persist(ctx, sess)
	if err != nil {
		return models.Session{}, err
	}
	s.cacheActive(gameID, &saved)
	s.publish(EventSessionStarted, saved)
	log.Printf("[Store] player=%s started session %s for %s at %d points", s.playerID, saved.ID, gameID, saved.StartPoints)
	return saved.Clone(), nil
}

// EndSession completes the ACTIVE session of gameID. It returns nil, nil when there is none.
func (s *SessionStore) EndSession(ctx context.Context, gameID string) (*models.Session, error) {
	gameID = strings.TrimSpace(gameID)

	unlockGame, err := s.locks.Lock(ctx, gameKey(gameID))
	if err != nil {
		return nil, err
	}
	defer unlockGame()

	active, err := s.loadActive(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		s.cacheActive(gameID, nil)
		return nil, nil
	}

	unlockSession, err := s.locks.Lock(ctx, sessionKey(active.ID))
	if err != nil {
		return nil, err
	}
	defer unlockSession()

	// Re-read under the session lock: a match may have been saved in between.
	cur, err := s.loadByID(ctx, active.ID)
	if errors.Is(err, ErrNotFound) {
		s.cacheActive(gameID, nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !cur.IsActive() {
		s.cacheActive(gameID, nil)
		return nil, nil
	}
	if err := CheckInvariant(cur); err != nil {
		return nil, err
	}

	ended := cur.Clone()
	now := s.now().UTC()
	ended.EndTime = &now
	ended.Status = models.SessionStatusCompleted

	saved, err := s.persist(ctx, ended)
	if err != nil {
		return nil, err
	}
	s.cacheActive(gameID, nil)
	s.publish(EventSessionEnded, saved)
	log.Printf("[Store] player=%s ended session %s for %s at %d points (%d matches)",
		s.playerID, saved.ID, gameID, saved.CurrentPoints, len(saved.Matches))
	return cloneOrNil(&saved), nil
}

// DeleteSession permanently removes a session in any status.
func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	unlock, err := s.locks.Lock(ctx, sessionKey(sessionID))
	if err != nil {
		return err
	}
	defer unlock()

	sess, err := s.loadByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, s.playerID, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError("session", sessionID)
		}
		return repositoryError("delete session", err)
	}

	s.mu.Lock()
	if cached, ok := s.active[sess.GameID]; ok && cached != nil && cached.ID == sessionID {
		s.active[sess.GameID] = nil
	}
	s.gen++
	s.mu.Unlock()

	s.publish(EventSessionDeleted, sess)
	log.Printf("[Store] player=%s deleted session %s (%s)", s.playerID, sessionID, sess.Status)
	return nil
}

// AddMatch records a match on an ACTIVE session.
func (s *SessionStore) AddMatch(ctx context.Context, sessionID string, in models.MatchInput) (models.Session, error) {
	return s.mutate(ctx, sessionID, func(cur models.Session) (models.Session, error) {
		return s.ledger.AddMatch(cur, in)
	})
}

// UpdateMatch patches a match on an ACTIVE session.
func (s *SessionStore) UpdateMatch(ctx context.Context, sessionID, matchID string, patch models.MatchPatch) (models.Session, error) {
	return s.mutate(ctx, sessionID, func(cur models.Session) (models.Session, error) {
		return s.ledger.UpdateMatch(cur, matchID, patch)
	})
}

// DeleteMatch removes a match and reverts its points.
func (s *SessionStore) DeleteMatch(ctx context.Context, sessionID, matchID string) (models.Session, error) {
	return s.mutate(ctx, sessionID, func(cur models.Session) (models.Session, error) {
		return s.ledger.DeleteMatch(cur, matchID)
	})
}

// AddComment appends a comment to a match.
func (s *SessionStore) AddComment(ctx context.Context, sessionID, matchID, text string) (models.MatchRecord, error) {
	return s.mutateMatch(ctx, sessionID, func(cur models.Session) (models.Session, models.MatchRecord, error) {
		return s.ledger.AddComment(cur, matchID, text)
	})
}

// EditComment changes the text of a comment.
func (s *SessionStore) EditComment(ctx context.Context, sessionID, matchID, commentID, text string) (models.MatchRecord, error) {
	return s.mutateMatch(ctx, sessionID, func(cur models.Session) (models.Session, models.MatchRecord, error) {
		return s.ledger.EditComment(cur, matchID, commentID, text)
	})
}

// DeleteComment removes a comment.
func (s *SessionStore) DeleteComment(ctx context.Context, sessionID, matchID, commentID string) (models.MatchRecord, error) {
	return s.mutateMatch(ctx, sessionID, func(cur models.Session) (models.Session, models.MatchRecord, error) {
		return s.ledger.DeleteComment(cur, matchID, commentID)
	})
}

// Invalidate drops the cached active session of gameID; the next read reloads it.
func (s *SessionStore) Invalidate(gameID string) {
	s.mu.Lock()
	delete(s.active, gameID)
	s.gen++
	s.mu.Unlock()
}

// InvalidateAll drops every cached active session.
func (s *SessionStore) InvalidateAll() {
	s.mu.Lock()
	s.active = map[string]*models.Session{}
	s.gen++
	s.mu.Unlock()
}

// RefreshCache compares every cached entry with the repository and invalidates the ones
// another client changed. It returns how many entries were dropped.
func (s *SessionStore) RefreshCache(ctx context.Context) (int, error) {
	s.mu.Lock()
	cached := make(map[string]*models.Session, len(s.active))
	for gameID, sess := range s.active {
		cached[gameID] = sess
	}
	s.mu.Unlock()

	dropped := 0
	for gameID, sess := range cached {
		fresh, err := s.loadActive(ctx, gameID)
		if err != nil {
			return dropped, err
		}
		if sameSnapshot(sess, fresh) {
			continue
		}
		s.mu.Lock()
		// Only drop the entry we compared; a local write may have replaced it meanwhile.
		if cur, ok := s.active[gameID]; ok && cur == sess {
			delete(s.active, gameID)
			s.gen++
			dropped++
		}
		s.mu.Unlock()
	}
	return dropped, nil
}

// CachedGames lists the games with a cached entry.
func (s *SessionStore) CachedGames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	games := make([]string, 0, len(s.active))
	for g := range s.active {
		games = append(games, g)
	}
	sort.Strings(games)
	return games
}

func (s *SessionStore) mutate(ctx context.Context, sessionID string, apply func(models.Session) (models.Session, error)) (models.Session, error) {
	unlock, err := s.locks.Lock(ctx, sessionKey(sessionID))
	if err != nil {
		return models.Session{}, err
	}
	defer unlock()

	cur, err := s.current(ctx, sessionID)
	if err != nil {
		return models.Session{}, err
	}
	next, err := apply(cur)
	if err != nil {
		return models.Session{}, err
	}
	saved, err := s.persist(ctx, next)
	if err != nil {
		return models.Session{}, err
	}
	s.remember(saved)
	s.publish(EventSessionUpdated, saved)
	return saved.Clone(), nil
}

func (s *SessionStore) mutateMatch(ctx context.Context, sessionID string, apply func(models.Session) (models.Session, models.MatchRecord, error)) (models.MatchRecord, error) {
	var match models.MatchRecord
	_, err := s.mutate(ctx, sessionID, func(cur models.Session) (models.Session, error) {
		next, m, err := apply(cur)
		if err != nil {
			return models.Session{}, err
		}
		match = m
		return next, nil
	})
	if err != nil {
		return models.MatchRecord{}, err
	}
	return match, nil
}

// current returns the snapshot a mutation starts from: the cached active session when it is
// the target, the repository copy otherwise. The caller holds the session lock.
func (s *SessionStore) current(ctx context.Context, sessionID string) (models.Session, error) {
	s.mu.Lock()
	for _, sess := range s.active {
		if sess != nil && sess.ID == sessionID {
			c := sess.Clone()
			s.mu.Unlock()
			return c, nil
		}
	}
	s.mu.Unlock()
	return s.loadByID(ctx, sessionID)
}

// persist saves a snapshot. A version conflict means another writer got there first: the
// cache entry for the game is dropped and the caller gets a conflict to reload and retry.
func (s *SessionStore) persist(ctx context.Context, sess models.Session) (models.Session, error) {
	saved, err := s.repo.Save(ctx, sess)
	if err == nil {
		return saved, nil
	}
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		s.Invalidate(sess.GameID)
		log.Printf("[Store] player=%s session %s changed concurrently: %v", s.playerID, sess.ID, err)
		return models.Session{}, &Error{
			Kind:    KindConflict,
			Message: "session was modified by another client, reload and retry",
			Details: map[string]string{"session_id": sess.ID},
			Cause:   err,
		}
	case errors.Is(err, repository.ErrActiveExists):
		// Another client started a session for this game after our check.
		s.Invalidate(sess.GameID)
		conflict := activeConflict(sess.GameID, "")
		conflict.Cause = err
		return models.Session{}, conflict
	default:
		log.Printf("[Store] player=%s saving session %s failed: %v", s.playerID, sess.ID, err)
		return models.Session{}, repositoryError("save session", err)
	}
}

// remember updates the cache after a successful save.
func (s *SessionStore) remember(saved models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if saved.IsActive() {
		c := saved.Clone()
		s.active[saved.GameID] = &c
	} else if cur, ok := s.active[saved.GameID]; ok && cur != nil && cur.ID == saved.ID {
		s.active[saved.GameID] = nil
	}
	s.gen++
}

func (s *SessionStore) cacheActive(gameID string, sess *models.Session) {
	s.mu.Lock()
	s.active[gameID] = cloneOrNil(sess)
	s.gen++
	s.mu.Unlock()
}

func (s *SessionStore) loadActive(ctx context.Context, gameID string) (*models.Session, error) {
	all, err := s.repo.LoadAll(ctx, s.playerID, gameID)
	if err != nil {
		return nil, repositoryError("load sessions", err)
	}
	var active *models.Session
	count := 0
	for i := range all {
		if !all[i].IsActive() {
			continue
		}
		count++
		if active == nil || all[i].StartTime.After(active.StartTime) {
			active = &all[i]
		}
	}
	if count > 1 {
		log.Printf("[Store] ⚠️ player=%s has %d ACTIVE sessions for %s, using the latest (%s)", s.playerID, count, gameID, active.ID)
	}
	return active, nil
}

func (s *SessionStore) loadByID(ctx context.Context, sessionID string) (models.Session, error) {
	sess, err := s.repo.LoadByID(ctx, s.playerID, sessionID)
	if err != nil {
		return models.Session{}, repositoryError("load session", err)
	}
	if sess == nil {
		return models.Session{}, notFoundError("session", sessionID)
	}
	return *sess, nil
}

func (s *SessionStore) publish(t EventType, sess models.Session) {
	if s.events == nil {
		return
	}
	c := sess.Clone()
	s.events.Publish(Event{
		Type:      t,
		PlayerID:  s.playerID,
		GameID:    sess.GameID,
		SessionID: sess.ID,
		Session:   &c,
		At:        s.now().UTC(),
	})
}

func activeConflict(gameID, activeID string) *Error {
	e := &Error{
		Kind:    KindConflict,
		Message: "an active session already exists for " + gameID,
		Details: map[string]string{"game_id": gameID, "action": ActionEndSession},
	}
	if activeID != "" {
		e.Details["active_session_id"] = activeID
	}
	return e
}

func sameSnapshot(a, b *models.Session) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID && a.Version == b.Version
}

func cloneOrNil(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	c := s.Clone()
	return &c
}

func endTimeOf(s models.Session) time.Time {
	if s.EndTime != nil {
		return *s.EndTime
	}
	return s.StartTime
}

func gameKey(gameID string) string       { return "game:" + gameID }
func sessionKey(sessionID string) string { return "session:" + sessionID }
