package services

import (
	"sync"
	"time"

	"ranked-ledger/models"
)

// EventType names a session change pushed to subscribers.
type EventType string

const (
	EventSessionStarted EventType = "session_started"
	EventSessionUpdated EventType = "session_updated"
	EventSessionEnded   EventType = "session_ended"
	EventSessionDeleted EventType = "session_deleted"
)

// Event is published after a change has been persisted.
type Event struct {
	Type      EventType       `json:"type"`
	PlayerID  string          `json:"playerId"`
	GameID    string          `json:"gameId"`
	SessionID string          `json:"sessionId"`
	Session   *models.Session `json:"session,omitempty"`
	At        time.Time       `json:"at"`
}

// Publisher receives persisted session changes.
type Publisher interface {
	Publish(Event)
}

// EventBroker fans events out to per-player subscribers. Slow subscribers drop events
// instead of blocking the store.
type EventBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Event]struct{}
	buffer int
}

func NewEventBroker(buffer int) *EventBroker {
	if buffer <= 0 {
		buffer = 16
	}
	return &EventBroker{subs: map[string]map[chan Event]struct{}{}, buffer: buffer}
}

// Subscribe returns a channel of the player's events and a cancel func that closes it.
func (b *EventBroker) Subscribe(playerID string) (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.subs[playerID] == nil {
		b.subs[playerID] = map[chan Event]struct{}{}
	}
	b.subs[playerID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[playerID], ch)
			if len(b.subs[playerID]) == 0 {
				delete(b.subs, playerID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *EventBroker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[ev.PlayerID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
