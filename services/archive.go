package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"ranked-ledger/models"
	"ranked-ledger/repository"

	"github.com/gosimple/slug"
)

// ArchiveSink stores exported session documents, e.g. an R2 bucket.
type ArchiveSink interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// ArchiveLocator is implemented by sinks whose objects have a public address.
type ArchiveLocator interface {
	URL(key string) string
}

// DefaultArchiveLag is how far behind the cursor each run looks again, so sessions that
// were stamped before the cursor but committed after the previous run are still exported.
const DefaultArchiveLag = time.Minute

// ArchiveService exports COMPLETED sessions to object storage. Each run picks up the
// sessions that ended at or after the cursor minus Lag and skips the ones it already
// exported in that window.
type ArchiveService struct {
	source repository.ArchiveSource
	sink   ArchiveSink

	// Lag must cover the time between stamping EndTime and committing the save.
	Lag time.Duration

	mu       sync.Mutex
	cursor   time.Time
	exported map[string]time.Time
	lastKey  string
}

func NewArchiveService(source repository.ArchiveSource, sink ArchiveSink, since time.Time) *ArchiveService {
	return &ArchiveService{
		source:   source,
		sink:     sink,
		Lag:      DefaultArchiveLag,
		cursor:   since,
		exported: map[string]time.Time{},
	}
}

// ArchiveKey is the object key of a session export: ranked/<game-slug>/<player>/<session>.json
func ArchiveKey(s models.Session) string {
	return fmt.Sprintf("ranked/%s/%s/%s.json", slug.Make(s.GameID), s.PlayerID, s.ID)
}

// Cursor returns the latest end time among exported sessions.
func (a *ArchiveService) Cursor() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor
}

// LastExport returns where the most recent export was written: its public URL when the
// sink has one, its key otherwise. Empty before the first export.
func (a *ArchiveService) LastExport() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locate(a.lastKey)
}

func (a *ArchiveService) locate(key string) string {
	if key == "" {
		return ""
	}
	if loc, ok := a.sink.(ArchiveLocator); ok {
		return loc.URL(key)
	}
	return key
}

func (a *ArchiveService) windowStart() time.Time {
	if a.cursor.IsZero() {
		return a.cursor
	}
	return a.cursor.Add(-a.Lag)
}

// RunOnce exports every session in the window that was not exported yet. It stops at the
// first failed upload; that session and everything after it are retried next run.
func (a *ArchiveService) RunOnce(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sessions, err := a.source.CompletedSince(ctx, a.windowStart())
	if err != nil {
		return 0, fmt.Errorf("list completed sessions: %w", err)
	}

	exported := 0
	defer a.prune()
	for _, s := range sessions {
		if s.EndTime == nil {
			continue
		}
		if _, done := a.exported[s.ID]; done {
			continue
		}
		payload, err := json.MarshalIndent(exportDocument{Session: s, Summary: Summarize(s)}, "", "  ")
		if err != nil {
			return exported, fmt.Errorf("marshal session %s: %w", s.ID, err)
		}
		key := ArchiveKey(s)
		if err := a.sink.PutObject(ctx, key, payload, "application/json"); err != nil {
			return exported, fmt.Errorf("upload session %s: %w", s.ID, err)
		}
		a.exported[s.ID] = *s.EndTime
		a.lastKey = key
		if s.EndTime.After(a.cursor) {
			a.cursor = *s.EndTime
		}
		exported++
	}
	return exported, nil
}

// prune forgets exports that fell out of the window.
func (a *ArchiveService) prune() {
	from := a.windowStart()
	for id, end := range a.exported {
		if end.Before(from) {
			delete(a.exported, id)
		}
	}
}

type exportDocument struct {
	Session models.Session `json:"session"`
	Summary SessionSummary `json:"summary"`
}

func (a *ArchiveService) runLogged(ctx context.Context) {
	n, err := a.RunOnce(ctx)
	if err != nil {
		log.Printf("[Archive] run failed after %d export(s): %v", n, err)
		return
	}
	if n > 0 {
		log.Printf("✅ [Archive] exported %d completed session(s), latest at %s", n, a.LastExport())
	}
}
