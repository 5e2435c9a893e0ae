// Package repository holds the persistence adapters behind SessionStore.
package repository

import (
	"context"
	"errors"
	"time"

	"ranked-ledger/models"
)

// ErrVersionConflict is returned by Save when the stored document moved past the version
// the caller loaded.
var ErrVersionConflict = errors.New("session version conflict")

// ErrNotFound is returned by Delete for an unknown session.
var ErrNotFound = errors.New("session not found")

// ErrActiveExists is returned by Save when creating an ACTIVE session for a player and game
// that already has one.
var ErrActiveExists = errors.New("an active session already exists for this game")

// SessionRepository is the persistence boundary of the ledger. Save is a whole-document
// upsert: the stored session is replaced by the argument, last writer wins unless the
// version check rejects it.
type SessionRepository interface {
	LoadAll(ctx context.Context, playerID, gameID string) ([]models.Session, error)
	// LoadByID returns nil, nil when the session does not exist.
	LoadByID(ctx context.Context, playerID, sessionID string) (*models.Session, error)
	// Save stores the session and returns it with its new Version. A session with Version 0
	// is created; any other Version must match the stored one.
	Save(ctx context.Context, session models.Session) (models.Session, error)
	Delete(ctx context.Context, playerID, sessionID string) error
}

// ArchiveSource lists sessions that ended in a time window, across players.
type ArchiveSource interface {
	// CompletedSince returns COMPLETED sessions with EndTime >= since, ordered by
	// (EndTime, ID).
	CompletedSince(ctx context.Context, since time.Time) ([]models.Session, error)
}
