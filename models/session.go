package models

import (
	"strings"
	"time"
)

// SessionStatus is the lifecycle state of a ranked session. ACTIVE → COMPLETED only.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	return s == SessionStatusActive || s == SessionStatusCompleted
}

// MatchResult is the outcome tag of a match. The ledger only uses it for display
// and win/loss aggregation.
type MatchResult string

const (
	ResultWin    MatchResult = "WIN"
	ResultLoss   MatchResult = "LOSS"
	ResultDraw   MatchResult = "DRAW"
	ResultRemake MatchResult = "REMAKE"
)

// ParseMatchResult normalizes user input ("win", " Loss ") to a MatchResult.
func ParseMatchResult(raw string) (MatchResult, bool) {
	r := MatchResult(strings.ToUpper(strings.TrimSpace(raw)))
	return r, r.Valid()
}

// Valid reports whether r is one of the supported results.
func (r MatchResult) Valid() bool {
	switch r {
	case ResultWin, ResultLoss, ResultDraw, ResultRemake:
		return true
	}
	return false
}

// Comment is one entry of a match's comment thread.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// MatchRecord is one played match inside a session.
type MatchRecord struct {
	ID           string      `json:"id"`
	Timestamp    time.Time   `json:"timestamp"`
	Result       MatchResult `json:"result"`
	PointsChange int         `json:"pointsChange"`

	// Stat payload, never interpreted by the ledger
	Champion string `json:"champion,omitempty"` // champion / agent
	Map      string `json:"map,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Kills    int    `json:"kills"`
	Deaths   int    `json:"deaths"`
	Assists  int    `json:"assists"`
	Score    string `json:"score,omitempty"` // e.g. "13-11"
	Notes    string `json:"notes,omitempty"`

	Comments []Comment `json:"comments"`
}

// Clone returns a deep copy of the match.
func (m MatchRecord) Clone() MatchRecord {
	out := m
	out.Comments = make([]Comment, len(m.Comments))
	copy(out.Comments, m.Comments)
	return out
}

// Session is one ranked grinding period for a game.
//
// CurrentPoints must always equal StartPoints plus the sum of every match's PointsChange.
type Session struct {
	ID            string        `json:"id"`
	PlayerID      string        `json:"playerId"`
	GameID        string        `json:"gameId"`
	Name          string        `json:"name,omitempty"`
	StartTime     time.Time     `json:"startTime"`
	EndTime       *time.Time    `json:"endTime,omitempty"`
	Status        SessionStatus `json:"status"`
	StartPoints   int           `json:"startPoints"`
	CurrentPoints int           `json:"currentPoints"`
	TargetPoints  *int          `json:"targetPoints,omitempty"`
	Matches       []MatchRecord `json:"matches"`

	// Version is bumped by the repository on every successful save.
	Version int64 `json:"version"`
}

// Clone returns a deep copy so callers can never alias a cached or stored snapshot.
func (s Session) Clone() Session {
	out := s
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	if s.TargetPoints != nil {
		v := *s.TargetPoints
		out.TargetPoints = &v
	}
	out.Matches = make([]MatchRecord, len(s.Matches))
	for i, m := range s.Matches {
		out.Matches[i] = m.Clone()
	}
	return out
}

// IsActive reports whether the session still accepts matches.
func (s Session) IsActive() bool {
	return s.Status == SessionStatusActive
}

// PointsSum returns StartPoints plus the sum of every match delta.
func (s Session) PointsSum() int {
	total := s.StartPoints
	for _, m := range s.Matches {
		total += m.PointsChange
	}
	return total
}

// MatchIndex returns the position of matchID in Matches, or -1.
func (s Session) MatchIndex(matchID string) int {
	for i, m := range s.Matches {
		if m.ID == matchID {
			return i
		}
	}
	return -1
}

// StartSessionInput describes a new session.
type StartSessionInput struct {
	GameID       string `json:"gameId"`
	StartPoints  int    `json:"startPoints"`
	TargetPoints *int   `json:"targetPoints,omitempty"`
	Name         string `json:"name,omitempty"`
}

// MatchInput is the caller-supplied part of a new match. Id and timestamp are assigned by the ledger.
type MatchInput struct {
	Result       MatchResult `json:"result"`
	PointsChange int         `json:"pointsChange"`
	Champion     string      `json:"champion,omitempty"`
	Map          string      `json:"map,omitempty"`
	Mode         string      `json:"mode,omitempty"`
	Kills        int         `json:"kills"`
	Deaths       int         `json:"deaths"`
	Assists      int         `json:"assists"`
	Score        string      `json:"score,omitempty"`
	Notes        string      `json:"notes,omitempty"`
}

// MatchPatch updates a stored match. Nil fields are left untouched.
type MatchPatch struct {
	Result       *MatchResult `json:"result,omitempty"`
	PointsChange *int         `json:"pointsChange,omitempty"`
	Champion     *string      `json:"champion,omitempty"`
	Map          *string      `json:"map,omitempty"`
	Mode         *string      `json:"mode,omitempty"`
	Kills        *int         `json:"kills,omitempty"`
	Deaths       *int         `json:"deaths,omitempty"`
	Assists      *int         `json:"assists,omitempty"`
	Score        *string      `json:"score,omitempty"`
	Notes        *string      `json:"notes,omitempty"`
}
