package services

import (
	"fmt"
	"strings"
	"time"

	"ranked-ledger/models"

	"github.com/google/uuid"
)

// Ledger applies match and comment operations to a single session snapshot.
//
// It is pure with respect to its inputs: the session passed in is never modified and the
// returned session is a fresh deep copy. Persistence belongs to SessionStore.
type Ledger struct {
	now   func() time.Time
	newID func() string
}

// NewLedger returns a ledger using wall time and random UUIDs.
func NewLedger() *Ledger {
	return NewLedgerWith(nil, nil)
}

// NewLedgerWith allows tests to pin the clock and the id generator. Nil falls back to the defaults.
func NewLedgerWith(now func() time.Time, newID func() string) *Ledger {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Ledger{now: now, newID: newID}
}

// CheckInvariant verifies CurrentPoints == StartPoints + Σ PointsChange.
func CheckInvariant(s models.Session) error {
	if want := s.PointsSum(); s.CurrentPoints != want {
		return &Error{
			Kind:    KindInvariant,
			Message: fmt.Sprintf("session %s has currentPoints %d, matches sum to %d", s.ID, s.CurrentPoints, want),
			Details: map[string]string{"session_id": s.ID},
		}
	}
	return nil
}

// AddMatch appends a new match and adds its delta to CurrentPoints.
func (l *Ledger) AddMatch(s models.Session, in models.MatchInput) (models.Session, error) {
	if !s.IsActive() {
		return models.Session{}, invalidStateError("session %s is %s, matches can only be added to an ACTIVE session", s.ID, s.Status)
	}
	if err := validateMatchInput(in); err != nil {
		return models.Session{}, err
	}

	out := s.Clone()
	out.Matches = append(out.Matches, models.MatchRecord{
		ID:           l.newID(),
		Timestamp:    l.now().UTC(),
		Result:       in.Result,
		PointsChange: in.PointsChange,
		Champion:     strings.TrimSpace(in.Champion),
		Map:          strings.TrimSpace(in.Map),
		Mode:         strings.TrimSpace(in.Mode),
		Kills:        in.Kills,
		Deaths:       in.Deaths,
		Assists:      in.Assists,
		Score:        strings.TrimSpace(in.Score),
		Notes:        in.Notes,
		Comments:     []models.Comment{},
	})
	out.CurrentPoints += in.PointsChange

	if err := CheckInvariant(out); err != nil {
		return models.Session{}, err
	}
	return out, nil
}

// UpdateMatch applies patch to matchID. A changed PointsChange moves CurrentPoints by the
// difference between the old and new delta.
func (l *Ledger) UpdateMatch(s models.Session, matchID string, patch models.MatchPatch) (models.Session, error) {
	if !s.IsActive() {
		return models.Session{}, invalidStateError("session %s is %s, matches of a COMPLETED session cannot be edited", s.ID, s.Status)
	}
	idx := s.MatchIndex(matchID)
	if idx < 0 {
		return models.Session{}, notFoundError("match", matchID)
	}
	if err := validateMatchPatch(patch); err != nil {
		return models.Session{}, err
	}

	out := s.Clone()
	m := &out.Matches[idx]
	if patch.PointsChange != nil && *patch.PointsChange != m.PointsChange {
		out.CurrentPoints += *patch.PointsChange - m.PointsChange
		m.PointsChange = *patch.PointsChange
	}
	if patch.Result != nil {
		m.Result = *patch.Result
	}
	if patch.Champion != nil {
		m.Champion = strings.TrimSpace(*patch.Champion)
	}
	if patch.Map != nil {
		m.Map = strings.TrimSpace(*patch.Map)
	}
	if patch.Mode != nil {
		m.Mode = strings.TrimSpace(*patch.Mode)
	}
	if patch.Kills != nil {
		m.Kills = *patch.Kills
	}
	if patch.Deaths != nil {
		m.Deaths = *patch.Deaths
	}
	if patch.Assists != nil {
		m.Assists = *patch.Assists
	}
	if patch.Score != nil {
		m.Score = strings.TrimSpace(*patch.Score)
	}
	if patch.Notes != nil {
		m.Notes = *patch.Notes
	}

	if err := CheckInvariant(out); err != nil {
		return models.Session{}, err
	}
	return out, nil
}

// DeleteMatch removes matchID and subtracts exactly its delta from CurrentPoints.
func (l *Ledger) DeleteMatch(s models.Session, matchID string) (models.Session, error) {
	if !s.IsActive() {
		return models.Session{}, invalidStateError("session %s is %s, matches of a COMPLETED session cannot be deleted", s.ID, s.Status)
	}
	idx := s.MatchIndex(matchID)
	if idx < 0 {
		return models.Session{}, notFoundError("match", matchID)
	}

	out := s.Clone()
	out.CurrentPoints -= out.Matches[idx].PointsChange
	out.Matches = append(out.Matches[:idx], out.Matches[idx+1:]...)

	if err := CheckInvariant(out); err != nil {
		return models.Session{}, err
	}
	return out, nil
}

// FindMatch returns a copy of matchID.
func (l *Ledger) FindMatch(s models.Session, matchID string) (models.MatchRecord, error) {
	idx := s.MatchIndex(matchID)
	if idx < 0 {
		return models.MatchRecord{}, notFoundError("match", matchID)
	}
	return s.Matches[idx].Clone(), nil
}

// AddComment appends a comment to matchID's thread. Comments are allowed on COMPLETED
// sessions since they never touch the points.
func (l *Ledger) AddComment(s models.Session, matchID, text string) (models.Session, models.MatchRecord, error) {
	text, err := normalizeCommentText(text)
	if err != nil {
		return models.Session{}, models.MatchRecord{}, err
	}
	idx := s.MatchIndex(matchID)
	if idx < 0 {
		return models.Session{}, models.MatchRecord{}, notFoundError("match", matchID)
	}

	out := s.Clone()
	m := &out.Matches[idx]
	m.Comments = CommentThread(m.Comments).Append(models.Comment{
		ID:        l.newID(),
		Text:      text,
		CreatedAt: l.now().UTC(),
	})
	return out, m.Clone(), nil
}

// EditComment replaces the text of commentID on matchID.
func (l *Ledger) EditComment(s models.Session, matchID, commentID, text string) (models.Session, models.MatchRecord, error) {
	text, err := normalizeCommentText(text)
	if err != nil {
		return models.Session{}, models.MatchRecord{}, err
	}
	idx := s.MatchIndex(matchID)
	if idx < 0 {
		return models.Session{}, models.MatchRecord{}, notFoundError("match", matchID)
	}

	out := s.Clone()
	m := &out.Matches[idx]
	thread, _, ok := CommentThread(m.Comments).Edit(commentID, text, l.now().UTC())
	if !ok {
		return models.Session{}, models.MatchRecord{}, notFoundError("comment", commentID)
	}
	m.Comments = thread
	return out, m.Clone(), nil
}

// DeleteComment removes commentID from matchID's thread.
func (l *Ledger) DeleteComment(s models.Session, matchID, commentID string) (models.Session, models.MatchRecord, error) {
	idx := s.MatchIndex(matchID)
	if idx < 0 {
		return models.Session{}, models.MatchRecord{}, notFoundError("match", matchID)
	}

	out := s.Clone()
	m := &out.Matches[idx]
	thread, ok := CommentThread(m.Comments).Delete(commentID)
	if !ok {
		return models.Session{}, models.MatchRecord{}, notFoundError("comment", commentID)
	}
	m.Comments = thread
	return out, m.Clone(), nil
}

func normalizeCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", validationError("comment text is required")
	}
	return text, nil
}

func validateMatchInput(in models.MatchInput) error {
	if !in.Result.Valid() {
		return validationError("result %q is not one of WIN, LOSS, DRAW, REMAKE", in.Result)
	}
	return validateStats(&in.Kills, &in.Deaths, &in.Assists)
}

func validateMatchPatch(p models.MatchPatch) error {
	if p.Result != nil && !p.Result.Valid() {
		return validationError("result %q is not one of WIN, LOSS, DRAW, REMAKE", *p.Result)
	}
	return validateStats(p.Kills, p.Deaths, p.Assists)
}

func validateStats(kills, deaths, assists *int) error {
	for name, v := range map[string]*int{"kills": kills, "deaths": deaths, "assists": assists} {
		if v != nil && *v < 0 {
			return validationError("%s must not be negative", name)
		}
	}
	return nil
}
