package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ranked-ledger/models"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresRepository stores sessions in the ranked_sessions table.
type PostgresRepository struct {
	DB *gorm.DB
}

func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{DB: db}
}

// Migrate creates or updates the ranked_sessions table.
func (r *PostgresRepository) Migrate() error {
	return r.DB.AutoMigrate(&models.SessionRecord{})
}

func (r *PostgresRepository) LoadAll(ctx context.Context, playerID, gameID string) ([]models.Session, error) {
	var rows []models.SessionRecord
	err := r.DB.WithContext(ctx).
		Where("player_id = ? AND game_id = ?", playerID, gameID).
		Order("start_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load sessions for game %s: %w", gameID, err)
	}
	return decodeRecords(rows)
}

func (r *PostgresRepository) LoadByID(ctx context.Context, playerID, sessionID string) (*models.Session, error) {
	var rec models.SessionRecord
	err := r.DB.WithContext(ctx).
		Where("id = ? AND player_id = ?", sessionID, playerID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	s, err := decodeRecord(rec)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts the whole session inside a transaction. The row is locked while the version is
// compared, and the UPDATE is guarded by the version as well.
func (r *PostgresRepository) Save(ctx context.Context, session models.Session) (models.Session, error) {
	if session.ID == "" {
		return models.Session{}, fmt.Errorf("session id is required")
	}

	var saved models.Session
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SessionRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", session.ID).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if session.Version != 0 {
				return fmt.Errorf("save session %s: %w", session.ID, ErrVersionConflict)
			}
			notes, err := encodeNotes("{}", session)
			if err != nil {
				return err
			}
			rec := toRecord(session, notes)
			rec.Version = 1
			if err := tx.Create(&rec).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("insert session %s: %w", session.ID, ErrActiveExists)
				}
				return fmt.Errorf("insert session %s: %w", session.ID, err)
			}
		case err != nil:
			return fmt.Errorf("lock session %s: %w", session.ID, err)
		default:
			if existing.PlayerID != session.PlayerID {
				return fmt.Errorf("session %s belongs to another player", session.ID)
			}
			if existing.Version != session.Version {
				return fmt.Errorf("save session %s (have v%d, stored v%d): %w",
					session.ID, session.Version, existing.Version, ErrVersionConflict)
			}
			notes, err := encodeNotes(existing.Notes, session)
			if err != nil {
				return err
			}
			res := tx.Model(&models.SessionRecord{}).
				Where("id = ? AND version = ?", session.ID, session.Version).
				Updates(map[string]any{
					"status":         string(session.Status),
					"end_time":       session.EndTime,
					"start_points":   session.StartPoints,
					"current_points": session.CurrentPoints,
					"target_points":  session.TargetPoints,
					"notes":          notes,
					"version":        session.Version + 1,
				})
			if res.Error != nil {
				return fmt.Errorf("update session %s: %w", session.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("save session %s: %w", session.ID, ErrVersionConflict)
			}
		}

		saved = session.Clone()
		saved.Version = session.Version + 1
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}
	return saved, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, playerID, sessionID string) error {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND player_id = ?", sessionID, playerID).
		Delete(&models.SessionRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) CompletedSince(ctx context.Context, since time.Time) ([]models.Session, error) {
	var rows []models.SessionRecord
	err := r.DB.WithContext(ctx).
		Where("status = ? AND end_time >= ?", string(models.SessionStatusCompleted), since).
		Order("end_time ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}
	return decodeRecords(rows)
}

func toRecord(s models.Session, notes string) models.SessionRecord {
	return models.SessionRecord{
		ID:            s.ID,
		PlayerID:      s.PlayerID,
		GameID:        s.GameID,
		Status:        string(s.Status),
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		StartPoints:   s.StartPoints,
		CurrentPoints: s.CurrentPoints,
		TargetPoints:  s.TargetPoints,
		Notes:         notes,
		Version:       s.Version,
	}
}

// encodeNotes writes matches, status and name into the notes document, keeping every
// other key already present (the web client stores its own fields there).
func encodeNotes(base string, s models.Session) (string, error) {
	if !gjson.Valid(base) || !gjson.Parse(base).IsObject() {
		base = "{}"
	}
	matches := s.Matches
	if matches == nil {
		matches = []models.MatchRecord{}
	}
	raw, err := json.Marshal(matches)
	if err != nil {
		return "", fmt.Errorf("marshal matches: %w", err)
	}

	out, err := sjson.SetRaw(base, "matches", string(raw))
	if err != nil {
		return "", fmt.Errorf("set notes.matches: %w", err)
	}
	if out, err = sjson.Set(out, "status", string(s.Status)); err != nil {
		return "", fmt.Errorf("set notes.status: %w", err)
	}
	if s.Name != "" {
		out, err = sjson.Set(out, "name", s.Name)
	} else {
		out, err = sjson.Delete(out, "name")
	}
	if err != nil {
		return "", fmt.Errorf("set notes.name: %w", err)
	}
	return out, nil
}

func decodeRecord(rec models.SessionRecord) (models.Session, error) {
	s := models.Session{
		ID:            rec.ID,
		PlayerID:      rec.PlayerID,
		GameID:        rec.GameID,
		StartTime:     rec.StartTime,
		EndTime:       rec.EndTime,
		Status:        models.SessionStatus(rec.Status),
		StartPoints:   rec.StartPoints,
		CurrentPoints: rec.CurrentPoints,
		TargetPoints:  rec.TargetPoints,
		Matches:       []models.MatchRecord{},
		Version:       rec.Version,
	}
	if !gjson.Valid(rec.Notes) {
		return s, nil
	}
	s.Name = gjson.Get(rec.Notes, "name").String()
	if m := gjson.Get(rec.Notes, "matches"); m.IsArray() {
		if err := json.Unmarshal([]byte(m.Raw), &s.Matches); err != nil {
			return models.Session{}, fmt.Errorf("decode matches of session %s: %w", rec.ID, err)
		}
	}
	for i := range s.Matches {
		if s.Matches[i].Comments == nil {
			s.Matches[i].Comments = []models.Comment{}
		}
	}
	return s, nil
}

func decodeRecords(rows []models.SessionRecord) ([]models.Session, error) {
	out := make([]models.Session, 0, len(rows))
	for _, rec := range rows {
		s, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
