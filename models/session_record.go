package models

import (
	"time"
)

// SessionRecord is the relational row backing a Session in Postgres.
//
// Matches and the optional name live inside Notes, a JSON document shared with the web
// client. Other keys written there by clients are preserved across saves.
type SessionRecord struct {
	ID            string     `gorm:"primaryKey;type:uuid" json:"id"`
	PlayerID      string     `gorm:"index:idx_ranked_player_game;uniqueIndex:idx_ranked_one_active,where:status = 'ACTIVE';not null" json:"player_id"`
	GameID        string     `gorm:"index:idx_ranked_player_game;uniqueIndex:idx_ranked_one_active,where:status = 'ACTIVE';not null" json:"game_id"`
	Status        string     `gorm:"type:varchar(16);index;not null;check:status IN ('ACTIVE','COMPLETED')" json:"status"`
	StartTime     time.Time  `gorm:"not null" json:"start_time"`
	EndTime       *time.Time `gorm:"index" json:"end_time,omitempty"`
	StartPoints   int        `gorm:"not null;default:0" json:"start_points"`
	CurrentPoints int        `gorm:"not null;default:0" json:"current_points"`
	TargetPoints  *int       `json:"target_points,omitempty"`
	Notes         string     `gorm:"type:jsonb;not null;default:'{}'" json:"notes"`
	Version       int64      `gorm:"not null;default:0" json:"version"`

	Timestamps
}

// TableName pins the table name independently of the struct name.
func (SessionRecord) TableName() string {
	return "ranked_sessions"
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
