package model

import (
	"time"

	"gorm.io/datatypes"
)

// GuildLog is one entry in a guild's action log, written asynchronously.
type GuildLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID   string         `gorm:"index;size:36;not null" json:"guild_id"`
	PlayerID  string         `gorm:"size:36" json:"player_id"`
	Action    string         `gorm:"size:64;not null" json:"action"`
	Detail    datatypes.JSON `json:"detail"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}
