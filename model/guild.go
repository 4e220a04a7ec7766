package model

import "time"

// ChatMode values for GuildMember.ChatMode.
const (
	ChatModePublic = 0
	ChatModeGuild  = 1
)

// Guild is the durable row for one guild. The in-memory representation lives
// in the guild package; this row is the cross-process source of truth.
type Guild struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Balance   int64     `gorm:"default:0" json:"balance"`
	Exp       int64     `gorm:"default:0" json:"exp"`
	HomeSet   bool      `gorm:"default:false" json:"home_set"`
	HomeWorld string    `gorm:"size:64" json:"home_world"`
	HomeX     float64   `json:"home_x"`
	HomeY     float64   `json:"home_y"`
	HomeZ     float64   `json:"home_z"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GuildMember links a player to a guild with a rank and chat mode.
// PlayerID is the primary key: a player belongs to at most one guild.
type GuildMember struct {
	PlayerID string    `gorm:"primaryKey;size:36" json:"player_id"`
	GuildID  string    `gorm:"index;size:36;not null" json:"guild_id"`
	Rank     int       `gorm:"default:0" json:"rank"`
	ChatMode int       `gorm:"default:0" json:"chat_mode"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// GuildAlliance is one accepted alliance between two guilds. The pair is
// stored once with GuildA < GuildB so each alliance has exactly one row.
type GuildAlliance struct {
	GuildA    string    `gorm:"primaryKey;size:36" json:"guild_a"`
	GuildB    string    `gorm:"primaryKey;size:36" json:"guild_b"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
