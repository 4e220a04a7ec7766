package model

import "time"

// Wallet holds a player's personal balance, in minor currency units.
// The guild treasury moves money to and from this row.
type Wallet struct {
	PlayerID  string    `gorm:"primaryKey;size:36" json:"player_id"`
	Balance   int64     `gorm:"default:0" json:"balance"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
