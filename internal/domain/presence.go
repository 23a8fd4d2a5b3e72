package domain

import "time"

// ActivityPing is the append-only liveness log, pruned by the housekeeping
// tool after the retention window.
type ActivityPing struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	UserID uint      `gorm:"not null;index:idx_activity_user" json:"user_id"`
	PingAt time.Time `gorm:"not null;index:idx_activity_ping_at" json:"ping_at"`
}

func (ActivityPing) TableName() string { return "operator_activity" }

// Presence keeps one last-write-wins row per operator.
type Presence struct {
	UserID   uint      `gorm:"primaryKey" json:"user_id"`
	LastPing time.Time `gorm:"not null" json:"last_ping"`
}

func (Presence) TableName() string { return "operator_presence" }

// Online derives the presence flag from ping recency. No hysteresis: clients
// are expected to ping well inside the window.
func (p *Presence) Online(now time.Time, window time.Duration) bool {
	return now.Sub(p.LastPing) <= window
}
