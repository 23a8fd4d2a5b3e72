package domain

import "time"

// Session backs refresh-token rotation. RefreshTokenHash is a peppered
// SHA-256 of the refresh JWT, never the token itself.
type Session struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"not null;index:idx_sessions_user" json:"user_id"`
	RefreshTokenHash string     `gorm:"size:64;not null;uniqueIndex:idx_sessions_hash" json:"-"`
	UserAgent        string     `gorm:"size:512" json:"user_agent"`
	IP               string     `gorm:"size:64" json:"ip"`
	ExpiresAt        time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
