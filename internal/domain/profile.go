package domain

import "time"

type Platform string

const (
	PlatformSofiaDate  Platform = "sofiadate"
	PlatformSakuraDate Platform = "sakuradate"
)

func (p Platform) Valid() bool {
	return p == PlatformSofiaDate || p == PlatformSakuraDate
}

type ProfileStatus string

const (
	ProfileStatusActive   ProfileStatus = "active"
	ProfileStatusPaused   ProfileStatus = "paused"
	ProfileStatusBanned   ProfileStatus = "banned"
	ProfileStatusArchived ProfileStatus = "archived"
)

func (s ProfileStatus) Valid() bool {
	switch s {
	case ProfileStatusActive, ProfileStatusPaused, ProfileStatusBanned, ProfileStatusArchived:
		return true
	default:
		return false
	}
}

// Profile is a managed persona on an external dating platform. CredentialEnc
// holds the platform password sealed with AES-256-GCM and never leaves the
// service in any response.
type Profile struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	Platform           Platform      `gorm:"size:32;not null;index:idx_profiles_platform" json:"platform"`
	Login              string        `gorm:"size:255;not null;index:idx_profiles_login" json:"login"`
	CredentialEnc      string        `gorm:"size:2048;not null" json:"-"`
	DisplayName        string        `gorm:"size:255;not null" json:"display_name"`
	Locale             string        `gorm:"size:16;not null;default:en" json:"locale"`
	AvatarURL          string        `gorm:"size:1024" json:"avatar_url,omitempty"`
	Status             ProfileStatus `gorm:"size:32;not null;default:active" json:"status"`
	AssignedOperatorID *uint         `gorm:"index:idx_profiles_operator" json:"assigned_operator_id"`
	CreatedByUserID    uint          `gorm:"not null" json:"created_by_user_id"`
	LastSyncedAt       *time.Time    `json:"last_synced_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}
