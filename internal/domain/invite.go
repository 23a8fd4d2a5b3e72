package domain

import "time"

// InviteStatus is derived at read time; only accepted and revoked are stored.
type InviteStatus string

const (
	InviteStatusActive   InviteStatus = "active"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusExpired  InviteStatus = "expired"
	InviteStatusRevoked  InviteStatus = "revoked"
)

// Invite authorizes creation of exactly one User with a pre-assigned email and
// role. The raw token is never stored, only its SHA-256 hex digest.
type Invite struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Email           string     `gorm:"size:255;not null;index:idx_invites_email" json:"email"`
	Role            Role       `gorm:"size:32;not null" json:"role"`
	TokenHash       string     `gorm:"size:64;not null;uniqueIndex:idx_invites_token_hash" json:"-"`
	ExpiresAt       time.Time  `gorm:"not null" json:"expires_at"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	Revoked         bool       `gorm:"not null;default:false" json:"revoked"`
	InvitedByUserID uint       `gorm:"not null;index:idx_invites_inviter" json:"invited_by_user_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Status resolves the invite state at the given instant. Precedence:
// revoked > accepted > expired > active. Revocation and acceptance are
// terminal, so expiry is only consulted for otherwise-open invites.
func (i *Invite) Status(now time.Time) InviteStatus {
	switch {
	case i.Revoked:
		return InviteStatusRevoked
	case i.AcceptedAt != nil:
		return InviteStatusAccepted
	case now.After(i.ExpiresAt):
		return InviteStatusExpired
	default:
		return InviteStatusActive
	}
}

// Resolved reports whether the invite reached a stored terminal state.
// Expired-but-open invites are still resolvable targets for in-place reuse.
func (i *Invite) Resolved() bool {
	return i.Revoked || i.AcceptedAt != nil
}
