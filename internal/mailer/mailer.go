package mailer

import (
	"context"
	"time"

	"github.com/charmops/charmops-backend/internal/domain"
)

// Invitation carries everything the email needs. AcceptURL embeds the raw
// invite token; it is never logged by the SMTP implementation.
type Invitation struct {
	Email       string
	Role        domain.Role
	InviterName string
	AcceptURL   string
	ExpiresAt   time.Time
}

type InviteMailer interface {
	SendInvite(ctx context.Context, inv Invitation) error
}
