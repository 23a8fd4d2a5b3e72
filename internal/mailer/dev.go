package mailer

import (
	"context"
	"log/slog"
)

// DevInviteMailer logs the accept link instead of sending mail. Used when no
// SMTP host is configured, typically in local development.
type DevInviteMailer struct {
	logger *slog.Logger
}

func NewDevInviteMailer(logger *slog.Logger) *DevInviteMailer {
	return &DevInviteMailer{logger: logger}
}

func (m *DevInviteMailer) SendInvite(ctx context.Context, inv Invitation) error {
	m.logger.InfoContext(ctx, "invite email (dev mode, not sent)",
		"to", inv.Email,
		"role", inv.Role,
		"accept_url", inv.AcceptURL,
		"expires_at", inv.ExpiresAt,
	)
	return nil
}
