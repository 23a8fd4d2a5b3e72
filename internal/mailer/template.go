package mailer

const inviteTemplateHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
  <h2>You have been invited to CharmOps</h2>
  <p>{{.InviterName}} invited you to join the operations dashboard as <strong>{{.Role}}</strong>.</p>
  <p>
    <a href="{{.AcceptURL}}" style="display:inline-block;padding:10px 18px;background:#4f46e5;color:#fff;border-radius:6px;text-decoration:none;">
      Accept invitation
    </a>
  </p>
  <p>This link expires on {{.Expires}}. If the button does not work, copy this URL into your browser:</p>
  <p><a href="{{.AcceptURL}}">{{.AcceptURL}}</a></p>
  <p style="color:#6b7280;font-size:12px;">If you were not expecting this invitation you can ignore this email.</p>
</body>
</html>`
