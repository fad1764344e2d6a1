package mailer

import "html/template"

var templates = template.Must(template.New("mail").Parse(`
{{define "verify"}}<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #10b981;">Welcome to LifeVault</h1>
  <p>Click the button below to verify your email address:</p>
  <a class="action" href="{{.Link}}" style="display: inline-block; background: #10b981; color: white; padding: 12px 24px; text-decoration: none; border-radius: 8px; margin: 16px 0;">Verify Email</a>
  <p style="color: #666; font-size: 14px;">This link expires in 24 hours. If you didn't create an account, ignore this email.</p>
</div>{{end}}

{{define "reset"}}<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #10b981;">Password Reset</h1>
  <p>Click the button below to reset your password:</p>
  <a class="action" href="{{.Link}}" style="display: inline-block; background: #10b981; color: white; padding: 12px 24px; text-decoration: none; border-radius: 8px; margin: 16px 0;">Reset Password</a>
  <p style="color: #666; font-size: 14px;">This link expires in 1 hour. If you didn't request this, ignore this email.</p>
</div>{{end}}
`))
