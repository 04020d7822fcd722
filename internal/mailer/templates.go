package mailer

import (
	"fmt"
	"time"
)

func VerificationEmail(username, verifyURL string) (subject, html string) {
	subject = "[AI Knowledge] Verify your email address"
	html = fmt.Sprintf(`<h2>Verify your email address</h2>
<p>Hi %s,</p>
<p>Thanks for signing up. Click the link below to verify your email address:</p>
<p><a href="%s">Verify email address</a></p>
<p>This link expires in one hour.</p>
<p>If you did not create this account, you can ignore this message.</p>`, username, verifyURL)
	return subject, html
}

func PasswordResetEmail(username, resetURL string) (subject, html string) {
	subject = "[AI Knowledge] Reset your password"
	html = fmt.Sprintf(`<h2>Password reset</h2>
<p>Hi %s,</p>
<p>We received a request to reset your password. Click the link below to choose a new one:</p>
<p><a href="%s">Reset password</a></p>
<p>This link expires in one hour.</p>
<p>If you did not request a reset, you can ignore this message.</p>`, username, resetURL)
	return subject, html
}

func InvitationEmail(inviter, projectName, description, acceptURL string, expiresAt time.Time) (subject, html string) {
	if description == "" {
		description = "No description"
	}
	subject = fmt.Sprintf("[AI Knowledge] You have been invited to %q", projectName)
	html = fmt.Sprintf(`<h2>Project invitation</h2>
<p>%s invited you to join the project %q.</p>
<p><strong>About the project:</strong></p>
<p>%s</p>
<p><a href="%s">Accept invitation</a></p>
<p>This invitation is valid until %s.</p>
<p>If you were not expecting this invitation, you can ignore this message.</p>`,
		inviter, projectName, description, acceptURL, expiresAt.Format("Jan 2, 2006"))
	return subject, html
}
