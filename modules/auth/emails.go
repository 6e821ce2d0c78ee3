package auth

import (
	"context"
	"fmt"
	"html"
	"net/url"

	"github.com/feedforward/feedforward/pkg/email"
)

func (s *Service) sendVerificationEmail(ctx context.Context, user *User, verifyToken string) error {
	link := fmt.Sprintf("%s/api/v1/auth/verify-email?token=%s",
		s.cfg.AppBaseURL, url.QueryEscape(verifyToken))

	body := fmt.Sprintf(`<h1>Email Verification</h1>
<p>Hi %s,</p>
<p>Thanks for signing up for FeedForward. Please confirm your email address by clicking the link below. The link is valid for %s.</p>
<p><a href="%s">Verify Email</a></p>
<p>If you did not create this account, you can safely ignore this message.</p>`,
		html.EscapeString(user.Name), s.cfg.VerifyTokenTTL, link)

	return s.mailer.Send(ctx, email.SendParams{
		To:       user.Email,
		Subject:  "Email Verification - FeedForward",
		BodyHTML: body,
		Tag:      "verify-email",
	})
}

func (s *Service) sendPasswordResetEmail(ctx context.Context, user *User, secret string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s",
		s.cfg.AppBaseURL, url.QueryEscape(secret))

	body := fmt.Sprintf(`<h1>Password Reset</h1>
<p>Hi %s,</p>
<p>We received a request to reset your FeedForward password. Click the link below to choose a new one. The link is valid for %s and can be used once.</p>
<p><a href="%s">Reset Password</a></p>
<p>If you did not request a reset, you can safely ignore this message; your password is unchanged.</p>`,
		html.EscapeString(user.Name), s.cfg.ResetTokenTTL, link)

	return s.mailer.Send(ctx, email.SendParams{
		To:       user.Email,
		Subject:  "Password Reset - FeedForward",
		BodyHTML: body,
		Tag:      "reset-password",
	})
}
