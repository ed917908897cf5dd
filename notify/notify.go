// Package notify turns moderation events into author emails and admin chat messages.
package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/devnovate/blog/events"
)

// MailSender delivers a plain text email.
type MailSender interface {
	SendMail(to, subject, body string) error
}

// MailFunc adapts a function to MailSender.
type MailFunc func(to, subject, body string) error

func (f MailFunc) SendMail(to, subject, body string) error { return f(to, subject, body) }

// ChatSender posts a message to the admin chat.
type ChatSender interface {
	SendChat(ctx context.Context, text string) error
}

// Dispatcher routes events to the configured channels. Nil senders are skipped.
type Dispatcher struct {
	Mail   MailSender
	Chat   ChatSender
	Logger *zap.Logger
	// SiteURL prefixes links in messages, e.g. "https://blog.example.com".
	SiteURL string
}

// Handle delivers the notifications for e. Event types without a notification are ignored.
func (d *Dispatcher) Handle(ctx context.Context, e events.Event) error {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := e.Payload
	switch e.Type {
	case events.TypePostApproved, events.TypePostRejected:
		if d.Mail == nil {
			return nil
		}
		if p.AuthorEmail == "" {
			logger.Info("author has no email, skipping notification", zap.String("post_id", p.PostID))
			return nil
		}
		subject, body := authorMessage(e, d.SiteURL)
		if err := d.Mail.SendMail(p.AuthorEmail, subject, body); err != nil {
			return fmt.Errorf("email author of %s: %w", p.PostID, err)
		}
		logger.Info("author notified", zap.String("type", e.Type), zap.String("post_id", p.PostID))
	case events.TypePostSubmitted:
		if d.Chat == nil {
			return nil
		}
		if err := d.Chat.SendChat(ctx, adminMessage(e, d.SiteURL)); err != nil {
			return fmt.Errorf("notify admins of %s: %w", p.PostID, err)
		}
		logger.Info("admins notified", zap.String("post_id", p.PostID))
	default:
		logger.Debug("no notification for event", zap.String("type", e.Type))
	}
	return nil
}

func authorMessage(e events.Event, siteURL string) (string, string) {
	p := e.Payload
	name := p.AuthorName
	if name == "" {
		name = "there"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	var subject string
	if e.Type == events.TypePostApproved {
		subject = fmt.Sprintf("Your blog %q has been approved", p.Title)
		fmt.Fprintf(&b, "Good news: your blog %q is now published.\n", p.Title)
		if siteURL != "" {
			fmt.Fprintf(&b, "\nRead it at %s/blog/%s\n", strings.TrimRight(siteURL, "/"), p.PostID)
		}
	} else {
		subject = fmt.Sprintf("Your blog %q needs changes", p.Title)
		fmt.Fprintf(&b, "Your blog %q was not approved.\n", p.Title)
		if p.Feedback != "" {
			fmt.Fprintf(&b, "\nFeedback from the moderators:\n%s\n", p.Feedback)
		}
		b.WriteString("\nYou can edit the post and submit it again.\n")
	}
	return subject, b.String()
}

func adminMessage(e events.Event, siteURL string) string {
	p := e.Payload
	author := p.AuthorName
	if author == "" {
		author = p.AuthorID
	}
	msg := fmt.Sprintf("New blog awaiting review: %q by %s", p.Title, author)
	if siteURL != "" {
		msg += fmt.Sprintf("\n%s/admin", strings.TrimRight(siteURL, "/"))
	}
	return msg
}
