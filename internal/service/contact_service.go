package service

import (
	"context"
	"html"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/richblaalid/chuckbox/internal/config"
)

// ContactService forwards the public contact form / Transmet le formulaire de contact
type ContactService struct {
	mailer *Mailer
	conf   *config.Config
	policy *bluemonday.Policy
}

// NewContactService creates the contact service / Crée le service de contact
func NewContactService(mailer *Mailer, conf *config.Config) *ContactService {
	return &ContactService{mailer: mailer, conf: conf, policy: bluemonday.StrictPolicy()}
}

// sanitize strips markup and unescapes the entities the policy produced.
func (s *ContactService) sanitize(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}

// Contact sends a visitor message to the team inbox / Envoie un message à l'équipe
func (s *ContactService) Contact(ctx context.Context, name, email, message string) error {
	name = s.sanitize(name)
	message = s.sanitize(message)
	email = normalizeEmail(email)

	if name == "" || utf8.RuneCountInString(name) > 100 {
		return invalid("name is required and limited to 100 characters")
	}
	if !isValidEmail(email) {
		return invalid("a valid email is required")
	}
	maxLen := s.conf.Contact.MaxMessageLength
	if maxLen <= 0 {
		maxLen = 5000
	}
	if message == "" || utf8.RuneCountInString(message) > maxLen {
		return invalid("message is required and limited to %d characters", maxLen)
	}

	if err := s.mailer.Send(ctx, TemplateContact, s.conf.Contact.To, email, contactEmail{
		Name:    name,
		Email:   email,
		Message: message,
	}); err != nil {
		slog.Error("contact message not delivered", "from", email, "err", err)
		return err
	}
	return nil
}
