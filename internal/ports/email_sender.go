package ports

import "context"

// Message is an outbound email with HTML and text parts / Email sortant avec parties HTML et texte
type Message struct {
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// EmailSender sends emails / Envoie des emails
type EmailSender interface {
	// Send delivers a multipart message / Envoie un message multipart
	Send(ctx context.Context, msg Message) error
}
