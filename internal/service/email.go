package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"

	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/ports"
)

var _ ports.EmailSender = (*EmailService)(nil)

// EmailService delivers messages over SMTP / Envoie les messages via SMTP
type EmailService struct {
	cfg config.SMTPConfig
}

// NewEmailService creates email service with config validation / Crée le service email avec validation de la config
func NewEmailService(cfg config.SMTPConfig) (*EmailService, error) {
	// Default to a local catcher such as MailHog / Par défaut un serveur local de test
	if cfg.Host == "" {
		cfg.Host = "localhost"
		cfg.Port = 1025
		if cfg.From == "" {
			cfg.From = "chuckbox@localhost"
		}
	}

	if !cfg.IsLocalCatcher() {
		if err := validateSMTPConfig(cfg); err != nil {
			return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
		}
	}

	return &EmailService{cfg: cfg}, nil
}

// validateSMTPConfig validates SMTP settings / Valide les paramètres SMTP
func validateSMTPConfig(smtp config.SMTPConfig) error {
	if smtp.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if smtp.Port <= 0 || smtp.Port > 65535 {
		return fmt.Errorf("SMTP port must be between 1 and 65535")
	}
	if smtp.From == "" {
		return fmt.Errorf("SMTP from address is required")
	}
	// Username/Password can be empty for unauthenticated relays
	return nil
}

// buildMessage renders a multipart/alternative MIME message / Construit un message MIME multipart
func buildMessage(from string, msg ports.Message) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	headers := [][2]string{
		{"From", from},
		{"To", msg.To},
		{"Subject", mime.BEncoding.Encode("utf-8", msg.Subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", mw.Boundary())},
	}
	if msg.ReplyTo != "" {
		headers = append(headers, [2]string{"Reply-To", msg.ReplyTo})
	}
	for _, h := range headers {
		fmt.Fprintf(&out, "%s: %s\r\n", h[0], h[1])
	}
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// Send delivers a multipart message / Envoie un message multipart
func (e *EmailService) Send(ctx context.Context, msg ports.Message) error {
	raw, err := buildMessage(e.cfg.From, msg)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)

	if e.cfg.IsLocalCatcher() {
		ch := make(chan error, 1)
		go func() {
			ch <- smtp.SendMail(addr, nil, e.cfg.From, []string{msg.To}, raw)
		}()
		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	tlsConfig := &tls.Config{
		ServerName: e.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}

	// Use context-aware dialer / Utilise un dialer respectant le contexte
	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	conn := tls.Client(rawConn, tlsConfig)
	defer conn.Close()

	if err := conn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return err
	}

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if e.cfg.Username != "" {
		auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
		if err = client.Auth(auth); err != nil {
			return err
		}
	}
	if err = client.Mail(e.cfg.From); err != nil {
		return err
	}
	if err = client.Rcpt(msg.To); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(raw); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
