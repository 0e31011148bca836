package service

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htemplate "html/template"
	"log/slog"
	"strings"
	"sync"
	ttemplate "text/template"
	"time"

	"github.com/richblaalid/chuckbox/internal/ports"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Email template names / Noms des modèles d'email
const (
	TemplateVerification   = "verification"
	TemplatePasswordReset  = "password_reset"
	TemplateInvite         = "invite"
	TemplatePaymentReceipt = "payment_receipt"
	TemplateBillingNotice  = "billing_notice"
	TemplateContact        = "contact"
)

var templateNames = []string{
	TemplateVerification,
	TemplatePasswordReset,
	TemplateInvite,
	TemplatePaymentReceipt,
	TemplateBillingNotice,
	TemplateContact,
}

// sendTimeout bounds one asynchronous delivery
const sendTimeout = 30 * time.Second

type mailTemplate struct {
	html *htemplate.Template
	text *ttemplate.Template
}

// Mailer renders template pairs and sends them / Rend les modèles et les envoie
type Mailer struct {
	sender    ports.EmailSender
	templates map[string]mailTemplate
	metrics   MailMetricsRecorder
	wg        sync.WaitGroup
}

// NewMailer parses the embedded templates / Analyse les modèles embarqués
func NewMailer(sender ports.EmailSender, metrics MailMetricsRecorder) (*Mailer, error) {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	m := &Mailer{
		sender:    sender,
		templates: make(map[string]mailTemplate, len(templateNames)),
		metrics:   metrics,
	}
	for _, name := range templateNames {
		h, err := htemplate.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s html template: %w", name, err)
		}
		t, err := ttemplate.ParseFS(templateFS, "templates/"+name+".txt")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s text template: %w", name, err)
		}
		if t.Lookup("subject") == nil {
			return nil, fmt.Errorf("template %s has no subject", name)
		}
		m.templates[name] = mailTemplate{html: h, text: t}
	}
	return m, nil
}

// Render builds the message for a template / Construit le message d'un modèle
func (m *Mailer) Render(name string, data any) (ports.Message, error) {
	tmpl, ok := m.templates[name]
	if !ok {
		return ports.Message{}, fmt.Errorf("unknown email template %q", name)
	}

	var subject, text, html bytes.Buffer
	if err := tmpl.text.ExecuteTemplate(&subject, "subject", data); err != nil {
		return ports.Message{}, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := tmpl.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return ports.Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := tmpl.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return ports.Message{}, fmt.Errorf("render %s html: %w", name, err)
	}

	return ports.Message{
		Subject: strings.TrimSpace(subject.String()),
		Text:    strings.TrimSpace(text.String()) + "\n",
		HTML:    html.String(),
	}, nil
}

// Send renders and delivers a message synchronously / Rend et envoie un message
func (m *Mailer) Send(ctx context.Context, name, to, replyTo string, data any) error {
	msg, err := m.Render(name, data)
	if err != nil {
		m.metrics.RecordEmail(name, "render_error")
		return err
	}
	msg.To = to
	msg.ReplyTo = replyTo

	if err := m.sender.Send(ctx, msg); err != nil {
		m.metrics.RecordEmail(name, "error")
		return fmt.Errorf("send %s email: %w", name, err)
	}
	m.metrics.RecordEmail(name, "sent")
	return nil
}

// SendAsync delivers in the background with a timeout / Envoie en arrière-plan avec délai
func (m *Mailer) SendAsync(name, to string, data any) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := m.Send(ctx, name, to, "", data); err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				slog.Error("email send timed out", "template", name, "email", to, "timeout", sendTimeout.String())
				return
			}
			slog.Error("failed to send email", "template", name, "email", to, "err", err)
			return
		}
		slog.Info("email sent", "template", name, "email", to)
	}()
}

// Wait blocks until background sends finish / Attend la fin des envois en cours
func (m *Mailer) Wait() {
	m.wg.Wait()
}

// Template payloads / Données des modèles

type verificationEmail struct {
	Email           string
	VerificationURL string
	Duration        string
}

type passwordResetEmail struct {
	Email    string
	ResetURL string
}

type inviteEmail struct {
	Email       string
	UnitName    string
	InviterName string
	Role        string
	AcceptURL   string
	ExpiresAt   string
}

type paymentReceiptEmail struct {
	UnitName   string
	ScoutName  string
	Amount     string
	Fee        string
	Method     string
	Date       string
	Reference  string
	ReceiptURL string
}

type billingNoticeEmail struct {
	GuardianName string
	UnitName     string
	ScoutName    string
	Description  string
	Amount       string
	DueDate      string
	PayURL       string
}

type contactEmail struct {
	Name    string
	Email   string
	Message string
}
