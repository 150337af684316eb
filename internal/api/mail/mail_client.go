package mail

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"

	"github.com/ilyakaznacheev/cleanenv"
	gomail "github.com/wneessen/go-mail"

	"bookmarker/internal/config"
)

const (
	KindVerification  = "verification"
	KindPasswordReset = "password_reset"
)

// MailTemplate is a working template for mail constructing
type MailTemplate struct {
	Verification  Template `json:"verification"`
	PasswordReset Template `json:"password_reset"`
}

type Template struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
	Html    string `json:"html"`
}

// Sender delivers built messages, *gomail.Client satisfies it
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// Observer is notified about every delivery attempt
type Observer interface {
	ObserveEmail(kind string, err error)
}

type compiled struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// MailClient for sending verification and password reset mails to user
type MailClient struct {
	sender    Sender
	from      string
	templates map[string]compiled
	observer  Observer
	logger    *slog.Logger
}

// NewMailClient builds an SMTP client from config and loads the template file
func NewMailClient(logger *slog.Logger, cfg *config.MailConfig) (*MailClient, error) {
	const op = "mail.NewMailClient"

	log := logger.With(slog.String("op", op), slog.String("host", cfg.Host), slog.Int("port", cfg.Port))

	opts := []gomail.Option{gomail.WithPort(cfg.Port)}
	if cfg.TLS {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		log.Error("failed to create smtp client", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tpl, err := LoadTemplate(cfg.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("mail client is ready")
	return New(logger, client, cfg.From, tpl)
}

// LoadTemplate reads the mail template json file
func LoadTemplate(path string) (*MailTemplate, error) {
	var tpl MailTemplate
	if err := cleanenv.ReadConfig(path, &tpl); err != nil {
		return nil, fmt.Errorf("read mail template %q: %w", path, err)
	}
	return &tpl, nil
}

func New(logger *slog.Logger, sender Sender, from string, tpl *MailTemplate) (*MailClient, error) {
	templates := make(map[string]compiled, 2)
	for kind, t := range map[string]Template{
		KindVerification:  tpl.Verification,
		KindPasswordReset: tpl.PasswordReset,
	} {
		text, err := texttemplate.New(kind).Parse(t.Text)
		if err != nil {
			return nil, fmt.Errorf("parse %s text template: %w", kind, err)
		}
		html, err := htmltemplate.New(kind).Parse(t.Html)
		if err != nil {
			return nil, fmt.Errorf("parse %s html template: %w", kind, err)
		}
		templates[kind] = compiled{subject: t.Subject, text: text, html: html}
	}

	return &MailClient{
		sender:    sender,
		from:      from,
		templates: templates,
		logger:    logger,
	}, nil
}

func (c *MailClient) WithObserver(o Observer) *MailClient {
	c.observer = o
	return c
}

// SendVerificationMail sends verification mail to a user
func (c *MailClient) SendVerificationMail(ctx context.Context, emailTo string, username string, link string) error {
	return c.send(ctx, KindVerification, emailTo, map[string]string{
		"Username": username,
		"Link":     link,
	})
}

// SendPasswordResetMail sends the temporary password to a user
func (c *MailClient) SendPasswordResetMail(ctx context.Context, emailTo string, username string, password string) error {
	return c.send(ctx, KindPasswordReset, emailTo, map[string]string{
		"Username": username,
		"Password": password,
	})
}

func (c *MailClient) send(ctx context.Context, kind string, to string, data map[string]string) (err error) {
	const op = "mail.send"

	log := c.logger.With(slog.String("op", op), slog.String("kind", kind))
	defer func() {
		if c.observer != nil {
			c.observer.ObserveEmail(kind, err)
		}
	}()

	msg, err := c.Build(kind, to, data)
	if err != nil {
		log.Error("failed to build mail", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.sender.DialAndSendWithContext(ctx, msg); err != nil {
		log.Error("failed to send mail", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Debug("mail sent")
	return nil
}

// Build renders the template of kind into a message addressed to 'to'
func (c *MailClient) Build(kind string, to string, data any) (*gomail.Msg, error) {
	tpl, ok := c.templates[kind]
	if !ok {
		return nil, fmt.Errorf("unknown mail kind %q", kind)
	}

	msg := gomail.NewMsg()
	if err := msg.From(c.from); err != nil {
		return nil, err
	}
	if err := msg.To(to); err != nil {
		return nil, err
	}
	msg.Subject(tpl.subject)
	if err := msg.SetBodyTextTemplate(tpl.text, data); err != nil {
		return nil, err
	}
	if err := msg.AddAlternativeHTMLTemplate(tpl.html, data); err != nil {
		return nil, err
	}
	return msg, nil
}
