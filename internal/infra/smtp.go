package infra

import (
	"bytes"
	"errors"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

var ErrSemDestinatarios = errors.New("mailer: no recipients")

type MailerConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Mailer sends report emails over SMTP.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func NewMailer(cfg MailerConfig) *Mailer {
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &Mailer{
		host:     cfg.Host,
		user:     cfg.User,
		password: cfg.Password,
		from:     from,
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
}

// Configurado reports whether an SMTP host was provided.
func (m *Mailer) Configurado() bool { return m.host != "" }

// Anexo is an in-memory attachment.
type Anexo struct {
	Nome        string
	ContentType string
	Conteudo    []byte
}

// EnviarComAnexo sends a plain-text email with optional attachments.
func (m *Mailer) EnviarComAnexo(to []string, subject, body string, anexos ...Anexo) error {
	if len(to) == 0 {
		return ErrSemDestinatarios
	}
	e := m.montar(to, subject, body)
	for _, a := range anexos {
		if _, err := e.Attach(bytes.NewReader(a.Conteudo), a.Nome, a.ContentType); err != nil {
			return fmt.Errorf("mailer: attach %s: %w", a.Nome, err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := e.Send(m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

func (m *Mailer) montar(to []string, subject, body string) *email.Email {
	e := email.NewEmail()
	e.From = m.from
	e.To = to
	e.Subject = subject
	e.Text = []byte(body)
	return e
}
