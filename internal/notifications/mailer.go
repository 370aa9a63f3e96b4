package notifications

import (
	"fmt"
	"net/smtp"
	"strings"

	"docflow/internal/middleware"
)

// Mailer sends transactional mail over SMTP. When the host is unset the
// mailer is disabled and every Send is a silent no-op, so environments
// without mail configuration keep working.
type Mailer struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewMailer creates a Mailer from SMTP settings.
func NewMailer(host, port, user, pass string) *Mailer {
	from := user
	if from == "" {
		from = "docflow@localhost"
	}
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from}
}

// Enabled reports whether SMTP is configured.
func (m *Mailer) Enabled() bool {
	return m != nil && m.host != ""
}

// Send delivers a plain-text mail to the recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if !m.Enabled() {
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

// SendAsync fires the mail in the background and records failures without
// surfacing them.
func (m *Mailer) SendAsync(to, subject, body string) {
	if !m.Enabled() {
		return
	}
	go func() {
		if err := m.Send(to, subject, body); err != nil {
			middleware.SideChannelFailures.WithLabelValues("smtp").Inc()
			middleware.Logger.Warn("mail delivery failed", "to", to, "error", err)
		}
	}()
}
