package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"text/template"

	"github.com/parklistmc/parklist/util"
)

//go:embed templates
var templateFS embed.FS

// Sender delivers templated mail.
type Sender interface {
	Send(recipient string, data any, templateFile string) error
}

type Mailer struct {
	host     string
	port     int
	username string
	password string
	sender   string
}

func NewMailer(host string, port int, username, password, sender string) *Mailer {
	return &Mailer{host: host, port: port, username: username, password: password, sender: sender}
}

type message struct {
	subject string
	plain   string
	html    string
}

func render(data any, templateFile string) (message, error) {
	var msg message

	tmpl, err := template.New("email").Funcs(template.FuncMap(util.TemplateFuncs)).ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return msg, err
	}
	subject := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return msg, err
	}
	plain := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(plain, "plainBody", data); err != nil {
		return msg, err
	}

	htmlTmpl, err := htmltemplate.New("email").Funcs(util.TemplateFuncs).ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return msg, err
	}
	html := new(bytes.Buffer)
	if err := htmlTmpl.ExecuteTemplate(html, "htmlBody", data); err != nil {
		return msg, err
	}

	msg.subject = subject.String()
	msg.plain = plain.String()
	msg.html = html.String()
	return msg, nil
}

func (m *Mailer) Send(recipient string, data any, templateFile string) error {
	msg, err := render(data, templateFile)
	if err != nil {
		return err
	}

	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	fmt.Fprintf(body, "From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%s\r\n\r\n",
		m.sender, recipient, msg.subject, w.Boundary())
	for _, part := range []struct{ ctype, text string }{
		{"text/plain; charset=UTF-8", msg.plain},
		{"text/html; charset=UTF-8", msg.html},
	} {
		pw, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
		if err != nil {
			return err
		}
		if _, err := pw.Write([]byte(part.text)); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	return smtp.SendMail(addr, auth, m.sender, []string{recipient}, body.Bytes())
}

// LogMailer writes mail to the log instead of sending it. Used in
// development or when AUTH_EMAIL_LOG is set.
type LogMailer struct {
	Logger *slog.Logger
}

func (l LogMailer) Send(recipient string, data any, templateFile string) error {
	msg, err := render(data, templateFile)
	if err != nil {
		return err
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("email not sent, logging instead", "to", recipient, "subject", msg.subject, "body", msg.plain)
	return nil
}

// DisabledMailer drops mail with a warning. Used in production when no
// SMTP server is configured.
type DisabledMailer struct {
	Logger *slog.Logger
}

func (d DisabledMailer) Send(recipient string, _ any, templateFile string) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("email delivery is not configured, dropping message", "template", templateFile)
	return nil
}
