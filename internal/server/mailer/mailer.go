// Package mailer delivers account notifications. The default LogMailer only
// renders the messages and writes them to the structured log.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"text/template"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type Mailer interface {
	SendResetPassword(ctx context.Context, user *models.User, token string) error
	SendPassword(ctx context.Context, user *models.User, password string) error
}

// Message is a rendered notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

var (
	resetPasswordTemplate = template.Must(template.New("reset").Parse(
		"Hello {{.User.Firstname}},\n\nFollow this link to choose a new password:\n{{.Link}}\n"))
	passwordTemplate = template.Must(template.New("password").Parse(
		"Hello {{.User.Firstname}},\n\nAn account was created for {{.User.Email}}.\nYour password is: {{.Password}}\n"))
)

// RenderResetPassword builds the reset mail; the token is appended to
// resetURL as the token query parameter.
func RenderResetPassword(user *models.User, resetURL, token string) (*Message, error) {
	link, err := url.Parse(resetURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing reset url: %v", err)
	}
	q := link.Query()
	q.Set("token", token)
	link.RawQuery = q.Encode()

	body, err := render(resetPasswordTemplate, map[string]any{"User": user, "Link": link.String()})
	if err != nil {
		return nil, err
	}
	return &Message{To: user.Email, Subject: "Reset your password", Body: body}, nil
}

func RenderPassword(user *models.User, password string) (*Message, error) {
	body, err := render(passwordTemplate, map[string]any{"User": user, "Password": password})
	if err != nil {
		return nil, err
	}
	return &Message{To: user.Email, Subject: "Your account password", Body: body}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("error rendering %s mail: %v", t.Name(), err)
	}
	return buf.String(), nil
}

// LogMailer logs rendered messages instead of sending them. Bodies carrying
// a password are never logged.
type LogMailer struct {
	log      logging.Logger
	resetURL string
}

func NewLogMailer(log logging.Logger, resetURL string) *LogMailer {
	return &LogMailer{log: log.With("module", "mailer"), resetURL: resetURL}
}

func (m *LogMailer) SendResetPassword(ctx context.Context, user *models.User, token string) error {
	msg, err := RenderResetPassword(user, m.resetURL, token)
	if err != nil {
		return err
	}
	m.log.Info(ctx, "mail sent", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}

func (m *LogMailer) SendPassword(ctx context.Context, user *models.User, password string) error {
	msg, err := RenderPassword(user, password)
	if err != nil {
		return err
	}
	m.log.Info(ctx, "mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}
