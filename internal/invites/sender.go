package invites

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

// EmailSender delivers invites to off-platform targets over SMTP.
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailSender(host string, port int, username, password, from string) *EmailSender {
	dialer := gomail.NewDialer(host, port, username, password)
	return &EmailSender{
		dialer: dialer,
		from:   from,
	}
}

var inviteTemplate = template.Must(template.New("invite").Parse(`
<html>
<body>
  <p>{{.InviterName}} wants you on Bakchod.</p>
  {{if .Note}}<p>"{{.Note}}"</p>{{end}}
  <p><a href="{{.JoinURL}}">Join the party</a></p>
</body>
</html>`))

func (s *EmailSender) SendInvite(to, inviterName, note, joinURL string) error {
	var body bytes.Buffer
	err := inviteTemplate.Execute(&body, map[string]string{
		"InviterName": inviterName,
		"Note":        note,
		"JoinURL":     joinURL,
	})
	if err != nil {
		return fmt.Errorf("failed to render invite email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "You're invited to Bakchod")
	m.SetBody("text/html", body.String())

	return s.dialer.DialAndSend(m)
}
