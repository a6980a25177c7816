package mail

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/neomorfeo/secretsanta/internal/domain"
)

// Message is one rendered notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

var (
	subjectTmpl = template.Must(template.New("subject").Parse(
		`Secret Santa{{with .Session}}: {{.}}{{end}}`))

	bodyTmpl = template.Must(template.New("body").Parse(`Hi {{.Giver.Name}},

You are the Secret Santa for {{.Recipient.Name}} ({{.Recipient.Email}}).

Keep it a secret!
`))
)

type messageData struct {
	Session   string
	Giver     domain.Participant
	Recipient domain.Participant
}

func render(sessionName string, a domain.Assignment) (Message, error) {
	data := messageData{Session: sessionName, Giver: a.Giver, Recipient: a.Recipient}

	var subject, body bytes.Buffer
	if err := subjectTmpl.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("rendering subject: %w", err)
	}
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("rendering body: %w", err)
	}

	return Message{To: a.Giver.Email, Subject: subject.String(), Body: body.String()}, nil
}
