package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/messaging"
)

// RenderedEmail is a ready-to-send message.
type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

type emailTemplate struct {
	subject string
	html    *template.Template
	text    *texttemplate.Template
}

var templates = map[messaging.EmailKind]emailTemplate{
	messaging.EmailKindJourneyReady: {
		subject: "Your 7-day hypnosis journey is ready",
		html: template.Must(template.New("ready.html").Parse(`<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
<p>Your new journey is ready to listen to.</p>
{{if .Goal}}<p><em>{{.Goal}}</em></p>{{end}}
<p><a href="{{.Link}}">Start day 1</a></p>`)),
		text: texttemplate.Must(texttemplate.New("ready.txt").Parse(`Hi {{if .Name}}{{.Name}}{{else}}there{{end}},

Your new journey is ready to listen to.
{{if .Goal}}
"{{.Goal}}"
{{end}}
Start day 1: {{.Link}}
`)),
	},
	messaging.EmailKindJourneyFailed: {
		subject: "Journey generation failed",
		html: template.Must(template.New("failed.html").Parse(`<p>Generation failed for journey <code>{{.JourneyID}}</code> (user <code>{{.UserID}}</code>{{if .Name}}, {{.Name}}{{end}}).</p>
<p><strong>Error:</strong> {{.ErrorMessage}}</p>
{{if .ErrorDetails}}<pre>{{printf "%s" .ErrorDetails}}</pre>{{end}}
<p><a href="{{.Link}}">{{.Link}}</a></p>`)),
		text: texttemplate.Must(texttemplate.New("failed.txt").Parse(`Generation failed for journey {{.JourneyID}} (user {{.UserID}}{{if .Name}}, {{.Name}}{{end}}).

Error: {{.ErrorMessage}}
{{if .ErrorDetails}}
Details: {{printf "%s" .ErrorDetails}}
{{end}}
{{.Link}}
`)),
	},
}

// Render builds the subject and both bodies for payload.
func Render(payload messaging.EmailNotificationPayload) (*RenderedEmail, error) {
	tpl, ok := templates[payload.Kind]
	if !ok {
		return nil, fmt.Errorf("no template for e-mail kind %q", payload.Kind)
	}
	var html, text bytes.Buffer
	if err := tpl.html.Execute(&html, payload); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}
	if err := tpl.text.Execute(&text, payload); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}
	return &RenderedEmail{
		Subject: tpl.subject,
		HTML:    html.String(),
		Text:    strings.TrimSpace(text.String()) + "\n",
	}, nil
}
