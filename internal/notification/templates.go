package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

type Template string

const (
	TemplateConfirmation   Template = "confirmation"
	TemplateApproval       Template = "approval"
	TemplateRejection      Template = "rejection"
	TemplateReminder       Template = "reminder"
	TemplateResumeLink     Template = "resume_link"
	TemplatePaymentReceipt Template = "payment_receipt"
)

// Data feeds every template; each template reads only the fields it needs.
type Data struct {
	Name            string
	ReferenceNumber string
	TrackURL        string
	ResumeURL       string
	ContinueURL     string
	ExpiresAt       string
	Amount          string
	Currency        string
	Reason          string
	Completion      int
}

// Message is a rendered email.
type Message struct {
	To       string   `json:"to"`
	Template Template `json:"template"`
	Subject  string   `json:"subject"`
	Text     string   `json:"text"`
	HTML     string   `json:"html"`
}

type templateSource struct {
	subject string
	text    string
	html    string
}

var sources = map[Template]templateSource{
	TemplateConfirmation: {
		subject: "UK ETA application received - {{.ReferenceNumber}}",
		text: `Dear {{.Name}},

We have received your UK Electronic Travel Authorisation application.

Reference number: {{.ReferenceNumber}}

Most applications are decided within 3 working days. You can check progress at {{.TrackURL}}.
`,
		html: `<p>Dear {{.Name}},</p>
<p>We have received your UK Electronic Travel Authorisation application.</p>
<p><strong>Reference number:</strong> {{.ReferenceNumber}}</p>
<p>Most applications are decided within 3 working days. <a href="{{.TrackURL}}">Track your application</a>.</p>
`,
	},
	TemplateApproval: {
		subject: "UK ETA approved - {{.ReferenceNumber}}",
		text: `Dear {{.Name}},

Your UK Electronic Travel Authorisation ({{.ReferenceNumber}}) has been approved.

The ETA is linked to the passport you applied with. You do not need to print this email.
`,
		html: `<p>Dear {{.Name}},</p>
<p>Your UK Electronic Travel Authorisation (<strong>{{.ReferenceNumber}}</strong>) has been approved.</p>
<p>The ETA is linked to the passport you applied with. You do not need to print this email.</p>
`,
	},
	TemplateRejection: {
		subject: "UK ETA decision - {{.ReferenceNumber}}",
		text: `Dear {{.Name}},

We could not grant your UK Electronic Travel Authorisation ({{.ReferenceNumber}}).
{{if .Reason}}
Reason: {{.Reason}}
{{end}}
You may be able to apply for a visa instead.
`,
		html: `<p>Dear {{.Name}},</p>
<p>We could not grant your UK Electronic Travel Authorisation (<strong>{{.ReferenceNumber}}</strong>).</p>
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
<p>You may be able to apply for a visa instead.</p>
`,
	},
	TemplateReminder: {
		subject: "Finish your UK ETA application",
		text: `Dear {{.Name}},

Your UK ETA application is {{.Completion}}% complete. Continue where you left off at {{.ContinueURL}}.
`,
		html: `<p>Dear {{.Name}},</p>
<p>Your UK ETA application is {{.Completion}}% complete. <a href="{{.ContinueURL}}">Continue where you left off</a>.</p>
`,
	},
	TemplateResumeLink: {
		subject: "Your saved UK ETA application",
		text: `Your UK ETA application has been saved.

Resume it on any device at {{.ResumeURL}}

This link expires on {{.ExpiresAt}}.
`,
		html: `<p>Your UK ETA application has been saved.</p>
<p><a href="{{.ResumeURL}}">Resume your application</a> on any device.</p>
<p>This link expires on {{.ExpiresAt}}.</p>
`,
	},
	TemplatePaymentReceipt: {
		subject: "Payment received - {{.ReferenceNumber}}",
		text: `Dear {{.Name}},

We have received your payment of {{.Currency}} {{.Amount}} for application {{.ReferenceNumber}}.
`,
		html: `<p>Dear {{.Name}},</p>
<p>We have received your payment of <strong>{{.Currency}} {{.Amount}}</strong> for application {{.ReferenceNumber}}.</p>
`,
	},
}

type compiled struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

var templates = mustCompile()

func mustCompile() map[Template]compiled {
	out := make(map[Template]compiled, len(sources))
	for name, src := range sources {
		out[name] = compiled{
			subject: texttemplate.Must(texttemplate.New(string(name) + ".subject").Parse(src.subject)),
			text:    texttemplate.Must(texttemplate.New(string(name) + ".text").Parse(src.text)),
			html:    htmltemplate.Must(htmltemplate.New(string(name) + ".html").Parse(src.html)),
		}
	}
	return out
}

// Templates lists every known template name.
func Templates() []Template {
	return []Template{
		TemplateConfirmation, TemplateApproval, TemplateRejection,
		TemplateReminder, TemplateResumeLink, TemplatePaymentReceipt,
	}
}

// Render builds the message for one recipient.
func Render(to string, name Template, data Data) (Message, error) {
	tpl, ok := templates[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown email template %q", name)
	}
	if data.Name == "" {
		data.Name = "Applicant"
	}

	var subject, text, html bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s subject: %w", name, err)
	}
	if err := tpl.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s text: %w", name, err)
	}
	if err := tpl.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s html: %w", name, err)
	}

	return Message{
		To:       to,
		Template: name,
		Subject:  subject.String(),
		Text:     text.String(),
		HTML:     html.String(),
	}, nil
}
