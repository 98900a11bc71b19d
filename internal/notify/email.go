package notify

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/telemetry"

	"github.com/jordan-wright/email"
	"github.com/microcosm-cc/bluemonday"
)

const report_email_send = "email.send"

type EmailConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

func (c EmailConfig) Enabled() bool {
	return c.Server != ""
}

// Email sends payloads over smtp with a plain text and an html body.
type Email struct {
	config EmailConfig
	policy *bluemonday.Policy
	tel    telemetry.API
}

func NewEmail(config EmailConfig, tel telemetry.API) Email {
	assert.NotEmptyStr(config.Server)
	assert.NotNil(tel)

	return Email{
		config: config,
		policy: bluemonday.UGCPolicy(),
		tel:    telemetry.NewScopedAPI("notify", tel),
	}
}

func (e Email) subject(payload Payload) string {
	if payload.Title != "" {
		return payload.Title
	}
	subject, _, _ := strings.Cut(payload.Headline, "\n")
	return subject
}

func (e Email) renderHtml(payload Payload, sentAt time.Time) string {
	var out strings.Builder
	out.WriteString("<div>")
	out.WriteString(fmt.Sprintf("<p>%s</p>", nl2br(payload.Headline)))
	if payload.Title != "" {
		out.WriteString(fmt.Sprintf("<h2>%s</h2>", html.EscapeString(payload.Title)))
	}
	if payload.Description != "" {
		out.WriteString(fmt.Sprintf("<p>%s</p>", nl2br(payload.Description)))
	}
	if len(payload.Blocks) > 0 {
		out.WriteString("<ul>")
		for _, b := range payload.Blocks {
			out.WriteString(fmt.Sprintf(
				"<li><h3>%s</h3><p>%s</p></li>",
				html.EscapeString(b.Title),
				boldMarkdown(nl2br(b.Body)),
			))
		}
		out.WriteString("</ul>")
	}
	out.WriteString(fmt.Sprintf("<p><small>%s</small></p>", html.EscapeString(sentAt.Format(time.DateTime))))
	out.WriteString("</div>")

	// scraped text ends up in here, never trust it to be inert.
	return e.policy.Sanitize(out.String())
}

func nl2br(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}

// boldMarkdown turns **x** pairs into <strong>x</strong>.
func boldMarkdown(s string) string {
	parts := strings.Split(s, "**")
	if len(parts)%2 == 0 {
		return s
	}
	var out strings.Builder
	for i, p := range parts {
		if i%2 == 1 {
			out.WriteString("<strong>")
			out.WriteString(p)
			out.WriteString("</strong>")
			continue
		}
		out.WriteString(p)
	}
	return out.String()
}

func (e Email) Send(ctx context.Context, payload Payload, sentAt time.Time) error {
	if len(e.config.To) == 0 {
		return fmt.Errorf("email: no recipients configured")
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("gradewatch <%s>", e.config.EmailAddress)
	mail.To = e.config.To
	mail.Subject = e.subject(payload)
	mail.Text = []byte(payload.PlainText())
	mail.HTML = []byte(e.renderHtml(payload, sentAt))

	addr := fmt.Sprintf("%s:%d", e.config.Server, e.config.Port)
	err := mail.Send(addr, smtp.PlainAuth("", e.config.EmailAddress, e.config.Password, e.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		e.tel.ReportBroken(report_email_send, err, addr)
		return fmt.Errorf("email: %w", err)
	}

	e.tel.ReportDebug("email sent", addr, len(e.config.To))
	return nil
}
