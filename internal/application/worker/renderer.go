package worker

import (
	"bytes"
	"fmt"
	"html/template"

	config "github.com/eloquentlog/montafon/configs"
)

const identificationTemplate = `<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #222;">
    <h2>Verify your email address</h2>
    <p>Hi,</p>
    <p>
      Please confirm that you own this email address by clicking the link
      below. The link is valid for a limited time and can be used once.
    </p>
    <p>
      <a href="{{.VerificationURL}}">Verify email address</a>
    </p>
    <p>If you did not request this, you can ignore this message.</p>
    <p>&mdash; {{.CompanyName}}</p>
  </body>
</html>
`

// identificationEmailData holds data for the identification email template.
type identificationEmailData struct {
	CompanyName     string
	VerificationURL string
}

// Renderer renders identification emails from a job payload snapshot.
type Renderer struct {
	cfg  *config.EmailConfig
	tmpl *template.Template
}

func NewRenderer(cfg *config.EmailConfig) (*Renderer, error) {
	tmpl, err := template.New("identification").Parse(identificationTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identification email template: %w", err)
	}
	return &Renderer{cfg: cfg, tmpl: tmpl}, nil
}

// Render produces the subject and HTML body for a verification link built
// from the record id and token.
func (r *Renderer) Render(recordID int64, token string) (subject, body string, err error) {
	data := identificationEmailData{
		CompanyName:     r.cfg.CompanyName,
		VerificationURL: fmt.Sprintf("%s/api/v1/identification/%d/verify?token=%s", r.cfg.BaseURL, recordID, token),
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render identification email: %w", err)
	}

	subject = fmt.Sprintf("Verify Your Email Address - %s", r.cfg.CompanyName)
	return subject, buf.String(), nil
}
