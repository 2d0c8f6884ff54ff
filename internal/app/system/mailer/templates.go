// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// DecisionEmailData describes an admin decision on a project.
type DecisionEmailData struct {
	SiteName    string
	ProjectName string
	Headline    string // e.g. "Your pitch is now live"
	Message     string
	ProjectURL  string
}

// BuildDecisionEmail creates the email sent to an issuer after a lifecycle
// decision on one of their projects. The caller sets To.
func BuildDecisionEmail(data DecisionEmailData) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "%s\n\n", data.Headline)
	fmt.Fprintf(&text, "Project: %s\n\n", data.ProjectName)
	fmt.Fprintf(&text, "%s\n\n", data.Message)
	if data.ProjectURL != "" {
		fmt.Fprintf(&text, "View the project: %s\n", data.ProjectURL)
	}
	return Email{
		Subject:  fmt.Sprintf("%s: %s", data.SiteName, data.Headline),
		TextBody: text.String(),
		HTMLBody: render(decisionTmpl, data),
	}
}

// InvitationEmailData describes an invitation to join a group.
type InvitationEmailData struct {
	SiteName  string
	GroupName string
	FirstName string
	Role      string // issuer | investor
	AcceptURL string
}

// BuildInvitationEmail creates the email carrying an invitation token link.
func BuildInvitationEmail(data InvitationEmailData) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "Hi %s,\n\n", data.FirstName)
	fmt.Fprintf(&text, "%s has invited you to join %s as an %s.\n\n", data.GroupName, data.SiteName, data.Role)
	text.WriteString("Accept the invitation here:\n")
	text.WriteString(data.AcceptURL + "\n\n")
	text.WriteString("If you were not expecting this invitation, you can ignore this email.\n")
	return Email{
		Subject:  fmt.Sprintf("You're invited to %s on %s", data.GroupName, data.SiteName),
		TextBody: text.String(),
		HTMLBody: render(invitationTmpl, data),
	}
}

// SignInEmailData carries a one-time sign-in code and link.
type SignInEmailData struct {
	SiteName  string
	Code      string
	SignInURL string
	ExpiresIn string // e.g. "10 minutes"
}

// BuildSignInEmail creates the email carrying a sign-in code.
func BuildSignInEmail(data SignInEmailData) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "Your %s sign-in code is %s\n\n", data.SiteName, data.Code)
	fmt.Fprintf(&text, "Or sign in with this link:\n%s\n\n", data.SignInURL)
	fmt.Fprintf(&text, "The code and link expire in %s.\n", data.ExpiresIn)
	return Email{
		Subject:  fmt.Sprintf("%s sign-in code: %s", data.SiteName, data.Code),
		TextBody: text.String(),
		HTMLBody: render(signInTmpl, data),
	}
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return buf.String()
}

var (
	decisionTmpl   = template.Must(template.New("decision").Parse(layoutStart + decisionBody + layoutEnd))
	invitationTmpl = template.Must(template.New("invitation").Parse(layoutStart + invitationBody + layoutEnd))
	signInTmpl     = template.Must(template.New("signin").Parse(layoutStart + signInBody + layoutEnd))
)

const layoutStart = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 520px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 22px; font-weight: 600; color: #0f766e;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
`

const layoutEnd = `
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

const decisionBody = `
              <h2 style="margin: 0 0 16px; font-size: 18px; color: #1f2937;">{{.Headline}}</h2>
              <p style="margin: 0 0 8px; font-size: 14px; color: #6b7280;">{{.ProjectName}}</p>
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">{{.Message}}</p>
              {{if .ProjectURL}}
              <a href="{{.ProjectURL}}" style="display: inline-block; padding: 12px 28px; background-color: #0f766e; color: #ffffff; text-decoration: none; border-radius: 6px;">View project</a>
              {{end}}`

const invitationBody = `
              <p style="margin: 0 0 16px; font-size: 16px; color: #374151;">Hi {{.FirstName}},</p>
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                {{.GroupName}} has invited you to join as an {{.Role}}.
              </p>
              <a href="{{.AcceptURL}}" style="display: inline-block; padding: 12px 28px; background-color: #0f766e; color: #ffffff; text-decoration: none; border-radius: 6px;">Accept invitation</a>
              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af;">If you were not expecting this invitation, you can ignore this email.</p>`

const signInBody = `
              <p style="margin: 0 0 16px; font-size: 16px; color: #374151;">Your sign-in code:</p>
              <p style="margin: 0 0 24px; font-size: 32px; font-weight: 600; letter-spacing: 6px; color: #1f2937;">{{.Code}}</p>
              <a href="{{.SignInURL}}" style="display: inline-block; padding: 12px 28px; background-color: #0f766e; color: #ffffff; text-decoration: none; border-radius: 6px;">Sign in</a>
              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af;">The code and link expire in {{.ExpiresIn}}.</p>`
