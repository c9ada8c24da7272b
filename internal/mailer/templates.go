package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
}

var (
	verifyTmpl = template.Must(template.New("verify").Parse(
		`<div><p>Click on the link below to verify your email</p><a href="{{.}}">Verify</a></div>`))
	resetTmpl = template.Must(template.New("reset").Parse(
		`<a href="{{.}}">Click here to reset your password</a>`))
)

// Links builds the client-side URLs mailed to users.
type Links struct {
	clientDomain string
}

func NewLinks(clientDomain string) *Links {
	return &Links{clientDomain: strings.TrimSuffix(clientDomain, "/")}
}

// Verification returns <client>/users/<userID>/verify/<token>.
func (l *Links) Verification(userID, token string) string {
	return l.clientDomain + "/users/" + url.PathEscape(userID) + "/verify/" + url.PathEscape(token)
}

// Reset returns <client>/reset-password/<userID>/<token>.
func (l *Links) Reset(userID, token string) string {
	return l.clientDomain + "/reset-password/" + url.PathEscape(userID) + "/" + url.PathEscape(token)
}

// VerificationEmail renders the "verify your email" message for link.
func VerificationEmail(link string) (Message, error) {
	return render(verifyTmpl, "Verify Your Email", link)
}

// ResetEmail renders the password reset message for link.
func ResetEmail(link string) (Message, error) {
	return render(resetTmpl, "Reset Password", link)
}

func render(t *template.Template, subject, link string) (Message, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, link); err != nil {
		return Message{}, fmt.Errorf("mailer: rendering %s: %w", t.Name(), err)
	}
	return Message{Subject: subject, HTML: buf.String()}, nil
}
