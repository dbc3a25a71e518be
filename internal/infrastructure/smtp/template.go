package smtp

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/verification.html"))
	textTmpl = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/verification.txt"))
)

// Content is the per-deployment part of the verification email.
type Content struct {
	VerifyURL  string
	PrivacyURL string
	Brand      string
}

// message is a rendered verification email.
type message struct {
	Subject string
	Text    string
	HTML    string
}

type templateData struct {
	Code       string
	VerifyLink string
	PrivacyURL string
	Brand      string
}

func subject(code string) string {
	return "Your verification code is " + code
}

// verifyLink appends the recipient's email to the verify page URL.
func verifyLink(base, email string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse verify url: %w", err)
	}
	q := u.Query()
	q.Set("email", email)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func render(c Content, email, code string) (message, error) {
	link, err := verifyLink(c.VerifyURL, email)
	if err != nil {
		return message{}, err
	}
	data := templateData{
		Code:       code,
		VerifyLink: link,
		PrivacyURL: c.PrivacyURL,
		Brand:      c.Brand,
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, data); err != nil {
		return message{}, fmt.Errorf("render text body: %w", err)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return message{}, fmt.Errorf("render html body: %w", err)
	}

	return message{Subject: subject(code), Text: text.String(), HTML: html.String()}, nil
}
