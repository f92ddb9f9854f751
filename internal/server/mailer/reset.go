package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// ResetSubject is the subject line of password reset mails.
const ResetSubject = "Password Reset Request - NeuroRecall"

var resetHTML = template.Must(template.New("reset").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Password Reset Request</h2>
  <p>Hello {{.UserName}},</p>
  <p>We received a request to reset your NeuroRecall password.</p>
  <p><a href="{{.Link}}" style="padding: 10px 20px; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 4px;">Reset Password</a></p>
  <p>This link will expire in {{.Minutes}} minutes.</p>
  <p>If you did not request a password reset, please ignore this email.</p>
</body>
</html>`))

// ResetMessage builds the password reset mail for a user.
func ResetMessage(to, userName, link string, validFor time.Duration) (Message, error) {
	minutes := int(validFor.Minutes())
	data := struct {
		UserName, Link string
		Minutes        int
	}{userName, link, minutes}

	var html bytes.Buffer
	if err := resetHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}

	text := fmt.Sprintf("Hello %s,\n\n"+
		"We received a request to reset your NeuroRecall password.\n"+
		"Open the following link to choose a new password:\n\n%s\n\n"+
		"This link will expire in %d minutes.\n"+
		"If you did not request a password reset, please ignore this email.\n",
		userName, link, minutes)

	return Message{To: to, Subject: ResetSubject, Text: text, HTML: html.String()}, nil
}
