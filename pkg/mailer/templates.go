package mailer

import (
	"fmt"
	"html"
	"strings"
)

// Recipient identifies the person an account email is addressed to.
type Recipient struct {
	Email     string
	FirstName string
	LastName  string
}

func (r Recipient) displayName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

func (r Recipient) greeting() string {
	if r.FirstName == "" {
		return "Hello"
	}
	return "Hello " + r.FirstName
}

// AccountApproved builds the notification sent when an administrator approves a registration.
func AccountApproved(to Recipient) Message {
	text := fmt.Sprintf("%s,\n\nYour RentQuote account has been approved. You can now sign in and start preparing quotes.\n", to.greeting())
	return Message{
		ToEmail:   to.Email,
		ToName:    to.displayName(),
		Subject:   "Your RentQuote account is approved",
		PlainText: text,
		HTML:      "<p>" + html.EscapeString(to.greeting()) + ",</p><p>Your RentQuote account has been approved. You can now sign in and start preparing quotes.</p>",
	}
}

// AccountRejected builds the notification sent when a registration is declined.
func AccountRejected(to Recipient, reason string) Message {
	text := fmt.Sprintf("%s,\n\nYour RentQuote account request was not approved.", to.greeting())
	body := "<p>" + html.EscapeString(to.greeting()) + ",</p><p>Your RentQuote account request was not approved.</p>"
	if reason = strings.TrimSpace(reason); reason != "" {
		text += "\n\nReason: " + reason
		body += "<p>Reason: " + html.EscapeString(reason) + "</p>"
	}
	return Message{
		ToEmail:   to.Email,
		ToName:    to.displayName(),
		Subject:   "Your RentQuote account request",
		PlainText: text + "\n",
		HTML:      body,
	}
}
