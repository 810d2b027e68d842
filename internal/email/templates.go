package email

import (
	"fmt"
	"html"
)

// ConfirmResetMessage asks the mailbox owner to allow or decline a password
// reset. Both links expire together with the confirm token.
func ConfirmResetMessage(to, toName, allowURL, denyURL string) Message {
	return Message{
		To:      to,
		ToName:  toName,
		Subject: "Confirm your password reset",
		HTML: fmt.Sprintf(
			`<p>Someone asked to reset the password for this account.</p>`+
				`<p><a href="%s">Yes, that was me</a></p>`+
				`<p><a href="%s">No, cancel it</a></p>`+
				`<p>These links expire in 15 minutes.</p>`,
			html.EscapeString(allowURL), html.EscapeString(denyURL),
		),
		Text: fmt.Sprintf(
			"Someone asked to reset the password for this account.\n\nAllow: %s\nCancel: %s\n\nThese links expire in 15 minutes.\n",
			allowURL, denyURL,
		),
	}
}

func PasswordChangedMessage(to, toName string) Message {
	return Message{
		To:      to,
		ToName:  toName,
		Subject: "Your password was changed",
		HTML:    `<p>The password for your account was just changed.</p><p>If this was not you, contact support immediately.</p>`,
		Text:    "The password for your account was just changed.\nIf this was not you, contact support immediately.\n",
	}
}
