package telegram

import (
	"fmt"
	"strings"
	"time"
)

// User-facing texts. Replies are sent as HTML except the echo, which
// carries raw user input.
const (
	msgGreeting  = "Hi! The bot is up and ready ✅"
	msgGate      = "Pass the captcha first: /start"
	msgPassed    = "Captcha passed. Welcome to the bot."
	msgWrongCode = "Incorrect. Try again or send /start to get a new captcha."
	msgExpired   = "Time is up. Send /start to get a new captcha."
)

// challengePrompt names the time budget for an issued challenge
func challengePrompt(ttl time.Duration) string {
	return fmt.Sprintf("Enter the code from the image. You have <b>%d</b> seconds.", int(ttl.Seconds()))
}

// echoText labels an echoed message
func echoText(text string) string {
	return "Echo: " + text
}

// helpText lists the available commands
func helpText() string {
	return strings.Join([]string{
		"<b>Available commands</b>",
		"",
		"/start - request a new captcha challenge",
		"/help - show this message",
		"",
		"Any other text is echoed back to you.",
	}, "\n")
}
