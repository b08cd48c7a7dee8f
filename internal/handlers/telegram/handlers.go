package telegram

import (
	"bytes"
	"context"
	"log"

	tele "gopkg.in/telebot.v3"

	"github.com/svetlov/captchabot/internal/services/captcha"
)

// handleStart issues a captcha challenge and sends the rendered image
// followed by a prompt naming the time budget. Re-running /start while
// a challenge is pending simply replaces it.
func (b *Bot) handleStart(c tele.Context) error {
	userID := c.Sender().ID

	out, err := b.captchaService.IssueChallenge(context.Background(), &captcha.IssueChallengeInput{
		UserID: userID,
	})
	if err != nil {
		log.Printf("failed to issue challenge user_id=%d err=%v", userID, err)
		return nil
	}

	photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(out.Image))}
	if err := c.Send(photo); err != nil {
		log.Printf("failed to send challenge image user_id=%d err=%v", userID, err)
		return nil
	}

	return b.send(c, challengePrompt(out.TTL))
}

// handleText routes free text: a pending challenge gets verified,
// authorized users get the echo, everyone else gets the gate prompt.
func (b *Bot) handleText(c tele.Context) error {
	userID := c.Sender().ID

	access, err := b.captchaService.CheckAccess(context.Background(), &captcha.CheckAccessInput{
		UserID: userID,
	})
	if err != nil {
		log.Printf("failed to check access user_id=%d err=%v", userID, err)
		return nil
	}

	if access.ChallengePending {
		return b.handleChallengeReply(c)
	}

	if access.Authorized {
		return b.handleEcho(c)
	}

	return b.send(c, msgGate)
}

// handleChallengeReply verifies a reply against the pending challenge
func (b *Bot) handleChallengeReply(c tele.Context) error {
	userID := c.Sender().ID

	out, err := b.captchaService.VerifyReply(context.Background(), &captcha.VerifyReplyInput{
		UserID: userID,
		Text:   c.Text(),
	})
	if err != nil {
		log.Printf("failed to verify reply user_id=%d err=%v", userID, err)
		return nil
	}

	switch out.Result {
	case captcha.ResultPassed:
		return b.send(c, msgPassed)
	case captcha.ResultWrongCode:
		return b.send(c, msgWrongCode)
	default:
		// ResultExpired, or the challenge vanished underneath us
		return b.send(c, msgExpired)
	}
}

// handleEcho replies with the user's text behind a fixed label. The
// reply is sent without a parse mode so user input cannot break HTML
// formatting.
func (b *Bot) handleEcho(c tele.Context) error {
	if err := c.Send(echoText(c.Text())); err != nil {
		log.Printf("failed to send echo user_id=%d err=%v", c.Sender().ID, err)
	}
	return nil
}

// handleHelp replies with the static command list
func (b *Bot) handleHelp(c tele.Context) error {
	return b.send(c, helpText())
}

// handleGreeting is the /start handler when the captcha gate is disabled
func (b *Bot) handleGreeting(c tele.Context) error {
	return b.send(c, msgGreeting)
}

// requireAuth withholds a handler from users that have not passed the
// captcha. Gating is enforced here and in handleText only; handlers
// behind the gate trust it.
func (b *Bot) requireAuth(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		access, err := b.captchaService.CheckAccess(context.Background(), &captcha.CheckAccessInput{
			UserID: c.Sender().ID,
		})
		if err != nil {
			log.Printf("failed to check access user_id=%d err=%v", c.Sender().ID, err)
			return nil
		}

		if !access.Authorized {
			return b.send(c, msgGate)
		}

		return next(c)
	}
}

// send delivers an HTML-formatted reply, logging and dropping on
// failure. There are no delivery retries.
func (b *Bot) send(c tele.Context, text string) error {
	if err := c.Send(text, tele.ModeHTML); err != nil {
		log.Printf("failed to send message user_id=%d err=%v", c.Sender().ID, err)
	}
	return nil
}
