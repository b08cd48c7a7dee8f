package models

import (
	"time"
)

// Challenge represents one issued captcha code and its expiry
type Challenge struct {
	// ID is the unique identifier for this challenge, used in logs
	ID string

	// Code is the expected answer, stored upper-case
	Code string

	// Deadline is the absolute time after which the code is no longer accepted
	Deadline time.Time
}

// Expired reports whether the challenge deadline has passed
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.Deadline)
}

// Session represents the per-user captcha state. A nil Challenge means
// no challenge is outstanding; code and deadline are always set and
// cleared together through it.
type Session struct {
	// UserID is the Telegram user ID this session belongs to
	UserID int64

	// Passed is true once the user has solved a captcha in this
	// session's lifetime
	Passed bool

	// Challenge is the outstanding challenge, if any
	Challenge *Challenge
}

// Copy returns a deep copy of the session
func (s *Session) Copy() *Session {
	out := &Session{
		UserID: s.UserID,
		Passed: s.Passed,
	}
	if s.Challenge != nil {
		challenge := *s.Challenge
		out.Challenge = &challenge
	}
	return out
}
