package captcha

import "time"

// VerifyResult is the outcome of checking a reply against a challenge
type VerifyResult string

const (
	// ResultPassed means the reply matched and the user is now authorized
	ResultPassed VerifyResult = "passed"

	// ResultWrongCode means the reply did not match; the challenge and
	// its original deadline remain in force
	ResultWrongCode VerifyResult = "wrong_code"

	// ResultExpired means the deadline had passed; the challenge was cleared
	ResultExpired VerifyResult = "expired"

	// ResultNoChallenge means no challenge was outstanding for the user
	ResultNoChallenge VerifyResult = "no_challenge"
)

// IssueChallengeInput contains parameters for issuing a challenge
type IssueChallengeInput struct {
	UserID int64
}

// IssueChallengeOutput contains the issued challenge
type IssueChallengeOutput struct {
	// ChallengeID identifies the challenge in logs
	ChallengeID string

	// Image is the PNG-encoded captcha
	Image []byte

	// TTL is how long the code stays valid
	TTL time.Duration
}

// VerifyReplyInput contains parameters for verifying a reply
type VerifyReplyInput struct {
	UserID int64
	Text   string
}

// VerifyReplyOutput contains the verification outcome
type VerifyReplyOutput struct {
	Result VerifyResult
}

// CheckAccessInput contains parameters for an access check
type CheckAccessInput struct {
	UserID int64
}

// CheckAccessOutput contains the access decision inputs
type CheckAccessOutput struct {
	// Authorized is true once the user has passed a captcha
	Authorized bool

	// ChallengePending is true while a challenge is outstanding, expired
	// or not; VerifyReply owns the deadline evaluation
	ChallengePending bool
}
