package captcha

import "context"

// Service drives the captcha challenge/response cycle and answers
// authorization queries for the gatekeeper
type Service interface {
	// IssueChallenge generates a fresh code for the user, overwriting
	// any pending challenge, and returns the rendered image
	IssueChallenge(ctx context.Context, input *IssueChallengeInput) (*IssueChallengeOutput, error)

	// VerifyReply checks a text reply against the user's pending challenge
	VerifyReply(ctx context.Context, input *VerifyReplyInput) (*VerifyReplyOutput, error)

	// CheckAccess reports whether the user is authorized and whether a
	// challenge is outstanding. It never mutates the session.
	CheckAccess(ctx context.Context, input *CheckAccessInput) (*CheckAccessOutput, error)
}
