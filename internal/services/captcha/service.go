package captcha

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/svetlov/captchabot/internal/code"
	"github.com/svetlov/captchabot/internal/common/clock"
	"github.com/svetlov/captchabot/internal/common/uuid"
	"github.com/svetlov/captchabot/internal/models"
	"github.com/svetlov/captchabot/internal/render"
	sessionRepo "github.com/svetlov/captchabot/internal/repositories/session"
)

// DefaultChallengeTTL is how long an issued code stays valid
const DefaultChallengeTTL = 90 * time.Second

// Config holds the configuration for the captcha service
type Config struct {
	// Session repository
	SessionRepo sessionRepo.Repository

	// Code generator
	Generator code.Generator

	// Image renderer
	Renderer render.Renderer

	// Clock
	Clock clock.Clock

	// UUID generator for challenge IDs
	UUID uuid.UUID

	// CodeLength, defaults to code.DefaultLength
	CodeLength int

	// ChallengeTTL, defaults to DefaultChallengeTTL
	ChallengeTTL time.Duration
}

// service implements the Service interface
type service struct {
	config      *Config
	sessionRepo sessionRepo.Repository
	generator   code.Generator
	renderer    render.Renderer
	clock       clock.Clock
	uuid        uuid.UUID

	// per-user locks: updates from the same user must observe session
	// mutations in order, so all session access is serialized per key
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates a new captcha service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.SessionRepo == nil {
		return nil, ErrNilSessionRepo
	}

	if cfg.Generator == nil {
		return nil, ErrNilGenerator
	}

	if cfg.Renderer == nil {
		return nil, ErrNilRenderer
	}

	if cfg.Clock == nil {
		return nil, ErrNilClock
	}

	if cfg.UUID == nil {
		return nil, ErrNilUUID
	}

	if cfg.CodeLength < 1 {
		cfg.CodeLength = code.DefaultLength
	}

	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = DefaultChallengeTTL
	}

	return &service{
		config:      cfg,
		sessionRepo: cfg.SessionRepo,
		generator:   cfg.Generator,
		renderer:    cfg.Renderer,
		clock:       cfg.Clock,
		uuid:        cfg.UUID,
		locks:       make(map[int64]*sync.Mutex),
	}, nil
}

// userLock returns the mutex serializing access to one user's session
func (s *service) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// IssueChallenge generates a fresh code and deadline for the user. Any
// pending challenge is overwritten; the previous code stops validating.
func (s *service) IssueChallenge(ctx context.Context, input *IssueChallengeInput) (*IssueChallengeOutput, error) {
	if input == nil {
		return nil, ErrNilInput
	}

	lock := s.userLock(input.UserID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.sessionRepo.GetSession(ctx, &sessionRepo.GetSessionInput{
		UserID: input.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	challengeCode, err := s.generator.Generate(s.config.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	image, err := s.renderer.Render(challengeCode)
	if err != nil {
		return nil, fmt.Errorf("failed to render code: %w", err)
	}

	challenge := &models.Challenge{
		ID:       s.uuid.NewUUID(),
		Code:     challengeCode,
		Deadline: s.clock.Now().Add(s.config.ChallengeTTL),
	}

	sess.Challenge = challenge
	sess.Passed = false

	if err := s.sessionRepo.SaveSession(ctx, &sessionRepo.SaveSessionInput{
		Session: sess,
	}); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	log.Printf("issued challenge %s for user %d, deadline %s",
		challenge.ID, input.UserID, challenge.Deadline.Format(time.RFC3339))

	return &IssueChallengeOutput{
		ChallengeID: challenge.ID,
		Image:       image,
		TTL:         s.config.ChallengeTTL,
	}, nil
}

// VerifyReply checks a text reply against the user's pending challenge.
// Replies are trimmed and compared case-insensitively. A mismatch
// leaves the challenge and its original deadline untouched.
func (s *service) VerifyReply(ctx context.Context, input *VerifyReplyInput) (*VerifyReplyOutput, error) {
	if input == nil {
		return nil, ErrNilInput
	}

	lock := s.userLock(input.UserID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.sessionRepo.GetSession(ctx, &sessionRepo.GetSessionInput{
		UserID: input.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if sess.Challenge == nil {
		return &VerifyReplyOutput{Result: ResultNoChallenge}, nil
	}

	now := s.clock.Now()
	if sess.Challenge.Expired(now) {
		challengeID := sess.Challenge.ID
		sess.Challenge = nil
		if err := s.sessionRepo.SaveSession(ctx, &sessionRepo.SaveSessionInput{
			Session: sess,
		}); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}

		log.Printf("challenge %s for user %d expired", challengeID, input.UserID)
		return &VerifyReplyOutput{Result: ResultExpired}, nil
	}

	answer := strings.ToUpper(strings.TrimSpace(input.Text))
	if answer != sess.Challenge.Code {
		return &VerifyReplyOutput{Result: ResultWrongCode}, nil
	}

	challengeID := sess.Challenge.ID
	sess.Passed = true
	sess.Challenge = nil
	if err := s.sessionRepo.SaveSession(ctx, &sessionRepo.SaveSessionInput{
		Session: sess,
	}); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	log.Printf("challenge %s for user %d passed", challengeID, input.UserID)
	return &VerifyReplyOutput{Result: ResultPassed}, nil
}

// CheckAccess reports the user's authorization state. Expiry is not
// evaluated here: an outstanding challenge still reads as pending so
// the reply flow can deliver the expiry message and clear it.
func (s *service) CheckAccess(ctx context.Context, input *CheckAccessInput) (*CheckAccessOutput, error) {
	if input == nil {
		return nil, ErrNilInput
	}

	lock := s.userLock(input.UserID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.sessionRepo.GetSession(ctx, &sessionRepo.GetSessionInput{
		UserID: input.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &CheckAccessOutput{
		Authorized:       sess.Passed,
		ChallengePending: sess.Challenge != nil,
	}, nil
}
