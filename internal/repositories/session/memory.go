package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/svetlov/captchabot/internal/common/clock"
	"github.com/svetlov/captchabot/internal/models"
)

const (
	// DefaultSweepInterval is how often the janitor looks for stale challenges
	DefaultSweepInterval = 5 * time.Second

	// DefaultChallengeGrace is how long past its deadline an abandoned
	// challenge survives before the janitor discards it
	DefaultChallengeGrace = 30 * time.Second
)

// MemoryConfig holds configuration for the in-memory session repository
type MemoryConfig struct {
	// SweepInterval for the janitor goroutine
	SweepInterval time.Duration

	// ChallengeGrace past the deadline before a challenge is swept
	ChallengeGrace time.Duration

	// Clock, defaults to the system clock
	Clock clock.Clock
}

// memoryRepository implements the Repository interface with a process-local map.
// Sessions live for the lifetime of the process.
type memoryRepository struct {
	mu       sync.RWMutex
	sessions map[int64]*models.Session

	clock clock.Clock
	grace time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a new in-memory session repository and starts its
// janitor. The janitor only clears challenges left past their deadline
// plus the grace window; the Passed flag is never touched.
func NewMemory(cfg *MemoryConfig) (*memoryRepository, error) {
	if cfg == nil {
		cfg = &MemoryConfig{}
	}

	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	grace := cfg.ChallengeGrace
	if grace <= 0 {
		grace = DefaultChallengeGrace
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	r := &memoryRepository{
		sessions: make(map[int64]*models.Session),
		clock:    clk,
		grace:    grace,
		stop:     make(chan struct{}),
	}

	go r.janitor(sweepInterval)

	return r, nil
}

// GetSession retrieves a session, returning an implicit empty session
// for users that have never been seen
func (r *memoryRepository) GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[input.UserID]
	if !ok {
		return &models.Session{UserID: input.UserID}, nil
	}

	return sess.Copy(), nil
}

// SaveSession persists a session in the map
func (r *memoryRepository) SaveSession(ctx context.Context, input *SaveSessionInput) error {
	if input == nil || input.Session == nil {
		return errors.New("input and session cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[input.Session.UserID] = input.Session.Copy()

	return nil
}

// Close stops the janitor
func (r *memoryRepository) Close() error {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	return nil
}

// janitor periodically discards challenges abandoned past deadline+grace
func (r *memoryRepository) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stop:
			return
		}
	}
}

func (r *memoryRepository) sweep() {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sess := range r.sessions {
		if sess.Challenge != nil && now.After(sess.Challenge.Deadline.Add(r.grace)) {
			sess.Challenge = nil
		}
	}
}
