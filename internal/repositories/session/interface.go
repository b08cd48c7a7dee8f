package session

import (
	"context"

	"github.com/svetlov/captchabot/internal/models"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/svetlov/captchabot/internal/repositories/session Repository

// Repository defines the interface for captcha session persistence
type Repository interface {
	// GetSession retrieves a user's session. Users that have never been
	// seen get an implicit empty session, not an error.
	GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error)

	// SaveSession persists a session
	SaveSession(ctx context.Context, input *SaveSessionInput) error

	// Close releases the repository's resources
	Close() error
}
