package session

import "github.com/svetlov/captchabot/internal/models"

// GetSessionInput contains parameters for retrieving a session
type GetSessionInput struct {
	UserID int64
}

// SaveSessionInput contains parameters for saving a session
type SaveSessionInput struct {
	Session *models.Session
}
