package storage

import (
	"context"

	"github.com/mcoot/mahjongtracker/internal/model"
)

// SessionStore persists login sessions.
// GetSession returns model.ErrSessionNotFound for unknown tokens.
type SessionStore interface {
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, token string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
}
