package state

import (
	"context"
	"io"

	"github.com/ShayCichocki/concierge/internal/history"
	"github.com/ShayCichocki/concierge/pkg/models"
)

// SessionStore handles session-related persistence operations.
type SessionStore interface {
	SaveSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	ListSessions(ctx context.Context, limit int) ([]models.Session, error)
}

// MessageLog reads back a session's complete log.
type MessageLog interface {
	Messages(ctx context.Context, sessionID string) ([]models.Message, error)
}

// Store defines the interface for state persistence.
// It allows the orchestrator to work with any backend
// without depending on a concrete implementation.
type Store interface {
	io.Closer
	history.Store
	MessageLog
	SessionStore
}

// Compile-time verification that the backends implement all interfaces.
var (
	_ Store = (*DB)(nil)
	_ Store = (*RedisStore)(nil)
)
