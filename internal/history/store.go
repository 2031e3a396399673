package history

import (
	"context"
	"sync"

	"github.com/ShayCichocki/concierge/pkg/models"
)

// Store is the persistent, append-only message log keyed by session id.
type Store interface {
	// Append adds msg to the end of the session's log.
	Append(ctx context.Context, sessionID string, msg models.Message) error
	// Recent returns up to limit of the newest messages, oldest first.
	Recent(ctx context.Context, sessionID string, limit int) ([]models.Message, error)
}

// MemoryStore keeps every message in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string][]models.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]models.Message)}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[sessionID] = append(s.logs[sessionID], msg)
	return nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.logs[sessionID], limit), nil
}

// All returns the session's full log.
func (s *MemoryStore) All(sessionID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.logs[sessionID]...)
}

// tail copies the last limit messages. A non-positive limit copies everything.
func tail(msgs []models.Message, limit int) []models.Message {
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]models.Message(nil), msgs...)
}
