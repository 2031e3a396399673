package state

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ShayCichocki/concierge/internal/history"
	"github.com/ShayCichocki/concierge/pkg/models"
)

// DriverMemory keeps state in process memory only.
const DriverMemory = "memory"

// DriverRedis selects RedisStore.
const DriverRedis = "redis"

// Config selects and configures a backend.
type Config struct {
	// Driver is one of memory, sqlite, sqlite3, mysql, redis.
	Driver string
	// DSN is the SQLite file path or the MySQL DSN.
	DSN   string
	Redis RedisConfig
}

// OpenStore opens and, for SQL backends, migrates the configured backend.
func OpenStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case DriverSQLite, DriverSQLiteCgo, DriverMySQL:
		db, err := OpenDriver(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate %s store: %w", cfg.Driver, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// MemoryStore is a Store that lives for the process lifetime.
type MemoryStore struct {
	*history.MemoryStore

	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		MemoryStore: history.NewMemoryStore(),
		sessions:    make(map[string]models.Session),
	}
}

// Messages returns the session's full log, oldest first.
func (m *MemoryStore) Messages(ctx context.Context, sessionID string) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.All(sessionID), nil
}

// SaveSession stores a copy of s.
func (m *MemoryStore) SaveSession(ctx context.Context, s *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = *s
	return nil
}

// GetSession returns a copy of the session, or nil, nil if not found.
func (m *MemoryStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// ListSessions returns sessions, most recently active first.
func (m *MemoryStore) ListSessions(ctx context.Context, limit int) ([]models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
