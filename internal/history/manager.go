// Package history manages per-session message logs and the context window
// handed to responders.
//
// The underlying log lives in a Store and is never rewritten. The manager
// keeps the newest messages of active sessions in an LRU cache; an evicted
// window is rebuilt from the Store on next use. Topic and profile summaries
// are small and stay in memory for the life of the process.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ShayCichocki/concierge/pkg/models"
)

// Defaults.
const (
	DefaultWindow       = 20
	DefaultCacheSize    = 1024
	DefaultStoreTimeout = 5 * time.Second
)

// Summary is the cheap, derived view of a whole session.
type Summary struct {
	// KeyTopics are deduplicated topic hits, first mention first.
	KeyTopics []string `json:"key_topics"`
	// Profile is free-form user data accumulated from responders.
	Profile map[string]string `json:"profile"`
	// Messages counts messages appended through this manager.
	Messages int `json:"messages"`
}

type summary struct {
	topics   []string
	seen     map[string]bool
	profile  map[string]string
	messages int
}

// Option configures a Manager.
type Option func(*Manager)

// WithWindow sets the number of messages returned by Window.
func WithWindow(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.window = n
		}
	}
}

// WithCacheSize sets how many session windows are cached.
func WithCacheSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.cacheSize = n
		}
	}
}

// WithTopicExtractor sets the function used to derive key topics from user messages.
func WithTopicExtractor(fn func(string) []string) Option {
	return func(m *Manager) { m.extract = fn }
}

// WithStoreTimeout bounds every Store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.storeTimeout = d
		}
	}
}

// WithDebugLog sets the debug logging function.
func WithDebugLog(fn func(format string, args ...interface{})) Option {
	return func(m *Manager) {
		if fn != nil {
			m.debugLog = fn
		}
	}
}

// Manager owns message history for all sessions.
type Manager struct {
	store        Store
	window       int
	cacheSize    int
	storeTimeout time.Duration
	extract      func(string) []string
	debugLog     func(format string, args ...interface{})

	windows *lru.Cache[string, []models.Message]

	mu        sync.Mutex
	summaries map[string]*summary
}

// NewManager creates a manager backed by store.
func NewManager(store Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("create history manager: nil store")
	}
	m := &Manager{
		store:        store,
		window:       DefaultWindow,
		cacheSize:    DefaultCacheSize,
		storeTimeout: DefaultStoreTimeout,
		debugLog:     func(format string, args ...interface{}) {},
		summaries:    make(map[string]*summary),
	}
	for _, opt := range opts {
		opt(m)
	}

	cache, err := lru.NewWithEvict[string, []models.Message](m.cacheSize, func(sessionID string, _ []models.Message) {
		m.debugLog("[history] evicted cached window for session %s", sessionID)
	})
	if err != nil {
		return nil, fmt.Errorf("create window cache: %w", err)
	}
	m.windows = cache
	return m, nil
}

// WindowSize returns the configured window size.
func (m *Manager) WindowSize() int {
	return m.window
}

// Append writes msg to the store and the session's window.
// The window is updated even when the store write fails; the store error is returned
// for the caller to log.
func (m *Manager) Append(ctx context.Context, sessionID string, msg models.Message) error {
	storeErr := m.storeAppend(ctx, sessionID, msg)
	if storeErr != nil {
		m.debugLog("[history] store append failed for session %s: %v", sessionID, storeErr)
	}

	w, ok := m.windows.Get(sessionID)
	if ok {
		w = append(append([]models.Message(nil), w...), msg)
	} else {
		loaded, loadErr := m.load(ctx, sessionID)
		w = loaded
		if storeErr != nil || loadErr != nil || !containsID(w, msg.ID) {
			w = append(w, msg)
		}
	}
	m.windows.Add(sessionID, tail(w, m.window))

	m.mu.Lock()
	s := m.summaryLocked(sessionID)
	s.messages++
	if msg.Role == models.RoleUser && m.extract != nil {
		for _, topic := range m.extract(msg.Content) {
			if !s.seen[topic] {
				s.seen[topic] = true
				s.topics = append(s.topics, topic)
			}
		}
	}
	m.mu.Unlock()

	if storeErr != nil {
		return fmt.Errorf("append message: %w", storeErr)
	}
	return nil
}

// Window returns the newest messages of the session, oldest first, capped at the window size.
func (m *Manager) Window(ctx context.Context, sessionID string) []models.Message {
	if w, ok := m.windows.Get(sessionID); ok {
		return append([]models.Message(nil), w...)
	}

	w, err := m.load(ctx, sessionID)
	if err != nil {
		m.debugLog("[history] load window for session %s failed: %v", sessionID, err)
		return nil
	}
	m.windows.Add(sessionID, w)
	return append([]models.Message(nil), w...)
}

// UpdateProfile merges kv into the session's user profile.
func (m *Manager) UpdateProfile(sessionID string, kv map[string]string) {
	if len(kv) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.summaryLocked(sessionID)
	for k, v := range kv {
		s.profile[k] = v
	}
}

// Summary returns the derived summary of a session.
func (m *Manager) Summary(sessionID string) Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.summaries[sessionID]
	if !ok {
		return Summary{Profile: map[string]string{}}
	}
	profile := make(map[string]string, len(s.profile))
	for k, v := range s.profile {
		profile[k] = v
	}
	return Summary{
		KeyTopics: append([]string(nil), s.topics...),
		Profile:   profile,
		Messages:  s.messages,
	}
}

func (m *Manager) summaryLocked(sessionID string) *summary {
	s, ok := m.summaries[sessionID]
	if !ok {
		s = &summary{seen: make(map[string]bool), profile: make(map[string]string)}
		m.summaries[sessionID] = s
	}
	return s
}

func (m *Manager) storeAppend(ctx context.Context, sessionID string, msg models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	return m.store.Append(ctx, sessionID, msg)
}

func (m *Manager) load(ctx context.Context, sessionID string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	msgs, err := m.store.Recent(ctx, sessionID, m.window)
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}
	return msgs, nil
}

func containsID(msgs []models.Message, id string) bool {
	if id == "" {
		return false
	}
	for _, m := range msgs {
		if m.ID == id {
			return true
		}
	}
	return false
}
