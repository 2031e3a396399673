package models

import "time"

// Session is the unit of continuity across turns.
type Session struct {
	// SessionID is the caller-supplied session key.
	SessionID string `json:"session_id"`
	// UserID is the caller-supplied user identifier, if any.
	UserID string `json:"user_id,omitempty"`
	// CurrentResponderID is the responder that handled the latest turn.
	CurrentResponderID string `json:"current_responder_id,omitempty"`
	// StartTime is when the first message for this session arrived.
	StartTime time.Time `json:"start_time"`
	// LastActivity is when the latest turn finished.
	LastActivity time.Time `json:"last_activity"`
	// MessageCount is incremented by exactly one per processed turn.
	MessageCount int `json:"message_count"`
}

// NewSession creates a session starting at now.
func NewSession(sessionID, userID string, now time.Time) *Session {
	return &Session{
		SessionID:    sessionID,
		UserID:       userID,
		StartTime:    now,
		LastActivity: now,
	}
}

// Active reports whether the session saw activity within idle of now.
// Inactivity is informational only; inactive sessions are never evicted.
func (s *Session) Active(now time.Time, idle time.Duration) bool {
	if idle <= 0 {
		return true
	}
	return now.Sub(s.LastActivity) <= idle
}
