package state

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ShayCichocki/concierge/pkg/models"
)

// SaveSession inserts or updates a session record.
func (db *DB) SaveSession(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (session_id, user_id, current_responder_id, start_time, last_activity, message_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			user_id = excluded.user_id,
			current_responder_id = excluded.current_responder_id,
			last_activity = excluded.last_activity,
			message_count = excluded.message_count
	`
	if db.driver == DriverMySQL {
		query = `
			INSERT INTO sessions (session_id, user_id, current_responder_id, start_time, last_activity, message_count)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				user_id = VALUES(user_id),
				current_responder_id = VALUES(current_responder_id),
				last_activity = VALUES(last_activity),
				message_count = VALUES(message_count)
		`
	}

	_, err := db.ExecContext(ctx, query,
		s.SessionID, s.UserID, s.CurrentResponderID,
		formatTime(s.StartTime), formatTime(s.LastActivity), s.MessageCount)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id. Returns nil, nil if not found.
func (db *DB) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	row := db.QueryRowContext(ctx, `
		SELECT session_id, user_id, current_responder_id, start_time, last_activity, message_count
		FROM sessions WHERE session_id = ?
	`, sessionID)

	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// ListSessions returns sessions, most recently active first.
// A non-positive limit returns all of them.
func (db *DB) ListSessions(ctx context.Context, limit int) ([]models.Session, error) {
	query := `
		SELECT session_id, user_id, current_responder_id, start_time, last_activity, message_count
		FROM sessions ORDER BY last_activity DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	var s models.Session
	var userID, responderID sql.NullString
	var startTime, lastActivity string
	if err := row.Scan(&s.SessionID, &userID, &responderID, &startTime, &lastActivity, &s.MessageCount); err != nil {
		return nil, err
	}
	s.UserID = userID.String
	s.CurrentResponderID = responderID.String

	var err error
	if s.StartTime, err = parseTime(startTime); err != nil {
		return nil, fmt.Errorf("parse start_time: %w", err)
	}
	if s.LastActivity, err = parseTime(lastActivity); err != nil {
		return nil, fmt.Errorf("parse last_activity: %w", err)
	}
	return &s, nil
}
