package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/concierge/pkg/models"
)

// Append adds msg to the end of the session's log.
func (db *DB) Append(ctx context.Context, sessionID string, msg models.Message) error {
	var metadata sql.NullString
	if msg.Metadata != nil {
		data, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("marshal message metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO messages (session_id, message_id, role, content, agent_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sessionID, msg.ID, string(msg.Role), msg.Content, msg.AgentID, metadata, formatTime(msg.Timestamp))
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest messages, oldest first.
// A non-positive limit returns the whole log.
func (db *DB) Recent(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return db.Messages(ctx, sessionID)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT message_id, role, content, agent_id, metadata, created_at
		FROM messages WHERE session_id = ?
		ORDER BY seq DESC LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Messages returns the session's full log, oldest first.
func (db *DB) Messages(ctx context.Context, sessionID string) ([]models.Message, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT message_id, role, content, agent_id, metadata, created_at
		FROM messages WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		var role, createdAt string
		var agentID, metadata sql.NullString
		if err := rows.Scan(&m.ID, &role, &m.Content, &agentID, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = models.Role(role)
		m.AgentID = agentID.String
		ts, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse message time: %w", err)
		}
		m.Timestamp = ts
		if metadata.Valid && metadata.String != "" {
			var md models.ResponseMetadata
			if err := json.Unmarshal([]byte(metadata.String), &md); err != nil {
				return nil, fmt.Errorf("unmarshal message metadata: %w", err)
			}
			m.Metadata = &md
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
