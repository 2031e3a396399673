package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShayCichocki/concierge/pkg/models"
)

// DefaultRedisPrefix namespaces every key written by RedisStore.
const DefaultRedisPrefix = "concierge"

// RedisConfig describes the Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps each session's log in a Redis list and its record in a hash.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (r *RedisStore) messagesKey(sessionID string) string {
	return r.prefix + ":messages:" + sessionID
}

func (r *RedisStore) sessionKey(sessionID string) string {
	return r.prefix + ":session:" + sessionID
}

func (r *RedisStore) sessionsKey() string {
	return r.prefix + ":sessions"
}

// Append adds msg to the end of the session's log.
func (r *RedisStore) Append(ctx context.Context, sessionID string, msg models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.RPush(ctx, r.messagesKey(sessionID), data).Err(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest messages, oldest first.
// A non-positive limit returns the whole log.
func (r *RedisStore) Recent(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	items, err := r.client.LRange(ctx, r.messagesKey(sessionID), start, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read messages: %w", err)
	}

	msgs := make([]models.Message, 0, len(items))
	for _, item := range items {
		var m models.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Messages returns the session's full log, oldest first.
func (r *RedisStore) Messages(ctx context.Context, sessionID string) ([]models.Message, error) {
	return r.Recent(ctx, sessionID, 0)
}

// SaveSession writes the session record and indexes it by last activity.
func (r *RedisStore) SaveSession(ctx context.Context, s *models.Session) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.sessionKey(s.SessionID), map[string]any{
			"session_id":           s.SessionID,
			"user_id":              s.UserID,
			"current_responder_id": s.CurrentResponderID,
			"start_time":           formatTime(s.StartTime),
			"last_activity":        formatTime(s.LastActivity),
			"message_count":        s.MessageCount,
		})
		pipe.ZAdd(ctx, r.sessionsKey(), redis.Z{
			Score:  float64(s.LastActivity.UnixMilli()),
			Member: s.SessionID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id. Returns nil, nil if not found.
func (r *RedisStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	fields, err := r.client.HGetAll(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return sessionFromHash(fields)
}

// ListSessions returns sessions, most recently active first.
// A non-positive limit returns all of them.
func (r *RedisStore) ListSessions(ctx context.Context, limit int) ([]models.Session, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := r.client.ZRevRange(ctx, r.sessionsKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var sessions []models.Session
	for _, id := range ids {
		s, err := r.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if s != nil {
			sessions = append(sessions, *s)
		}
	}
	return sessions, nil
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func sessionFromHash(fields map[string]string) (*models.Session, error) {
	s := &models.Session{
		SessionID:          fields["session_id"],
		UserID:             fields["user_id"],
		CurrentResponderID: fields["current_responder_id"],
	}
	var err error
	if s.StartTime, err = parseTime(fields["start_time"]); err != nil {
		return nil, fmt.Errorf("parse start_time: %w", err)
	}
	if s.LastActivity, err = parseTime(fields["last_activity"]); err != nil {
		return nil, fmt.Errorf("parse last_activity: %w", err)
	}
	if s.MessageCount, err = strconv.Atoi(fields["message_count"]); err != nil {
		return nil, fmt.Errorf("parse message_count: %w", err)
	}
	return s, nil
}
