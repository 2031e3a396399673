package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/concierge/pkg/models"
)

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, store Store, sessionID string) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		msg := models.Message{
			ID:        fmt.Sprintf("%s-m%d", sessionID, i),
			Role:      models.RoleUser,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.Append(ctx, sessionID, msg))
	}

	recent, err := store.Recent(ctx, sessionID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "message 2", recent[0].Content)
	assert.Equal(t, "message 3", recent[1].Content)

	all, err := store.Messages(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	empty, err := store.Recent(ctx, sessionID+"-missing", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	s := models.NewSession(sessionID, "user-1", base)
	s.MessageCount = 2
	s.CurrentResponderID = "general"
	require.NoError(t, store.SaveSession(ctx, s))

	got, err := store.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.MessageCount)
	assert.Equal(t, "general", got.CurrentResponderID)
	assert.True(t, got.StartTime.Equal(base))

	missing, err := store.GetSession(ctx, sessionID+"-missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	sessions, err := store.ListSessions(ctx, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, sessions)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store, "mem")
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, setupTestDB(t), "sqlite")
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenStore(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	path := filepath.Join(t.TempDir(), "store.db")
	db, err := OpenStore(ctx, Config{Driver: DriverSQLite, DSN: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	exerciseStore(t, db, "opened")

	_, err = OpenStore(ctx, Config{Driver: "cassandra"})
	assert.Error(t, err)

	_, err = OpenStore(ctx, Config{Driver: DriverRedis})
	assert.Error(t, err, "redis without addr must fail")
}

func TestMemoryStore_ListSessionsOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		s := models.NewSession(id, "", base)
		s.LastActivity = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.SaveSession(ctx, s))
	}

	sessions, err := store.ListSessions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "c", sessions[0].SessionID)
	assert.Equal(t, "b", sessions[1].SessionID)
}

func TestRedisStore_Integration(t *testing.T) {
	addr := os.Getenv("CONCIERGE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CONCIERGE_TEST_REDIS_ADDR not set")
	}
	store, err := NewRedisStore(context.Background(), RedisConfig{
		Addr:   addr,
		Prefix: fmt.Sprintf("concierge-test-%d", time.Now().UnixNano()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store, "redis")
}

func TestMySQLStore_Integration(t *testing.T) {
	dsn := os.Getenv("CONCIERGE_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("CONCIERGE_TEST_MYSQL_DSN not set")
	}
	store, err := OpenStore(context.Background(), Config{Driver: DriverMySQL, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store, fmt.Sprintf("mysql-%d", time.Now().UnixNano()))
}
