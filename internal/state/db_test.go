package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/concierge/pkg/models"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func testMessage(id string, role models.Role, content string, ts time.Time) models.Message {
	return models.Message{ID: id, Role: role, Content: content, Timestamp: ts}
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if db.Driver() != DriverSQLite {
		t.Errorf("Driver() = %q, want %q", db.Driver(), DriverSQLite)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	path := filepath.Join(nested, "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	// on Linux, we can't create files under /proc
	_, err := Open("/proc/nonexistent/test.db")
	if err == nil {
		t.Error("expected error opening db at invalid path")
	}
}

func TestOpenDriver_Unsupported(t *testing.T) {
	if _, err := OpenDriver("postgres", "x"); err == nil {
		t.Error("expected error for unsupported driver")
	}
	if _, err := OpenDriver(DriverMySQL, ""); err == nil {
		t.Error("expected error for empty mysql dsn")
	}
}

func TestClose(t *testing.T) {
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	_, err = db.Query("SELECT 1")
	if err == nil {
		t.Error("expected error after close, got nil")
	}
}

func TestMigrate(t *testing.T) {
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	tables := []string{"schema_version", "sessions", "messages"}
	for _, table := range tables {
		var count int
		row := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table)
		if err := row.Scan(&count); err != nil {
			t.Errorf("failed to check table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	for i := 0; i < 3; i++ {
		if err := db.Migrate(); err != nil {
			t.Fatalf("Migrate (iteration %d) failed: %v", i, err)
		}
	}

	var version int
	row := db.QueryRow("SELECT MAX(version) FROM schema_version")
	if err := row.Scan(&version); err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}
}

func TestTransaction_Rollback(t *testing.T) {
	db := setupTestDB(t)

	err := db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO sessions (session_id, start_time, last_activity, message_count) VALUES (?, ?, ?, ?)`,
			"tx-fail", "2024-01-01T00:00:00.000000000Z", "2024-01-01T00:00:00.000000000Z", 0)
		if err != nil {
			return err
		}
		return fmt.Errorf("simulated error")
	})
	if err == nil {
		t.Error("expected error from Transaction")
	}

	var count int
	row := db.QueryRow("SELECT COUNT(*) FROM sessions WHERE session_id = ?", "tx-fail")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("failed to verify: %v", err)
	}
	if count != 0 {
		t.Error("transaction was not rolled back")
	}
}

func TestSaveAndGetSession(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	s := models.NewSession("s1", "u1", start)
	if err := db.SaveSession(ctx, s); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	s.MessageCount = 2
	s.CurrentResponderID = "funding"
	s.LastActivity = start.Add(time.Minute)
	if err := db.SaveSession(ctx, s); err != nil {
		t.Fatalf("SaveSession (update) failed: %v", err)
	}

	got, err := db.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetSession returned nil")
	}
	if got.MessageCount != 2 || got.CurrentResponderID != "funding" || got.UserID != "u1" {
		t.Errorf("GetSession = %+v", got)
	}
	if !got.StartTime.Equal(start) || !got.LastActivity.Equal(start.Add(time.Minute)) {
		t.Errorf("times = %v, %v", got.StartTime, got.LastActivity)
	}

	missing, err := db.GetSession(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetSession(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestListSessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new", "mid"} {
		s := models.NewSession(id, "", base)
		s.LastActivity = base.Add(time.Duration([]int{1, 3, 2}[i]) * time.Minute)
		if err := db.SaveSession(ctx, s); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}
	}

	sessions, err := db.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	var ids []string
	for _, s := range sessions {
		ids = append(ids, s.SessionID)
	}
	if fmt.Sprint(ids) != "[new mid old]" {
		t.Errorf("ListSessions order = %v", ids)
	}

	limited, err := db.ListSessions(ctx, 1)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(limited) != 1 || limited[0].SessionID != "new" {
		t.Errorf("ListSessions(1) = %v", limited)
	}
}

func TestAppendAndRecent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		msg := testMessage(fmt.Sprintf("m%d", i), models.RoleUser, fmt.Sprintf("hello %d", i), base.Add(time.Duration(i)*time.Second))
		if err := db.Append(ctx, "s1", msg); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	confidence := 0.8
	reply := testMessage("r1", models.RoleAssistant, "hi", base.Add(time.Minute))
	reply.AgentID = "general"
	reply.Metadata = &models.ResponseMetadata{Confidence: &confidence, ToolsUsed: []string{"runway_calculator"}}
	if err := db.Append(ctx, "s1", reply); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := db.Append(ctx, "other", testMessage("x", models.RoleUser, "other", base)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	recent, err := db.Recent(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len(Recent) = %d, want 3", len(recent))
	}
	wantIDs := []string{"m3", "m4", "r1"}
	for i, id := range wantIDs {
		if recent[i].ID != id {
			t.Errorf("recent[%d].ID = %q, want %q", i, recent[i].ID, id)
		}
	}

	last := recent[2]
	if last.AgentID != "general" || last.Role != models.RoleAssistant {
		t.Errorf("last message = %+v", last)
	}
	if last.Metadata == nil || last.Metadata.Confidence == nil || *last.Metadata.Confidence != 0.8 {
		t.Errorf("metadata not round-tripped: %+v", last.Metadata)
	}
	if recent[0].Metadata != nil {
		t.Errorf("user message should have no metadata")
	}

	all, err := db.Messages(ctx, "s1")
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(all) != 6 || all[0].ID != "m0" {
		t.Errorf("Messages returned %d messages starting with %q", len(all), all[0].ID)
	}
}

func TestPurgeIdleSessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	stale := models.NewSession("stale", "", now.Add(-48*time.Hour))
	fresh := models.NewSession("fresh", "", now)
	for _, s := range []*models.Session{stale, fresh} {
		if err := db.SaveSession(ctx, s); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}
		if err := db.Append(ctx, s.SessionID, testMessage("m-"+s.SessionID, models.RoleUser, "hi", now)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	n, err := db.PurgeIdleSessions(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeIdleSessions failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d sessions, want 1", n)
	}
	if msgs, _ := db.Messages(ctx, "stale"); len(msgs) != 0 {
		t.Errorf("stale messages not purged: %d left", len(msgs))
	}
	if msgs, _ := db.Messages(ctx, "fresh"); len(msgs) != 1 {
		t.Errorf("fresh messages = %d, want 1", len(msgs))
	}
}

func TestFormatAndParseTime(t *testing.T) {
	now := time.Now()
	formatted := formatTime(now)
	parsed, err := parseTime(formatted)
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !now.UTC().Equal(parsed) {
		t.Errorf("time round-trip failed: got %v, want %v", parsed, now.UTC())
	}

	a := formatTime(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	b := formatTime(time.Date(2025, 1, 1, 0, 0, 0, 500, time.UTC))
	if !(a < b) {
		t.Errorf("formatted times do not sort: %q >= %q", a, b)
	}
}

func TestDefaultDBPath(t *testing.T) {
	if got := DefaultDBPath("/data"); got != "/data/concierge.db" {
		t.Errorf("DefaultDBPath() = %q", got)
	}
}
