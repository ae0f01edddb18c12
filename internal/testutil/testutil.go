// Package testutil provides an in-memory database and fixture helpers
// shared across package tests.
package testutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quillchat/api/internal/database"
)

// TestDB creates an in-memory SQLite database with migrations applied.
// The database is automatically closed when the test completes.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("running migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db.DB
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// CreateTestUser inserts a user directly, bypassing the user package.
func CreateTestUser(t *testing.T, db *sql.DB, username, email string) string {
	t.Helper()

	id := ulid.Make().String()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO users (id, username, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
	`, id, username, email, now(), now())
	if err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return id
}

// CreateTestSession inserts a session valid for one hour.
func CreateTestSession(t *testing.T, db *sql.DB, userID, token string) {
	t.Helper()

	expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)
	`, token, userID, expires, now())
	if err != nil {
		t.Fatalf("creating test session: %v", err)
	}
}

// CreateTestWorkspace inserts a workspace with the given defaults.
func CreateTestWorkspace(t *testing.T, db *sql.DB, ownerID string, defaultPermissions uint64) string {
	t.Helper()

	id := ulid.Make().String()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO workspaces (id, name, owner_id, default_permissions, created_at, updated_at)
		VALUES (?, 'Test Workspace', ?, ?, ?, ?)
	`, id, ownerID, int64(defaultPermissions), now(), now())
	if err != nil {
		t.Fatalf("creating test workspace: %v", err)
	}
	return id
}

// CreateTestRole inserts a workspace role.
func CreateTestRole(t *testing.T, db *sql.DB, workspaceID string, allow, deny uint64) string {
	t.Helper()

	id := ulid.Make().String()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO workspace_roles (id, workspace_id, name, allow, deny, rank) VALUES (?, ?, 'Role', ?, ?, 0)
	`, id, workspaceID, int64(allow), int64(deny))
	if err != nil {
		t.Fatalf("creating test role: %v", err)
	}
	return id
}

// AddTestMember links a user to a workspace with the given role IDs.
func AddTestMember(t *testing.T, db *sql.DB, workspaceID, userID string, roleIDs ...string) {
	t.Helper()

	if roleIDs == nil {
		roleIDs = []string{}
	}
	roles, _ := json.Marshal(roleIDs)
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO workspace_members (id, workspace_id, user_id, roles, created_at) VALUES (?, ?, ?, ?, ?)
	`, ulid.Make().String(), workspaceID, userID, string(roles), now())
	if err != nil {
		t.Fatalf("adding test member: %v", err)
	}
}

// CreateTestGroup inserts a group channel with the given owner and
// recipients. The owner is always included as a recipient.
func CreateTestGroup(t *testing.T, db *sql.DB, ownerID string, recipients ...string) string {
	t.Helper()

	all := append([]string{ownerID}, recipients...)
	return insertChannel(t, db, "group", nil, &ownerID, all, true)
}

// CreateTestChannel inserts a workspace text channel.
func CreateTestChannel(t *testing.T, db *sql.DB, workspaceID string) string {
	t.Helper()
	return insertChannel(t, db, "text", &workspaceID, nil, nil, true)
}

// CreateTestDM inserts a plain DM between two users.
func CreateTestDM(t *testing.T, db *sql.DB, a, b string) string {
	t.Helper()
	return insertChannel(t, db, "dm", nil, nil, []string{a, b}, true)
}

// CreateTestSpecializedDM inserts a specialized DM variant.
func CreateTestSpecializedDM(t *testing.T, db *sql.DB, variant string, active bool, recipients ...string) string {
	t.Helper()
	return insertChannel(t, db, variant, nil, nil, recipients, active)
}

func insertChannel(t *testing.T, db *sql.DB, typ string, workspaceID, ownerID *string, recipients []string, active bool) string {
	t.Helper()

	if recipients == nil {
		recipients = []string{}
	}
	recJSON, _ := json.Marshal(recipients)

	id := ulid.Make().String()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO channels (id, type, workspace_id, name, owner_id, recipients, active, created_at, updated_at)
		VALUES (?, ?, ?, 'test channel', ?, ?, ?, ?, ?)
	`, id, typ, workspaceID, ownerID, string(recJSON), active, now(), now())
	if err != nil {
		t.Fatalf("creating test channel: %v", err)
	}
	return id
}

// CreateTestAttachment inserts a live attachment record.
func CreateTestAttachment(t *testing.T, db *sql.DB, uploaderID string) string {
	t.Helper()

	id := ulid.Make().String()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO attachments (id, uploader_id, filename, content_type, size_bytes, object_key, created_at)
		VALUES (?, ?, 'pic.png', 'image/png', 42, ?, ?)
	`, id, uploaderID, "attachments/"+id, now())
	if err != nil {
		t.Fatalf("creating test attachment: %v", err)
	}
	return id
}
