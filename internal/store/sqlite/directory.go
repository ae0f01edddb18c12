package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/quillchat/api/internal/auth"
	"github.com/quillchat/api/internal/user"
	"github.com/quillchat/api/internal/workspace"
)

// Workspace loads the workspace together with its roles, so permission
// resolution for a request costs two queries total.
func (b *Backend) Workspace(ctx context.Context, id string) (*workspace.Workspace, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, default_permissions, created_at, updated_at FROM workspaces WHERE id = ?
	`, id)

	var ws workspace.Workspace
	var defaultPerms int64
	var createdAt, updatedAt string
	err := row.Scan(&ws.ID, &ws.Name, &ws.OwnerID, &defaultPerms, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, workspace.ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, err
	}
	ws.DefaultPermissions = uint64(defaultPerms)
	ws.CreatedAt = parseTime(createdAt)
	ws.UpdatedAt = parseTime(updatedAt)

	rows, err := b.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, allow, deny, rank FROM workspace_roles WHERE workspace_id = ? ORDER BY rank
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var role workspace.Role
		var allow, deny int64
		if err := rows.Scan(&role.ID, &role.WorkspaceID, &role.Name, &allow, &deny, &role.Rank); err != nil {
			return nil, err
		}
		role.Allow = uint64(allow)
		role.Deny = uint64(deny)
		ws.Roles = append(ws.Roles, role)
	}
	return &ws, rows.Err()
}

func (b *Backend) Member(ctx context.Context, workspaceID, userID string) (*workspace.Member, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, user_id, roles, created_at FROM workspace_members WHERE workspace_id = ? AND user_id = ?
	`, workspaceID, userID)

	var m workspace.Member
	var roles, createdAt string
	err := row.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &roles, &createdAt)
	if err == sql.ErrNoRows {
		return nil, workspace.ErrNotMember
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(roles), &m.RoleIDs); err != nil {
		return nil, err
	}
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}

func (b *Backend) GetUser(ctx context.Context, id string) (*user.User, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, username, email, created_at, updated_at FROM users WHERE id = ?
	`, id)

	var u user.User
	var createdAt, updatedAt string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}

func (b *Backend) UserForSession(ctx context.Context, token string) (string, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT user_id, expires_at FROM sessions WHERE token = ?
	`, token)

	var userID, expiresAt string
	err := row.Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return "", auth.ErrInvalidSession
	}
	if err != nil {
		return "", err
	}
	if parseTime(expiresAt).Before(time.Now()) {
		return "", auth.ErrInvalidSession
	}
	return userID, nil
}
