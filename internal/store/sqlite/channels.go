package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quillchat/api/internal/channel"
)

func (b *Backend) CreateChannel(ctx context.Context, ch *channel.Channel) error {
	if ch.ID == "" {
		ch.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	ch.CreatedAt = now
	ch.UpdatedAt = now

	recipients, err := json.Marshal(ch.Recipients)
	if err != nil {
		return err
	}
	banners, err := json.Marshal(ch.Banners)
	if err != nil {
		return err
	}
	rolePerms, err := json.Marshal(ch.RolePermissions)
	if err != nil {
		return err
	}

	var defaultAllow, defaultDeny uint64
	if ch.DefaultPermissions != nil {
		defaultAllow = ch.DefaultPermissions.Allow
		defaultDeny = ch.DefaultPermissions.Deny
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO channels (id, type, workspace_id, name, description, icon_id, banners, nsfw, password_hash,
		                      owner_id, recipients, default_allow, default_deny, role_permissions, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ch.ID, ch.Type, ch.WorkspaceID, ch.Name, ch.Description, ch.IconID, string(banners), ch.NSFW, ch.PasswordHash,
		ch.OwnerID, string(recipients), int64(defaultAllow), int64(defaultDeny), string(rolePerms), ch.Active,
		formatTime(now), formatTime(now))
	return err
}

func (b *Backend) GetChannel(ctx context.Context, id string) (*channel.Channel, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, type, workspace_id, name, description, icon_id, banners, nsfw, password_hash,
		       owner_id, recipients, default_allow, default_deny, role_permissions, active, archived_at, created_at, updated_at
		FROM channels WHERE id = ?
	`, id)

	var ch channel.Channel
	var workspaceID, name, description, iconID, passwordHash, ownerID, archivedAt sql.NullString
	var banners, recipients, rolePerms string
	var defaultAllow, defaultDeny int64
	var createdAt, updatedAt string

	err := row.Scan(&ch.ID, &ch.Type, &workspaceID, &name, &description, &iconID, &banners, &ch.NSFW, &passwordHash,
		&ownerID, &recipients, &defaultAllow, &defaultDeny, &rolePerms, &ch.Active, &archivedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, channel.ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}

	ch.WorkspaceID = strPtr(workspaceID)
	ch.Name = strPtr(name)
	ch.Description = strPtr(description)
	ch.IconID = strPtr(iconID)
	ch.PasswordHash = strPtr(passwordHash)
	ch.OwnerID = strPtr(ownerID)
	ch.ArchivedAt = parseTimePtr(archivedAt)
	ch.CreatedAt = parseTime(createdAt)
	ch.UpdatedAt = parseTime(updatedAt)

	if err := json.Unmarshal([]byte(banners), &ch.Banners); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(recipients), &ch.Recipients); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rolePerms), &ch.RolePermissions); err != nil {
		return nil, err
	}
	if defaultAllow != 0 || defaultDeny != 0 {
		ch.DefaultPermissions = &channel.Override{Allow: uint64(defaultAllow), Deny: uint64(defaultDeny)}
	}

	return &ch, nil
}

// UpdateChannel merges the applied partial and the removal list into one
// UPDATE so concurrent edits to disjoint fields never clobber each other.
func (b *Backend) UpdateChannel(ctx context.Context, id string, applied channel.Partial, remove []channel.Field) error {
	var sets []string
	var args []interface{}

	for _, field := range remove {
		switch field {
		case channel.FieldDescription:
			sets = append(sets, "description = NULL")
		case channel.FieldIcon:
			sets = append(sets, "icon_id = NULL")
		case channel.FieldBanner:
			sets = append(sets, "banners = '[]'")
		case channel.FieldPassword:
			sets = append(sets, "password_hash = NULL")
		}
	}

	if applied.IconID != nil {
		sets = append(sets, "icon_id = ?")
		args = append(args, *applied.IconID)
	}
	if applied.Banners != nil {
		data, err := json.Marshal(*applied.Banners)
		if err != nil {
			return err
		}
		sets = append(sets, "banners = ?")
		args = append(args, string(data))
	}
	if applied.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *applied.Name)
	}
	if applied.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *applied.Description)
	}
	if applied.NSFW != nil {
		sets = append(sets, "nsfw = ?")
		args = append(args, *applied.NSFW)
	}
	if applied.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *applied.PasswordHash)
	}
	if applied.Archived != nil {
		if *applied.Archived {
			sets = append(sets, "archived_at = ?")
			args = append(args, formatTime(time.Now()))
		} else {
			sets = append(sets, "archived_at = NULL")
		}
	}
	if applied.Active != nil {
		sets = append(sets, "active = ?")
		args = append(args, *applied.Active)
	}
	if applied.OwnerID != nil {
		sets = append(sets, "owner_id = ?")
		args = append(args, *applied.OwnerID)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now()))
	args = append(args, id)

	query := "UPDATE channels SET " + joinSets(sets) + " WHERE id = ?"
	result, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return channel.ErrChannelNotFound
	}
	return nil
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}
