package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quillchat/api/internal/asset"
	"github.com/quillchat/api/internal/message"
)

// CreateMessage persists the message and binds its attachments in one
// transaction, so a message never exists with half its files attached.
func (b *Backend) CreateMessage(ctx context.Context, msg *message.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Type == "" {
		msg.Type = message.TypeUser
	}

	embeds, err := json.Marshal(msg.Embeds)
	if err != nil {
		return err
	}
	var system, masquerade, interactions interface{}
	if msg.System != nil {
		data, err := json.Marshal(msg.System)
		if err != nil {
			return err
		}
		system = string(data)
	}
	if msg.Masquerade != nil {
		data, err := json.Marshal(msg.Masquerade)
		if err != nil {
			return err
		}
		masquerade = string(data)
	}
	if msg.Interactions != nil {
		data, err := json.Marshal(msg.Interactions)
		if err != nil {
			return err
		}
		interactions = string(data)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, channel_id, author_id, type, content, system_event, embeds, masquerade, interactions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ChannelID, msg.AuthorID, msg.Type, msg.Content, system, string(embeds), masquerade, interactions,
		formatTime(now), formatTime(now))
	if err != nil {
		return err
	}

	for _, attachmentID := range msg.AttachmentIDs {
		result, err := tx.ExecContext(ctx, `
			UPDATE attachments SET message_id = ? WHERE id = ? AND deleted_at IS NULL
		`, msg.ID, attachmentID)
		if err != nil {
			return err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return asset.ErrAttachmentNotFound
		}
	}

	return tx.Commit()
}

func (b *Backend) GetMessage(ctx context.Context, id string) (*message.Message, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, channel_id, author_id, type, content, system_event, embeds, masquerade, interactions, deleted_at, created_at, updated_at
		FROM messages WHERE id = ? AND deleted_at IS NULL
	`, id)
	msg, err := scanMessage(row)
	if err != nil {
		return nil, err
	}
	if err := b.loadAttachmentIDs(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (b *Backend) ListMessages(ctx context.Context, channelID string, opts message.ListOptions) ([]message.Message, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT id, channel_id, author_id, type, content, system_event, embeds, masquerade, interactions, deleted_at, created_at, updated_at
		FROM messages WHERE channel_id = ? AND deleted_at IS NULL`
	args := []interface{}{channelID}
	if opts.Before != "" {
		query += " AND id < ?"
		args = append(args, opts.Before)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []message.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		if err := b.loadAttachmentIDs(ctx, msg); err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func (b *Backend) DeleteMessage(ctx context.Context, id string) error {
	result, err := b.db.ExecContext(ctx, `
		UPDATE messages SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL
	`, formatTime(time.Now()), formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return message.ErrMessageNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*message.Message, error) {
	var msg message.Message
	var authorID, system, masquerade, interactions, deletedAt sql.NullString
	var embeds string
	var createdAt, updatedAt string

	err := row.Scan(&msg.ID, &msg.ChannelID, &authorID, &msg.Type, &msg.Content, &system, &embeds,
		&masquerade, &interactions, &deletedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, message.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	msg.AuthorID = strPtr(authorID)
	msg.DeletedAt = parseTimePtr(deletedAt)
	msg.CreatedAt = parseTime(createdAt)
	msg.UpdatedAt = parseTime(updatedAt)

	if err := json.Unmarshal([]byte(embeds), &msg.Embeds); err != nil {
		return nil, err
	}
	if system.Valid {
		msg.System = &message.SystemEvent{}
		if err := json.Unmarshal([]byte(system.String), msg.System); err != nil {
			return nil, err
		}
	}
	if masquerade.Valid {
		msg.Masquerade = &message.Masquerade{}
		if err := json.Unmarshal([]byte(masquerade.String), msg.Masquerade); err != nil {
			return nil, err
		}
	}
	if interactions.Valid {
		msg.Interactions = &message.Interactions{}
		if err := json.Unmarshal([]byte(interactions.String), msg.Interactions); err != nil {
			return nil, err
		}
	}
	return &msg, nil
}

func (b *Backend) loadAttachmentIDs(ctx context.Context, msg *message.Message) error {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id FROM attachments WHERE message_id = ? AND deleted_at IS NULL ORDER BY id
	`, msg.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	msg.AttachmentIDs = nil
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		msg.AttachmentIDs = append(msg.AttachmentIDs, id)
	}
	return rows.Err()
}
