package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/quillchat/api/internal/asset"
)

func (b *Backend) CreateAttachment(ctx context.Context, a *asset.Attachment) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO attachments (id, message_id, parent_id, uploader_id, filename, content_type, size_bytes, object_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.MessageID, a.ParentID, a.UploaderID, a.Filename, a.ContentType, a.SizeBytes, a.ObjectKey, formatTime(a.CreatedAt))
	return err
}

func (b *Backend) GetAttachment(ctx context.Context, id string) (*asset.Attachment, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, message_id, parent_id, uploader_id, filename, content_type, size_bytes, object_key, deleted_at, created_at
		FROM attachments WHERE id = ?
	`, id)
	return scanAttachment(row)
}

func (b *Backend) SetAttachmentParent(ctx context.Context, id, parentID string) error {
	result, err := b.db.ExecContext(ctx, `
		UPDATE attachments SET parent_id = ? WHERE id = ? AND deleted_at IS NULL
	`, parentID, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return asset.ErrAttachmentNotFound
	}
	return nil
}

func (b *Backend) MarkAttachmentDeleted(ctx context.Context, id string) error {
	result, err := b.db.ExecContext(ctx, `
		UPDATE attachments SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL
	`, formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return asset.ErrAttachmentNotFound
	}
	return nil
}

func (b *Backend) ListDeletedAttachments(ctx context.Context, limit int) ([]asset.Attachment, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, message_id, parent_id, uploader_id, filename, content_type, size_bytes, object_key, deleted_at, created_at
		FROM attachments WHERE deleted_at IS NOT NULL ORDER BY deleted_at LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []asset.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}

func (b *Backend) PurgeAttachment(ctx context.Context, id string) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
	return err
}

func scanAttachment(row rowScanner) (*asset.Attachment, error) {
	var a asset.Attachment
	var messageID, parentID, uploaderID, deletedAt sql.NullString
	var createdAt string

	err := row.Scan(&a.ID, &messageID, &parentID, &uploaderID, &a.Filename, &a.ContentType, &a.SizeBytes,
		&a.ObjectKey, &deletedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, asset.ErrAttachmentNotFound
	}
	if err != nil {
		return nil, err
	}

	a.MessageID = strPtr(messageID)
	a.ParentID = strPtr(parentID)
	a.UploaderID = strPtr(uploaderID)
	a.DeletedAt = parseTimePtr(deletedAt)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}
