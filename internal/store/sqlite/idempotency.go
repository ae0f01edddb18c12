package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/quillchat/api/internal/message"
)

func (b *Backend) GetIdempotency(ctx context.Context, userID, token string) (*message.IdempotencyRecord, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT user_id, token, message_id, created_at FROM idempotency_keys WHERE user_id = ? AND token = ?
	`, userID, token)

	var rec message.IdempotencyRecord
	var createdAt string
	err := row.Scan(&rec.UserID, &rec.Token, &rec.MessageID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}

// PutIdempotency is an atomic insert-if-absent: the primary key on
// (user_id, token) makes the database pick exactly one winner under
// concurrent sends.
func (b *Backend) PutIdempotency(ctx context.Context, rec *message.IdempotencyRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (user_id, token, message_id, created_at) VALUES (?, ?, ?, ?)
	`, rec.UserID, rec.Token, rec.MessageID, formatTime(rec.CreatedAt))
	if isUniqueConstraintError(err) {
		return message.ErrDuplicateToken
	}
	return err
}

// ReplaceIdempotency swaps an expired record for rec. The delete and
// insert share a transaction, so under concurrent sends exactly one
// caller replaces the record; the rest fail with ErrDuplicateToken.
func (b *Backend) ReplaceIdempotency(ctx context.Context, rec *message.IdempotencyRecord, olderThan time.Time) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM idempotency_keys WHERE user_id = ? AND token = ? AND created_at < ?
	`, rec.UserID, rec.Token, formatTime(olderThan))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO idempotency_keys (user_id, token, message_id, created_at) VALUES (?, ?, ?, ?)
	`, rec.UserID, rec.Token, rec.MessageID, formatTime(rec.CreatedAt))
	if isUniqueConstraintError(err) {
		return message.ErrDuplicateToken
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (b *Backend) DeleteExpiredIdempotency(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := b.db.ExecContext(ctx, `
		DELETE FROM idempotency_keys WHERE created_at < ?
	`, formatTime(olderThan))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
