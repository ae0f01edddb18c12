package sqlite

import (
	"context"
	"database/sql"

	"github.com/quillchat/api/internal/invite"
)

func (b *Backend) CreateInviteToken(ctx context.Context, tok *invite.Token) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO invite_tokens (id, token, token_type, creator_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tok.ID, tok.Token, tok.TokenType, tok.CreatorID, formatTime(tok.ExpiresAt), formatTime(tok.CreatedAt))
	return err
}

func (b *Backend) GetInviteToken(ctx context.Context, token string) (*invite.Token, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, token, token_type, creator_id, expires_at, created_at FROM invite_tokens WHERE token = ?
	`, token)

	var tok invite.Token
	var expiresAt, createdAt string
	err := row.Scan(&tok.ID, &tok.Token, &tok.TokenType, &tok.CreatorID, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, invite.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	tok.ExpiresAt = parseTime(expiresAt)
	tok.CreatedAt = parseTime(createdAt)
	return &tok, nil
}
