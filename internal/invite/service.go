package invite

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

var ErrTokenNotFound = errors.New("invite token not found")

// TokenValidity is how long a generated invitation token stays usable.
const TokenValidity = 7 * 24 * time.Hour

const TypeInvite = "invite"

// Token is an invitation token a user hands to someone joining the
// platform. Generation is never idempotent: every call mints a new one.
type Token struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	CreatorID string    `json:"creator_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the slice of the storage gateway invitation tokens go through.
type Store interface {
	CreateInviteToken(ctx context.Context, tok *Token) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Generate mints a fresh token for creator, valid for TokenValidity.
func (s *Service) Generate(ctx context.Context, creatorID string) (*Token, error) {
	now := time.Now().UTC()
	tok := &Token{
		ID:        ulid.Make().String(),
		Token:     randomToken(32),
		TokenType: TypeInvite,
		CreatorID: creatorID,
		ExpiresAt: now.Add(TokenValidity),
		CreatedAt: now,
	}
	if err := s.store.CreateInviteToken(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func randomToken(length int) string {
	buf := make([]byte, length)
	_, _ = rand.Read(buf)
	return tokenEncoding.EncodeToString(buf)[:length]
}
