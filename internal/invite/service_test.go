package invite

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	created []*Token
	err     error
}

func (f *fakeStore) CreateInviteToken(_ context.Context, tok *Token) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, tok)
	return nil
}

func TestGenerate(t *testing.T) {
	store := &fakeStore{}
	s := NewService(store)

	tok, err := s.Generate(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if tok.ID == "" {
		t.Error("expected generated ID")
	}
	if len(tok.Token) != 32 {
		t.Errorf("token length = %d, want 32", len(tok.Token))
	}
	if tok.TokenType != TypeInvite {
		t.Errorf("token type = %q", tok.TokenType)
	}
	if tok.CreatorID != "alice" {
		t.Errorf("creator = %q", tok.CreatorID)
	}

	validity := tok.ExpiresAt.Sub(tok.CreatedAt)
	if validity != TokenValidity {
		t.Errorf("validity = %v, want %v", validity, TokenValidity)
	}
	if len(store.created) != 1 {
		t.Errorf("stored %d tokens", len(store.created))
	}
}

func TestGenerate_NeverRepeats(t *testing.T) {
	s := NewService(&fakeStore{})

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tok, err := s.Generate(context.Background(), "alice")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if seen[tok.Token] {
			t.Fatalf("token %q repeated", tok.Token)
		}
		seen[tok.Token] = true
	}
}

func TestGenerate_StoreFailureSurfaces(t *testing.T) {
	s := NewService(&fakeStore{err: errors.New("backend does not support invites")})

	if _, err := s.Generate(context.Background(), "alice"); err == nil {
		t.Fatal("expected store error to surface")
	}
}

func TestTokenValidityIsSevenDays(t *testing.T) {
	if TokenValidity != 7*24*time.Hour {
		t.Errorf("TokenValidity = %v", TokenValidity)
	}
}
