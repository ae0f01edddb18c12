package store

import (
	"context"
	"fmt"

	"github.com/quillchat/api/internal/invite"
)

// unsupportedInvites is wired into a Gateway at construction when the
// selected backend has no invite-token support. Calls fail immediately
// rather than no-op, per the gateway contract.
type unsupportedInvites struct {
	driver string
}

func (u unsupportedInvites) CreateInviteToken(context.Context, *invite.Token) error {
	return fmt.Errorf("%w: invite tokens (driver %q)", ErrNotSupported, u.driver)
}

func (u unsupportedInvites) GetInviteToken(context.Context, string) (*invite.Token, error) {
	return nil, fmt.Errorf("%w: invite tokens (driver %q)", ErrNotSupported, u.driver)
}
