// Package store routes all persistence through a driver-selected gateway.
// Each model gets a small verb interface; a backend that cannot serve a
// model is wired to an implementation that fails loudly with
// ErrNotSupported instead of silently succeeding.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/quillchat/api/internal/asset"
	"github.com/quillchat/api/internal/channel"
	"github.com/quillchat/api/internal/invite"
	"github.com/quillchat/api/internal/message"
	"github.com/quillchat/api/internal/user"
	"github.com/quillchat/api/internal/workspace"
)

// ErrNotSupported signals that the selected backend does not implement
// the requested operation. It is a deliberate fail-loud contract: an
// incomplete backend must never be mistaken for a successful write.
var ErrNotSupported = errors.New("operation not supported by this backend")

// ErrUnknownDriver is returned by Open for unrecognized driver names.
var ErrUnknownDriver = errors.New("unknown storage driver")

type Channels interface {
	CreateChannel(ctx context.Context, ch *channel.Channel) error
	GetChannel(ctx context.Context, id string) (*channel.Channel, error)
	// UpdateChannel applies the partial and removal list in one atomic
	// write; it satisfies channel.Store.
	UpdateChannel(ctx context.Context, id string, applied channel.Partial, remove []channel.Field) error
}

type Messages interface {
	CreateMessage(ctx context.Context, msg *message.Message) error
	GetMessage(ctx context.Context, id string) (*message.Message, error)
	ListMessages(ctx context.Context, channelID string, opts message.ListOptions) ([]message.Message, error)
	// DeleteMessage soft-deletes; the conditional write means two
	// concurrent deletes cannot both succeed.
	DeleteMessage(ctx context.Context, id string) error
}

type Idempotency interface {
	GetIdempotency(ctx context.Context, userID, token string) (*message.IdempotencyRecord, error)
	PutIdempotency(ctx context.Context, rec *message.IdempotencyRecord) error
	// ReplaceIdempotency atomically swaps a record older than the cutoff
	// for rec; a still-live record fails with ErrDuplicateToken.
	ReplaceIdempotency(ctx context.Context, rec *message.IdempotencyRecord, olderThan time.Time) error
	DeleteExpiredIdempotency(ctx context.Context, olderThan time.Time) (int64, error)
}

type Invites interface {
	CreateInviteToken(ctx context.Context, tok *invite.Token) error
	GetInviteToken(ctx context.Context, token string) (*invite.Token, error)
}

type Assets interface {
	CreateAttachment(ctx context.Context, a *asset.Attachment) error
	GetAttachment(ctx context.Context, id string) (*asset.Attachment, error)
	SetAttachmentParent(ctx context.Context, id, parentID string) error
	MarkAttachmentDeleted(ctx context.Context, id string) error
	ListDeletedAttachments(ctx context.Context, limit int) ([]asset.Attachment, error)
	PurgeAttachment(ctx context.Context, id string) error
}

type Workspaces interface {
	Workspace(ctx context.Context, id string) (*workspace.Workspace, error)
	Member(ctx context.Context, workspaceID, userID string) (*workspace.Member, error)
}

type Users interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

type Sessions interface {
	// UserForSession resolves a bearer token to a user ID, ignoring
	// expired sessions.
	UserForSession(ctx context.Context, token string) (string, error)
}

// Gateway is the capability-tagged dispatch surface the rest of the
// process persists through. Exactly one backend is selected at start;
// models a backend cannot serve carry ErrNotSupported implementations.
type Gateway struct {
	Channels    Channels
	Messages    Messages
	Idempotency Idempotency
	Invites     Invites
	Assets      Assets
	Workspaces  Workspaces
	Users       Users
	Sessions    Sessions
}
