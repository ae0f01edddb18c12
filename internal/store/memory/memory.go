// Package memory is an in-process storage backend for tests and local
// development. It keeps everything in maps behind one mutex and does not
// support invite tokens.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quillchat/api/internal/asset"
	"github.com/quillchat/api/internal/auth"
	"github.com/quillchat/api/internal/channel"
	"github.com/quillchat/api/internal/message"
	"github.com/quillchat/api/internal/user"
	"github.com/quillchat/api/internal/workspace"
)

type idempotencyKey struct {
	userID string
	token  string
}

type session struct {
	userID    string
	expiresAt time.Time
}

type Backend struct {
	mu          sync.Mutex
	channels    map[string]*channel.Channel
	messages    map[string]*message.Message
	idempotency map[idempotencyKey]*message.IdempotencyRecord
	attachments map[string]*asset.Attachment
	workspaces  map[string]*workspace.Workspace
	members     map[string]map[string]*workspace.Member
	users       map[string]*user.User
	sessions    map[string]session
}

func New() *Backend {
	return &Backend{
		channels:    make(map[string]*channel.Channel),
		messages:    make(map[string]*message.Message),
		idempotency: make(map[idempotencyKey]*message.IdempotencyRecord),
		attachments: make(map[string]*asset.Attachment),
		workspaces:  make(map[string]*workspace.Workspace),
		members:     make(map[string]map[string]*workspace.Member),
		users:       make(map[string]*user.User),
		sessions:    make(map[string]session),
	}
}

func (b *Backend) CreateChannel(_ context.Context, ch *channel.Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch.ID == "" {
		ch.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	ch.CreatedAt = now
	ch.UpdatedAt = now
	clone := *ch
	b.channels[ch.ID] = &clone
	return nil
}

func (b *Backend) GetChannel(_ context.Context, id string) (*channel.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[id]
	if !ok {
		return nil, channel.ErrChannelNotFound
	}
	clone := *ch
	return &clone, nil
}

func (b *Backend) UpdateChannel(_ context.Context, id string, applied channel.Partial, remove []channel.Field) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[id]
	if !ok {
		return channel.ErrChannelNotFound
	}

	for _, field := range remove {
		switch field {
		case channel.FieldDescription:
			ch.Description = nil
		case channel.FieldIcon:
			ch.IconID = nil
		case channel.FieldBanner:
			ch.Banners = nil
		case channel.FieldPassword:
			ch.PasswordHash = nil
		}
	}

	if applied.IconID != nil {
		ch.IconID = applied.IconID
	}
	if applied.Banners != nil {
		ch.Banners = *applied.Banners
	}
	if applied.Name != nil {
		ch.Name = applied.Name
	}
	if applied.Description != nil {
		ch.Description = applied.Description
	}
	if applied.NSFW != nil {
		ch.NSFW = *applied.NSFW
	}
	if applied.PasswordHash != nil {
		ch.PasswordHash = applied.PasswordHash
	}
	if applied.Archived != nil {
		if *applied.Archived {
			now := time.Now().UTC()
			ch.ArchivedAt = &now
		} else {
			ch.ArchivedAt = nil
		}
	}
	if applied.Active != nil {
		ch.Active = *applied.Active
	}
	if applied.OwnerID != nil {
		ch.OwnerID = applied.OwnerID
	}
	ch.UpdatedAt = time.Now().UTC()
	return nil
}

func (b *Backend) CreateMessage(_ context.Context, msg *message.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Type == "" {
		msg.Type = message.TypeUser
	}
	for _, attachmentID := range msg.AttachmentIDs {
		a, ok := b.attachments[attachmentID]
		if !ok || a.DeletedAt != nil {
			return asset.ErrAttachmentNotFound
		}
		a.MessageID = &msg.ID
	}
	clone := *msg
	b.messages[msg.ID] = &clone
	return nil
}

func (b *Backend) GetMessage(_ context.Context, id string) (*message.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg, ok := b.messages[id]
	if !ok || msg.DeletedAt != nil {
		return nil, message.ErrMessageNotFound
	}
	clone := *msg
	return &clone, nil
}

func (b *Backend) ListMessages(_ context.Context, channelID string, opts message.ListOptions) ([]message.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var out []message.Message
	for _, msg := range b.messages {
		if msg.ChannelID != channelID || msg.DeletedAt != nil {
			continue
		}
		if opts.Before != "" && msg.ID >= opts.Before {
			continue
		}
		out = append(out, *msg)
	}
	// Newest first, ULIDs sort chronologically.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *Backend) DeleteMessage(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg, ok := b.messages[id]
	if !ok || msg.DeletedAt != nil {
		return message.ErrMessageNotFound
	}
	now := time.Now().UTC()
	msg.DeletedAt = &now
	return nil
}

func (b *Backend) GetIdempotency(_ context.Context, userID, token string) (*message.IdempotencyRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.idempotency[idempotencyKey{userID, token}]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (b *Backend) PutIdempotency(_ context.Context, rec *message.IdempotencyRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := idempotencyKey{rec.UserID, rec.Token}
	if _, exists := b.idempotency[key]; exists {
		return message.ErrDuplicateToken
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	clone := *rec
	b.idempotency[key] = &clone
	return nil
}

func (b *Backend) ReplaceIdempotency(_ context.Context, rec *message.IdempotencyRecord, olderThan time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := idempotencyKey{rec.UserID, rec.Token}
	if existing, ok := b.idempotency[key]; ok && !existing.CreatedAt.Before(olderThan) {
		return message.ErrDuplicateToken
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	clone := *rec
	b.idempotency[key] = &clone
	return nil
}

func (b *Backend) DeleteExpiredIdempotency(_ context.Context, olderThan time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var removed int64
	for key, rec := range b.idempotency {
		if rec.CreatedAt.Before(olderThan) {
			delete(b.idempotency, key)
			removed++
		}
	}
	return removed, nil
}

func (b *Backend) CreateAttachment(_ context.Context, a *asset.Attachment) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	clone := *a
	b.attachments[a.ID] = &clone
	return nil
}

func (b *Backend) GetAttachment(_ context.Context, id string) (*asset.Attachment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.attachments[id]
	if !ok {
		return nil, asset.ErrAttachmentNotFound
	}
	clone := *a
	return &clone, nil
}

func (b *Backend) SetAttachmentParent(_ context.Context, id, parentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.attachments[id]
	if !ok || a.DeletedAt != nil {
		return asset.ErrAttachmentNotFound
	}
	a.ParentID = &parentID
	return nil
}

func (b *Backend) MarkAttachmentDeleted(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.attachments[id]
	if !ok || a.DeletedAt != nil {
		return asset.ErrAttachmentNotFound
	}
	now := time.Now().UTC()
	a.DeletedAt = &now
	return nil
}

func (b *Backend) ListDeletedAttachments(_ context.Context, limit int) ([]asset.Attachment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []asset.Attachment
	for _, a := range b.attachments {
		if a.DeletedAt == nil {
			continue
		}
		out = append(out, *a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (b *Backend) PurgeAttachment(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.attachments, id)
	return nil
}

func (b *Backend) Workspace(_ context.Context, id string) (*workspace.Workspace, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ws, ok := b.workspaces[id]
	if !ok {
		return nil, workspace.ErrWorkspaceNotFound
	}
	clone := *ws
	return &clone, nil
}

func (b *Backend) Member(_ context.Context, workspaceID, userID string) (*workspace.Member, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.members[workspaceID][userID]
	if !ok {
		return nil, workspace.ErrNotMember
	}
	clone := *m
	return &clone, nil
}

func (b *Backend) GetUser(_ context.Context, id string) (*user.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (b *Backend) UserForSession(_ context.Context, token string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[token]
	if !ok || s.expiresAt.Before(time.Now()) {
		return "", auth.ErrInvalidSession
	}
	return s.userID, nil
}

// Seed helpers used by tests and local development.

func (b *Backend) PutWorkspace(ws *workspace.Workspace) {
	b.mu.Lock()
	defer b.mu.Unlock()
	clone := *ws
	b.workspaces[ws.ID] = &clone
}

func (b *Backend) PutMember(m *workspace.Member) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.members[m.WorkspaceID] == nil {
		b.members[m.WorkspaceID] = make(map[string]*workspace.Member)
	}
	clone := *m
	b.members[m.WorkspaceID][m.UserID] = &clone
}

func (b *Backend) PutUser(u *user.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	clone := *u
	b.users[u.ID] = &clone
}

func (b *Backend) PutSession(token, userID string, expiresAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[token] = session{userID: userID, expiresAt: expiresAt}
}
