package message

import (
	"errors"
	"time"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyMessage    = errors.New("message has no content or attachments")
	// ErrDuplicateToken is returned by idempotency stores when another
	// request already recorded the same (user, token) pair.
	ErrDuplicateToken = errors.New("idempotency token already recorded")
)

// Message types
const (
	TypeUser   = "user"
	TypeSystem = "system"
)

// System event types, the closed set of state changes the platform
// narrates into a channel.
const (
	SystemOwnershipChanged   = "channel_ownership_changed"
	SystemChannelRenamed     = "channel_renamed"
	SystemDescriptionChanged = "channel_description_changed"
	SystemIconChanged        = "channel_icon_changed"
)

// SystemEvent carries the minimal data needed to render a system notice.
type SystemEvent struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	By   string `json:"by,omitempty"`
}

// Embed is a rich content block attached to a message.
type Embed struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	URL         *string `json:"url,omitempty"`
	Media       *string `json:"media,omitempty"`
	Colour      *string `json:"colour,omitempty"`
}

// Masquerade overrides how the author is displayed for one message.
// Setting a colour requires the ManageRole capability on top of Masquerade.
type Masquerade struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
	Colour *string `json:"colour,omitempty"`
}

// Interactions configures how recipients may react to the message.
type Interactions struct {
	Reactions         []string `json:"reactions,omitempty"`
	RestrictReactions bool     `json:"restrict_reactions,omitempty"`
}

type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	// AuthorID is nil for system-authored messages.
	AuthorID      *string       `json:"author_id,omitempty"`
	Type          string        `json:"type"`
	Content       string        `json:"content"`
	System        *SystemEvent  `json:"system,omitempty"`
	Embeds        []Embed       `json:"embeds,omitempty"`
	AttachmentIDs []string      `json:"attachments,omitempty"`
	Masquerade    *Masquerade   `json:"masquerade,omitempty"`
	Interactions  *Interactions `json:"interactions,omitempty"`
	DeletedAt     *time.Time    `json:"deleted_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IdempotencyRecord maps a (user, client token) pair onto the message the
// first accepted send produced. Records are read-only until they expire.
type IdempotencyRecord struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	MessageID string    `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ListOptions pages through a channel's messages by ULID cursor.
type ListOptions struct {
	Before string
	Limit  int
}
