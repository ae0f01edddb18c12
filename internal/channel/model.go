package channel

import (
	"errors"
	"time"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrInvalidOperation = errors.New("operation not valid for this channel type")
	ErrNotOwner         = errors.New("not the owner of this group")
	ErrNotInGroup       = errors.New("user is not a recipient of this group")
)

// Channel variants. The type field is the discriminant persisted with the
// document; variant-specific fields are null/empty on other variants.
const (
	TypeGroup         = "group"
	TypeText          = "text"
	TypeVoice         = "voice"
	TypeDM            = "dm"
	TypeSavedMessages = "saved_messages"
	TypeMarketplaceDM = "marketplace_dm"
	TypeAdminDM       = "admin_dm"
	TypeExperienceDM  = "experience_dm"
)

// Banner is an image slot on group, text and voice channels. The icon is
// an attachment ID; entries without an icon are dropped on edit.
type Banner struct {
	IconID *string `json:"icon,omitempty"`
	Link   *string `json:"link,omitempty"`
}

// Override is a channel-level allow/deny pair layered over workspace roles.
type Override struct {
	Allow uint64 `json:"a"`
	Deny  uint64 `json:"d"`
}

type Channel struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	// WorkspaceID is set on text and voice channels only.
	WorkspaceID *string `json:"workspace_id,omitempty"`

	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	IconID      *string  `json:"icon,omitempty"`
	Banners     []Banner `json:"banners,omitempty"`
	NSFW        bool     `json:"nsfw"`

	// PasswordHash is the bcrypt hash of the channel password. Never
	// serialized to clients.
	PasswordHash *string `json:"-"`

	// OwnerID is only meaningful on groups, where it is transferable.
	OwnerID *string `json:"owner,omitempty"`

	Recipients []string `json:"recipients,omitempty"`

	// Channel-level permission overrides (text/voice channels).
	DefaultPermissions *Override           `json:"default_permissions,omitempty"`
	RolePermissions    map[string]Override `json:"role_permissions,omitempty"`

	// Active toggles specialized DM variants; those channels accept no
	// other mutation after creation.
	Active bool `json:"active"`

	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsGroup reports whether the channel is a group DM with an owner.
func (c *Channel) IsGroup() bool { return c.Type == TypeGroup }

// IsSpecializedDM reports whether the channel is one of the DM variants
// that only support the active toggle after creation.
func (c *Channel) IsSpecializedDM() bool {
	switch c.Type {
	case TypeMarketplaceDM, TypeAdminDM, TypeExperienceDM:
		return true
	}
	return false
}

// IsDirect reports whether view access is gated on the recipient list.
func (c *Channel) IsDirect() bool {
	return c.Type == TypeDM || c.Type == TypeGroup || c.IsSpecializedDM()
}

// SupportsDetails reports whether name, description, icon, nsfw and
// password can be edited on this variant.
func (c *Channel) SupportsDetails() bool {
	switch c.Type {
	case TypeGroup, TypeText, TypeVoice:
		return true
	}
	return false
}

// SupportsBanners reports whether the banner list can be edited.
func (c *Channel) SupportsBanners() bool { return c.SupportsDetails() }

// HasRecipient reports whether userID is in the recipient list.
func (c *Channel) HasRecipient(userID string) bool {
	for _, r := range c.Recipients {
		if r == userID {
			return true
		}
	}
	return false
}

// Field identifies a clearable channel field in a removal list.
type Field string

const (
	FieldDescription Field = "description"
	FieldIcon        Field = "icon"
	FieldBanner      Field = "banner"
	FieldPassword    Field = "password"
)

// ParseField maps a wire name onto a Field, reporting whether it is known.
func ParseField(s string) (Field, bool) {
	switch Field(s) {
	case FieldDescription, FieldIcon, FieldBanner, FieldPassword:
		return Field(s), true
	}
	return "", false
}

// Partial is the sparse "fields to set" projection of a channel. A present
// field always overwrites the stored one; absent fields are untouched
// unless named in the companion removal list.
type Partial struct {
	Name         *string   `json:"name,omitempty"`
	Description  *string   `json:"description,omitempty"`
	OwnerID      *string   `json:"owner,omitempty"`
	IconID       *string   `json:"icon,omitempty"`
	Banners      *[]Banner `json:"banners,omitempty"`
	NSFW         *bool     `json:"nsfw,omitempty"`
	PasswordHash *string   `json:"-"`
	Archived     *bool     `json:"archived,omitempty"`
	Active       *bool     `json:"active,omitempty"`
}

// IsEmpty reports whether the partial carries no field at all.
func (p Partial) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.OwnerID == nil &&
		p.IconID == nil && p.Banners == nil && p.NSFW == nil &&
		p.PasswordHash == nil && p.Archived == nil && p.Active == nil
}
