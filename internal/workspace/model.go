package workspace

import (
	"errors"
	"time"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrNotMember         = errors.New("not a member of this workspace")
)

// Workspace is the parent context for text and voice channels. Roles are
// loaded together with the workspace so permission resolution never needs
// a second round trip.
type Workspace struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`

	// DefaultPermissions is the baseline capability bitset granted to
	// every member before role and channel overrides are applied.
	DefaultPermissions uint64 `json:"default_permissions"`

	Roles []Role `json:"roles,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role carries a workspace-scoped allow/deny pair. Allow bits are OR-ed
// across all roles a member holds; deny bits are applied afterwards.
type Role struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Allow       uint64 `json:"allow"`
	Deny        uint64 `json:"deny"`
	Rank        int    `json:"rank"`
}

// Member links a user to a workspace with zero or more role IDs.
type Member struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	UserID      string    `json:"user_id"`
	RoleIDs     []string  `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
}

// Role returns the role with the given ID, if the workspace defines it.
func (w *Workspace) Role(id string) (Role, bool) {
	for _, r := range w.Roles {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}
