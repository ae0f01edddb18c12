package permissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/quillchat/api/internal/channel"
	"github.com/quillchat/api/internal/workspace"
)

// RoleSource supplies the workspace and membership data backing role
// aggregation. Implemented by the storage gateway.
type RoleSource interface {
	Workspace(ctx context.Context, id string) (*workspace.Workspace, error)
	Member(ctx context.Context, workspaceID, userID string) (*workspace.Member, error)
}

// Evaluator resolves a CapabilitySet for a (user, channel) pair.
//
// Resolution order:
//  1. direct channels require recipient membership for any bit at all;
//  2. workspace role allow bits are aggregated by bitwise OR, denies
//     applied after;
//  3. channel-level overrides (default, then per-role) are layered on
//     top and take precedence;
//  4. owners (group owner, saved-messages owner, workspace owner) hold
//     every capability unconditionally.
type Evaluator struct {
	roles RoleSource
}

func NewEvaluator(roles RoleSource) *Evaluator {
	return &Evaluator{roles: roles}
}

// Evaluate computes the capability set once; callers reuse it for every
// check within the request. A user with no relationship to the channel
// resolves to the empty set rather than an error, so later Require calls
// fail closed.
func (e *Evaluator) Evaluate(ctx context.Context, userID string, ch *channel.Channel) (CapabilitySet, error) {
	switch {
	case ch.Type == channel.TypeSavedMessages:
		if ch.OwnerID != nil && *ch.OwnerID == userID {
			return DefaultSavedMessages, nil
		}
		return 0, nil

	case ch.IsDirect():
		if !ch.HasRecipient(userID) {
			return 0, nil
		}
		if ch.IsGroup() && ch.OwnerID != nil && *ch.OwnerID == userID {
			return AllCapabilities, nil
		}
		set := DefaultDirectMessage
		if ch.IsSpecializedDM() && !ch.Active {
			// A closed specialized DM is readable but not writable.
			set = set.Revoke(uint64(SendMessage))
		}
		return set, nil

	case ch.WorkspaceID != nil:
		return e.evaluateWorkspaceChannel(ctx, userID, ch)
	}

	return 0, nil
}

func (e *Evaluator) evaluateWorkspaceChannel(ctx context.Context, userID string, ch *channel.Channel) (CapabilitySet, error) {
	ws, err := e.roles.Workspace(ctx, *ch.WorkspaceID)
	if err != nil {
		if errors.Is(err, workspace.ErrWorkspaceNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("loading workspace: %w", err)
	}

	if ws.OwnerID == userID {
		return AllCapabilities, nil
	}

	member, err := e.roles.Member(ctx, ws.ID, userID)
	if err != nil {
		if errors.Is(err, workspace.ErrNotMember) {
			return 0, nil
		}
		return 0, fmt.Errorf("loading membership: %w", err)
	}

	set := CapabilitySet(ws.DefaultPermissions)

	// Aggregate role grants: allows OR together, denies applied after so
	// a deny on any held role wins over an allow on another.
	var allow, deny uint64
	for _, roleID := range member.RoleIDs {
		role, ok := ws.Role(roleID)
		if !ok {
			continue
		}
		allow |= role.Allow
		deny |= role.Deny
	}
	set = set.Apply(allow, deny)

	// Channel overrides take precedence over everything role-derived.
	if ch.DefaultPermissions != nil {
		set = set.Apply(ch.DefaultPermissions.Allow, ch.DefaultPermissions.Deny)
	}
	if len(ch.RolePermissions) > 0 {
		var chAllow, chDeny uint64
		for _, roleID := range member.RoleIDs {
			if ov, ok := ch.RolePermissions[roleID]; ok {
				chAllow |= ov.Allow
				chDeny |= ov.Deny
			}
		}
		set = set.Apply(chAllow, chDeny)
	}

	return set, nil
}
