package channel

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Store is the slice of the storage gateway the mutation engine writes
// through. The update carries the applied partial and the removal list in
// one call so concurrent edits to disjoint fields need no client locks.
type Store interface {
	UpdateChannel(ctx context.Context, id string, applied Partial, remove []Field) error
}

// AssetLifecycle resolves uploaded attachments into channel icons and
// schedules cleared assets for garbage collection.
type AssetLifecycle interface {
	// UseAsIcon verifies the attachment exists, binds it to the channel
	// and returns its ID.
	UseAsIcon(ctx context.Context, assetID, channelID string) (string, error)
	// MarkForDeletion schedules the asset for background removal.
	MarkForDeletion(ctx context.Context, assetID string) error
}

// Edit is the sparse mutation payload as received from the caller. The
// password travels in the clear here and is hashed before it reaches the
// applied partial.
type Edit struct {
	Name        *string
	Description *string
	Owner       *string
	Icon        *string
	Banners     *[]Banner
	NSFW        *bool
	Password    *string
	Archived    *bool
	Active      *bool
	Remove      []Field
}

// IsEmpty reports whether the edit names no field and no removal.
func (e Edit) IsEmpty() bool {
	return e.Name == nil && e.Description == nil && e.Owner == nil &&
		e.Icon == nil && e.Banners == nil && e.NSFW == nil &&
		e.Password == nil && e.Archived == nil && e.Active == nil &&
		len(e.Remove) == 0
}

// MutationEngine applies sparse edits to channels while enforcing the
// per-variant field rules.
type MutationEngine struct {
	store      Store
	assets     AssetLifecycle
	bcryptCost int
}

func NewMutationEngine(store Store, assets AssetLifecycle, bcryptCost int) *MutationEngine {
	return &MutationEngine{store: store, assets: assets, bcryptCost: bcryptCost}
}

// Apply merges the edit into the channel and persists the result with a
// single atomic update. It returns the updated channel together with the
// applied partial: only fields that actually changed are mirrored there,
// so callers can tell a no-op request from a real mutation. An entirely
// empty edit short-circuits and touches neither the channel nor storage.
//
// Removals are processed before sets; an icon removal schedules the old
// asset for deletion unconditionally, even though the API contract forbids
// removing and setting the same field in one request.
func (m *MutationEngine) Apply(ctx context.Context, actor string, ch *Channel, edit Edit) (*Channel, Partial, error) {
	var applied Partial

	if edit.IsEmpty() {
		return ch, applied, nil
	}

	if err := validateEdit(actor, ch, edit); err != nil {
		return ch, Partial{}, err
	}

	next := cloneChannel(ch)

	// Removals first.
	for _, field := range edit.Remove {
		switch field {
		case FieldDescription:
			next.Description = nil
		case FieldIcon:
			if next.IconID != nil {
				if err := m.assets.MarkForDeletion(ctx, *next.IconID); err != nil {
					return ch, Partial{}, fmt.Errorf("scheduling icon deletion: %w", err)
				}
			}
			next.IconID = nil
		case FieldBanner:
			for _, b := range next.Banners {
				if b.IconID == nil {
					continue
				}
				if err := m.assets.MarkForDeletion(ctx, *b.IconID); err != nil {
					return ch, Partial{}, fmt.Errorf("scheduling banner deletion: %w", err)
				}
			}
			next.Banners = nil
		case FieldPassword:
			next.PasswordHash = nil
		}
	}

	// Sets, in fixed field order: icon, banners, name, description, nsfw,
	// password, archived, active, owner.
	if edit.Icon != nil {
		iconID, err := m.assets.UseAsIcon(ctx, *edit.Icon, next.ID)
		if err != nil {
			return ch, Partial{}, err
		}
		next.IconID = &iconID
		applied.IconID = &iconID
	}

	if edit.Banners != nil {
		// Banner entries without an icon are silently dropped.
		banners := make([]Banner, 0, len(*edit.Banners))
		for _, b := range *edit.Banners {
			if b.IconID == nil {
				continue
			}
			iconID, err := m.assets.UseAsIcon(ctx, *b.IconID, next.ID)
			if err != nil {
				return ch, Partial{}, err
			}
			banners = append(banners, Banner{IconID: &iconID, Link: b.Link})
		}
		next.Banners = banners
		applied.Banners = &banners
	}

	if edit.Name != nil && !equalPtr(next.Name, edit.Name) {
		next.Name = edit.Name
		applied.Name = edit.Name
	}

	if edit.Description != nil && !equalPtr(next.Description, edit.Description) {
		next.Description = edit.Description
		applied.Description = edit.Description
	}

	if edit.NSFW != nil && next.NSFW != *edit.NSFW {
		next.NSFW = *edit.NSFW
		applied.NSFW = edit.NSFW
	}

	if edit.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*edit.Password), m.bcryptCost)
		if err != nil {
			return ch, Partial{}, fmt.Errorf("hashing channel password: %w", err)
		}
		h := string(hash)
		next.PasswordHash = &h
		applied.PasswordHash = &h
	}

	if edit.Archived != nil {
		archived := next.ArchivedAt != nil
		if *edit.Archived != archived {
			if *edit.Archived {
				now := time.Now().UTC()
				next.ArchivedAt = &now
			} else {
				next.ArchivedAt = nil
			}
			applied.Archived = edit.Archived
		}
	}

	if edit.Active != nil && next.Active != *edit.Active {
		next.Active = *edit.Active
		applied.Active = edit.Active
	}

	if edit.Owner != nil && !equalPtr(next.OwnerID, edit.Owner) {
		next.OwnerID = edit.Owner
		applied.OwnerID = edit.Owner
	}

	if applied.IsEmpty() && len(edit.Remove) == 0 {
		return ch, applied, nil
	}

	if err := m.store.UpdateChannel(ctx, next.ID, applied, edit.Remove); err != nil {
		return ch, Partial{}, err
	}

	next.UpdatedAt = time.Now().UTC()
	return next, applied, nil
}

// validateEdit enforces the per-variant field rules before any state is
// touched, so a rejected edit leaves no trace.
func validateEdit(actor string, ch *Channel, edit Edit) error {
	if edit.Owner != nil {
		if !ch.IsGroup() {
			return ErrInvalidOperation
		}
		if ch.OwnerID == nil || *ch.OwnerID != actor {
			return ErrNotOwner
		}
		if !ch.HasRecipient(*edit.Owner) {
			return ErrNotInGroup
		}
	}

	wantsDetails := edit.Name != nil || edit.Description != nil || edit.Icon != nil ||
		edit.NSFW != nil || edit.Password != nil || len(edit.Remove) > 0
	if wantsDetails && !ch.SupportsDetails() {
		return ErrInvalidOperation
	}
	if edit.Banners != nil && !ch.SupportsBanners() {
		return ErrInvalidOperation
	}
	if edit.Archived != nil && !ch.SupportsDetails() {
		return ErrInvalidOperation
	}
	if edit.Active != nil && !ch.IsSpecializedDM() {
		return ErrInvalidOperation
	}

	return nil
}

func cloneChannel(ch *Channel) *Channel {
	next := *ch
	next.Banners = append([]Banner(nil), ch.Banners...)
	next.Recipients = append([]string(nil), ch.Recipients...)
	if len(ch.RolePermissions) > 0 {
		next.RolePermissions = make(map[string]Override, len(ch.RolePermissions))
		for k, v := range ch.RolePermissions {
			next.RolePermissions[k] = v
		}
	}
	return &next
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
