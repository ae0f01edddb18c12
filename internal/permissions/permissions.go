package permissions

import (
	"errors"
	"strings"
)

// ErrPermissionDenied is returned whenever a required capability bit is
// missing. Checks fail closed: absence of an explicit allow is a denial.
var ErrPermissionDenied = errors.New("permission denied")

// Permission is a single capability bit.
type Permission uint64

const (
	ViewChannel Permission = 1 << iota
	ReadMessageHistory
	SendMessage
	ManageMessages
	ManageChannel
	ManageRole
	ManageWorkspace
	InviteOthers
	SendEmbeds
	UploadFiles
	Masquerade
	React
)

var permissionNames = map[Permission]string{
	ViewChannel:        "view_channel",
	ReadMessageHistory: "read_message_history",
	SendMessage:        "send_message",
	ManageMessages:     "manage_messages",
	ManageChannel:      "manage_channel",
	ManageRole:         "manage_role",
	ManageWorkspace:    "manage_workspace",
	InviteOthers:       "invite_others",
	SendEmbeds:         "send_embeds",
	UploadFiles:        "upload_files",
	Masquerade:         "masquerade",
	React:              "react",
}

func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return "unknown"
}

// CapabilitySet is the resolved, immutable bitset for one (user, channel)
// pair. It is computed once per request and reused for every check.
type CapabilitySet uint64

// AllCapabilities has every defined bit set. Granted to group owners,
// saved-messages owners and workspace owners.
const AllCapabilities CapabilitySet = CapabilitySet(React<<1 - 1)

// DefaultDirectMessage is the baseline for DM, group and specialized DM
// channels once recipient membership is established.
const DefaultDirectMessage = CapabilitySet(ViewChannel | ReadMessageHistory | SendMessage |
	SendEmbeds | UploadFiles | React | InviteOthers | Masquerade)

// DefaultSavedMessages applies to the owner of a saved-messages channel.
// Nobody else resolves any bits there.
const DefaultSavedMessages = AllCapabilities

func (c CapabilitySet) Has(p Permission) bool {
	return c&CapabilitySet(p) == CapabilitySet(p)
}

// Require returns ErrPermissionDenied unless every bit of p is present.
func (c CapabilitySet) Require(p Permission) error {
	if !c.Has(p) {
		return ErrPermissionDenied
	}
	return nil
}

// Grant returns a copy of the set with the given bits added.
func (c CapabilitySet) Grant(bits uint64) CapabilitySet {
	return c | CapabilitySet(bits)
}

// Revoke returns a copy of the set with the given bits removed.
func (c CapabilitySet) Revoke(bits uint64) CapabilitySet {
	return c &^ CapabilitySet(bits)
}

// Apply layers an allow/deny override on top of the set. Allow is applied
// first so an override can both grant and withhold in one step; deny wins
// when the same bit appears in both.
func (c CapabilitySet) Apply(allow, deny uint64) CapabilitySet {
	return c.Grant(allow).Revoke(deny)
}

func (c CapabilitySet) String() string {
	var names []string
	for p, name := range permissionNames {
		if c.Has(p) {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}
