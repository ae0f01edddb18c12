package permissions

import (
	"errors"
	"testing"
)

func TestCapabilitySet_HasAndRequire(t *testing.T) {
	set := CapabilitySet(ViewChannel | SendMessage)

	if !set.Has(ViewChannel) {
		t.Error("expected ViewChannel to be present")
	}
	if set.Has(ManageChannel) {
		t.Error("did not expect ManageChannel")
	}
	if err := set.Require(SendMessage); err != nil {
		t.Errorf("Require(SendMessage) error = %v", err)
	}
	if err := set.Require(ManageChannel); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Require(ManageChannel) error = %v, want ErrPermissionDenied", err)
	}
}

func TestCapabilitySet_ApplyDenyWins(t *testing.T) {
	set := CapabilitySet(ViewChannel)
	set = set.Apply(uint64(SendMessage|ManageChannel), uint64(ManageChannel))

	if !set.Has(SendMessage) {
		t.Error("expected SendMessage after allow")
	}
	if set.Has(ManageChannel) {
		t.Error("deny must win over allow for the same bit")
	}
	if !set.Has(ViewChannel) {
		t.Error("untouched bits must survive Apply")
	}
}

func TestAllCapabilitiesCoversEveryBit(t *testing.T) {
	for p := range permissionNames {
		if !AllCapabilities.Has(p) {
			t.Errorf("AllCapabilities missing %s", p)
		}
	}
}

func TestRevoke(t *testing.T) {
	set := DefaultDirectMessage.Revoke(uint64(SendMessage))
	if set.Has(SendMessage) {
		t.Error("expected SendMessage revoked")
	}
	if !set.Has(ViewChannel) {
		t.Error("Revoke must not touch other bits")
	}
}
