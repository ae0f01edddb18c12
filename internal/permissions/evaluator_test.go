package permissions

import (
	"context"
	"testing"

	"github.com/quillchat/api/internal/channel"
	"github.com/quillchat/api/internal/workspace"
)

type fakeRoleSource struct {
	workspaces map[string]*workspace.Workspace
	members    map[string]*workspace.Member // key: workspaceID + ":" + userID
}

func (f *fakeRoleSource) Workspace(_ context.Context, id string) (*workspace.Workspace, error) {
	ws, ok := f.workspaces[id]
	if !ok {
		return nil, workspace.ErrWorkspaceNotFound
	}
	return ws, nil
}

func (f *fakeRoleSource) Member(_ context.Context, workspaceID, userID string) (*workspace.Member, error) {
	m, ok := f.members[workspaceID+":"+userID]
	if !ok {
		return nil, workspace.ErrNotMember
	}
	return m, nil
}

func strp(s string) *string { return &s }

func TestEvaluate_StrangerResolvesEmpty(t *testing.T) {
	e := NewEvaluator(&fakeRoleSource{})
	ch := &channel.Channel{ID: "c1", Type: channel.TypeDM, Recipients: []string{"alice", "bob"}}

	set, err := e.Evaluate(context.Background(), "mallory", ch)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if set != 0 {
		t.Errorf("stranger resolved %v, want empty set", set)
	}
}

func TestEvaluate_DMRecipientGetsDefaults(t *testing.T) {
	e := NewEvaluator(&fakeRoleSource{})
	ch := &channel.Channel{ID: "c1", Type: channel.TypeDM, Recipients: []string{"alice", "bob"}}

	set, err := e.Evaluate(context.Background(), "alice", ch)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if set != DefaultDirectMessage {
		t.Errorf("recipient resolved %v, want DefaultDirectMessage", set)
	}
}

func TestEvaluate_GroupOwnerHasAll(t *testing.T) {
	e := NewEvaluator(&fakeRoleSource{})
	ch := &channel.Channel{
		ID: "c1", Type: channel.TypeGroup,
		OwnerID:    strp("alice"),
		Recipients: []string{"alice", "bob"},
	}

	set, err := e.Evaluate(context.Background(), "alice", ch)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if set != AllCapabilities {
		t.Errorf("owner resolved %v, want AllCapabilities", set)
	}
}

func TestEvaluate_InactiveSpecializedDMRevokesSend(t *testing.T) {
	e := NewEvaluator(&fakeRoleSource{})
	ch := &channel.Channel{
		ID: "c1", Type: channel.TypeAdminDM,
		Recipients: []string{"alice", "bob"},
		Active:     false,
	}

	set, err := e.Evaluate(context.Background(), "alice", ch)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if set.Has(SendMessage) {
		t.Error("inactive specialized DM must not allow SendMessage")
	}
	if !set.Has(ViewChannel) || !set.Has(ReadMessageHistory) {
		t.Error("inactive specialized DM must stay readable")
	}
}

func TestEvaluate_SavedMessagesOwnerOnly(t *testing.T) {
	e := NewEvaluator(&fakeRoleSource{})
	ch := &channel.Channel{ID: "c1", Type: channel.TypeSavedMessages, OwnerID: strp("alice")}

	set, err := e.Evaluate(context.Background(), "alice", ch)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if set != DefaultSavedMessages {
		t.Errorf("owner resolved %v, want DefaultSavedMessages", set)
	}

	set, err = e.Evaluate(context.Background(), "bob", ch)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if set != 0 {
		t.Errorf("non-owner resolved %v, want empty set", set)
	}
}

func TestEvaluate_WorkspaceRoleAggregation(t *testing.T) {
	ws := &workspace.Workspace{
		ID:                 "w1",
		OwnerID:            "owner",
		DefaultPermissions: uint64(ViewChannel),
		Roles: []workspace.Role{
			{ID: "r1", Allow: uint64(SendMessage | SendEmbeds)},
			{ID: "r2", Allow: uint64(UploadFiles), Deny: uint64(SendEmbeds)},
		},
	}
	src := &fakeRoleSource{
		workspaces: map[string]*workspace.Workspace{"w1": ws},
		members: map[string]*workspace.Member{
			"w1:alice": {WorkspaceID: "w1", UserID: "alice", RoleIDs: []string{"r1", "r2"}},
		},
	}
	e := NewEvaluator(src)
	ch := &channel.Channel{ID: "c1", Type: channel.TypeText, WorkspaceID: strp("w1")}

	set, err := e.Evaluate(context.Background(), "alice", ch)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !set.Has(ViewChannel) {
		t.Error("workspace defaults must apply")
	}
	if !set.Has(SendMessage) || !set.Has(UploadFiles) {
		t.Error("role allows must OR together")
	}
	if set.Has(SendEmbeds) {
		t.Error("a deny on any held role must win over an allow on another")
	}
}

func TestEvaluate_ChannelOverridesTakePrecedence(t *testing.T) {
	ws := &workspace.Workspace{
		ID:                 "w1",
		OwnerID:            "owner",
		DefaultPermissions: uint64(ViewChannel | SendMessage),
		Roles:              []workspace.Role{{ID: "r1"}},
	}
	src := &fakeRoleSource{
		workspaces: map[string]*workspace.Workspace{"w1": ws},
		members: map[string]*workspace.Member{
			"w1:alice": {WorkspaceID: "w1", UserID: "alice", RoleIDs: []string{"r1"}},
		},
	}
	e := NewEvaluator(src)
	ch := &channel.Channel{
		ID: "c1", Type: channel.TypeText, WorkspaceID: strp("w1"),
		DefaultPermissions: &channel.Override{Deny: uint64(SendMessage)},
		RolePermissions: map[string]channel.Override{
			"r1": {Allow: uint64(ManageMessages)},
		},
	}

	set, err := e.Evaluate(context.Background(), "alice", ch)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if set.Has(SendMessage) {
		t.Error("channel default override must deny SendMessage")
	}
	if !set.Has(ManageMessages) {
		t.Error("channel role override must grant ManageMessages")
	}
}

func TestEvaluate_WorkspaceOwnerHasAll(t *testing.T) {
	src := &fakeRoleSource{
		workspaces: map[string]*workspace.Workspace{"w1": {ID: "w1", OwnerID: "alice"}},
	}
	e := NewEvaluator(src)
	ch := &channel.Channel{ID: "c1", Type: channel.TypeText, WorkspaceID: strp("w1")}

	set, err := e.Evaluate(context.Background(), "alice", ch)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if set != AllCapabilities {
		t.Errorf("workspace owner resolved %v, want AllCapabilities", set)
	}
}

func TestEvaluate_NonMemberResolvesEmpty(t *testing.T) {
	src := &fakeRoleSource{
		workspaces: map[string]*workspace.Workspace{"w1": {ID: "w1", OwnerID: "owner", DefaultPermissions: uint64(ViewChannel)}},
	}
	e := NewEvaluator(src)
	ch := &channel.Channel{ID: "c1", Type: channel.TypeText, WorkspaceID: strp("w1")}

	set, err := e.Evaluate(context.Background(), "mallory", ch)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if set != 0 {
		t.Errorf("non-member resolved %v, want empty set", set)
	}
}
