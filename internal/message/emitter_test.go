package message

import (
	"context"
	"errors"
	"testing"

	"github.com/quillchat/api/internal/channel"
)

func groupChannel() *channel.Channel {
	owner := "alice"
	return &channel.Channel{
		ID:         "c1",
		Type:       channel.TypeGroup,
		OwnerID:    &owner,
		Recipients: []string{"alice", "bob"},
	}
}

func TestEmit_OwnerAndNameProduceTwoMessages(t *testing.T) {
	store := &fakeMessageStore{}
	e := NewEmitter(store)

	applied := channel.Partial{
		OwnerID: strp("bob"),
		Name:    strp("new name"),
	}
	emitted := e.Emit(context.Background(), groupChannel(), applied, "alice")

	if len(emitted) != 2 {
		t.Fatalf("emitted %d messages, want 2", len(emitted))
	}
	if emitted[0].System.Type != SystemOwnershipChanged {
		t.Errorf("first event = %s, want ownership change", emitted[0].System.Type)
	}
	if emitted[0].System.From != "alice" || emitted[0].System.To != "bob" {
		t.Errorf("ownership event from=%s to=%s", emitted[0].System.From, emitted[0].System.To)
	}
	if emitted[1].System.Type != SystemChannelRenamed {
		t.Errorf("second event = %s, want rename", emitted[1].System.Type)
	}
	for _, m := range emitted {
		if m.Type != TypeSystem {
			t.Errorf("system message has type %q", m.Type)
		}
		if m.AuthorID != nil {
			t.Error("system messages carry no author")
		}
	}
}

func TestEmit_NonGroupStaysSilent(t *testing.T) {
	store := &fakeMessageStore{}
	e := NewEmitter(store)

	ch := &channel.Channel{ID: "c1", Type: channel.TypeText}
	emitted := e.Emit(context.Background(), ch, channel.Partial{Name: strp("renamed")}, "alice")

	if len(emitted) != 0 {
		t.Errorf("non-group emitted %d messages, want 0", len(emitted))
	}
	if len(store.created) != 0 {
		t.Error("non-group must not write system messages")
	}
}

func TestEmit_PersistFailureIsDropped(t *testing.T) {
	store := &fakeMessageStore{failWith: errors.New("db down")}
	e := NewEmitter(store)

	emitted := e.Emit(context.Background(), groupChannel(), channel.Partial{Name: strp("renamed")}, "alice")
	if len(emitted) != 0 {
		t.Errorf("failed persist still reported %d messages", len(emitted))
	}
}

func TestEmit_EmptyPartialEmitsNothing(t *testing.T) {
	store := &fakeMessageStore{}
	e := NewEmitter(store)

	emitted := e.Emit(context.Background(), groupChannel(), channel.Partial{}, "alice")
	if len(emitted) != 0 {
		t.Errorf("empty partial emitted %d messages", len(emitted))
	}
}
