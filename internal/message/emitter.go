package message

import (
	"context"
	"log/slog"

	"github.com/quillchat/api/internal/channel"
)

// Emitter derives system-authored messages from a completed channel
// mutation. Only groups narrate their changes; other variants stay silent.
//
// Every emission is best-effort: a failed persist is logged and dropped so
// it can never roll back the mutation it describes.
type Emitter struct {
	store Store
}

func NewEmitter(store Store) *Emitter {
	return &Emitter{store: store}
}

// Emit inspects the applied partial against the pre-mutation channel and
// persists one system message per narrated change, returning those that
// were stored successfully.
func (e *Emitter) Emit(ctx context.Context, before *channel.Channel, applied channel.Partial, actor string) []*Message {
	if !before.IsGroup() {
		return nil
	}

	var events []*SystemEvent

	if applied.OwnerID != nil {
		from := ""
		if before.OwnerID != nil {
			from = *before.OwnerID
		}
		events = append(events, &SystemEvent{
			Type: SystemOwnershipChanged,
			From: from,
			To:   *applied.OwnerID,
		})
	}
	if applied.Name != nil {
		events = append(events, &SystemEvent{
			Type: SystemChannelRenamed,
			Name: *applied.Name,
			By:   actor,
		})
	}
	if applied.Description != nil {
		events = append(events, &SystemEvent{
			Type: SystemDescriptionChanged,
			By:   actor,
		})
	}
	if applied.IconID != nil {
		events = append(events, &SystemEvent{
			Type: SystemIconChanged,
			By:   actor,
		})
	}

	var emitted []*Message
	for _, ev := range events {
		msg := &Message{
			ChannelID: before.ID,
			Type:      TypeSystem,
			Content:   renderSystemEvent(ev),
			System:    ev,
		}
		if err := e.store.CreateMessage(ctx, msg); err != nil {
			slog.Warn("failed to persist system message",
				"channel_id", before.ID,
				"event", ev.Type,
				"error", err,
			)
			continue
		}
		emitted = append(emitted, msg)
	}
	return emitted
}

func renderSystemEvent(ev *SystemEvent) string {
	switch ev.Type {
	case SystemOwnershipChanged:
		return "ownership transferred to " + ev.To
	case SystemChannelRenamed:
		return "channel renamed to " + ev.Name
	case SystemDescriptionChanged:
		return "channel description changed"
	case SystemIconChanged:
		return "channel icon changed"
	}
	return ""
}
