package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillchat/api/internal/channel"
	"github.com/quillchat/api/internal/permissions"
)

// Store is the slice of the storage gateway the dispatcher writes through.
type Store interface {
	CreateMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

// IdempotencyStore records (user, token) claims. PutIdempotency must be an
// atomic insert-if-absent on the pair — never a read followed by a write —
// and returns ErrDuplicateToken when the pair is already recorded.
// ReplaceIdempotency atomically swaps a record older than the cutoff for
// rec, returning ErrDuplicateToken when the existing record is still live.
// GetIdempotency returns (nil, nil) on a miss.
type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, userID, token string) (*IdempotencyRecord, error)
	PutIdempotency(ctx context.Context, rec *IdempotencyRecord) error
	ReplaceIdempotency(ctx context.Context, rec *IdempotencyRecord, olderThan time.Time) error
}

// InteractionValidator checks the interactions payload before a message is
// accepted. The default implementation enforces structural limits; richer
// deployments can substitute their own.
type InteractionValidator interface {
	Validate(ctx context.Context, in *Interactions) error
}

// Notifier receives a best-effort signal after a message is persisted.
// Failures are the notifier's problem; the dispatcher never observes them.
type Notifier interface {
	MessageSent(ch *channel.Channel, msg *Message)
}

// Draft is a message as submitted by a client, before any ID or timestamp
// is assigned.
type Draft struct {
	Content      string
	Embeds       []Embed
	Attachments  []string
	Masquerade   *Masquerade
	Interactions *Interactions
}

// Dispatcher wraps message creation with the per-capability permission
// gates and an exactly-once-per-client-intent guarantee keyed by the
// idempotency token.
//
// The idempotency record is written after the message itself; if the
// request is cancelled between the two writes, a retry can produce a
// duplicate message. That window is an accepted, bounded risk: closing it
// would need a distributed transaction across both writes.
type Dispatcher struct {
	store    Store
	idem     IdempotencyStore
	validate InteractionValidator
	notifier Notifier
	ttl      time.Duration
}

func NewDispatcher(store Store, idem IdempotencyStore, validate InteractionValidator, ttl time.Duration) *Dispatcher {
	return &Dispatcher{
		store:    store,
		idem:     idem,
		validate: validate,
		ttl:      ttl,
	}
}

// SetNotifier attaches an optional post-send notifier.
func (d *Dispatcher) SetNotifier(n Notifier) { d.notifier = n }

// Send persists the draft as a message from author in ch, deduplicating
// retries via token. Replaying a live token returns the original message
// and performs no storage write.
func (d *Dispatcher) Send(ctx context.Context, ch *channel.Channel, author string, draft Draft, token string, caps permissions.CapabilitySet) (*Message, error) {
	if token != "" {
		rec, err := d.idem.GetIdempotency(ctx, author, token)
		if err != nil {
			return nil, fmt.Errorf("looking up idempotency record: %w", err)
		}
		if rec != nil && time.Since(rec.CreatedAt) < d.ttl {
			return d.store.GetMessage(ctx, rec.MessageID)
		}
	}

	if err := caps.Require(permissions.ViewChannel); err != nil {
		return nil, err
	}
	if err := caps.Require(permissions.SendMessage); err != nil {
		return nil, err
	}
	if len(draft.Embeds) > 0 {
		if err := caps.Require(permissions.SendEmbeds); err != nil {
			return nil, err
		}
	}
	if len(draft.Attachments) > 0 {
		if err := caps.Require(permissions.UploadFiles); err != nil {
			return nil, err
		}
	}
	if draft.Masquerade != nil {
		if err := caps.Require(permissions.Masquerade); err != nil {
			return nil, err
		}
		// Colour overrides are a separate, sequentially checked gate.
		if draft.Masquerade.Colour != nil {
			if err := caps.Require(permissions.ManageRole); err != nil {
				return nil, err
			}
		}
	}

	if draft.Content == "" && len(draft.Attachments) == 0 && len(draft.Embeds) == 0 {
		return nil, ErrEmptyMessage
	}
	if draft.Interactions != nil {
		if err := d.validate.Validate(ctx, draft.Interactions); err != nil {
			return nil, err
		}
	}

	msg := &Message{
		ChannelID:     ch.ID,
		AuthorID:      &author,
		Type:          TypeUser,
		Content:       draft.Content,
		Embeds:        draft.Embeds,
		AttachmentIDs: draft.Attachments,
		Masquerade:    draft.Masquerade,
		Interactions:  draft.Interactions,
	}
	if err := d.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	if token != "" {
		rec := &IdempotencyRecord{
			UserID:    author,
			Token:     token,
			MessageID: msg.ID,
			CreatedAt: time.Now().UTC(),
		}
		switch err := d.idem.PutIdempotency(ctx, rec); {
		case err == nil:
		case errors.Is(err, ErrDuplicateToken):
			return d.resolveConflict(ctx, author, token, msg)
		default:
			// Unlike system messages, a failed idempotency write must
			// surface: a retry would deliver a duplicate.
			return nil, fmt.Errorf("recording idempotency token: %w", err)
		}
	}

	if d.notifier != nil {
		d.notifier.MessageSent(ch, msg)
	}

	return msg, nil
}

// resolveConflict handles losing the PutIdempotency insert race. A live
// record means a concurrent retry won: its claim is honoured and our
// message discarded. An expired record that the cleanup worker has not
// swept yet is replaced, so the token maps to the message just persisted
// instead of one from a previous TTL window.
func (d *Dispatcher) resolveConflict(ctx context.Context, author, token string, msg *Message) (*Message, error) {
	prior, err := d.idem.GetIdempotency(ctx, author, token)
	if err != nil || prior == nil {
		return msg, nil
	}
	if time.Since(prior.CreatedAt) < d.ttl {
		return d.honourWinner(ctx, prior, msg)
	}

	rec := &IdempotencyRecord{
		UserID:    author,
		Token:     token,
		MessageID: msg.ID,
		CreatedAt: time.Now().UTC(),
	}
	switch err := d.idem.ReplaceIdempotency(ctx, rec, time.Now().Add(-d.ttl)); {
	case err == nil:
		return msg, nil
	case errors.Is(err, ErrDuplicateToken):
		// Another send replaced the expired record first; defer to it.
		if prior, perr := d.idem.GetIdempotency(ctx, author, token); perr == nil && prior != nil {
			return d.honourWinner(ctx, prior, msg)
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("replacing expired idempotency record: %w", err)
	}
}

// honourWinner discards the freshly persisted duplicate and returns the
// message the winning record points at. The delete is best-effort: a
// failure leaves an orphaned message but never breaks the replay contract.
func (d *Dispatcher) honourWinner(ctx context.Context, winner *IdempotencyRecord, dup *Message) (*Message, error) {
	if err := d.store.DeleteMessage(ctx, dup.ID); err != nil {
		slog.Warn("failed to discard duplicate message",
			"message_id", dup.ID, "error", err)
	}
	return d.store.GetMessage(ctx, winner.MessageID)
}
