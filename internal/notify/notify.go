// Package notify fans out best-effort email notifications for direct
// messages. Events flow through a bounded queue: when the queue is full
// the newest event is dropped and logged, never blocking the sender.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/quillchat/api/internal/channel"
	"github.com/quillchat/api/internal/email"
	"github.com/quillchat/api/internal/message"
	"github.com/quillchat/api/internal/user"
)

// Users resolves recipient addresses.
type Users interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

type event struct {
	channel *channel.Channel
	message *message.Message
}

// Queue implements the dispatcher's post-send notifier. MessageSent never
// blocks: a full queue sheds the event.
type Queue struct {
	events   chan event
	users    Users
	sender   email.Sender
	interval time.Duration
}

func NewQueue(capacity int, interval time.Duration, users Users, sender email.Sender) *Queue {
	if capacity <= 0 {
		capacity = 10000
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Queue{
		events:   make(chan event, capacity),
		users:    users,
		sender:   sender,
		interval: interval,
	}
}

// MessageSent enqueues a notification for every recipient of a direct
// channel other than the author. Non-direct channels are ignored.
func (q *Queue) MessageSent(ch *channel.Channel, msg *message.Message) {
	if !ch.IsDirect() {
		return
	}
	select {
	case q.events <- event{channel: ch, message: msg}:
	default:
		slog.Warn("notification queue full, dropping event",
			"component", "notify", "channel_id", ch.ID, "message_id", msg.ID)
	}
}

// Run drains the queue on the configured interval until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	slog.Info("notification worker started", "component", "notify")
	for {
		select {
		case <-ctx.Done():
			slog.Info("notification worker stopped", "component", "notify")
			return
		case <-ticker.C:
			q.flush(ctx)
		}
	}
}

func (q *Queue) flush(ctx context.Context) {
	for {
		select {
		case ev := <-q.events:
			q.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, ev event) {
	for _, recipientID := range ev.channel.Recipients {
		if ev.message.AuthorID != nil && recipientID == *ev.message.AuthorID {
			continue
		}
		u, err := q.users.GetUser(ctx, recipientID)
		if err != nil {
			slog.Warn("skipping notification, recipient lookup failed",
				"component", "notify", "user_id", recipientID, "error", err)
			continue
		}

		subject := "New message"
		if ev.channel.Name != nil {
			subject = "New message in " + *ev.channel.Name
		}
		body := "You have a new message.\n"
		if ev.message.Content != "" {
			body = ev.message.Content + "\n"
		}
		if err := q.sender.Send(ctx, u.Email, subject, body); err != nil {
			slog.Warn("notification email failed",
				"component", "notify", "user_id", recipientID, "error", err)
		}
	}
}

// Pending reports how many events are waiting. Exposed for tests.
func (q *Queue) Pending() int { return len(q.events) }
