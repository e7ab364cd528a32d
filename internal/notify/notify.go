// Package notify produces the durable notification record for every
// delivered message and pushes it to the recipient's live connection
// when one exists.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/metrics"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/models"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/presence"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/store"
)

// TypeChat is the notification type tag this core produces.
const TypeChat = "chat"

// EventNotification is the wire event name for a live notification
// push. The socket layer re-exports it.
const EventNotification = "notification"

// Fanout writes notification records and best-effort pushes them live.
type Fanout struct {
	store    store.DataStore
	registry *presence.Registry
	logger   zerolog.Logger
}

// NewFanout creates a notification fan-out.
func NewFanout(st store.DataStore, registry *presence.Registry, logger zerolog.Logger) *Fanout {
	return &Fanout{store: st, registry: registry, logger: logger}
}

// Dispatch records a notification for the message's receiver and, if
// the receiver is live, pushes it immediately. The durable write is
// authoritative; a failed live push is swallowed. Returns an error
// only when the record itself cannot be written.
func (f *Fanout) Dispatch(ctx context.Context, msg *models.Message, senderName string) (*models.Notification, error) {
	n := &models.Notification{
		UserID:     msg.ReceiverID,
		Type:       TypeChat,
		Title:      models.PreviewText(msg.Text, msg.MediaURLs),
		Body:       fmt.Sprintf("%s messaged you", senderName),
		MessageID:  msg.ID,
		SenderName: senderName,
	}

	if err := f.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	metrics.NotificationsCreated.Inc()

	if sink := f.registry.Resolve(msg.ReceiverID); sink != nil {
		if err := sink.Send(EventNotification, n); err != nil {
			f.logger.Debug().Err(err).
				Str("user_id", msg.ReceiverID.String()).
				Msg("live notification push failed")
		}
	}

	return n, nil
}
