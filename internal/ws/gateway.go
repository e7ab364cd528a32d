package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/auth"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/chat"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/metrics"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/models"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/notify"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/presence"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/store"
)

// DefaultGrace is the window between a disconnect and the persisted
// offline commit, absorbing fast reconnects such as page reloads.
const DefaultGrace = 5 * time.Second

// ErrTerminated signals the event loop to close the connection. Only
// authentication failures produce it; ordinary operational errors
// leave the connection open.
var ErrTerminated = errors.New("connection terminated")

// TokenVerifier validates a session token and yields its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// connState is the per-connection lifecycle.
type connState int

const (
	stateUnauthenticated connState = iota
	stateAuthenticated
	stateDisconnected
)

// Session is the state machine for one connection. Its events are
// dispatched serially by the connection's read loop; state fields need
// no locking.
type Session struct {
	sink   presence.Sink
	state  connState
	userID uuid.UUID
	name   string
}

// Gateway coordinates message delivery: connection lifecycle, the send
// path, typing relay and read receipts.
type Gateway struct {
	registry *presence.Registry
	chat     *chat.Service
	fanout   *notify.Fanout
	store    store.DataStore
	tokens   TokenVerifier
	grace    time.Duration
	logger   zerolog.Logger
}

// NewGateway creates a delivery gateway. grace <= 0 selects DefaultGrace.
func NewGateway(registry *presence.Registry, chatSvc *chat.Service, fanout *notify.Fanout, st store.DataStore, tokens TokenVerifier, grace time.Duration, logger zerolog.Logger) *Gateway {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Gateway{
		registry: registry,
		chat:     chatSvc,
		fanout:   fanout,
		store:    st,
		tokens:   tokens,
		grace:    grace,
		logger:   logger,
	}
}

// NewSession starts the lifecycle for a freshly accepted connection.
func (g *Gateway) NewSession(sink presence.Sink) *Session {
	return &Session{sink: sink, state: stateUnauthenticated}
}

// Dispatch routes one inbound frame through the session state machine.
// A non-nil return means the connection must be closed.
func (g *Gateway) Dispatch(ctx context.Context, s *Session, frame Frame) error {
	if frame.Event == EventAuthenticate {
		var p AuthenticatePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			_ = s.sink.Send(EventAuthError, ErrorPayload{Error: "malformed authenticate payload"})
			return ErrTerminated
		}
		return g.Authenticate(ctx, s, p.Token)
	}

	if s.state != stateAuthenticated {
		_ = s.sink.Send(EventAuthError, ErrorPayload{Error: "not authenticated"})
		return ErrTerminated
	}

	switch frame.Event {
	case EventSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			_ = s.sink.Send(EventMessageError, ErrorPayload{Error: "malformed payload"})
			return nil
		}
		g.sendMessage(ctx, s, p)
	case EventTyping:
		var p TypingPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return nil
		}
		g.typing(s, p)
	case EventMarkRead:
		var p MarkReadPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			_ = s.sink.Send(EventMessageError, ErrorPayload{Error: "malformed payload"})
			return nil
		}
		g.markRead(ctx, s, p)
	default:
		g.logger.Debug().Str("event", frame.Event).Msg("unknown event ignored")
	}
	return nil
}

// Authenticate attaches an identity to the connection. On failure the
// connection is terminated; the caller must reconnect to retry.
func (g *Gateway) Authenticate(ctx context.Context, s *Session, token string) error {
	claims, err := g.tokens.Verify(token)
	if err != nil {
		metrics.AuthFailures.Inc()
		_ = s.sink.Send(EventAuthError, ErrorPayload{Error: "authentication failed"})
		return ErrTerminated
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		metrics.AuthFailures.Inc()
		_ = s.sink.Send(EventAuthError, ErrorPayload{Error: "authentication failed"})
		return ErrTerminated
	}

	s.userID = uid
	s.name = claims.Name
	s.state = stateAuthenticated

	// Last-writer-wins: a previous connection for this user is displaced.
	if prev := g.registry.Register(uid, s.sink); prev != nil {
		_ = prev.Close()
	}

	if err := g.store.SetUserPresence(ctx, uid, true, time.Now().UTC()); err != nil {
		g.logger.Warn().Err(err).Str("user_id", uid.String()).Msg("persist online status failed")
	}
	g.registry.Broadcast(EventUserStatus, UserStatusPayload{UserID: uid.String(), Online: true})

	g.logger.Info().Str("user_id", uid.String()).Msg("connection authenticated")
	return nil
}

func (g *Gateway) sendMessage(ctx context.Context, s *Session, p SendMessagePayload) {
	receiverID, err := uuid.Parse(p.ReceiverID)
	if err != nil {
		_ = s.sink.Send(EventMessageError, ErrorPayload{Error: "invalid receiver id"})
		return
	}

	msg, err := g.chat.Send(ctx, chat.SendInput{
		SenderID:   s.userID,
		ReceiverID: receiverID,
		Text:       p.Text,
		MediaURLs:  p.MediaURLs,
		MediaType:  models.MediaKind(p.MediaType),
	})
	if err != nil {
		if errors.Is(err, chat.ErrValidation) {
			_ = s.sink.Send(EventMessageError, ErrorPayload{Error: err.Error()})
			return
		}
		g.logger.Error().Err(err).Str("user_id", s.userID.String()).Msg("send failed")
		_ = s.sink.Send(EventMessageError, ErrorPayload{Error: "failed to send message"})
		return
	}

	metrics.MessagesSent.WithLabelValues(string(msg.MediaType)).Inc()

	senderName := s.name
	profileImage := ""
	if sender, err := g.store.GetUser(ctx, s.userID); err == nil && sender != nil {
		if sender.Name != "" {
			senderName = sender.Name
		}
		profileImage = sender.AvatarURL
	}

	// The message is durable by now; notification and live push are
	// best-effort.
	if _, err := g.fanout.Dispatch(ctx, msg, senderName); err != nil {
		g.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("notification fan-out failed")
	}

	if sink := g.registry.Resolve(receiverID); sink != nil {
		_ = sink.Send(EventNewMessage, NewMessagePayload{
			SenderID:     s.userID.String(),
			SenderName:   senderName,
			ProfileImage: profileImage,
			Text:         msg.Text,
			Time:         msg.CreatedAt,
			MessageID:    msg.ID,
			MediaURLs:    msg.MediaURLs,
			MediaType:    string(msg.MediaType),
		})
		metrics.LiveDeliveries.WithLabelValues("delivered").Inc()
	} else {
		metrics.LiveDeliveries.WithLabelValues("miss").Inc()
	}

	// Ack regardless of whether the receiver was reachable live.
	_ = s.sink.Send(EventMessageSent, MessageSentPayload{
		MessageID:  msg.ID,
		ReceiverID: receiverID.String(),
		Time:       msg.CreatedAt,
		MediaURLs:  msg.MediaURLs,
	})
}

// typing is a stateless relay: no persistence, no queue, no retry.
func (g *Gateway) typing(s *Session, p TypingPayload) {
	receiverID, err := uuid.Parse(p.ReceiverID)
	if err != nil {
		return
	}
	if sink := g.registry.Resolve(receiverID); sink != nil {
		_ = sink.Send(EventUserTyping, UserTypingPayload{UserID: s.userID.String()})
	}
}

func (g *Gateway) markRead(ctx context.Context, s *Session, p MarkReadPayload) {
	withID, err := uuid.Parse(p.ChatWithUserID)
	if err != nil {
		_ = s.sink.Send(EventMessageError, ErrorPayload{Error: "invalid user id"})
		return
	}

	ok, err := g.chat.MarkRead(ctx, s.userID, withID)
	if err != nil {
		g.logger.Error().Err(err).Str("user_id", s.userID.String()).Msg("mark read failed")
		_ = s.sink.Send(EventMessageError, ErrorPayload{Error: "failed to mark messages read"})
		return
	}
	if !ok {
		// No thread for the pair yet; nothing to acknowledge.
		return
	}

	if sink := g.registry.Resolve(withID); sink != nil {
		_ = sink.Send(EventMessagesRead, MessagesReadPayload{ByUserID: s.userID.String()})
	}
}

// Disconnect tears the session down. The registry entry is removed
// immediately, but the offline commit and broadcast wait out the grace
// window and are skipped when the user re-registers in the meantime.
func (g *Gateway) Disconnect(s *Session) {
	if s.state != stateAuthenticated {
		s.state = stateDisconnected
		return
	}
	s.state = stateDisconnected
	uid := s.userID

	g.registry.Unregister(uid, s.sink)

	time.AfterFunc(g.grace, func() {
		// Re-read the registry rather than any captured flag: a
		// reconnect within the window must keep the user online.
		if g.registry.Resolve(uid) != nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := g.store.SetUserPresence(ctx, uid, false, time.Now().UTC()); err != nil {
			g.logger.Warn().Err(err).Str("user_id", uid.String()).Msg("persist offline status failed")
		}
		g.registry.Broadcast(EventUserStatus, UserStatusPayload{UserID: uid.String(), Online: false})
	})
}
