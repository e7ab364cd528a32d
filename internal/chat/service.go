package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/models"
	"github.com/dhruvjindal555/AlumLink-sub001/internal/store"
)

// ErrValidation marks a rejected input; the triggering event fails
// with no side effects and the connection survives.
var ErrValidation = errors.New("validation failed")

// Indexer is the optional search index fed on every send. Nil disables
// indexing (and search) without touching the send path.
type Indexer interface {
	IndexMessage(ctx context.Context, msg *models.Message) error
	SearchMessageIDs(ctx context.Context, tokens []string, limit int) ([]string, error)
}

// Service owns thread and message-log business logic: the send path,
// read acknowledgement, and the retrieval surface.
type Service struct {
	store  store.DataStore
	index  Indexer
	logger zerolog.Logger
}

// NewService creates a chat service. index may be nil.
func NewService(st store.DataStore, index Indexer, logger zerolog.Logger) *Service {
	return &Service{store: st, index: index, logger: logger}
}

// SendInput is a message send request from an authenticated connection.
type SendInput struct {
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Text       string
	MediaURLs  []string
	MediaType  models.MediaKind
}

// Send materializes the thread for the pair, updates its preview,
// timestamp and the receiver's unread counter, and appends the message
// to the log. It returns only after the message is persisted, so the
// caller may ack the sender. Steps are not transactional; a crash
// between them can leave a thread ahead of the log, which later sends
// repair.
func (s *Service) Send(ctx context.Context, in SendInput) (*models.Message, error) {
	if in.SenderID == uuid.Nil || in.ReceiverID == uuid.Nil {
		return nil, fmt.Errorf("%w: sender and receiver required", ErrValidation)
	}
	if in.Text == "" && len(in.MediaURLs) == 0 {
		return nil, fmt.Errorf("%w: message needs text or media", ErrValidation)
	}

	kind := in.MediaType
	if kind == "" {
		kind = models.MediaText
		if len(in.MediaURLs) > 0 {
			kind = models.MediaFile
		}
	}
	if !models.ValidMediaKind(kind) {
		return nil, fmt.Errorf("%w: unknown media type %q", ErrValidation, in.MediaType)
	}

	thread, err := s.store.GetOrCreateThread(ctx, in.SenderID, in.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("resolve thread: %w", err)
	}

	now := time.Now().UTC()
	// A media-only message carries the placeholder as its text, so the
	// record, the live push and the thread preview all agree.
	text := models.PreviewText(in.Text, in.MediaURLs)
	if err := s.store.RecordThreadMessage(ctx, thread.ID, text, now, in.ReceiverID); err != nil {
		return nil, fmt.Errorf("update thread: %w", err)
	}

	msg := &models.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Text:       text,
		MediaURLs:  in.MediaURLs,
		MediaType:  kind,
		Read:       false,
		CreatedAt:  now,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	if s.index != nil {
		if err := s.index.IndexMessage(ctx, msg); err != nil {
			s.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("search indexing failed")
		}
	}

	return msg, nil
}

// MarkRead acknowledges everything the counterpart sent to the reader:
// the reader's unread counter resets to zero and all unread messages
// counterpart->reader flip to read. A pair with no thread is a no-op,
// reported as (false, nil).
func (s *Service) MarkRead(ctx context.Context, readerID, withID uuid.UUID) (bool, error) {
	thread, err := s.store.GetThreadByPair(ctx, readerID, withID)
	if err != nil {
		return false, fmt.Errorf("resolve thread: %w", err)
	}
	if thread == nil {
		return false, nil
	}

	if err := s.store.ResetUnread(ctx, thread.ID, readerID); err != nil {
		return false, fmt.Errorf("reset unread: %w", err)
	}
	if _, err := s.store.MarkPairMessagesRead(ctx, withID, readerID); err != nil {
		return false, fmt.Errorf("mark messages read: %w", err)
	}
	return true, nil
}

// History returns all messages between forUser and withUser ordered by
// creation time ascending. Fetching a conversation implicitly
// acknowledges it for forUser (read-on-fetch).
func (s *Service) History(ctx context.Context, forUser, withUser uuid.UUID) ([]models.Message, error) {
	if _, err := s.MarkRead(ctx, forUser, withUser); err != nil {
		return nil, err
	}
	return s.store.ListMessagesBetween(ctx, forUser, withUser)
}

// Open materializes an empty thread between two users, used when the
// platform links them as contacts before any message is exchanged.
func (s *Service) Open(ctx context.Context, a, b uuid.UUID) (*models.Thread, error) {
	if a == uuid.Nil || b == uuid.Nil {
		return nil, fmt.Errorf("%w: both participants required", ErrValidation)
	}
	if a == b {
		return nil, fmt.Errorf("%w: cannot open a thread with yourself", ErrValidation)
	}
	return s.store.GetOrCreateThread(ctx, a, b)
}

// Contact is one conversation counterpart with everything the contact
// list renders: profile, thread preview, the caller's unread count and
// the full exchange.
type Contact struct {
	User          models.User      `json:"user"`
	Preview       string           `json:"preview"`
	LastMessageAt *time.Time       `json:"last_message_at,omitempty"`
	Unread        int64            `json:"unread"`
	Messages      []models.Message `json:"messages"`
}

// Contacts returns every counterpart the user has a thread with,
// ordered by most recent activity, inactive threads last. Unlike
// History this does not acknowledge anything.
func (s *Service) Contacts(ctx context.Context, userID uuid.UUID) ([]Contact, error) {
	threads, err := s.store.ListThreadsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	contacts := make([]Contact, 0, len(threads))
	for _, t := range threads {
		peerID := t.PeerOf(userID)

		peer, err := s.store.GetUser(ctx, peerID)
		if err != nil {
			return nil, fmt.Errorf("load peer %s: %w", peerID, err)
		}
		if peer == nil {
			// Peer profile not synced yet; keep the thread visible.
			peer = &models.User{ID: peerID}
		}

		msgs, err := s.store.ListMessagesBetween(ctx, userID, peerID)
		if err != nil {
			return nil, fmt.Errorf("load history with %s: %w", peerID, err)
		}

		contacts = append(contacts, Contact{
			User:          *peer,
			Preview:       t.Preview,
			LastMessageAt: t.LastMessageAt,
			Unread:        t.UnreadFor(userID),
			Messages:      msgs,
		})
	}

	return contacts, nil
}

// Search looks up the caller's messages by word match, newest first.
// Only messages the caller sent or received are returned.
func (s *Service) Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]models.Message, error) {
	if s.index == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	tokens := store.Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	// Overfetch: the index is global, participant filtering happens here.
	ids, err := s.index.SearchMessageIDs(ctx, tokens, limit*3)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]models.Message, 0, limit)
	for _, id := range ids {
		msg, err := s.store.GetMessageByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue // expired from index after log pruning elsewhere
		}
		if msg.SenderID != userID && msg.ReceiverID != userID {
			continue
		}
		results = append(results, *msg)
		if len(results) >= limit {
			break
		}
	}

	return results, nil
}
