package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/models"
)

// DataStore defines the interface for persistent storage of users,
// threads, messages and notifications. Both PostgresStore and
// SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations. Profiles are synced in by the platform; this
	// core only flips presence.
	UpsertUser(ctx context.Context, id uuid.UUID, name, email, avatarURL string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetUserPresence(ctx context.Context, id uuid.UUID, online bool, lastActive time.Time) error
	CountUsers(ctx context.Context) (int64, error)

	// Thread operations. All pair arguments are unordered; the store
	// canonicalizes them.
	GetOrCreateThread(ctx context.Context, a, b uuid.UUID) (*models.Thread, error)
	GetThreadByPair(ctx context.Context, a, b uuid.UUID) (*models.Thread, error)
	// RecordThreadMessage sets the preview and last-message timestamp
	// and atomically increments the receiver's unread counter.
	RecordThreadMessage(ctx context.Context, threadID uuid.UUID, preview string, at time.Time, receiverID uuid.UUID) error
	ResetUnread(ctx context.Context, threadID, userID uuid.UUID) error
	ListThreadsForUser(ctx context.Context, userID uuid.UUID) ([]models.Thread, error)
	CountThreads(ctx context.Context) (int64, error)

	// Message log operations. The log is append-only; the only
	// permitted mutation is the false->true read flip.
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]models.Message, error)
	MarkPairMessagesRead(ctx context.Context, senderID, receiverID uuid.UUID) (int64, error)
	GetMessageByID(ctx context.Context, id string) (*models.Message, error)
	CountMessages(ctx context.Context) (int64, error)

	// Notification operations
	CreateNotification(ctx context.Context, n *models.Notification) error
}
