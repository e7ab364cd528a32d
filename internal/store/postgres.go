package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection
// pool and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		online BOOLEAN NOT NULL DEFAULT FALSE,
		last_active TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS threads (
		id UUID PRIMARY KEY,
		user_a UUID NOT NULL,
		user_b UUID NOT NULL,
		preview TEXT NOT NULL DEFAULT '',
		last_message_at TIMESTAMPTZ,
		unread_a BIGINT NOT NULL DEFAULT 0,
		unread_b BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_a, user_b)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sender_id UUID NOT NULL,
		receiver_id UUID NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		media_urls TEXT[] NOT NULL DEFAULT '{}',
		media_type TEXT NOT NULL DEFAULT 'text',
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id UUID NOT NULL,
		type TEXT NOT NULL DEFAULT 'chat',
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		message_id TEXT NOT NULL DEFAULT '',
		sender_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_threads_user_a ON threads(user_a);
	CREATE INDEX IF NOT EXISTS idx_threads_user_b ON threads(user_b);
	CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, receiver_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertUser creates or refreshes a user profile record.
func (s *PostgresStore) UpsertUser(ctx context.Context, id uuid.UUID, name, email, avatarURL string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email,
		    avatar_url = EXCLUDED.avatar_url, updated_at = NOW()
		RETURNING id, name, email, avatar_url, online, last_active, created_at, updated_at
	`, id, name, email, avatarURL).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.AvatarURL,
		&user.Online,
		&user.LastActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, avatar_url, online, last_active, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.AvatarURL,
		&user.Online,
		&user.LastActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// SetUserPresence updates the online flag and last-active timestamp.
func (s *PostgresStore) SetUserPresence(ctx context.Context, id uuid.UUID, online bool, lastActive time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET online = $2, last_active = $3, updated_at = NOW()
		WHERE id = $1
	`, id, online, lastActive)
	return err
}

// CountUsers returns the total number of users.
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// GetOrCreateThread resolves the thread for an unordered pair,
// creating it with zeroed counters when absent.
func (s *PostgresStore) GetOrCreateThread(ctx context.Context, a, b uuid.UUID) (*models.Thread, error) {
	ua, ub := models.CanonicalPair(a, b)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO threads (id, user_a, user_b)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_a, user_b) DO NOTHING
	`, uuid.New(), ua, ub)
	if err != nil {
		return nil, err
	}

	return s.GetThreadByPair(ctx, ua, ub)
}

// GetThreadByPair retrieves the thread for an unordered pair, or nil.
func (s *PostgresStore) GetThreadByPair(ctx context.Context, a, b uuid.UUID) (*models.Thread, error) {
	ua, ub := models.CanonicalPair(a, b)
	thread := &models.Thread{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_a, user_b, preview, last_message_at, unread_a, unread_b, created_at
		FROM threads WHERE user_a = $1 AND user_b = $2
	`, ua, ub).Scan(
		&thread.ID,
		&thread.UserA,
		&thread.UserB,
		&thread.Preview,
		&thread.LastMessageAt,
		&thread.UnreadA,
		&thread.UnreadB,
		&thread.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return thread, nil
}

// RecordThreadMessage updates the denormalized preview and timestamp
// and increments the receiver's unread counter in a single statement,
// so concurrent sends cannot lose increments.
func (s *PostgresStore) RecordThreadMessage(ctx context.Context, threadID uuid.UUID, preview string, at time.Time, receiverID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE threads
		SET preview = $2, last_message_at = $3,
		    unread_a = unread_a + CASE WHEN user_a = $4 THEN 1 ELSE 0 END,
		    unread_b = unread_b + CASE WHEN user_b = $4 THEN 1 ELSE 0 END
		WHERE id = $1
	`, threadID, preview, at, receiverID)
	return err
}

// ResetUnread zeroes the unread counter for one participant.
func (s *PostgresStore) ResetUnread(ctx context.Context, threadID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE threads
		SET unread_a = CASE WHEN user_a = $2 THEN 0 ELSE unread_a END,
		    unread_b = CASE WHEN user_b = $2 THEN 0 ELSE unread_b END
		WHERE id = $1
	`, threadID, userID)
	return err
}

// ListThreadsForUser returns the user's threads ordered by most recent
// activity; threads with no messages yet sort last.
func (s *PostgresStore) ListThreadsForUser(ctx context.Context, userID uuid.UUID) ([]models.Thread, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_a, user_b, preview, last_message_at, unread_a, unread_b, created_at
		FROM threads
		WHERE user_a = $1 OR user_b = $1
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []models.Thread
	for rows.Next() {
		var t models.Thread
		err := rows.Scan(
			&t.ID,
			&t.UserA,
			&t.UserB,
			&t.Preview,
			&t.LastMessageAt,
			&t.UnreadA,
			&t.UnreadB,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}

	return threads, rows.Err()
}

// CountThreads returns the total number of threads.
func (s *PostgresStore) CountThreads(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM threads`).Scan(&count)
	return count, err
}

// AppendMessage persists a new message. ID and CreatedAt are filled
// when unset.
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.MediaURLs == nil {
		msg.MediaURLs = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, text, media_urls, media_type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, msg.ID, msg.SenderID, msg.ReceiverID, msg.Text, msg.MediaURLs, string(msg.MediaType), msg.Read, msg.CreatedAt)
	return err
}

// ListMessagesBetween returns all messages exchanged by the pair,
// ordered by creation time ascending.
func (s *PostgresStore) ListMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, sender_id, receiver_id, text, media_urls, media_type, read, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`, a, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var kind string
		err := rows.Scan(
			&m.ID,
			&m.SenderID,
			&m.ReceiverID,
			&m.Text,
			&m.MediaURLs,
			&kind,
			&m.Read,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		m.MediaType = models.MediaKind(kind)
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// MarkPairMessagesRead flips all unread messages from sender to
// receiver to read. Returns the number of messages updated.
func (s *PostgresStore) MarkPairMessagesRead(ctx context.Context, senderID, receiverID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET read = TRUE
		WHERE sender_id = $1 AND receiver_id = $2 AND read = FALSE
	`, senderID, receiverID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetMessageByID retrieves a single message, or nil.
func (s *PostgresStore) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	m := &models.Message{}
	var kind string
	err := s.pool.QueryRow(ctx, `
		SELECT id, sender_id, receiver_id, text, media_urls, media_type, read, created_at
		FROM messages WHERE id = $1
	`, id).Scan(
		&m.ID,
		&m.SenderID,
		&m.ReceiverID,
		&m.Text,
		&m.MediaURLs,
		&kind,
		&m.Read,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.MediaType = models.MediaKind(kind)
	return m, nil
}

// CountMessages returns the total number of messages.
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

// CreateNotification persists a notification record.
func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = ulid.Make().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, message_id, sender_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.UserID, n.Type, n.Title, n.Body, n.MessageID, n.SenderName, n.CreatedAt)
	return err
}
