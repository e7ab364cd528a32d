package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/models"
)

// SQLiteStore handles SQLite database operations. Used as the
// development fallback when no DATABASE_URL is configured, and by the
// test suites with an in-memory database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/alumlink.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/alumlink.db"
	}

	inMemory := dbPath == ":memory:" || strings.HasPrefix(dbPath, "file::memory:")
	if !inMemory {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	// An in-memory database exists per connection; pin to one so the
	// schema survives across queries.
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		online INTEGER NOT NULL DEFAULT 0,
		last_active DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS threads (
		id TEXT PRIMARY KEY,
		user_a TEXT NOT NULL,
		user_b TEXT NOT NULL,
		preview TEXT NOT NULL DEFAULT '',
		last_message_at DATETIME,
		unread_a INTEGER NOT NULL DEFAULT 0,
		unread_b INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_a, user_b)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		media_urls TEXT NOT NULL DEFAULT '[]',
		media_type TEXT NOT NULL DEFAULT 'text',
		read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'chat',
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		message_id TEXT NOT NULL DEFAULT '',
		sender_name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_threads_user_a ON threads(user_a);
	CREATE INDEX IF NOT EXISTS idx_threads_user_b ON threads(user_b);
	CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, receiver_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertUser creates or refreshes a user profile record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, id uuid.UUID, name, email, avatarURL string) (*models.User, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, avatar_url, last_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, email = excluded.email,
		    avatar_url = excluded.avatar_url, updated_at = excluded.updated_at
	`, id.String(), name, email, avatarURL, now, now, now)
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	var idStr string
	var online int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, avatar_url, online, last_active, created_at, updated_at
		FROM users WHERE id = ?
	`, id.String()).Scan(
		&idStr,
		&user.Name,
		&user.Email,
		&user.AvatarURL,
		&online,
		&user.LastActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.ID = uuid.MustParse(idStr)
	user.Online = online != 0
	return user, nil
}

// SetUserPresence updates the online flag and last-active timestamp.
func (s *SQLiteStore) SetUserPresence(ctx context.Context, id uuid.UUID, online bool, lastActive time.Time) error {
	onlineInt := 0
	if online {
		onlineInt = 1
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET online = ?, last_active = ?, updated_at = ?
		WHERE id = ?
	`, onlineInt, lastActive, time.Now().UTC(), id.String())
	return err
}

// CountUsers returns the total number of users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// GetOrCreateThread resolves the thread for an unordered pair,
// creating it with zeroed counters when absent.
func (s *SQLiteStore) GetOrCreateThread(ctx context.Context, a, b uuid.UUID) (*models.Thread, error) {
	ua, ub := models.CanonicalPair(a, b)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (id, user_a, user_b, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_a, user_b) DO NOTHING
	`, uuid.New().String(), ua.String(), ub.String(), time.Now().UTC())
	if err != nil {
		return nil, err
	}

	return s.GetThreadByPair(ctx, ua, ub)
}

// GetThreadByPair retrieves the thread for an unordered pair, or nil.
func (s *SQLiteStore) GetThreadByPair(ctx context.Context, a, b uuid.UUID) (*models.Thread, error) {
	ua, ub := models.CanonicalPair(a, b)
	thread := &models.Thread{}
	var idStr, uaStr, ubStr string
	var lastMessageAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_a, user_b, preview, last_message_at, unread_a, unread_b, created_at
		FROM threads WHERE user_a = ? AND user_b = ?
	`, ua.String(), ub.String()).Scan(
		&idStr,
		&uaStr,
		&ubStr,
		&thread.Preview,
		&lastMessageAt,
		&thread.UnreadA,
		&thread.UnreadB,
		&thread.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	thread.ID = uuid.MustParse(idStr)
	thread.UserA = uuid.MustParse(uaStr)
	thread.UserB = uuid.MustParse(ubStr)
	if lastMessageAt.Valid {
		t := lastMessageAt.Time
		thread.LastMessageAt = &t
	}
	return thread, nil
}

// RecordThreadMessage updates the denormalized preview and timestamp
// and increments the receiver's unread counter in a single statement,
// so concurrent sends cannot lose increments.
func (s *SQLiteStore) RecordThreadMessage(ctx context.Context, threadID uuid.UUID, preview string, at time.Time, receiverID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE threads
		SET preview = ?, last_message_at = ?,
		    unread_a = unread_a + (CASE WHEN user_a = ? THEN 1 ELSE 0 END),
		    unread_b = unread_b + (CASE WHEN user_b = ? THEN 1 ELSE 0 END)
		WHERE id = ?
	`, preview, at, receiverID.String(), receiverID.String(), threadID.String())
	return err
}

// ResetUnread zeroes the unread counter for one participant.
func (s *SQLiteStore) ResetUnread(ctx context.Context, threadID, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE threads
		SET unread_a = CASE WHEN user_a = ? THEN 0 ELSE unread_a END,
		    unread_b = CASE WHEN user_b = ? THEN 0 ELSE unread_b END
		WHERE id = ?
	`, userID.String(), userID.String(), threadID.String())
	return err
}

// ListThreadsForUser returns the user's threads ordered by most recent
// activity; threads with no messages yet sort last.
func (s *SQLiteStore) ListThreadsForUser(ctx context.Context, userID uuid.UUID) ([]models.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_a, user_b, preview, last_message_at, unread_a, unread_b, created_at
		FROM threads
		WHERE user_a = ? OR user_b = ?
		ORDER BY (last_message_at IS NULL), last_message_at DESC, created_at DESC
	`, userID.String(), userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []models.Thread
	for rows.Next() {
		var t models.Thread
		var idStr, uaStr, ubStr string
		var lastMessageAt sql.NullTime
		err := rows.Scan(
			&idStr,
			&uaStr,
			&ubStr,
			&t.Preview,
			&lastMessageAt,
			&t.UnreadA,
			&t.UnreadB,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		t.ID = uuid.MustParse(idStr)
		t.UserA = uuid.MustParse(uaStr)
		t.UserB = uuid.MustParse(ubStr)
		if lastMessageAt.Valid {
			lm := lastMessageAt.Time
			t.LastMessageAt = &lm
		}
		threads = append(threads, t)
	}

	return threads, rows.Err()
}

// CountThreads returns the total number of threads.
func (s *SQLiteStore) CountThreads(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threads`).Scan(&count)
	return count, err
}

// AppendMessage persists a new message. ID and CreatedAt are filled
// when unset.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.MediaURLs == nil {
		msg.MediaURLs = []string{}
	}

	urls, err := json.Marshal(msg.MediaURLs)
	if err != nil {
		return err
	}

	readInt := 0
	if msg.Read {
		readInt = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, text, media_urls, media_type, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.SenderID.String(), msg.ReceiverID.String(), msg.Text, string(urls), string(msg.MediaType), readInt, msg.CreatedAt)
	return err
}

// ListMessagesBetween returns all messages exchanged by the pair,
// ordered by creation time ascending.
func (s *SQLiteStore) ListMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, text, media_urls, media_type, read, created_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, id ASC
	`, a.String(), b.String(), b.String(), a.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		m, err := scanSQLiteMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}

	return messages, rows.Err()
}

// MarkPairMessagesRead flips all unread messages from sender to
// receiver to read. Returns the number of messages updated.
func (s *SQLiteStore) MarkPairMessagesRead(ctx context.Context, senderID, receiverID uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET read = 1
		WHERE sender_id = ? AND receiver_id = ? AND read = 0
	`, senderID.String(), receiverID.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetMessageByID retrieves a single message, or nil.
func (s *SQLiteStore) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender_id, receiver_id, text, media_urls, media_type, read, created_at
		FROM messages WHERE id = ?
	`, id)
	m, err := scanSQLiteMessage(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// CountMessages returns the total number of messages.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

// CreateNotification persists a notification record.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = ulid.Make().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, message_id, sender_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID.String(), n.Type, n.Title, n.Body, n.MessageID, n.SenderName, n.CreatedAt)
	return err
}

// scanSQLiteMessage decodes one message row, unpacking the TEXT
// columns SQLite stores for uuids, booleans and the media URL list.
func scanSQLiteMessage(scan func(dest ...any) error) (*models.Message, error) {
	m := &models.Message{}
	var senderStr, receiverStr, urlsJSON, kind string
	var readInt int
	err := scan(
		&m.ID,
		&senderStr,
		&receiverStr,
		&m.Text,
		&urlsJSON,
		&kind,
		&readInt,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.SenderID = uuid.MustParse(senderStr)
	m.ReceiverID = uuid.MustParse(receiverStr)
	m.MediaType = models.MediaKind(kind)
	m.Read = readInt != 0
	if err := json.Unmarshal([]byte(urlsJSON), &m.MediaURLs); err != nil {
		return nil, err
	}
	return m, nil
}
