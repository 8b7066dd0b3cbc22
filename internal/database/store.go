package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for shadow cache operations. Methods accept
// context.Context for cancellation and timeouts.
//
// The Mark* methods are the concurrency-safety boundary of the system:
// each one transitions deleted_at from null to non-null atomically, so
// exactly-once resolution holds regardless of caller-side scheduling.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage inserts a new shadow record or refreshes the snapshot
	// fields of an existing one matched by (message_id, chat_id). It never
	// touches deleted_at, so re-ingesting an already-resolved record keeps
	// its terminal state.
	SaveMessage(ctx context.Context, message *ShadowMessage) error

	// MarkDeleted sets deleted_at for the record matching (messageID,
	// chatID) only if it is currently null. Returns whether a row actually
	// transitioned.
	MarkDeleted(ctx context.Context, messageID, chatID int64, at time.Time) (bool, error)

	// MarkDeletedAnyChat finds a live record by messageID alone across all
	// chats, transitions it, and returns the chat it belonged to. When
	// several live records share the messageID the most recently sent one
	// is picked; the message id alone is ambiguous, this is best-effort.
	MarkDeletedAnyChat(ctx context.Context, messageID int64, at time.Time) (int64, bool, error)

	// FindChatForMessage is a read-only lookup that recovers the chat a
	// message id was seen in, preferring live records, most recently sent
	// first.
	FindChatForMessage(ctx context.Context, messageID int64) (int64, bool, error)

	// GetMessage retrieves a single record by (messageID, chatID).
	// Returns nil, nil if not found.
	GetMessage(ctx context.Context, messageID, chatID int64) (*ShadowMessage, error)

	// GetDeletedByUser retrieves all resolved records for a user, most
	// recently deleted first.
	GetDeletedByUser(ctx context.Context, userID int64) ([]ShadowMessage, error)

	// GetRecentMessages retrieves the most recent 'limit' records
	// regardless of state, newest first.
	GetRecentMessages(ctx context.Context, limit int) ([]ShadowMessage, error)

	// GetStats computes aggregate counters over the shadow cache.
	GetStats(ctx context.Context) (*Stats, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx. It requires
// a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveMessage upserts a shadow record keyed by (message_id, chat_id).
// Snapshot fields are refreshed on conflict; created_at and deleted_at are
// preserved.
func (s *sqlxStore) SaveMessage(ctx context.Context, message *ShadowMessage) error {
	if message == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if message.MessageID == 0 {
		return fmt.Errorf("message must have a non-zero message_id")
	}
	if message.ChatID == 0 {
		return fmt.Errorf("message must have a non-zero chat_id")
	}
	if message.SentAt.IsZero() {
		return fmt.Errorf("message must have a non-zero sent_at timestamp")
	}

	now := time.Now().UTC()
	message.CreatedAt = now
	message.UpdatedAt = now

	query := `
        INSERT INTO shadow_messages (
            message_id, chat_id, chat_title, user_id, username, first_name,
            last_name, content, sent_at, created_at, updated_at
        ) VALUES (
            :message_id, :chat_id, :chat_title, :user_id, :username, :first_name,
            :last_name, :content, :sent_at, :created_at, :updated_at
        )
        ON CONFLICT (message_id, chat_id) DO UPDATE SET
            chat_title = excluded.chat_title,
            user_id    = excluded.user_id,
            username   = excluded.username,
            first_name = excluded.first_name,
            last_name  = excluded.last_name,
            content    = excluded.content,
            sent_at    = excluded.sent_at,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.NamedExecContext(ctx, query, message); err != nil {
		s.logger.ErrorContext(ctx, "Error saving message",
			"message_id", message.MessageID, "chat_id", message.ChatID, "error", err)
		return fmt.Errorf("failed to save message (message %d, chat %d): %w",
			message.MessageID, message.ChatID, err)
	}

	s.logger.DebugContext(ctx, "Message saved",
		"message_id", message.MessageID, "chat_id", message.ChatID, "user_id", message.UserID)
	return nil
}

// MarkDeleted transitions a single record to deleted. The conditional
// single-statement update makes replays and duplicate signals no-ops.
func (s *sqlxStore) MarkDeleted(ctx context.Context, messageID, chatID int64, at time.Time) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	query := `
        UPDATE shadow_messages
        SET deleted_at = ?, updated_at = ?
        WHERE message_id = ? AND chat_id = ? AND deleted_at IS NULL;
    `

	result, err := s.db.ExecContext(ctx, query, at.UTC(), time.Now().UTC(), messageID, chatID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error marking message as deleted",
			"message_id", messageID, "chat_id", chatID, "error", err)
		return false, fmt.Errorf("failed to mark message %d in chat %d as deleted: %w",
			messageID, chatID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count after marking deletion",
			"message_id", messageID, "chat_id", chatID, "error", err)
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	transitioned := affected == 1
	s.logger.DebugContext(ctx, "Marked message deletion",
		"message_id", messageID, "chat_id", chatID, "transitioned", transitioned)
	return transitioned, nil
}

// MarkDeletedAnyChat resolves a deletion without chat context. The select
// and the conditional update run in one transaction; the update re-checks
// deleted_at so a concurrent resolution of the same record loses cleanly.
func (s *sqlxStore) MarkDeletedAnyChat(ctx context.Context, messageID int64, at time.Time) (int64, bool, error) {
	if ctx.Err() != nil {
		return 0, false, ctx.Err()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for any-chat deletion",
			"message_id", messageID, "error", err)
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	var candidate struct {
		ID     uint  `db:"id"`
		ChatID int64 `db:"chat_id"`
	}
	selectQuery := `
        SELECT id, chat_id FROM shadow_messages
        WHERE message_id = ? AND deleted_at IS NULL
        ORDER BY sent_at DESC, id DESC
        LIMIT 1;
    `
	err = tx.GetContext(ctx, &candidate, selectQuery, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.DebugContext(ctx, "No live record found for any-chat deletion", "message_id", messageID)
		return 0, false, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error finding candidate for any-chat deletion",
			"message_id", messageID, "error", err)
		return 0, false, fmt.Errorf("failed to find live record for message %d: %w", messageID, err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE shadow_messages SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL;`,
		at.UTC(), time.Now().UTC(), candidate.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error marking any-chat deletion",
			"message_id", messageID, "chat_id", candidate.ChatID, "error", err)
		return 0, false, fmt.Errorf("failed to mark message %d as deleted: %w", messageID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected != 1 {
		// The candidate was resolved between select and update.
		return 0, false, nil
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit any-chat deletion",
			"message_id", messageID, "error", err)
		return 0, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Marked message deleted via any-chat fallback",
		"message_id", messageID, "chat_id", candidate.ChatID)
	return candidate.ChatID, true, nil
}

// FindChatForMessage recovers the chat a message id was observed in,
// without mutating state. Live records win over already-resolved ones.
func (s *sqlxStore) FindChatForMessage(ctx context.Context, messageID int64) (int64, bool, error) {
	if ctx.Err() != nil {
		return 0, false, ctx.Err()
	}

	var chatID int64
	query := `
        SELECT chat_id FROM shadow_messages
        WHERE message_id = ?
        ORDER BY (deleted_at IS NULL) DESC, sent_at DESC, id DESC
        LIMIT 1;
    `

	err := s.db.GetContext(ctx, &chatID, query, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error looking up chat for message", "message_id", messageID, "error", err)
		return 0, false, fmt.Errorf("failed to find chat for message %d: %w", messageID, err)
	}

	return chatID, true, nil
}

// GetMessage retrieves a single record by key. Returns nil, nil if not found.
func (s *sqlxStore) GetMessage(ctx context.Context, messageID, chatID int64) (*ShadowMessage, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var message ShadowMessage
	query := `
        SELECT id, created_at, updated_at, message_id, chat_id, chat_title,
               user_id, username, first_name, last_name, content, sent_at, deleted_at
        FROM shadow_messages
        WHERE message_id = ? AND chat_id = ?
        LIMIT 1;
    `

	err := s.db.GetContext(ctx, &message, query, messageID, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting message",
			"message_id", messageID, "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get message %d in chat %d: %w", messageID, chatID, err)
	}

	return &message, nil
}

// GetDeletedByUser retrieves all resolved records for a user, most
// recently deleted first.
func (s *sqlxStore) GetDeletedByUser(ctx context.Context, userID int64) ([]ShadowMessage, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var messages []ShadowMessage
	query := `
        SELECT id, created_at, updated_at, message_id, chat_id, chat_title,
               user_id, username, first_name, last_name, content, sent_at, deleted_at
        FROM shadow_messages
        WHERE user_id = ? AND deleted_at IS NOT NULL
        ORDER BY deleted_at DESC, id DESC;
    `

	if err := s.db.SelectContext(ctx, &messages, query, userID); err != nil {
		s.logger.ErrorContext(ctx, "Error getting deleted messages for user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get deleted messages for user %d: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Fetched deleted messages for user", "user_id", userID, "count", len(messages))
	return messages, nil
}

// GetRecentMessages retrieves the most recent records regardless of state.
func (s *sqlxStore) GetRecentMessages(ctx context.Context, limit int) ([]ShadowMessage, error) {
	if limit <= 0 {
		limit = 10
	} else if limit > 100 {
		limit = 100
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var messages []ShadowMessage
	query := `
        SELECT id, created_at, updated_at, message_id, chat_id, chat_title,
               user_id, username, first_name, last_name, content, sent_at, deleted_at
        FROM shadow_messages
        ORDER BY id DESC
        LIMIT ?;
    `

	if err := s.db.SelectContext(ctx, &messages, query, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent messages", "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent messages: %w", err)
	}

	return messages, nil
}

// GetStats computes aggregate counters over the shadow cache.
func (s *sqlxStore) GetStats(ctx context.Context) (*Stats, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	stats := &Stats{}
	query := `
        SELECT
            (SELECT COUNT(*) FROM shadow_messages WHERE deleted_at IS NOT NULL)              AS deleted_messages,
            (SELECT COUNT(DISTINCT user_id) FROM shadow_messages WHERE deleted_at IS NOT NULL) AS users_with_deletions,
            (SELECT COUNT(*) FROM shadow_messages WHERE deleted_at IS NULL)                  AS active_messages,
            (SELECT COUNT(DISTINCT chat_id) FROM shadow_messages)                            AS unique_chats;
    `

	if err := s.db.GetContext(ctx, stats, query); err != nil {
		s.logger.ErrorContext(ctx, "Error computing stats", "error", err)
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	return stats, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
// VACUUM must run outside a transaction in SQLite.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	}

	return nil
}
