package database

import (
	"database/sql"
	"strings"
	"time"
)

// ShadowMessage is the locally retained copy of an observed message,
// captured before possible deletion. A row is uniquely addressed by
// (message_id, chat_id); deleted_at is null while the message is still
// live and set exactly once when a deletion is resolved.
type ShadowMessage struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	MessageID int64          `db:"message_id"`
	ChatID    int64          `db:"chat_id"`
	ChatTitle sql.NullString `db:"chat_title"` // null for private chats
	UserID    int64          `db:"user_id"`
	Username  sql.NullString `db:"username"`
	FirstName sql.NullString `db:"first_name"`
	LastName  sql.NullString `db:"last_name"`
	Content   sql.NullString `db:"content"`
	SentAt    time.Time      `db:"sent_at"`

	DeletedAt sql.NullTime `db:"deleted_at"`
}

// DisplayName builds a human-readable sender name from the snapshot,
// falling back to "Unknown" when no name parts were captured.
func (m *ShadowMessage) DisplayName() string {
	var parts []string
	if m.FirstName.Valid && m.FirstName.String != "" {
		parts = append(parts, m.FirstName.String)
	}
	if m.LastName.Valid && m.LastName.String != "" {
		parts = append(parts, m.LastName.String)
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " ")
}

// Stats aggregates counters over the shadow cache for the admin /stats
// command and the scheduled stats report.
type Stats struct {
	DeletedMessages    int64 `db:"deleted_messages"`
	UsersWithDeletions int64 `db:"users_with_deletions"`
	ActiveMessages     int64 `db:"active_messages"`
	UniqueChats        int64 `db:"unique_chats"`
}
