package tracker

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/edgard/xeretabot/internal/database"
)

// mediaPlaceholder is stored as the content snapshot for non-text
// messages when media snapshotting is enabled.
const mediaPlaceholder = "[Media/Non-text message]"

// Recorder shadows inbound messages into the store so their identity
// survives a later deletion.
type Recorder struct {
	store       database.Store
	logger      *slog.Logger
	adminUserID int64
	saveMedia   bool
}

// NewRecorder creates a Recorder. Messages from adminUserID and command
// messages are skipped so operator traffic never pollutes the cache.
func NewRecorder(store database.Store, logger *slog.Logger, adminUserID int64, saveMedia bool) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:       store,
		logger:      logger.With("component", "recorder"),
		adminUserID: adminUserID,
		saveMedia:   saveMedia,
	}
}

// Record snapshots one message event into the shadow store. A storage
// failure is logged and swallowed; ingestion never halts the event stream
// for one bad record.
func (r *Recorder) Record(ctx context.Context, ev MessageEvent) {
	if ev.Sender.ID != 0 && ev.Sender.ID == r.adminUserID {
		r.logger.DebugContext(ctx, "Skipping message from admin", "chat_id", ev.ChatID)
		return
	}
	if strings.HasPrefix(ev.Text, "/") {
		r.logger.DebugContext(ctx, "Skipping command message", "chat_id", ev.ChatID)
		return
	}

	message := &database.ShadowMessage{
		MessageID: ev.MessageID,
		ChatID:    ev.ChatID,
		ChatTitle: nullString(ev.ChatTitle),
		UserID:    ev.Sender.ID,
		Username:  nullString(ev.Sender.Username),
		FirstName: nullString(ev.Sender.FirstName),
		LastName:  nullString(ev.Sender.LastName),
		Content:   r.content(ev),
		SentAt:    ev.SentAt,
	}

	if err := r.store.SaveMessage(ctx, message); err != nil {
		r.logger.ErrorContext(ctx, "Failed to shadow message",
			"message_id", ev.MessageID, "chat_id", ev.ChatID, "error", err)
		return
	}

	r.logger.DebugContext(ctx, "Shadowed message",
		"message_id", ev.MessageID, "chat_id", ev.ChatID, "user_id", ev.Sender.ID)
}

func (r *Recorder) content(ev MessageEvent) sql.NullString {
	if ev.Text != "" {
		return sql.NullString{String: ev.Text, Valid: true}
	}
	if ev.HasMedia && r.saveMedia {
		return sql.NullString{String: mediaPlaceholder, Valid: true}
	}
	return sql.NullString{}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
