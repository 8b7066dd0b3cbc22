package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/xeretabot/internal/tracker"
)

type updateHandler struct {
	deps *HandlerDeps
}

// NewUpdateHandler creates the default handler that routes every
// non-command update: inbound messages go to the Recorder, deletion
// signals go through the Correlator and on to the Dispatcher. It takes a
// pointer because the Dispatcher is wired in after the Telegram client
// exists; updates only flow once the listener starts. Each update is
// guarded so a per-event failure never stops the stream.
func NewUpdateHandler(deps *HandlerDeps) bot.HandlerFunc {
	return updateHandler{deps}.Handle
}

func (h updateHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "update")

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Panic while processing update", "update_id", update.ID, "panic", r)
		}
	}()

	switch {
	case update.Message != nil:
		h.deps.Recorder.Record(ctx, messageEventFrom(update.Message))

	case update.BusinessMessage != nil:
		h.deps.Recorder.Record(ctx, messageEventFrom(update.BusinessMessage))

	case update.EditedMessage != nil:
		// Edits redeliver the same (message_id, chat_id); the upsert
		// refreshes the snapshot without touching resolution state.
		h.deps.Recorder.Record(ctx, messageEventFrom(update.EditedMessage))

	case update.EditedBusinessMessage != nil:
		h.deps.Recorder.Record(ctx, messageEventFrom(update.EditedBusinessMessage))

	case update.DeletedBusinessMessages != nil:
		del := deletionFrom(update.DeletedBusinessMessages)
		result := h.deps.Correlator.Correlate(ctx, del)
		h.deps.Dispatcher.Dispatch(result)

	default:
		log.DebugContext(ctx, "Ignoring unhandled update type", "update_id", update.ID)
	}
}

// messageEventFrom converts a raw Telegram message into the fully-typed
// boundary event. All optional fields are checked here, once.
func messageEventFrom(msg *models.Message) tracker.MessageEvent {
	ev := tracker.MessageEvent{
		MessageID: int64(msg.ID),
		ChatID:    msg.Chat.ID,
		ChatTitle: msg.Chat.Title,
		Text:      msg.Text,
		SentAt:    time.Unix(int64(msg.Date), 0).UTC(),
	}

	if msg.From != nil {
		ev.Sender = tracker.Sender{
			ID:        msg.From.ID,
			Username:  msg.From.Username,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
		}
	}

	if ev.Text == "" && msg.Caption != "" {
		ev.Text = msg.Caption
	}

	ev.HasMedia = len(msg.Photo) > 0 ||
		msg.Video != nil ||
		msg.Document != nil ||
		msg.Audio != nil ||
		msg.Voice != nil ||
		msg.VideoNote != nil ||
		msg.Animation != nil ||
		msg.Sticker != nil

	return ev
}

// deletionFrom converts a deleted-messages update into a deletion signal.
// The chat may be absent; ChatID 0 marks it unknown for the correlator.
func deletionFrom(del *models.BusinessMessagesDeleted) tracker.Deletion {
	signal := tracker.Deletion{ChatID: del.Chat.ID}
	for _, id := range del.MessageIDs {
		signal.MessageIDs = append(signal.MessageIDs, int64(id))
	}
	return signal
}
