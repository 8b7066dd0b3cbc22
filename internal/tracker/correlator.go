package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/xeretabot/internal/database"
)

const (
	// maxDigestFacts caps how many resolved deletions are enumerated in a
	// single digest; the remainder is reported as an overflow count.
	maxDigestFacts = 5

	// previewLength is the character budget for a deletion fact's text
	// preview before the ellipsis marker is appended.
	previewLength = 50

	// noContentPlaceholder stands in for records snapshotted without a
	// content body.
	noContentPlaceholder = "[no content]"
)

// Fact is the minimal tuple assembled for one successfully resolved
// deletion, used to build the notification digest.
type Fact struct {
	UserID      int64
	DisplayName string
	Username    string
	TextPreview string
}

// Result is the outcome of correlating one deletion signal.
type Result struct {
	ChatID       int64
	ChatKnown    bool
	Transitioned []int64 // ids that actually transitioned to deleted
	Facts        []Fact  // capped at maxDigestFacts
	Overflow     int     // transitions beyond the fact cap
}

// Correlator resolves deletion signals against the shadow store and marks
// matching records deleted exactly once.
type Correlator struct {
	store  database.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewCorrelator creates a Correlator backed by the given store.
func NewCorrelator(store database.Store, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{
		store:  store,
		logger: logger.With("component", "correlator"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Correlate resolves one deletion signal. Per-id store failures are logged
// and skipped; an empty transition set is a normal outcome, not an error.
// Replaying the same signal yields an empty transition set because the
// store's check-and-set transitions each record at most once.
func (c *Correlator) Correlate(ctx context.Context, del Deletion) Result {
	res := Result{ChatID: del.ChatID, ChatKnown: del.ChatID != 0}
	if len(del.MessageIDs) == 0 {
		c.logger.DebugContext(ctx, "Deletion signal carried no message ids")
		return res
	}

	deletedAt := c.now()

	// Recover missing chat context by probing the first id. The platform
	// usually groups one signal per chat, so the first id is representative
	// in the common case; this is a heuristic, not a guarantee.
	if !res.ChatKnown {
		chatID, ok, err := c.store.FindChatForMessage(ctx, del.MessageIDs[0])
		if err != nil {
			c.logger.ErrorContext(ctx, "Chat recovery lookup failed",
				"message_id", del.MessageIDs[0], "error", err)
		} else if ok {
			res.ChatID = chatID
			res.ChatKnown = true
			c.logger.DebugContext(ctx, "Recovered chat from shadow cache",
				"message_id", del.MessageIDs[0], "chat_id", chatID)
		}
	}

	type transition struct {
		messageID int64
		chatID    int64
	}
	var transitions []transition

	if res.ChatKnown {
		for _, id := range del.MessageIDs {
			ok, err := c.store.MarkDeleted(ctx, id, res.ChatID, deletedAt)
			if err != nil {
				c.logger.ErrorContext(ctx, "Failed to mark message as deleted",
					"message_id", id, "chat_id", res.ChatID, "error", err)
				continue
			}
			if ok {
				transitions = append(transitions, transition{messageID: id, chatID: res.ChatID})
			}
		}
	} else {
		// No usable location context at all; resolve each id against any
		// live record. Correctness here is best-effort.
		for _, id := range del.MessageIDs {
			chatID, ok, err := c.store.MarkDeletedAnyChat(ctx, id, deletedAt)
			if err != nil {
				c.logger.ErrorContext(ctx, "Any-chat fallback failed",
					"message_id", id, "error", err)
				continue
			}
			if ok {
				transitions = append(transitions, transition{messageID: id, chatID: chatID})
				if !res.ChatKnown {
					res.ChatID = chatID
					res.ChatKnown = true
				}
			}
		}
	}

	for _, tr := range transitions {
		res.Transitioned = append(res.Transitioned, tr.messageID)
		if len(res.Facts) >= maxDigestFacts {
			res.Overflow++
			continue
		}
		fact, err := c.buildFact(ctx, tr.messageID, tr.chatID)
		if err != nil || fact == nil {
			// Transition is already committed; a missing or unreadable
			// record just loses its digest entry.
			c.logger.WarnContext(ctx, "Could not assemble deletion fact",
				"message_id", tr.messageID, "chat_id", tr.chatID, "error", err)
			continue
		}
		res.Facts = append(res.Facts, *fact)
	}

	if len(res.Transitioned) == 0 {
		c.logger.InfoContext(ctx, "Deletion signal matched no live records",
			"ids", len(del.MessageIDs), "chat_known", res.ChatKnown)
	} else {
		c.logger.InfoContext(ctx, "Resolved deletion signal",
			"transitioned", len(res.Transitioned), "chat_id", res.ChatID)
	}

	return res
}

func (c *Correlator) buildFact(ctx context.Context, messageID, chatID int64) (*Fact, error) {
	record, err := c.store.GetMessage(ctx, messageID, chatID)
	if err != nil || record == nil {
		return nil, err
	}

	content := ""
	if record.Content.Valid {
		content = record.Content.String
	}

	return &Fact{
		UserID:      record.UserID,
		DisplayName: record.DisplayName(),
		Username:    record.Username.String,
		TextPreview: preview(content, previewLength),
	}, nil
}

// preview truncates s to max characters with a trailing ellipsis marker;
// absent text yields the no-content placeholder.
func preview(s string, max int) string {
	if s == "" {
		return noContentPlaceholder
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
