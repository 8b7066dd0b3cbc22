package tracker_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edgard/xeretabot/internal/database"
)

type recordKey struct {
	messageID int64
	chatID    int64
}

// fakeStore is an in-memory Store with the same check-and-set resolution
// semantics as the SQLite implementation, plus per-method error injection.
type fakeStore struct {
	mu      sync.Mutex
	records map[recordKey]*database.ShadowMessage
	nextID  uint

	saveErr error
	markErr error
	findErr error
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[recordKey]*database.ShadowMessage)}
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) SaveMessage(ctx context.Context, message *database.ShadowMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}

	key := recordKey{messageID: message.MessageID, chatID: message.ChatID}
	if existing, ok := f.records[key]; ok {
		deletedAt := existing.DeletedAt
		clone := *message
		clone.ID = existing.ID
		clone.DeletedAt = deletedAt
		f.records[key] = &clone
		return nil
	}

	f.nextID++
	clone := *message
	clone.ID = f.nextID
	f.records[key] = &clone
	return nil
}

func (f *fakeStore) MarkDeleted(ctx context.Context, messageID, chatID int64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.markErr != nil {
		return false, f.markErr
	}

	record, ok := f.records[recordKey{messageID: messageID, chatID: chatID}]
	if !ok || record.DeletedAt.Valid {
		return false, nil
	}
	record.DeletedAt.Time = at
	record.DeletedAt.Valid = true
	return true, nil
}

func (f *fakeStore) MarkDeletedAnyChat(ctx context.Context, messageID int64, at time.Time) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.markErr != nil {
		return 0, false, f.markErr
	}

	var candidate *database.ShadowMessage
	for key, record := range f.records {
		if key.messageID != messageID || record.DeletedAt.Valid {
			continue
		}
		if candidate == nil ||
			record.SentAt.After(candidate.SentAt) ||
			(record.SentAt.Equal(candidate.SentAt) && record.ID > candidate.ID) {
			candidate = record
		}
	}
	if candidate == nil {
		return 0, false, nil
	}
	candidate.DeletedAt.Time = at
	candidate.DeletedAt.Valid = true
	return candidate.ChatID, true, nil
}

func (f *fakeStore) FindChatForMessage(ctx context.Context, messageID int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return 0, false, f.findErr
	}

	var candidate *database.ShadowMessage
	for key, record := range f.records {
		if key.messageID != messageID {
			continue
		}
		if candidate == nil || betterChatCandidate(record, candidate) {
			candidate = record
		}
	}
	if candidate == nil {
		return 0, false, nil
	}
	return candidate.ChatID, true, nil
}

func betterChatCandidate(record, current *database.ShadowMessage) bool {
	recordLive := !record.DeletedAt.Valid
	currentLive := !current.DeletedAt.Valid
	if recordLive != currentLive {
		return recordLive
	}
	if !record.SentAt.Equal(current.SentAt) {
		return record.SentAt.After(current.SentAt)
	}
	return record.ID > current.ID
}

func (f *fakeStore) GetMessage(ctx context.Context, messageID, chatID int64) (*database.ShadowMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}

	record, ok := f.records[recordKey{messageID: messageID, chatID: chatID}]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (f *fakeStore) GetDeletedByUser(ctx context.Context, userID int64) ([]database.ShadowMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []database.ShadowMessage
	for _, record := range f.records {
		if record.UserID == userID && record.DeletedAt.Valid {
			result = append(result, *record)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DeletedAt.Time.After(result[j].DeletedAt.Time)
	})
	return result, nil
}

func (f *fakeStore) GetRecentMessages(ctx context.Context, limit int) ([]database.ShadowMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []database.ShadowMessage
	for _, record := range f.records {
		result = append(result, *record)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeStore) GetStats(ctx context.Context) (*database.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &database.Stats{}
	users := make(map[int64]struct{})
	chats := make(map[int64]struct{})
	for _, record := range f.records {
		chats[record.ChatID] = struct{}{}
		if record.DeletedAt.Valid {
			stats.DeletedMessages++
			users[record.UserID] = struct{}{}
		} else {
			stats.ActiveMessages++
		}
	}
	stats.UsersWithDeletions = int64(len(users))
	stats.UniqueChats = int64(len(chats))
	return stats, nil
}

func (f *fakeStore) RunSQLMaintenance(ctx context.Context) error { return nil }
