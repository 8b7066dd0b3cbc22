package tracker_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/edgard/xeretabot/internal/tracker"
)

func ingest(t *testing.T, store *fakeStore, messageID, chatID, userID int64, text string) {
	t.Helper()

	recorder := tracker.NewRecorder(store, nil, 0, true)
	recorder.Record(context.Background(), tracker.MessageEvent{
		MessageID: messageID,
		ChatID:    chatID,
		Sender:    tracker.Sender{ID: userID, FirstName: "Test", Username: "tester"},
		Text:      text,
		SentAt:    time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC),
	})
}

func TestCorrelateChatScoped(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	longText := "hello world this is a long message exceeding fifty characters for preview testing"
	ingest(t, store, 100, 7, 1, longText)

	correlator := tracker.NewCorrelator(store, nil)
	res := correlator.Correlate(context.Background(), tracker.Deletion{
		MessageIDs: []int64{100},
		ChatID:     7,
	})

	if len(res.Transitioned) != 1 || res.Transitioned[0] != 100 {
		t.Fatalf("Transitioned = %v, want [100]", res.Transitioned)
	}
	if len(res.Facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(res.Facts))
	}

	want := string([]rune(longText)[:50]) + "..."
	if res.Facts[0].TextPreview != want {
		t.Errorf("TextPreview = %q, want first 50 characters plus ellipsis %q", res.Facts[0].TextPreview, want)
	}
	if res.Facts[0].UserID != 1 {
		t.Errorf("UserID = %d, want 1", res.Facts[0].UserID)
	}
}

func TestCorrelateRecoversChat(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ingest(t, store, 200, 9, 2, "bye")

	correlator := tracker.NewCorrelator(store, nil)
	res := correlator.Correlate(context.Background(), tracker.Deletion{
		MessageIDs: []int64{200},
	})

	if !res.ChatKnown || res.ChatID != 9 {
		t.Errorf("chat = (%d, %v), want recovered chat (9, true)", res.ChatID, res.ChatKnown)
	}
	if len(res.Transitioned) != 1 {
		t.Fatalf("Transitioned = %v, want one transition", res.Transitioned)
	}
	if len(res.Facts) != 1 || res.Facts[0].TextPreview != "bye" {
		t.Errorf("Facts = %+v, want single fact with preview %q", res.Facts, "bye")
	}
}

func TestCorrelateNoMatch(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	correlator := tracker.NewCorrelator(store, nil)

	res := correlator.Correlate(context.Background(), tracker.Deletion{
		MessageIDs: []int64{999},
		ChatID:     3,
	})

	if len(res.Transitioned) != 0 {
		t.Errorf("Transitioned = %v, want empty", res.Transitioned)
	}
	if len(res.Facts) != 0 {
		t.Errorf("Facts = %v, want empty", res.Facts)
	}
}

func TestCorrelateReplayIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ingest(t, store, 100, 7, 1, "hello")

	correlator := tracker.NewCorrelator(store, nil)
	signal := tracker.Deletion{MessageIDs: []int64{100}, ChatID: 7}

	first := correlator.Correlate(context.Background(), signal)
	if len(first.Transitioned) != 1 {
		t.Fatalf("first correlation: Transitioned = %v, want one transition", first.Transitioned)
	}

	second := correlator.Correlate(context.Background(), signal)
	if len(second.Transitioned) != 0 {
		t.Errorf("replay: Transitioned = %v, want empty", second.Transitioned)
	}
	if len(second.Facts) != 0 {
		t.Errorf("replay: Facts = %v, want empty so no duplicate notification", second.Facts)
	}
}

func TestCorrelateFactCap(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	var ids []int64
	for i := int64(0); i < 8; i++ {
		ingest(t, store, 300+i, 7, 1, "msg")
		ids = append(ids, 300+i)
	}

	correlator := tracker.NewCorrelator(store, nil)
	res := correlator.Correlate(context.Background(), tracker.Deletion{MessageIDs: ids, ChatID: 7})

	if len(res.Transitioned) != 8 {
		t.Fatalf("Transitioned = %d ids, want 8", len(res.Transitioned))
	}
	if len(res.Facts) != 5 {
		t.Errorf("got %d facts, want cap of 5", len(res.Facts))
	}
	if res.Overflow != 3 {
		t.Errorf("Overflow = %d, want 3", res.Overflow)
	}
}

func TestCorrelateAnyChatFallback(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ingest(t, store, 400, 13, 4, "fallback")

	// Chat recovery is unavailable; the any-chat fallback must still
	// resolve the record and report the recovered chat.
	store.findErr = errors.New("lookup unavailable")

	correlator := tracker.NewCorrelator(store, nil)
	res := correlator.Correlate(context.Background(), tracker.Deletion{MessageIDs: []int64{400}})

	if len(res.Transitioned) != 1 {
		t.Fatalf("Transitioned = %v, want one transition via fallback", res.Transitioned)
	}
	if !res.ChatKnown || res.ChatID != 13 {
		t.Errorf("chat = (%d, %v), want fallback-recovered chat (13, true)", res.ChatID, res.ChatKnown)
	}
}

func TestCorrelateNoContentPlaceholder(t *testing.T) {
	t.Parallel()

	store := newFakeStore()

	// Media-only message snapshotted with media saving disabled leaves the
	// content column null.
	recorder := tracker.NewRecorder(store, nil, 0, false)
	recorder.Record(context.Background(), tracker.MessageEvent{
		MessageID: 500,
		ChatID:    7,
		Sender:    tracker.Sender{ID: 5},
		HasMedia:  true,
		SentAt:    time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC),
	})

	correlator := tracker.NewCorrelator(store, nil)
	res := correlator.Correlate(context.Background(), tracker.Deletion{MessageIDs: []int64{500}, ChatID: 7})

	if len(res.Facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(res.Facts))
	}
	if !strings.Contains(res.Facts[0].TextPreview, "no content") {
		t.Errorf("TextPreview = %q, want no-content placeholder", res.Facts[0].TextPreview)
	}
}

func TestCorrelateStoreFailureSkipsId(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ingest(t, store, 600, 7, 6, "msg")
	store.markErr = errors.New("disk failure")

	correlator := tracker.NewCorrelator(store, nil)
	res := correlator.Correlate(context.Background(), tracker.Deletion{MessageIDs: []int64{600}, ChatID: 7})

	if len(res.Transitioned) != 0 {
		t.Errorf("Transitioned = %v, want empty when the store fails", res.Transitioned)
	}
}

func TestCorrelateEmptySignal(t *testing.T) {
	t.Parallel()

	correlator := tracker.NewCorrelator(newFakeStore(), nil)
	res := correlator.Correlate(context.Background(), tracker.Deletion{})

	if len(res.Transitioned) != 0 || len(res.Facts) != 0 {
		t.Errorf("empty signal produced result %+v, want empty", res)
	}
}
