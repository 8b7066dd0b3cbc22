package tracker_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/xeretabot/internal/tracker"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []bot.SendMessageParams
	sendErr error
	done    chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{done: make(chan struct{}, 8)}
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	f.sent = append(f.sent, *params)
	err := f.sendErr
	f.mu.Unlock()
	f.done <- struct{}{}
	if err != nil {
		return nil, err
	}
	return &models.Message{}, nil
}

func (f *fakeSender) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for send")
	}
}

func sampleResult() tracker.Result {
	return tracker.Result{
		ChatID:       7,
		ChatKnown:    true,
		Transitioned: []int64{10, 11},
		Facts: []tracker.Fact{
			{UserID: 100, DisplayName: "Ana Silva", Username: "ana", TextPreview: "see you at noon"},
			{UserID: 200, DisplayName: "Bruno", TextPreview: "[no content]"},
		},
	}
}

func TestFormatDigest(t *testing.T) {
	t.Parallel()

	got := tracker.FormatDigest(sampleResult())
	want := "🗑️ 2 message(s) deleted in chat 7\n\n" +
		"1. Ana Silva (@ana) (ID: 100)\n" +
		"💬 `see you at noon`\n\n" +
		"2. Bruno (ID: 200)\n" +
		"💬 `[no content]`"

	if got != want {
		t.Errorf("digest mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatDigestOverflowTrailer(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	res.Transitioned = []int64{10, 11, 12, 13, 14, 15, 16}
	res.Overflow = 5

	got := tracker.FormatDigest(res)
	if !strings.HasPrefix(got, "🗑️ 7 message(s) deleted in chat 7") {
		t.Errorf("headline should count all transitioned ids, got:\n%s", got)
	}
	if !strings.HasSuffix(got, "... and 5 more messages") {
		t.Errorf("expected overflow trailer, got:\n%s", got)
	}
}

func TestDispatchSendsToAdmin(t *testing.T) {
	t.Parallel()

	sender := newFakeSender()
	dispatcher := tracker.NewDispatcher(sender, nil, testAdminID, true)

	dispatcher.Dispatch(sampleResult())
	sender.wait(t)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if sender.sent[0].ChatID != testAdminID {
		t.Errorf("digest sent to %v, want admin %d", sender.sent[0].ChatID, testAdminID)
	}
	if !strings.Contains(sender.sent[0].Text, "Ana Silva") {
		t.Errorf("digest text missing fact: %s", sender.sent[0].Text)
	}
}

func TestDispatchDisabled(t *testing.T) {
	t.Parallel()

	sender := newFakeSender()
	dispatcher := tracker.NewDispatcher(sender, nil, testAdminID, false)

	dispatcher.Dispatch(sampleResult())

	select {
	case <-sender.done:
		t.Error("disabled dispatcher must not send")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatchSkipsEmptyResult(t *testing.T) {
	t.Parallel()

	sender := newFakeSender()
	dispatcher := tracker.NewDispatcher(sender, nil, testAdminID, true)

	dispatcher.Dispatch(tracker.Result{ChatID: 7, Transitioned: nil, Facts: nil})

	select {
	case <-sender.done:
		t.Error("result without facts must not produce a digest")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatchToleratesSendFailure(t *testing.T) {
	t.Parallel()

	sender := newFakeSender()
	sender.sendErr = errors.New("network down")
	dispatcher := tracker.NewDispatcher(sender, nil, testAdminID, true)

	// A failed send is logged and dropped; nothing to assert beyond the
	// call completing without panic.
	dispatcher.Dispatch(sampleResult())
	sender.wait(t)
}
