package outbox

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"zaptui/internal/bus"
	"zaptui/internal/store"
)

// mockSender records calls and returns configurable results.
type mockSender struct {
	calls []sendCall
	err   error
}

type sendCall struct {
	JID  string
	Text string
}

func (m *mockSender) SendText(_ context.Context, jid string, text string) (string, error) {
	m.calls = append(m.calls, sendCall{JID: jid, Text: text})
	if m.err != nil {
		return "", m.err
	}
	return "server-" + jid, nil
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEnqueueCreatesPendingEntry(t *testing.T) {
	db := testDB(t)
	s := NewSender(db, &mockSender{}, bus.New(), zap.NewNop())

	if err := s.Enqueue(context.Background(), "chat@s", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := s.Enqueue(context.Background(), "chat@s", "world"); err != nil {
		t.Fatal(err)
	}

	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	if pending[0].ClientMsgID == pending[1].ClientMsgID {
		t.Error("client ids must be unique per message")
	}
	if pending[0].Body != "hello" || pending[1].Body != "world" {
		t.Errorf("bodies = %q, %q", pending[0].Body, pending[1].Body)
	}
}

func TestSenderProcessesPendingMessages(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockSender{}
	s := NewSender(db, mock, b, zap.NewNop())

	// Subscribe to ack events.
	ch, unsub := b.Subscribe("message.send_ack", 10)
	defer unsub()

	// Queue a message.
	if err := db.UpsertChat(&store.Chat{JID: "chat@s"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Enqueue(context.Background(), "chat@s", "hello"); err != nil {
		t.Fatal(err)
	}

	// Start sender and wait for it to process.
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(time.Second)

	// Verify the mock was called.
	if len(mock.calls) != 1 {
		t.Fatalf("got %d send calls, want 1", len(mock.calls))
	}
	if mock.calls[0].JID != "chat@s" || mock.calls[0].Text != "hello" {
		t.Errorf("call = %+v, want {chat@s, hello}", mock.calls[0])
	}

	// Verify outbox is drained (no more pending).
	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending, want 0 after send", len(pending))
	}

	// The sent message must NOT be inserted locally; the server echo is
	// the only source of outbound messages in the store.
	msgs, err := db.ListMessages("chat@s", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d local messages, want 0 (no local echo)", len(msgs))
	}

	// Verify ack event published.
	select {
	case evt := <-ch:
		if evt.Kind != "message.send_ack" {
			t.Errorf("event kind = %q, want message.send_ack", evt.Kind)
		}
		payload := evt.Payload.(map[string]string)
		if payload["server_msg_id"] != "server-chat@s" {
			t.Errorf("server_msg_id = %q", payload["server_msg_id"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for send_ack event")
	}
}

func TestSenderHandlesFailure(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockSender{err: fmt.Errorf("network error")}
	s := NewSender(db, mock, b, zap.NewNop())

	// Subscribe to failure events.
	ch, unsub := b.Subscribe("message.send_failed", 10)
	defer unsub()

	if err := db.UpsertChat(&store.Chat{JID: "chat@s"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Enqueue(context.Background(), "chat@s", "hello"); err != nil {
		t.Fatal(err)
	}

	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(time.Second)

	// Verify failure event published, carrying the chat for UI routing.
	select {
	case evt := <-ch:
		if evt.Kind != "message.send_failed" {
			t.Errorf("event kind = %q, want message.send_failed", evt.Kind)
		}
		payload := evt.Payload.(map[string]string)
		if payload["chat_jid"] != "chat@s" {
			t.Errorf("chat_jid = %q, want chat@s", payload["chat_jid"])
		}
		if payload["error"] != "network error" {
			t.Errorf("error = %q", payload["error"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for send_failed event")
	}

	// Verify outbox entry is no longer pending (marked failed).
	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending, want 0 (should be marked failed)", len(pending))
	}
}
