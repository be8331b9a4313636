package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"zaptui/internal/bus"
	"zaptui/internal/store"
	"zaptui/internal/wa"
)

// ContactSource provides the device's contact book for ingestion.
type ContactSource interface {
	GetContacts(ctx context.Context) []store.Contact
}

// Engine handles idempotent ingestion of inbound WhatsApp data into the
// store. It subscribes to "wa." and "sync." events on the bus and processes
// them; the UI reads the store afterwards.
type Engine struct {
	db       *store.DB
	bus      *bus.Bus
	contacts ContactSource
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// NewEngine creates a new sync engine. contacts may be nil when no device
// contact book is available.
func NewEngine(db *store.DB, b *bus.Bus, contacts ContactSource, logger *zap.Logger) *Engine {
	return &Engine{
		db:       db,
		bus:      b,
		contacts: contacts,
		logger:   logger,
	}
}

// Start subscribes to inbound events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	waCh, unsubWA := e.bus.Subscribe("wa.", 256)
	syncCh, unsubSync := e.bus.Subscribe("sync.", 16)

	go func() {
		defer unsubWA()
		defer unsubSync()
		for {
			select {
			case evt := <-waCh:
				e.handleEvent(ctx, evt)
			case evt := <-syncCh:
				e.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(ctx context.Context, evt bus.Event) {
	switch evt.Kind {
	case "wa.message":
		msg, ok := evt.Payload.(*store.Message)
		if !ok {
			return
		}
		if err := e.IngestMessage(msg); err != nil {
			e.logger.Error("failed to ingest message", zap.Error(err), zap.String("msg_id", msg.MsgID))
		}
	case "wa.history_batch":
		batch, ok := evt.Payload.(*wa.HistoryBatch)
		if !ok {
			return
		}
		if err := e.IngestHistoryBatch(batch); err != nil {
			e.logger.Error("failed to ingest history batch", zap.Error(err), zap.Int("count", len(batch.Messages)))
		} else {
			e.logger.Info("history batch ingested",
				zap.Int("chats", len(batch.Chats)),
				zap.Int("messages", len(batch.Messages)))
		}
	case "sync.connected":
		e.SyncContacts(ctx)
	}
}

// IngestMessage processes a single message into the store (idempotent).
func (e *Engine) IngestMessage(msg *store.Message) error {
	if err := e.db.UpsertChat(&store.Chat{
		JID:                msg.ChatJID,
		IsGroup:            msg.AuthorJID != "",
		LastMessageAt:      msg.Timestamp,
		LastMessagePreview: truncate(msg.Body, 100),
	}); err != nil {
		return fmt.Errorf("upsert chat: %w", err)
	}

	if err := e.db.UpsertMessage(msg); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}

	e.bus.Publish(bus.Event{
		Kind:      "message.upserted",
		Timestamp: time.Now(),
		Payload:   msg,
	})

	return nil
}

// IngestHistoryBatch processes one history sync blob in a transaction.
func (e *Engine) IngestHistoryBatch(batch *wa.HistoryBatch) error {
	tx, err := e.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()

	for _, c := range batch.Chats {
		if _, err := tx.Exec(`
			INSERT INTO chats (jid, name, is_group, unread_count, last_message_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(jid) DO UPDATE SET
				name = CASE WHEN excluded.name != '' THEN excluded.name ELSE chats.name END,
				is_group = MAX(chats.is_group, excluded.is_group),
				unread_count = excluded.unread_count,
				last_message_at = MAX(chats.last_message_at, excluded.last_message_at),
				updated_at = excluded.updated_at`,
			c.JID, c.Name, c.IsGroup, c.UnreadCount, c.LastMessageAt, now); err != nil {
			return fmt.Errorf("upsert chat in batch: %w", err)
		}
	}

	for _, sm := range batch.Messages {
		if _, err := tx.Exec(`
			INSERT INTO messages (chat_jid, msg_id, sender_jid, author_jid, body, media_kind, media_subtype, from_me, status, timestamp, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(chat_jid, msg_id) DO UPDATE SET
				body = excluded.body,
				media_kind = excluded.media_kind,
				media_subtype = excluded.media_subtype,
				status = excluded.status`,
			sm.ChatJID, sm.MsgID, sm.SenderJID, sm.AuthorJID, sm.Body, sm.MediaKind, sm.MediaSubtype, sm.FromMe, sm.Status, sm.Timestamp, now); err != nil {
			return fmt.Errorf("upsert message in batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	if err := e.db.SetState("history_synced_at", fmt.Sprintf("%d", time.Now().Unix())); err != nil {
		e.logger.Warn("failed to record sync checkpoint", zap.Error(err))
	}

	e.bus.Publish(bus.Event{
		Kind:      "sync.history_batch",
		Timestamp: time.Now(),
		Payload: map[string]int{
			"chats_count":    len(batch.Chats),
			"messages_count": len(batch.Messages),
		},
	})

	return nil
}

// SyncContacts pulls the device contact book into the store so display
// names resolve without round trips.
func (e *Engine) SyncContacts(ctx context.Context) {
	if e.contacts == nil {
		return
	}
	contacts := e.contacts.GetContacts(ctx)
	if len(contacts) == 0 {
		return
	}
	if err := e.db.BulkUpsertContacts(contacts); err != nil {
		e.logger.Error("failed to sync contacts", zap.Error(err), zap.Int("count", len(contacts)))
		return
	}
	e.logger.Info("contacts synced", zap.Int("count", len(contacts)))
	e.bus.Publish(bus.Event{Kind: "sync.contacts", Timestamp: time.Now(), Payload: len(contacts)})
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
