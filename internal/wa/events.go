package wa

import (
	"strings"
	"time"

	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"zaptui/internal/bus"
	"zaptui/internal/status"
	"zaptui/internal/store"
)

// HistoryBatch is the payload of a "wa.history_batch" event: conversation
// metadata plus the messages of one history sync blob.
type HistoryBatch struct {
	Chats    []*store.Chat
	Messages []*store.Message
}

// EventHandler processes whatsmeow events, drives the state machine,
// and publishes parsed domain events on the bus. It does NOT call the
// sync engine directly; the engine subscribes to the bus independently.
type EventHandler struct {
	bus     *bus.Bus
	machine *status.Machine
	media   *MediaCache
	logger  *zap.Logger
}

// NewEventHandler creates a new event handler. media may be nil when media
// downloads are not needed.
func NewEventHandler(b *bus.Bus, machine *status.Machine, media *MediaCache, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		bus:     b,
		machine: machine,
		media:   media,
		logger:  logger,
	}
}

// Handle is the main whatsmeow event handler function.
func (h *EventHandler) Handle(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		h.handleMessage(evt)
	case *events.Connected:
		h.logger.Info("WhatsApp connected")
		current := h.machine.Current()
		if current == status.AuthRequired || current == status.Reconnecting {
			_ = h.machine.Transition(status.Connecting)
		}
		_ = h.machine.Transition(status.Syncing)
		h.bus.Publish(bus.Event{Kind: "sync.connected", Timestamp: time.Now()})
	case *events.Disconnected:
		h.logger.Warn("WhatsApp disconnected")
		_ = h.machine.Transition(status.Reconnecting)
		h.bus.Publish(bus.Event{Kind: "sync.disconnected", Timestamp: time.Now()})
	case *events.HistorySync:
		h.handleHistorySync(evt)
	case *events.LoggedOut:
		h.logger.Warn("WhatsApp logged out", zap.String("reason", evt.Reason.String()))
		_ = h.machine.Transition(status.AuthRequired)
		h.bus.Publish(bus.Event{Kind: "session.logged_out", Timestamp: time.Now(), Payload: evt.Reason.String()})
	}
}

func (h *EventHandler) handleMessage(evt *events.Message) {
	if h.machine.Current() == status.Syncing {
		_ = h.machine.Transition(status.Ready)
	}

	if h.media != nil {
		h.media.Register(evt.Info.ID, evt.Message)
	}

	parsed := ParseLiveMessage(evt)
	h.bus.Publish(bus.Event{
		Kind:      "wa.message",
		Timestamp: time.Now(),
		Payload:   parsed.ToStoreMessage(),
	})
}

func (h *EventHandler) handleHistorySync(evt *events.HistorySync) {
	data := evt.Data
	if data == nil {
		return
	}

	var batch HistoryBatch
	for _, conv := range data.GetConversations() {
		chatJID := NormalizeJID(conv.GetID())
		isGroup := strings.HasSuffix(chatJID, "@g.us")

		batch.Chats = append(batch.Chats, &store.Chat{
			JID:           chatJID,
			Name:          conv.GetName(),
			IsGroup:       isGroup,
			UnreadCount:   int(conv.GetUnreadCount()),
			LastMessageAt: int64(conv.GetConversationTimestamp()),
		})

		for _, hm := range conv.GetMessages() {
			wmsg := hm.GetMessage()
			if wmsg == nil || wmsg.GetMessage() == nil {
				continue
			}
			content := wmsg.GetMessage()
			key := wmsg.GetKey()

			author := key.GetParticipant()
			if author == "" {
				author = wmsg.GetParticipant()
			}
			author = NormalizeJID(author)

			sender := chatJID
			if isGroup {
				sender = author
			}

			if h.media != nil {
				h.media.Register(key.GetID(), content)
			}

			kind, subtype := mediaMeta(content)
			parsed := &ParsedMessage{
				ChatJID:      chatJID,
				MsgID:        key.GetID(),
				SenderJID:    sender,
				Body:         extractTextBody(content),
				MediaKind:    kind,
				MediaSubtype: subtype,
				FromMe:       key.GetFromMe(),
				Timestamp:    int64(wmsg.GetMessageTimestamp()),
			}
			if isGroup {
				parsed.AuthorJID = author
			}
			batch.Messages = append(batch.Messages, parsed.ToStoreMessage())
		}
	}

	if len(batch.Chats) > 0 || len(batch.Messages) > 0 {
		h.bus.Publish(bus.Event{
			Kind:      "wa.history_batch",
			Timestamp: time.Now(),
			Payload:   &batch,
		})
	}
}
