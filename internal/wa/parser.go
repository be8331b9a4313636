package wa

import (
	"strings"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"

	"zaptui/internal/chat"
	"zaptui/internal/store"
)

// ParsedMessage is a normalized message ready for ingestion. Timestamp is
// unix seconds. AuthorJID is only set for group messages.
type ParsedMessage struct {
	ChatJID      string
	MsgID        string
	SenderJID    string
	AuthorJID    string
	Body         string
	MediaKind    string
	MediaSubtype string
	FromMe       bool
	Timestamp    int64
}

// ParseLiveMessage normalizes a live whatsmeow message event.
func ParseLiveMessage(evt *events.Message) *ParsedMessage {
	kind, subtype := mediaMeta(evt.Message)

	author := ""
	if evt.Info.IsGroup {
		author = NormalizeJID(evt.Info.Sender.String())
	}

	return &ParsedMessage{
		ChatJID:      NormalizeJID(evt.Info.Chat.String()),
		MsgID:        evt.Info.ID,
		SenderJID:    NormalizeJID(evt.Info.Sender.String()),
		AuthorJID:    author,
		Body:         extractTextBody(evt.Message),
		MediaKind:    kind,
		MediaSubtype: subtype,
		FromMe:       evt.Info.IsFromMe,
		Timestamp:    evt.Info.Timestamp.Unix(),
	}
}

// ToStoreMessage converts a ParsedMessage to a store.Message.
func (p *ParsedMessage) ToStoreMessage() *store.Message {
	return &store.Message{
		ChatJID:      p.ChatJID,
		MsgID:        p.MsgID,
		SenderJID:    p.SenderJID,
		AuthorJID:    p.AuthorJID,
		Body:         p.Body,
		MediaKind:    p.MediaKind,
		MediaSubtype: p.MediaSubtype,
		FromMe:       p.FromMe,
		Status:       "received",
		Timestamp:    p.Timestamp,
	}
}

// ToChatMessage converts a stored message into the form the chat session
// consumes.
func ToChatMessage(m *store.Message) chat.Message {
	return chat.Message{
		ID:        m.MsgID,
		ChatID:    m.ChatJID,
		SenderID:  m.SenderJID,
		AuthorID:  m.AuthorJID,
		FromMe:    m.FromMe,
		Body:      m.Body,
		HasMedia:  m.MediaKind != "",
		MediaKind: m.MediaKind,
		Subtype:   m.MediaSubtype,
		Timestamp: m.Timestamp,
	}
}

// NormalizeJID strips the device/agent suffix from a JID string so history
// sync and live messages produce the same chat key. A JID like
// "5585999:3@s.whatsapp.net" becomes "5585999@s.whatsapp.net".
func NormalizeJID(jid string) string {
	at := strings.IndexByte(jid, '@')
	if at < 0 {
		return jid
	}
	user := jid[:at]
	if colon := strings.IndexByte(user, ':'); colon >= 0 {
		user = user[:colon]
	}
	return user + jid[at:]
}

func extractTextBody(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if c := msg.GetConversation(); c != "" {
		return c
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if img := msg.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		return vid.GetCaption()
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		return doc.GetCaption()
	}
	return ""
}

// mediaMeta returns the downloadable media kind and the MIME subtype.
// Both are empty for plain text and the non-downloadable extras
// (contacts, locations, reactions).
func mediaMeta(msg *waE2E.Message) (string, string) {
	if msg == nil {
		return "", ""
	}
	switch {
	case msg.GetImageMessage() != nil:
		return "image", mimeSubtype(msg.GetImageMessage().GetMimetype())
	case msg.GetVideoMessage() != nil:
		return "video", mimeSubtype(msg.GetVideoMessage().GetMimetype())
	case msg.GetAudioMessage() != nil:
		return "audio", mimeSubtype(msg.GetAudioMessage().GetMimetype())
	case msg.GetDocumentMessage() != nil:
		return "document", mimeSubtype(msg.GetDocumentMessage().GetMimetype())
	case msg.GetStickerMessage() != nil:
		return "sticker", mimeSubtype(msg.GetStickerMessage().GetMimetype())
	default:
		return "", ""
	}
}

func mimeSubtype(mimeType string) string {
	if i := strings.IndexByte(mimeType, '/'); i >= 0 && i+1 < len(mimeType) {
		sub := mimeType[i+1:]
		if j := strings.IndexByte(sub, ';'); j >= 0 {
			sub = sub[:j]
		}
		return strings.TrimSpace(sub)
	}
	return ""
}
