package chat

import "context"

// Conversation is an addressable chat thread (direct or group).
type Conversation struct {
	ID      string // opaque backend identifier, e.g. "5511999@s.whatsapp.net"
	Name    string // resolved name, may be empty
	User    string // bare user part of the identifier, e.g. "5511999"
	IsGroup bool
}

// DisplayName returns the name to show in the conversation list:
// the conversation name if present, else the bare user, else the raw id.
func (c Conversation) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.User != "" {
		return c.User
	}
	return c.ID
}

// Message is a single message record, normalized at the backend boundary.
type Message struct {
	ID        string
	ChatID    string // parent conversation identifier
	SenderID  string // origin identifier (the conversation peer for direct chats)
	AuthorID  string // explicit author, set only for group conversations
	FromMe    bool
	Body      string
	HasMedia  bool
	MediaKind string // "image", "video", "audio", "document", "sticker"
	Subtype   string // MIME subtype of the media payload, e.g. "jpeg"
	Timestamp int64  // seconds since epoch
}

// EffectiveSender returns the identifier whose name should be attributed:
// the author field for group conversations, else the origin field.
func (m Message) EffectiveSender() string {
	if m.AuthorID != "" {
		return m.AuthorID
	}
	return m.SenderID
}

// ContactCard is the backend's raw contact record. All fields are optional
// except Number, which is derived from the identifier itself.
type ContactCard struct {
	PushName string
	Name     string
	Number   string
}

// MediaPayload is a downloaded media blob in transport encoding.
type MediaPayload struct {
	MimeType   string
	Base64Data string
}

// Backend is the messaging collaborator the core talks to. Implementations
// must return history pages ordered oldest first.
type Backend interface {
	ListConversations(ctx context.Context) ([]Conversation, error)
	FetchHistory(ctx context.Context, conversationID string, limit int) ([]Message, error)
	SendText(ctx context.Context, conversationID, text string) (serverMsgID string, err error)
	ResolveContact(ctx context.Context, identifier string) (ContactCard, error)
	DownloadMedia(ctx context.Context, messageID string) (MediaPayload, error)
}
