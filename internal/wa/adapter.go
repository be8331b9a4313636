package wa

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"zaptui/internal/bus"
	"zaptui/internal/chat"
	"zaptui/internal/session"
	"zaptui/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// Adapter wraps the whatsmeow client and manages the WhatsApp connection.
// It implements chat.Backend: conversations and history are read from the
// local store, which the sync engine keeps current.
type Adapter struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
	db        *store.DB
	media     *MediaCache
	bus       *bus.Bus
	logger    *zap.Logger
	session   string
}

// NewAdapter creates a new WhatsApp adapter for the given session.
func NewAdapter(ctx context.Context, sessionName string, db *store.DB, media *MediaCache, b *bus.Bus, logger *zap.Logger) (*Adapter, error) {
	// Set device name shown on the phone's linked devices list.
	wastore.SetOSInfo("ZapTUI", [3]uint32{0, 1, 0})

	dbPath := session.SessionDBPath(sessionName)

	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", dbPath),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device store: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)

	return &Adapter{
		client:    client,
		container: container,
		db:        db,
		media:     media,
		bus:       b,
		logger:    logger,
		session:   sessionName,
	}, nil
}

// Client returns the underlying whatsmeow client.
func (a *Adapter) Client() *whatsmeow.Client {
	return a.client
}

// IsLoggedIn returns whether the adapter has valid credentials.
func (a *Adapter) IsLoggedIn() bool {
	return a.client.Store.ID != nil
}

// Connect initiates the WhatsApp connection.
func (a *Adapter) Connect() error {
	a.logger.Info("connecting to WhatsApp")
	return a.client.Connect()
}

// Disconnect terminates the WhatsApp connection.
func (a *Adapter) Disconnect() {
	a.logger.Info("disconnecting from WhatsApp")
	a.client.Disconnect()
}

// Logout invalidates the session and removes credentials.
func (a *Adapter) Logout(ctx context.Context) error {
	return a.client.Logout(ctx)
}

// RegisterEventHandler adds a handler for whatsmeow events.
func (a *Adapter) RegisterEventHandler(handler whatsmeow.EventHandler) {
	a.client.AddEventHandler(handler)
}

// ListConversations returns the synced chats, most recent first.
func (a *Adapter) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	chats, err := a.db.ListChats(200, 0)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	convs := make([]chat.Conversation, 0, len(chats))
	for _, c := range chats {
		name := c.Name
		if name == c.JID {
			// ListChats falls back to the JID; leave naming to the
			// conversation's own fallback chain instead.
			name = ""
		}
		convs = append(convs, chat.Conversation{
			ID:      c.JID,
			Name:    name,
			User:    jidUser(c.JID),
			IsGroup: c.IsGroup,
		})
	}
	return convs, nil
}

// FetchHistory returns up to limit stored messages for a conversation,
// oldest first.
func (a *Adapter) FetchHistory(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	stored, err := a.db.ListMessages(conversationID, 0, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	// ListMessages is newest first.
	msgs := make([]chat.Message, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		msgs = append(msgs, ToChatMessage(&stored[i]))
	}
	return msgs, nil
}

// SendText sends a text message to the given JID. Returns the server message ID.
func (a *Adapter) SendText(ctx context.Context, jid string, text string) (string, error) {
	to, err := types.ParseJID(jid)
	if err != nil {
		return "", fmt.Errorf("parse JID: %w", err)
	}
	resp, err := a.client.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return resp.ID, nil
}

// ResolveContact looks up the contact record for a JID, consulting the
// synced contact table first and the whatsmeow device store second.
func (a *Adapter) ResolveContact(ctx context.Context, identifier string) (chat.ContactCard, error) {
	if c, err := a.db.GetContact(identifier); err == nil && c != nil {
		if c.PushName != "" || c.Name != "" {
			return chat.ContactCard{
				PushName: c.PushName,
				Name:     c.Name,
				Number:   jidUser(identifier),
			}, nil
		}
	}

	jid, err := types.ParseJID(identifier)
	if err != nil {
		return chat.ContactCard{}, fmt.Errorf("parse JID: %w", err)
	}
	info, err := a.client.Store.Contacts.GetContact(ctx, jid.ToNonAD())
	if err != nil {
		return chat.ContactCard{}, fmt.Errorf("get contact: %w", err)
	}
	card := chat.ContactCard{Number: jid.User}
	if info.Found {
		card.PushName = info.PushName
		card.Name = info.FullName
	}
	return card, nil
}

// DownloadMedia downloads the encrypted payload of a recently seen message.
func (a *Adapter) DownloadMedia(ctx context.Context, messageID string) (chat.MediaPayload, error) {
	dl, mime, ok := a.media.Get(messageID)
	if !ok {
		return chat.MediaPayload{}, fmt.Errorf("no downloadable media for message %s", messageID)
	}
	data, err := a.client.Download(ctx, dl)
	if err != nil {
		return chat.MediaPayload{}, fmt.Errorf("download media: %w", err)
	}
	return chat.MediaPayload{
		MimeType:   mime,
		Base64Data: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// GetQRChannel returns the QR channel for pairing. Must be called before Connect.
func (a *Adapter) GetQRChannel(ctx context.Context) (<-chan whatsmeow.QRChannelItem, error) {
	if a.IsLoggedIn() {
		return nil, fmt.Errorf("already logged in")
	}
	ch, err := a.client.GetQRChannel(ctx)
	if err != nil {
		return nil, fmt.Errorf("get QR channel: %w", err)
	}
	return ch, nil
}

// GetContacts returns all contacts from the whatsmeow device store.
func (a *Adapter) GetContacts(ctx context.Context) []store.Contact {
	allContacts, err := a.client.Store.Contacts.GetAllContacts(ctx)
	if err != nil {
		a.logger.Warn("failed to get contacts from device store", zap.Error(err))
		return nil
	}
	var contacts []store.Contact
	for jid, info := range allContacts {
		contacts = append(contacts, store.Contact{
			JID:      jid.ToNonAD().String(),
			Name:     info.FullName,
			PushName: info.PushName,
		})
	}
	return contacts
}

// PhoneNumber returns the phone number from the device store, or empty string.
func (a *Adapter) PhoneNumber() string {
	if a.client.Store.ID == nil {
		return ""
	}
	return a.client.Store.ID.User
}

func jidUser(jid string) string {
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		return jid[:at]
	}
	return jid
}
