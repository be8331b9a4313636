package wa

import (
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
)

// MediaCache remembers the downloadable proto reference for recently seen
// messages so the UI can fetch media on demand. WhatsApp media is encrypted
// and can only be downloaded with the keys carried in the message itself,
// which the local store does not persist.
type MediaCache struct {
	mu      sync.Mutex
	entries map[string]mediaEntry
	cap     int
}

type mediaEntry struct {
	msg  whatsmeow.DownloadableMessage
	mime string
}

// NewMediaCache creates a cache bounded to cap entries. cap <= 0 uses the
// default of 1024.
func NewMediaCache(capacity int) *MediaCache {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MediaCache{
		entries: make(map[string]mediaEntry),
		cap:     capacity,
	}
}

// Register extracts the downloadable part of msg, if any, and stores it
// under the message id.
func (c *MediaCache) Register(msgID string, msg *waE2E.Message) {
	dl, mime := downloadablePart(msg)
	if dl == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Eviction order is arbitrary; the cache only needs to cover messages
	// still reachable in an open chat.
	for len(c.entries) >= c.cap {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[msgID] = mediaEntry{msg: dl, mime: mime}
}

// Get returns the downloadable reference and MIME type for a message id.
func (c *MediaCache) Get(msgID string) (whatsmeow.DownloadableMessage, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[msgID]
	if !ok {
		return nil, "", false
	}
	return e.msg, e.mime, true
}

// Len returns the number of cached entries.
func (c *MediaCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func downloadablePart(msg *waE2E.Message) (whatsmeow.DownloadableMessage, string) {
	if msg == nil {
		return nil, ""
	}
	switch {
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage(), msg.GetImageMessage().GetMimetype()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage(), msg.GetVideoMessage().GetMimetype()
	case msg.GetAudioMessage() != nil:
		return msg.GetAudioMessage(), msg.GetAudioMessage().GetMimetype()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage(), msg.GetDocumentMessage().GetMimetype()
	case msg.GetStickerMessage() != nil:
		return msg.GetStickerMessage(), msg.GetStickerMessage().GetMimetype()
	default:
		return nil, ""
	}
}
