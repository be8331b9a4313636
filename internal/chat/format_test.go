package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestFormatter(backend *fakeBackend) *Formatter {
	return NewFormatter(NewResolver(backend, zap.NewNop()))
}

func TestFormatOutbound(t *testing.T) {
	f := newTestFormatter(newFakeBackend())

	line := f.Format(context.Background(), Message{
		ChatID: "c1", FromMe: true, Body: "hello", Timestamp: 1000,
	})

	assert.Equal(t, SelfLabel, line.Sender)
	assert.Equal(t, selfColor, line.Color)
	assert.Equal(t, "hello", line.Content)
}

func TestFormatInboundResolvesEffectiveSender(t *testing.T) {
	backend := newFakeBackend()
	backend.contacts["author@s"] = ContactCard{PushName: "Alice"}
	backend.contacts["origin@s"] = ContactCard{PushName: "Bob"}
	f := newTestFormatter(backend)

	// Group message: explicit author wins over origin.
	line := f.Format(context.Background(), Message{
		ChatID: "g1", SenderID: "origin@s", AuthorID: "author@s", Body: "hi",
	})
	assert.Equal(t, "Alice", line.Sender)

	// Direct message: origin is the sender.
	line = f.Format(context.Background(), Message{
		ChatID: "c1", SenderID: "origin@s", Body: "hi",
	})
	assert.Equal(t, "Bob", line.Sender)
}

func TestFormatColorByNameLength(t *testing.T) {
	backend := newFakeBackend()
	backend.contacts["a@s"] = ContactCard{PushName: "Alice"}   // len 5
	backend.contacts["b@s"] = ContactCard{PushName: "Bob"}     // len 3
	backend.contacts["c@s"] = ContactCard{PushName: "Carol"}   // len 5
	f := newTestFormatter(backend)

	alice := f.Format(context.Background(), Message{ChatID: "c", SenderID: "a@s", Body: "x"})
	bob := f.Format(context.Background(), Message{ChatID: "c", SenderID: "b@s", Body: "x"})
	carol := f.Format(context.Background(), Message{ChatID: "c", SenderID: "c@s", Body: "x"})

	assert.Equal(t, palette[5%len(palette)], alice.Color)
	assert.Equal(t, palette[3%len(palette)], bob.Color)
	// Equal-length names collide on the same color. Accepted.
	assert.Equal(t, alice.Color, carol.Color)
}

func TestFormatContent(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"body verbatim", Message{FromMe: true, Body: "hi there"}, "hi there"},
		{"media placeholder names kind", Message{FromMe: true, HasMedia: true, MediaKind: "image"}, "[image] press v to view"},
		{"media placeholder without kind", Message{FromMe: true, HasMedia: true}, "[media] press v to view"},
		{"system placeholder", Message{FromMe: true}, "[system message]"},
	}

	f := newTestFormatter(newFakeBackend())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := f.Format(context.Background(), tt.msg)
			assert.Equal(t, tt.want, line.Content)
			assert.NotEmpty(t, line.Content, "empty body must never render as the literal empty string")
		})
	}
}

func TestFormatTime(t *testing.T) {
	f := newTestFormatter(newFakeBackend())
	ts := time.Date(2025, 3, 1, 14, 30, 0, 0, time.Local).Unix()

	line := f.Format(context.Background(), Message{FromMe: true, Body: "x", Timestamp: ts})
	assert.Equal(t, "14:30", line.Time)
}
