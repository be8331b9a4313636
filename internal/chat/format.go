package chat

import (
	"context"
	"fmt"
	"time"
)

// SelfLabel is the fixed sender label for outbound messages.
const SelfLabel = "You"

// selfColor is the fixed color for outbound messages, outside the palette.
const selfColor = "aqua"

// palette holds the sender colors cycled for inbound messages. The index
// is len(name) mod len(palette): reproducible, non-cryptographic, and two
// names of equal length share a color. That collision is cosmetic.
var palette = []string{"red", "yellow", "fuchsia", "green"}

// Formatter turns a raw message into a renderable line. Apart from
// populating the resolver's cache it is a pure function of its inputs.
type Formatter struct {
	resolver *Resolver
}

// NewFormatter creates a formatter using the given name resolver.
func NewFormatter(resolver *Resolver) *Formatter {
	return &Formatter{resolver: resolver}
}

// Format derives the rendered line for a message. Resolving the sender
// name may suspend on a backend lookup for inbound messages.
func (f *Formatter) Format(ctx context.Context, m Message) Line {
	line := Line{
		Time:    time.Unix(m.Timestamp, 0).Local().Format("15:04"),
		Content: contentText(m),
	}

	if m.FromMe {
		line.Sender = SelfLabel
		line.Color = selfColor
		return line
	}

	name := f.resolver.Resolve(ctx, m.EffectiveSender())
	line.Sender = name
	line.Color = palette[len(name)%len(palette)]
	return line
}

// ErrorLine builds an inline error line for the message pane.
func ErrorLine(text string) Line {
	return Line{Sender: "!", Color: "red", Content: text, IsError: true}
}

func contentText(m Message) string {
	if m.Body != "" {
		return m.Body
	}
	if m.HasMedia {
		kind := m.MediaKind
		if kind == "" {
			kind = "media"
		}
		return fmt.Sprintf("[%s] press v to view", kind)
	}
	return "[system message]"
}
