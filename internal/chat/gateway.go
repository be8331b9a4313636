package chat

// Line is a fully derived renderable message line. It is never mutated
// after creation and can always be re-derived from its Message.
type Line struct {
	Sender  string
	Color   string // tview color name from the palette
	Time    string // local wall-clock hh:mm
	Content string
	IsError bool
}

// Gateway is the narrow contract the core uses to drive the screen.
// Implementations own the actual widget updates; the core never touches
// them directly.
type Gateway interface {
	// AppendLine appends a rendered line to the message pane. The
	// conversation id is the one the line belongs to, so implementations
	// can ignore lines for conversations no longer on screen.
	AppendLine(conversationID string, line Line)
	SetStatus(text string)
	SetConversations(names []string)
	SetTitle(text string)
	Render()
}
