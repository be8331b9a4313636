package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// List owns the ordered set of known conversations and the selection-to-
// session transition. The order is the backend-provided order, truncated
// to a fixed maximum so huge accounts stay cheap to render and index.
type List struct {
	backend Backend
	gateway Gateway
	session *Session
	logger  *zap.Logger
	max     int

	mu    sync.Mutex
	convs []Conversation
}

// NewList creates a conversation list controller. max bounds the number of
// conversations kept from a Load; values <= 0 fall back to 40.
func NewList(backend Backend, gateway Gateway, session *Session, max int, logger *zap.Logger) *List {
	if max <= 0 {
		max = 40
	}
	return &List{
		backend: backend,
		gateway: gateway,
		session: session,
		logger:  logger,
		max:     max,
	}
}

// Load fetches the conversation list from the backend and publishes the
// display names. The loaded list is immutable until the next Load.
func (l *List) Load(ctx context.Context) error {
	convs, err := l.backend.ListConversations(ctx)
	if err != nil {
		l.logger.Warn("failed to load conversations", zap.Error(err))
		return err
	}
	if len(convs) > l.max {
		convs = convs[:l.max]
	}

	names := make([]string, len(convs))
	for i, c := range convs {
		names[i] = c.DisplayName()
	}

	l.mu.Lock()
	l.convs = convs
	l.mu.Unlock()

	l.gateway.SetConversations(names)
	l.gateway.Render()
	return nil
}

// Len returns the number of loaded conversations.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.convs)
}

// At returns the conversation at a list index.
func (l *List) At(i int) (Conversation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.convs) {
		return Conversation{}, false
	}
	return l.convs[i], true
}

// SelectIndex opens the conversation at the given list index. An index
// outside the loaded list is a no-op.
func (l *List) SelectIndex(ctx context.Context, i int) {
	conv, ok := l.At(i)
	if !ok {
		return
	}
	l.session.Open(ctx, conv)
}
