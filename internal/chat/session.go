package chat

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// State is the session lifecycle state.
type State int

const (
	// Idle means no conversation is open.
	Idle State = iota
	// Opening means a history fetch for the active conversation is in flight.
	Opening
	// Open means history is rendered and realtime appends are accepted.
	Open
)

// Enqueuer accepts outbound text for delivery. The queued message is not
// locally echoed; its rendered line arrives via the backend's self-echo.
type Enqueuer interface {
	Enqueue(ctx context.Context, conversationID, text string) error
}

// Session owns which conversation is open, its loaded message sequence,
// and the policy for accepting realtime events. Exactly one session is
// live per process; opening a conversation discards the previous sequence
// wholesale.
//
// Ordering guarantee: lines preserve backend delivery order for both
// history and realtime messages. Timestamps are display-only.
type Session struct {
	backend   Backend
	formatter *Formatter
	gateway   Gateway
	queue     Enqueuer
	logger    *zap.Logger
	histLimit int

	mu       sync.Mutex
	state    State
	activeID string
	gen      uint64 // bumped on every Open; stale fetch completions check it
	seq      []Message
	buffered []Message // realtime messages that arrived while Opening
}

// NewSession creates an idle session.
func NewSession(backend Backend, formatter *Formatter, gateway Gateway, queue Enqueuer, historyLimit int, logger *zap.Logger) *Session {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Session{
		backend:   backend,
		formatter: formatter,
		gateway:   gateway,
		queue:     queue,
		logger:    logger,
		histLimit: historyLimit,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveConversation returns the identifier of the open conversation, or
// empty when idle.
func (s *Session) ActiveConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Messages returns a snapshot of the visible message sequence.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.seq))
	copy(out, s.seq)
	return out
}

// LatestMedia returns the most recent media message in the open
// conversation, if any.
func (s *Session) LatestMedia() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.seq) - 1; i >= 0; i-- {
		if s.seq[i].HasMedia {
			return s.seq[i], true
		}
	}
	return Message{}, false
}

// Open switches the session to the given conversation. The active id is
// set before the history fetch starts so concurrent realtime events are
// filtered (and buffered) correctly; the prior sequence is discarded
// immediately. A fetch completing after another Open has started is
// discarded via the generation check.
func (s *Session) Open(ctx context.Context, conv Conversation) {
	s.mu.Lock()
	s.state = Opening
	s.activeID = conv.ID
	s.gen++
	gen := s.gen
	s.seq = nil
	s.buffered = nil
	s.mu.Unlock()

	s.gateway.SetTitle(conv.DisplayName())
	s.gateway.SetStatus("Loading messages...")
	s.gateway.Render()

	history, err := s.backend.FetchHistory(ctx, conv.ID, s.histLimit)
	if err != nil {
		s.logger.Warn("history load failed",
			zap.String("conversation", conv.ID), zap.Error(err))
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		// A failed load does not block future realtime appends.
		s.state = Open
		buffered := s.buffered
		s.buffered = nil
		s.mu.Unlock()
		s.gateway.AppendLine(conv.ID, ErrorLine("failed to load history"))
		s.finishOpen(ctx, gen, buffered)
		return
	}

	// Backend order is oldest first; append in delivery order. Formatting
	// may suspend on name resolution, so the generation is re-checked at
	// every append, not once at fetch completion.
	for _, m := range history {
		line := s.formatter.Format(ctx, m)
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.seq = append(s.seq, m)
		s.mu.Unlock()
		s.gateway.AppendLine(conv.ID, line)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.state = Open
	buffered := s.buffered
	s.buffered = nil
	s.mu.Unlock()

	s.finishOpen(ctx, gen, buffered)
}

// finishOpen replays realtime messages buffered during Opening and clears
// the transient status.
func (s *Session) finishOpen(ctx context.Context, gen uint64, buffered []Message) {
	for _, m := range buffered {
		s.deliver(ctx, m, gen)
	}
	s.gateway.SetStatus("")
	s.gateway.Render()
}

// Realtime offers a pushed message to the session. Messages for other
// conversations are dropped silently; messages arriving while history is
// loading are buffered and replayed once the page has rendered.
func (s *Session) Realtime(ctx context.Context, m Message) {
	s.mu.Lock()
	if s.state == Idle || m.ChatID != s.activeID {
		s.mu.Unlock()
		return
	}
	if s.state == Opening {
		s.buffered = append(s.buffered, m)
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.mu.Unlock()

	if s.deliver(ctx, m, gen) {
		s.gateway.Render()
	}
}

// deliver formats and appends one message, gated on the current active
// conversation at append time. Duplicates of already-rendered message ids
// are dropped (a buffered realtime message may also be in the fetched
// history page).
func (s *Session) deliver(ctx context.Context, m Message, gen uint64) bool {
	line := s.formatter.Format(ctx, m)

	s.mu.Lock()
	if s.gen != gen || m.ChatID != s.activeID {
		s.mu.Unlock()
		return false
	}
	if m.ID != "" {
		for _, have := range s.seq {
			if have.ID == m.ID {
				s.mu.Unlock()
				return false
			}
		}
	}
	s.seq = append(s.seq, m)
	s.mu.Unlock()

	s.gateway.AppendLine(m.ChatID, line)
	return true
}

// Send queues outbound text for the open conversation. Empty text (after
// trimming) or no open conversation is a no-op. The message is rendered
// only when the backend's self-echo loops back.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	active := s.activeID
	idle := s.state == Idle
	s.mu.Unlock()

	if text == "" || idle || active == "" {
		return nil
	}

	if err := s.queue.Enqueue(ctx, active, text); err != nil {
		s.logger.Error("failed to queue message",
			zap.String("conversation", active), zap.Error(err))
		s.gateway.AppendLine(active, ErrorLine("failed to send: "+err.Error()))
		s.gateway.Render()
		return err
	}
	return nil
}

// SendFailed surfaces a delivery failure as an inline error line if the
// conversation is still the open one.
func (s *Session) SendFailed(conversationID, errText string) {
	s.mu.Lock()
	match := s.state != Idle && conversationID == s.activeID
	s.mu.Unlock()
	if !match {
		return
	}
	s.gateway.AppendLine(conversationID, ErrorLine("failed to send: "+errText))
	s.gateway.Render()
}
