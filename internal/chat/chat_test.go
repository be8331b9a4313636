package chat

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// fakeBackend is an in-memory Backend with per-call controls.
type fakeBackend struct {
	mu         sync.Mutex
	convs      []Conversation
	convsErr   error
	history    map[string][]Message
	historyErr error
	contacts   map[string]ContactCard
	resolveErr error
	lookups    map[string]int
	fetchGate  chan struct{} // when set, FetchHistory blocks until closed
	fetchBusy  chan string   // receives the conversation id once a gated fetch is blocking
	sent       []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		history:  make(map[string][]Message),
		contacts: make(map[string]ContactCard),
		lookups:  make(map[string]int),
	}
}

func (f *fakeBackend) ListConversations(context.Context) ([]Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.convs, f.convsErr
}

func (f *fakeBackend) FetchHistory(_ context.Context, id string, limit int) ([]Message, error) {
	f.mu.Lock()
	gate := f.fetchGate
	busy := f.fetchBusy
	f.mu.Unlock()
	if gate != nil {
		if busy != nil {
			busy <- id
		}
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	msgs := f.history[id]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (f *fakeBackend) SendText(_ context.Context, id, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, id+":"+text)
	return "srv-1", nil
}

func (f *fakeBackend) ResolveContact(_ context.Context, id string) (ContactCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups[id]++
	if f.resolveErr != nil {
		return ContactCard{}, f.resolveErr
	}
	card, ok := f.contacts[id]
	if !ok {
		return ContactCard{}, errors.New("unknown contact")
	}
	return card, nil
}

func (f *fakeBackend) DownloadMedia(context.Context, string) (MediaPayload, error) {
	return MediaPayload{}, errors.New("not implemented")
}

// recordingGateway captures every render call for assertions.
type recordingGateway struct {
	mu      sync.Mutex
	lines   map[string][]Line
	status  []string
	names   []string
	title   string
	renders int
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{lines: make(map[string][]Line)}
}

func (g *recordingGateway) AppendLine(conversationID string, line Line) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lines[conversationID] = append(g.lines[conversationID], line)
}

func (g *recordingGateway) SetStatus(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = append(g.status, text)
}

func (g *recordingGateway) SetConversations(names []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.names = names
}

func (g *recordingGateway) SetTitle(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.title = text
}

func (g *recordingGateway) Render() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.renders++
}

func (g *recordingGateway) linesFor(conversationID string) []Line {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Line, len(g.lines[conversationID]))
	copy(out, g.lines[conversationID])
	return out
}

// recordingQueue is an Enqueuer that records queued sends.
type recordingQueue struct {
	mu     sync.Mutex
	queued []string
	err    error
}

func (q *recordingQueue) Enqueue(_ context.Context, conversationID, text string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.queued = append(q.queued, conversationID+":"+text)
	return nil
}

type fixture struct {
	backend *fakeBackend
	gateway *recordingGateway
	queue   *recordingQueue
	session *Session
	list    *List
}

func newFixture() *fixture {
	backend := newFakeBackend()
	gateway := newRecordingGateway()
	queue := &recordingQueue{}
	logger := zap.NewNop()
	resolver := NewResolver(backend, logger)
	session := NewSession(backend, NewFormatter(resolver), gateway, queue, 20, logger)
	list := NewList(backend, gateway, session, 40, logger)
	return &fixture{backend: backend, gateway: gateway, queue: queue, session: session, list: list}
}
