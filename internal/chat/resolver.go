package chat

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Resolver resolves participant identifiers to display names, caching
// results for the life of the process. Failed lookups are cached too
// (with a fallback derived from the identifier) so a flaky backend costs
// at most one lookup per contact per run.
type Resolver struct {
	mu      sync.Mutex
	backend Backend
	cache   map[string]string
	logger  *zap.Logger
}

// NewResolver creates a resolver backed by the given backend.
func NewResolver(backend Backend, logger *zap.Logger) *Resolver {
	return &Resolver{
		backend: backend,
		cache:   make(map[string]string),
		logger:  logger,
	}
}

// Resolve returns the display name for an identifier: pushname if present,
// else the contact name, else the bare number. On a lookup error the
// identifier's user part (before "@") is used and cached.
func (r *Resolver) Resolve(ctx context.Context, identifier string) string {
	r.mu.Lock()
	if name, ok := r.cache[identifier]; ok {
		r.mu.Unlock()
		return name
	}
	r.mu.Unlock()

	name := ""
	card, err := r.backend.ResolveContact(ctx, identifier)
	if err != nil {
		r.logger.Debug("contact lookup failed, using fallback",
			zap.String("identifier", identifier), zap.Error(err))
	} else {
		name = pickName(card)
	}
	if name == "" {
		name = fallbackName(identifier)
	}

	r.mu.Lock()
	r.cache[identifier] = name
	r.mu.Unlock()
	return name
}

// Cached returns the cached name for an identifier without triggering a
// backend lookup.
func (r *Resolver) Cached(identifier string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.cache[identifier]
	return name, ok
}

func pickName(card ContactCard) string {
	if card.PushName != "" {
		return card.PushName
	}
	if card.Name != "" {
		return card.Name
	}
	return card.Number
}

func fallbackName(identifier string) string {
	if at := strings.IndexByte(identifier, '@'); at >= 0 {
		return identifier[:at]
	}
	return identifier
}
