package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/nextstage/discovery/internal/agent"
)

// Registry maps opaque session ids to live conversations. It is bounded both
// by capacity and by idle TTL, so abandoned sessions cannot grow process
// memory without limit. An evicted session simply starts fresh on its next
// turn.
type Registry struct {
	mu      sync.Mutex
	cache   *expirable.LRU[string, *agent.Conversation]
	newConv func() *agent.Conversation
	logger  *slog.Logger
}

func NewRegistry(capacity int, idleTTL time.Duration, newConv func() *agent.Conversation, logger *slog.Logger) *Registry {
	r := &Registry{newConv: newConv, logger: logger}
	r.cache = expirable.NewLRU[string, *agent.Conversation](capacity, func(id string, _ *agent.Conversation) {
		logger.Debug("session evicted", "session_id", id)
	}, idleTTL)
	return r
}

// GetOrCreate returns the live conversation for id, creating one on first
// use. Idempotent per id: repeated calls return the same instance, so
// concurrent turns on one session observe each other's state. The second
// return value reports whether this call created the session.
func (r *Registry) GetOrCreate(id string) (*agent.Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.cache.Get(id); ok {
		// Re-adding refreshes the idle clock on every turn.
		r.cache.Add(id, conv)
		return conv, false
	}
	conv := r.newConv()
	r.cache.Add(id, conv)
	r.logger.Debug("session created", "session_id", id)
	return conv, true
}

// Get returns the conversation for id without creating one.
func (r *Registry) Get(id string) (*agent.Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Get(id)
}

// Delete removes the session; a later GetOrCreate starts a fresh one.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(id)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
